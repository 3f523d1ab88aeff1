package audio

import (
	"fmt"
	"math"
)

// ----- Envelope Stage ----- //

// EnvelopeStage is the current segment of an ADSR envelope.
type EnvelopeStage int

const (
	StageIdle EnvelopeStage = iota
	StageAttack
	StageDecay
	StageSustain
	StageRelease
)

var stageNames = []string{"idle", "attack", "decay", "sustain", "release"}

func (s EnvelopeStage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

// ----- Envelope Curve ----- //

type envelopeCurve int

const (
	curveLinear envelopeCurve = iota
	curveExponential
)

func envelopeCurveFromString(s string) (envelopeCurve, error) {
	switch s {
	case "linear", "":
		return curveLinear, nil
	case "exponential":
		return curveExponential, nil
	}
	return curveLinear, fmt.Errorf("unknown envelope curve %q", s)
}

func (c envelopeCurve) String() string {
	if c == curveExponential {
		return "exponential"
	}
	return "linear"
}

const (
	// floor used for multiplicative steps, which cannot start from or reach 0
	expFloor           = 1e-6
	maxEnvelopeSeconds = 600.0
)

func envelopeTime(seconds float64) float64 {
	return clamp(seconds, 0, maxEnvelopeSeconds)
}

// ----- ADSR ----- //

/*
  1 +     x
    |    / \
    |   /   \
  s +  /     x------x
    | /              \
    |/                \
  0 +-----+---+------+---
    |a    |d  |      |r |
*/
type ADSR struct {
	sampleRate float64
	attack     float64 // s
	decay      float64 // s
	sustain    float64 // 0-1
	release    float64 // s
	curve      envelopeCurve

	stage     EnvelopeStage
	level     float64
	step      float64 // increment (linear) or ratio (exponential)
	remaining int     // samples left in the current stage
}

// NewADSR creates an idle envelope.
func NewADSR(sampleRate float64) *ADSR {
	return &ADSR{
		sampleRate: sampleRate,
		attack:     0.01,
		decay:      0.1,
		sustain:    0.7,
		release:    0.2,
	}
}

func (a *ADSR) stageTarget() (target float64, seconds float64) {
	switch a.stage {
	case StageAttack:
		return 1, a.attack
	case StageDecay:
		return a.sustain, a.decay
	case StageRelease:
		return 0, a.release
	}
	return a.level, 0
}

// retarget recomputes the step from the current level toward the target of
// the current stage.
func (a *ADSR) retarget() {
	target, seconds := a.stageTarget()
	n := int(math.Round(seconds * a.sampleRate))
	a.remaining = n
	if n <= 0 {
		a.step = 0
		return
	}
	if a.curve == curveExponential {
		from := math.Max(a.level, expFloor)
		to := math.Max(target, expFloor)
		a.step = math.Pow(to/from, 1/float64(n))
		if a.level < expFloor {
			a.level = expFloor
		}
		return
	}
	a.step = (target - a.level) / float64(n)
}

func (a *ADSR) enter(stage EnvelopeStage) {
	a.stage = stage
	switch stage {
	case StageIdle:
		a.level = 0
		a.step = 0
		a.remaining = 0
	case StageSustain:
		a.level = a.sustain
		a.step = 0
		a.remaining = 0
	default:
		a.retarget()
	}
}

// NoteOn starts the attack from the current level.
func (a *ADSR) NoteOn() {
	a.enter(StageAttack)
}

// NoteOff starts the release from the current level.
func (a *ADSR) NoteOff() {
	if a.stage == StageIdle {
		return
	}
	a.enter(StageRelease)
}

func (a *ADSR) advance() {
	switch a.stage {
	case StageIdle:
		return
	case StageSustain:
		a.level = a.sustain
		return
	}
	if a.remaining <= 0 {
		a.finishStage()
		return
	}
	if a.curve == curveExponential {
		a.level *= a.step
	} else {
		a.level += a.step
	}
	a.level = clamp(a.level, 0, 1)
	a.remaining--
	if a.remaining <= 0 {
		a.finishStage()
	}
}

func (a *ADSR) finishStage() {
	target, _ := a.stageTarget()
	a.level = target
	switch a.stage {
	case StageAttack:
		a.enter(StageDecay)
		if a.remaining <= 0 {
			a.enter(StageSustain)
		}
	case StageDecay:
		a.enter(StageSustain)
	case StageRelease:
		a.enter(StageIdle)
	}
}

// GetAmplitude advances one sample and returns the level.
func (a *ADSR) GetAmplitude() float64 {
	a.advance()
	return a.level
}

// GetStage returns the current stage.
func (a *ADSR) GetStage() EnvelopeStage { return a.stage }

// IsFinished reports whether the envelope is idle.
func (a *ADSR) IsFinished() bool { return a.stage == StageIdle }

// Level returns the current level without advancing.
func (a *ADSR) Level() float64 { return a.level }

func (a *ADSR) paramsChanged() {
	switch a.stage {
	case StageAttack, StageDecay, StageRelease:
		a.retarget()
	}
}

// SetAttack sets the attack time in seconds. Negative values are clamped to 0.
func (a *ADSR) SetAttack(seconds float64) {
	a.attack = envelopeTime(seconds)
	a.paramsChanged()
}

// SetDecay sets the decay time in seconds.
func (a *ADSR) SetDecay(seconds float64) {
	a.decay = envelopeTime(seconds)
	a.paramsChanged()
}

// SetSustain sets the sustain level, clamped to [0,1].
func (a *ADSR) SetSustain(level float64) {
	a.sustain = clamp(level, 0, 1)
	a.paramsChanged()
}

// SetRelease sets the release time in seconds.
func (a *ADSR) SetRelease(seconds float64) {
	a.release = envelopeTime(seconds)
	a.paramsChanged()
}

func (a *ADSR) setCurve(curve envelopeCurve) {
	a.curve = curve
	a.paramsChanged()
}

func (a *ADSR) setParams(p *EnvelopeParams) {
	a.attack = envelopeTime(p.Attack)
	a.decay = envelopeTime(p.Decay)
	a.sustain = clamp(p.Sustain, 0, 1)
	a.release = envelopeTime(p.Release)
	curve, err := envelopeCurveFromString(p.Curve)
	if err == nil {
		a.curve = curve
	}
	a.paramsChanged()
}

// ADSR as a chain module multiplies its input by the envelope.
func (a *ADSR) Process(in float64, _ float64) float64 {
	return in * a.GetAmplitude()
}
func (a *ADSR) Kind() moduleKind { return moduleADSR }
func (a *ADSR) Name() string     { return "ADSR" }
func (a *ADSR) clone() Module {
	c := *a
	return &c
}
func (a *ADSR) adopt(src Module) {
	if s, ok := src.(*ADSR); ok {
		a.attack, a.decay, a.sustain, a.release = s.attack, s.decay, s.sustain, s.release
		a.curve = s.curve
		a.paramsChanged()
	}
}
