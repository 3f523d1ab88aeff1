package audio

import (
	"fmt"
	"math"
)

// ----- LFO Wave ----- //

type lfoWave int

const (
	lfoSine lfoWave = iota
	lfoTriangle
	lfoSquare
	lfoSawUp
	lfoSawDown
)

var lfoWaveNames = []string{"sine", "triangle", "square", "saw-up", "saw-down"}

func (w lfoWave) String() string {
	if w < 0 || int(w) >= len(lfoWaveNames) {
		return "unknown"
	}
	return lfoWaveNames[w]
}

func lfoWaveFromString(s string) (lfoWave, error) {
	for i, name := range lfoWaveNames {
		if name == s {
			return lfoWave(i), nil
		}
	}
	return lfoSine, fmt.Errorf("unknown LFO wave %q", s)
}

// value returns the bipolar wave value at phase in [0,1).
func (w lfoWave) value(phase float64) float64 {
	switch w {
	case lfoTriangle:
		if phase < 0.5 {
			return phase*4 - 1
		}
		return phase*(-4) + 3
	case lfoSquare:
		if phase < 0.5 {
			return 1
		}
		return -1
	case lfoSawUp:
		return phase*2 - 1
	case lfoSawDown:
		return phase*(-2) + 1
	default:
		return math.Sin(2 * math.Pi * phase)
	}
}

const maxLFORate = 100.0 // Hz

// ----- LFO ----- //

// lfo is an amplitude modulator (tremolo).
type lfo struct {
	sampleRate float64
	wave       lfoWave
	freq       float64 // Hz
	amount     float64 // depth
	offset     float64
	unipolar   bool
	phase      float64 // [0,1)
}

func newLfo(wave lfoWave, freq float64, amount float64, sampleRate float64) *lfo {
	l := &lfo{sampleRate: sampleRate, wave: wave}
	l.setFreq(freq)
	l.setAmount(amount)
	return l
}

func (l *lfo) Process(in float64, _ float64) float64 {
	v := l.wave.value(l.phase)
	if l.unipolar {
		v = (v + 1) / 2
	}
	l.phase += l.freq / l.sampleRate
	if l.phase >= 1 {
		l.phase -= math.Floor(l.phase)
	}
	return in * (1 + v*l.amount + l.offset)
}
func (l *lfo) Kind() moduleKind { return moduleLFO }
func (l *lfo) Name() string     { return "LFO" }
func (l *lfo) clone() Module {
	c := *l
	return &c
}
func (l *lfo) adopt(src Module) {
	if s, ok := src.(*lfo); ok {
		l.sampleRate = s.sampleRate
		l.wave = s.wave
		l.freq = s.freq
		l.amount = s.amount
		l.offset = s.offset
		l.unipolar = s.unipolar
	}
}

func (l *lfo) setFreq(freq float64)      { l.freq = clamp(freq, 0, maxLFORate) }
func (l *lfo) setAmount(amount float64)  { l.amount = clamp(amount, 0, 1) }
func (l *lfo) setWave(wave lfoWave)      { l.wave = wave }
func (l *lfo) setOffset(offset float64)  { l.offset = clamp(offset, -1, 1) }
func (l *lfo) setUnipolar(unipolar bool) { l.unipolar = unipolar }
