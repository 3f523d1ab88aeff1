package audio

import (
	"fmt"
	"math"
)

// ----- Synth Kind ----- //

type synthKind int

const (
	synthSine synthKind = iota
	synthSquare
	synthSawtooth
	synthFM
	synthHammond
)

var synthKindNames = []string{"sine", "square", "sawtooth", "fm", "hammond"}

func (k synthKind) String() string {
	if k < 0 || int(k) >= len(synthKindNames) {
		return "unknown"
	}
	return synthKindNames[k]
}

func synthKindFromString(s string) (synthKind, error) {
	for i, name := range synthKindNames {
		if name == s {
			return synthKind(i), nil
		}
	}
	return synthSine, fmt.Errorf("unknown synth kind %q", s)
}

// ----- Oscillator ----- //

// Oscillator maps a phase in radians to a sample in [-1, 1].
// Implementations are plain values without mutable state.
type Oscillator interface {
	Sample(phase float64) float64
	Name() string
}

type sineOsc struct{}

func (sineOsc) Sample(phase float64) float64 {
	return math.Sin(phase)
}
func (sineOsc) Name() string { return "Sine" }

type squareOsc struct{}

func (squareOsc) Sample(phase float64) float64 {
	if positiveMod(phase, 2*math.Pi) < math.Pi {
		return 1
	}
	return -1
}
func (squareOsc) Name() string { return "Square" }

type sawtoothOsc struct{}

func (sawtoothOsc) Sample(phase float64) float64 {
	return positiveMod(phase/math.Pi, 2) - 1
}
func (sawtoothOsc) Name() string { return "Sawtooth" }

// fmOsc is a two-operator phase modulation voice with a second harmonic
// and a soft saturation above 0.7.
type fmOsc struct {
	modIndex float64
	modRatio float64
}

func (o fmOsc) Sample(phase float64) float64 {
	modulation := math.Sin(phase*o.modRatio) * o.modIndex
	p := phase + modulation
	out := math.Sin(p) + math.Sin(2*p)*0.3
	if a := math.Abs(out); a > 0.7 {
		return math.Copysign(0.7+(a-0.7)*0.3, out)
	}
	return out
}
func (fmOsc) Name() string { return "FM" }

// hammondOsc sums the first four harmonics with fixed drawbar levels.
type hammondOsc struct {
	drawbars [4]float64
}

func newHammondOsc() hammondOsc {
	return hammondOsc{drawbars: [4]float64{0.5, 0.25, 0.125, 0.0625}}
}

func (o hammondOsc) Sample(phase float64) float64 {
	value := 0.0
	for i, level := range o.drawbars {
		value += math.Sin(float64(i+1)*phase) * level
	}
	return value
}
func (hammondOsc) Name() string { return "Hammond" }

func newOscillator(kind synthKind) Oscillator {
	switch kind {
	case synthSquare:
		return squareOsc{}
	case synthSawtooth:
		return sawtoothOsc{}
	case synthFM:
		return fmOsc{modIndex: 3.5, modRatio: 1.414}
	case synthHammond:
		return newHammondOsc()
	default:
		return sineOsc{}
	}
}
