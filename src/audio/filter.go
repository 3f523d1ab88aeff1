package audio

import "math"

const (
	minResonance = 0.05
	maxResonance = 40.0
	minCutoff    = 10.0
)

// ----- Low-Pass Filter ----- //

type lowPassFilter struct {
	sampleRate float64
	cutoff     float64 // Hz
	resonance  float64 // Q
	// normalized coefficients
	b0, b1, b2 float64
	a1, a2     float64
	// history
	x1, x2 float64
	y1, y2 float64
}

func newLowPassFilter(cutoff float64, resonance float64, sampleRate float64) *lowPassFilter {
	f := &lowPassFilter{sampleRate: sampleRate}
	f.cutoff = f.clampCutoff(cutoff)
	f.resonance = clamp(resonance, minResonance, maxResonance)
	f.updateCoefficients()
	return f
}

func (f *lowPassFilter) clampCutoff(cutoff float64) float64 {
	return clamp(cutoff, minCutoff, f.sampleRate*0.49)
}

// from RBJ's cookbook
func makeBiquadLowpassH(fc float64, q float64) (b [3]float64, a [2]float64) {
	w0 := 2 * math.Pi * fc
	alpha := math.Sin(w0) / (2 * q)
	cos := math.Cos(w0)
	a0 := 1 + alpha
	b[0] = (1 - cos) / 2 / a0
	b[1] = (1 - cos) / a0
	b[2] = (1 - cos) / 2 / a0
	a[0] = -2 * cos / a0
	a[1] = (1 - alpha) / a0
	return b, a
}

func (f *lowPassFilter) updateCoefficients() {
	b, a := makeBiquadLowpassH(f.cutoff/f.sampleRate, f.resonance)
	f.b0, f.b1, f.b2 = b[0], b[1], b[2]
	f.a1, f.a2 = a[0], a[1]
}

func (f *lowPassFilter) Process(in float64, _ float64) float64 {
	out := f.b0*in + f.b1*f.x1 + f.b2*f.x2 - f.a1*f.y1 - f.a2*f.y2
	f.x2 = f.x1
	f.x1 = in
	f.y2 = f.y1
	f.y1 = out
	return out
}
func (f *lowPassFilter) Kind() moduleKind { return moduleFilter }
func (f *lowPassFilter) Name() string     { return "LowPassFilter" }
func (f *lowPassFilter) clone() Module {
	c := *f
	return &c
}
func (f *lowPassFilter) adopt(src Module) {
	s, ok := src.(*lowPassFilter)
	if !ok {
		return
	}
	if s.cutoff != f.cutoff || s.resonance != f.resonance || s.sampleRate != f.sampleRate {
		f.sampleRate = s.sampleRate
		f.cutoff = s.cutoff
		f.resonance = s.resonance
		f.updateCoefficients()
	}
}

func (f *lowPassFilter) setCutoff(cutoff float64) {
	f.cutoff = f.clampCutoff(cutoff)
	f.updateCoefficients()
}
func (f *lowPassFilter) setResonance(q float64) {
	f.resonance = clamp(q, minResonance, maxResonance)
	f.updateCoefficients()
}
func (f *lowPassFilter) getCutoff() float64    { return f.cutoff }
func (f *lowPassFilter) getResonance() float64 { return f.resonance }
