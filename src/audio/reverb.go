package audio

import "fmt"

// ----- Reverb Kind ----- //

type reverbKind int

const (
	reverbRoom reverbKind = iota
	reverbPlate
	reverbSpring
	reverbHall
	reverbShimmer
)

var reverbKindNames = []string{"room", "plate", "spring", "hall", "shimmer"}

func (k reverbKind) String() string {
	if k < 0 || int(k) >= len(reverbKindNames) {
		return "unknown"
	}
	return reverbKindNames[k]
}

func reverbKindFromString(s string) (reverbKind, error) {
	for i, name := range reverbKindNames {
		if name == s {
			return reverbKind(i), nil
		}
	}
	return reverbRoom, fmt.Errorf("unknown reverb type %q", s)
}

type reverbPreset struct {
	combMs     []float64
	allpassMs  []float64
	feedback   float64
	damping    float64
	dryWet     float64
	earlyGain  float64
	tailGain   float64
	preDelayMs float64
}

const (
	allpassFeedback = 0.7
	maxReverbGain   = 4.0
	maxPreDelayMs   = 500.0
)

var reverbPresets = [...]reverbPreset{
	reverbRoom:    {[]float64{29.7, 37.1, 41.1, 43.7}, []float64{5.0, 1.7}, 0.72, 0.25, 0.20, 0.8, 0.8, 8},
	reverbPlate:   {[]float64{31.0, 36.0, 40.0, 44.0}, []float64{6.3, 2.1}, 0.78, 0.35, 0.25, 0.9, 0.95, 10},
	reverbSpring:  {[]float64{25.0, 31.0, 34.0, 38.0}, []float64{7.1, 2.3}, 0.70, 0.45, 0.22, 0.85, 0.9, 12},
	reverbHall:    {[]float64{29.7, 37.1, 41.1, 43.7}, []float64{8.0, 3.0}, 0.80, 0.30, 0.30, 0.9, 0.95, 20},
	reverbShimmer: {[]float64{29.7, 37.1, 41.1, 43.7}, []float64{8.0, 3.0}, 0.82, 0.25, 0.35, 0.9, 1.0, 25},
}

// ----- Comb / Allpass ----- //

// dampedComb has a one-pole low-pass inside its feedback loop.
type dampedComb struct {
	line     *delay
	feedback float64
	damping  float64 // 0-1
	lowpass  float64
}

func (c *dampedComb) process(in float64) float64 {
	out := c.line.getDelayed()
	c.lowpass = (1-c.damping)*out + c.damping*c.lowpass
	c.line.step(c.lowpass*c.feedback + in)
	return out
}

type allpass struct {
	line     *delay
	feedback float64
}

func (a *allpass) process(in float64) float64 {
	buffered := a.line.getDelayed()
	a.line.step(in + buffered*a.feedback)
	return -in + buffered
}

// ----- Reverb ----- //

type reverb struct {
	sampleRate float64
	kind       reverbKind
	dryWet     float64 // 0 = dry, 1 = wet
	earlyGain  float64
	tailGain   float64
	preDelayMs float64
	damping    float64

	// early reflections: direct convolution with a short impulse response
	ir        []float64
	irHist    []float64
	irPos     int
	irVersion int

	preDelay  *delay // nil when the pre-delay is shorter than one sample
	combs     []*dampedComb
	allpasses []*allpass
}

func newReverb(kind reverbKind, sampleRate float64) *reverb {
	r := &reverb{sampleRate: sampleRate}
	r.setType(kind)
	return r
}

func (r *reverb) buildLines() {
	p := reverbPresets[r.kind]
	r.combs = r.combs[:0]
	for _, ms := range p.combMs {
		r.combs = append(r.combs, &dampedComb{
			line:     newDelay(msToSamples(ms, r.sampleRate)),
			feedback: p.feedback,
			damping:  r.damping,
		})
	}
	r.allpasses = r.allpasses[:0]
	for _, ms := range p.allpassMs {
		r.allpasses = append(r.allpasses, &allpass{
			line:     newDelay(msToSamples(ms, r.sampleRate)),
			feedback: allpassFeedback,
		})
	}
}

func (r *reverb) buildPreDelay() {
	n := msToSamples(r.preDelayMs, r.sampleRate)
	if n == 0 {
		r.preDelay = nil
		return
	}
	r.preDelay = newDelay(n)
}

func (r *reverb) convolveEarly(in float64) float64 {
	if len(r.ir) == 0 {
		return 0
	}
	r.irHist[r.irPos] = in
	acc := 0.0
	pos := r.irPos
	for _, coeff := range r.ir {
		acc += r.irHist[pos] * coeff
		if pos == 0 {
			pos = len(r.irHist) - 1
		} else {
			pos--
		}
	}
	r.irPos++
	if r.irPos >= len(r.irHist) {
		r.irPos = 0
	}
	return acc
}

func (r *reverb) tail(in float64) float64 {
	if len(r.combs) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range r.combs {
		sum += c.process(in)
	}
	out := sum / float64(len(r.combs))
	for _, a := range r.allpasses {
		out = a.process(out)
	}
	return out
}

func (r *reverb) Process(in float64, _ float64) float64 {
	delayed := in
	if r.preDelay != nil {
		delayed = r.preDelay.getDelayed()
		r.preDelay.step(in)
	}
	wet := r.convolveEarly(delayed)*r.earlyGain + r.tail(delayed)*r.tailGain
	return (1-r.dryWet)*in + r.dryWet*wet
}
func (r *reverb) Kind() moduleKind { return moduleReverb }
func (r *reverb) Name() string     { return "Reverb" }

func (r *reverb) clone() Module {
	c := *r
	c.ir = append([]float64(nil), r.ir...)
	c.irHist = append([]float64(nil), r.irHist...)
	if r.preDelay != nil {
		c.preDelay = r.preDelay.clone()
	}
	c.combs = make([]*dampedComb, len(r.combs))
	for i, comb := range r.combs {
		cc := *comb
		cc.line = comb.line.clone()
		c.combs[i] = &cc
	}
	c.allpasses = make([]*allpass, len(r.allpasses))
	for i, ap := range r.allpasses {
		c.allpasses[i] = &allpass{line: ap.line.clone(), feedback: ap.feedback}
	}
	return &c
}

func (r *reverb) adopt(src Module) {
	s, ok := src.(*reverb)
	if !ok {
		return
	}
	if s.kind != r.kind || s.sampleRate != r.sampleRate {
		r.kind = s.kind
		r.sampleRate = s.sampleRate
		r.damping = s.damping
		r.buildLines()
		r.preDelayMs = -1
	}
	r.dryWet = s.dryWet
	r.earlyGain = s.earlyGain
	r.tailGain = s.tailGain
	if s.preDelayMs != r.preDelayMs {
		r.preDelayMs = s.preDelayMs
		r.buildPreDelay()
	}
	if s.damping != r.damping {
		r.setDamping(s.damping)
	}
	if s.irVersion != r.irVersion {
		r.setImpulseResponse(s.ir)
		r.irVersion = s.irVersion
	}
}

// setType resets lines and mix to the defaults of the given type.
func (r *reverb) setType(kind reverbKind) {
	if kind < 0 || int(kind) >= len(reverbPresets) {
		kind = reverbRoom
	}
	p := reverbPresets[kind]
	r.kind = kind
	r.damping = p.damping
	r.dryWet = p.dryWet
	r.earlyGain = p.earlyGain
	r.tailGain = p.tailGain
	r.preDelayMs = p.preDelayMs
	r.buildLines()
	r.buildPreDelay()
}

// setImpulseResponse copies ir. An empty ir disables early reflections.
func (r *reverb) setImpulseResponse(ir []float64) {
	r.ir = append(r.ir[:0], ir...)
	n := len(r.ir)
	if n < 1 {
		n = 1
	}
	r.irHist = make([]float64, n)
	r.irPos = 0
	r.irVersion++
}

func (r *reverb) setDryWet(v float64)     { r.dryWet = clamp(v, 0, 1) }
func (r *reverb) setEarlyGain(v float64)  { r.earlyGain = clamp(v, 0, maxReverbGain) }
func (r *reverb) setTailGain(v float64)   { r.tailGain = clamp(v, 0, maxReverbGain) }
func (r *reverb) setPreDelayMs(v float64) {
	r.preDelayMs = clamp(v, 0, maxPreDelayMs)
	r.buildPreDelay()
}
func (r *reverb) setDamping(v float64) {
	r.damping = clamp(v, 0, 1)
	for _, c := range r.combs {
		c.damping = r.damping
	}
}
