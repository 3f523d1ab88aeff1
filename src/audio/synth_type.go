package audio

import (
	"fmt"
	"sync"
)

var defaults = DefaultParams()

// ----- Synth Type ----- //

// SynthType is a named preset (Sine, Square, Sawtooth, FM, Hammond) wrapping
// a ModularSynth, with a uniform parameter facade over whatever chain is
// active. It is safe for concurrent use.
//
// The chain held here is a template: it is never processed. The renderer
// takes a copy with snapshot and gives every voice its own clone.
type SynthType struct {
	sync.Mutex
	sampleRate float64
	kind       synthKind
	params     *Params
	ir         []float64
	synth      *ModularSynth
	version    uint64 // bumped on every change
	structure  uint64 // bumped when modules are inserted or removed
}

// NewSynthType builds the chain described by params.
func NewSynthType(params *Params, sampleRate float64) (*SynthType, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	st := &SynthType{
		sampleRate: sampleRate,
		params:     params.clone(),
	}
	st.kind, _ = synthKindFromString(params.Kind)
	st.synth = st.buildChain()
	return st, nil
}

// NewSynthTypeOfKind builds a preset with default parameters.
func NewSynthTypeOfKind(kind string, sampleRate float64) (*SynthType, error) {
	p := DefaultParams()
	p.Kind = kind
	return NewSynthType(p, sampleRate)
}

func (st *SynthType) newModule(kind moduleKind) Module {
	p := st.params
	switch kind {
	case moduleNoise:
		return newNoise(p.Noise.Amount)
	case moduleLFO:
		wave, _ := lfoWaveFromString(p.LFO.Wave)
		l := newLfo(wave, p.LFO.Rate, p.LFO.Depth, st.sampleRate)
		l.setOffset(p.LFO.Offset)
		l.setUnipolar(p.LFO.Unipolar)
		return l
	case moduleFilter:
		return newLowPassFilter(p.Filter.Cutoff, p.Filter.Resonance, st.sampleRate)
	case moduleGain:
		return newGain(p.Gain.DB)
	case moduleCompressor:
		c := p.Compressor
		return newCompressor(c.Threshold, c.Ratio, c.Attack, c.Release, c.MakeupGain, c.Knee, st.sampleRate)
	case moduleEcho:
		return newEcho(p.Echo.DelayMs, p.Echo.Feedback, p.Echo.Mix, st.sampleRate)
	case moduleReverb:
		kind, _ := reverbKindFromString(p.Reverb.Type)
		r := newReverb(kind, st.sampleRate)
		r.setDryWet(p.Reverb.DryWet)
		r.setEarlyGain(p.Reverb.EarlyGain)
		r.setTailGain(p.Reverb.TailGain)
		r.setPreDelayMs(p.Reverb.PreDelayMs)
		r.setDamping(p.Reverb.Damping)
		if len(st.ir) > 0 {
			r.setImpulseResponse(st.ir)
		}
		return r
	}
	return nil
}

// buildChain includes only the enabled modules.
func (st *SynthType) buildChain() *ModularSynth {
	synth := NewModularSynth(newOscillator(st.kind))
	for k := moduleNoise; k < moduleADSR; k++ {
		if st.params.enabled(k) {
			synth.AddModule(st.newModule(k))
		}
	}
	return synth
}

func (st *SynthType) changed(structural bool) {
	st.version++
	if structural {
		st.structure++
	}
}

// module looks up an active module. A missing module is logged once per
// module and operation.
func (st *SynthType) module(kind moduleKind, op string) Module {
	m := st.synth.findModule(kind)
	if m == nil {
		warnOnce(kind.String()+"/"+op, "%v is not active: %s falls back to defaults", kind, op)
	}
	return m
}

// ----- Preset ----- //

// Name is the display name of the preset.
func (st *SynthType) Name() string {
	st.Lock()
	defer st.Unlock()
	return "Modular " + st.synth.osc.Name()
}

// Kind returns the oscillator kind name.
func (st *SynthType) Kind() string {
	st.Lock()
	defer st.Unlock()
	return st.kind.String()
}

// SetKind switches the oscillator, keeping the chain and its parameters.
func (st *SynthType) SetKind(name string) error {
	kind, err := synthKindFromString(name)
	if err != nil {
		return err
	}
	st.Lock()
	defer st.Unlock()
	st.kind = kind
	st.params.Kind = kind.String()
	st.synth.osc = newOscillator(kind)
	st.changed(false)
	return nil
}

// Params returns a copy of the current parameters.
func (st *SynthType) Params() *Params {
	st.Lock()
	defer st.Unlock()
	return st.params.clone()
}

// ApplyParams replaces every parameter and rebuilds the chain.
func (st *SynthType) ApplyParams(p *Params) error {
	if err := p.validate(); err != nil {
		return err
	}
	st.Lock()
	defer st.Unlock()
	st.params = p.clone()
	st.kind, _ = synthKindFromString(p.Kind)
	st.synth = st.buildChain()
	st.changed(true)
	return nil
}

// ModuleNames lists the active chain in signal order.
func (st *SynthType) ModuleNames() []string {
	st.Lock()
	defer st.Unlock()
	return st.synth.ModuleNames()
}

// synthSnapshot is an immutable copy of the template chain.
type synthSnapshot struct {
	chain     *ModularSynth
	version   uint64
	structure uint64
}

// snapshot returns prev when nothing changed since it was taken.
func (st *SynthType) snapshot(prev *synthSnapshot) *synthSnapshot {
	st.Lock()
	defer st.Unlock()
	if prev != nil && prev.version == st.version {
		return prev
	}
	return &synthSnapshot{
		chain:     st.synth.Clone(),
		version:   st.version,
		structure: st.structure,
	}
}

// ----- Activation ----- //

func (st *SynthType) setActivation(kind moduleKind, active bool) {
	st.Lock()
	defer st.Unlock()
	st.params.setEnabled(kind, active)
	present := st.synth.findModule(kind) != nil
	switch {
	case active && !present:
		st.synth.AddModule(st.newModule(kind))
	case !active && present:
		st.synth.removeModule(kind)
	default:
		return
	}
	st.changed(true)
}

// IsActive reports whether a module of the given name is in the chain.
func (st *SynthType) IsActive(module string) bool {
	kind, err := moduleKindFromString(module)
	if err != nil {
		return false
	}
	st.Lock()
	defer st.Unlock()
	return st.synth.findModule(kind) != nil
}

// SetActivation toggles a module by name.
func (st *SynthType) SetActivation(module string, active bool) error {
	kind, err := moduleKindFromString(module)
	if err != nil {
		return err
	}
	if kind == moduleADSR {
		return fmt.Errorf("%v is owned by the note manager", kind)
	}
	st.setActivation(kind, active)
	return nil
}

func (st *SynthType) SetNoiseActivation(active bool)      { st.setActivation(moduleNoise, active) }
func (st *SynthType) SetLFOActivation(active bool)        { st.setActivation(moduleLFO, active) }
func (st *SynthType) SetFilterActivation(active bool)     { st.setActivation(moduleFilter, active) }
func (st *SynthType) SetGainActivation(active bool)       { st.setActivation(moduleGain, active) }
func (st *SynthType) SetCompressorActivation(active bool) { st.setActivation(moduleCompressor, active) }
func (st *SynthType) SetEchoActivation(active bool)       { st.setActivation(moduleEcho, active) }
func (st *SynthType) SetReverbActivation(active bool)     { st.setActivation(moduleReverb, active) }

// ----- Gain / Noise ----- //

func (st *SynthType) GetGain() float64 {
	st.Lock()
	defer st.Unlock()
	if g, ok := st.module(moduleGain, "get gain").(*gain); ok {
		return g.getDB()
	}
	return defaults.Gain.DB
}

func (st *SynthType) SetGain(db float64) {
	st.Lock()
	defer st.Unlock()
	db = clamp(db, minDB, maxDB)
	st.params.Gain.DB = db
	if g, ok := st.module(moduleGain, "set gain").(*gain); ok {
		g.setDB(db)
	}
	st.changed(false)
}

func (st *SynthType) GetNoise() float64 {
	st.Lock()
	defer st.Unlock()
	if n, ok := st.module(moduleNoise, "get noise").(*noise); ok {
		return n.getAmount()
	}
	return defaults.Noise.Amount
}

func (st *SynthType) SetNoise(amount float64) {
	st.Lock()
	defer st.Unlock()
	st.params.Noise.Amount = clamp(amount, 0, 1)
	if n, ok := st.module(moduleNoise, "set noise").(*noise); ok {
		n.setAmount(amount)
	}
	st.changed(false)
}

// ----- LFO ----- //

func (st *SynthType) GetLFORate() float64 {
	st.Lock()
	defer st.Unlock()
	if l, ok := st.module(moduleLFO, "get lfo rate").(*lfo); ok {
		return l.freq
	}
	return defaults.LFO.Rate
}

func (st *SynthType) SetLFORate(hz float64) {
	st.Lock()
	defer st.Unlock()
	hz = clamp(hz, 0, maxLFORate)
	st.params.LFO.Rate = hz
	if l, ok := st.module(moduleLFO, "set lfo rate").(*lfo); ok {
		l.setFreq(hz)
	}
	st.changed(false)
}

func (st *SynthType) GetLFOWaveform() string {
	st.Lock()
	defer st.Unlock()
	if l, ok := st.module(moduleLFO, "get lfo wave").(*lfo); ok {
		return l.wave.String()
	}
	return defaults.LFO.Wave
}

func (st *SynthType) SetLFOWaveform(name string) error {
	wave, err := lfoWaveFromString(name)
	if err != nil {
		return err
	}
	st.Lock()
	defer st.Unlock()
	st.params.LFO.Wave = wave.String()
	if l, ok := st.module(moduleLFO, "set lfo wave").(*lfo); ok {
		l.setWave(wave)
	}
	st.changed(false)
	return nil
}

func (st *SynthType) GetLFODepth() float64 {
	st.Lock()
	defer st.Unlock()
	if l, ok := st.module(moduleLFO, "get lfo depth").(*lfo); ok {
		return l.amount
	}
	return defaults.LFO.Depth
}

func (st *SynthType) SetLFODepth(depth float64) {
	st.Lock()
	defer st.Unlock()
	st.params.LFO.Depth = clamp(depth, 0, 1)
	if l, ok := st.module(moduleLFO, "set lfo depth").(*lfo); ok {
		l.setAmount(depth)
	}
	st.changed(false)
}

func (st *SynthType) SetLFOOffset(offset float64) {
	st.Lock()
	defer st.Unlock()
	st.params.LFO.Offset = clamp(offset, -1, 1)
	if l, ok := st.module(moduleLFO, "set lfo offset").(*lfo); ok {
		l.setOffset(offset)
	}
	st.changed(false)
}

func (st *SynthType) SetLFOUnipolar(unipolar bool) {
	st.Lock()
	defer st.Unlock()
	st.params.LFO.Unipolar = unipolar
	if l, ok := st.module(moduleLFO, "set lfo unipolar").(*lfo); ok {
		l.setUnipolar(unipolar)
	}
	st.changed(false)
}

// ----- Filter ----- //

func (st *SynthType) GetFilterCutoff() float64 {
	st.Lock()
	defer st.Unlock()
	if f, ok := st.module(moduleFilter, "get cutoff").(*lowPassFilter); ok {
		return f.getCutoff()
	}
	return defaults.Filter.Cutoff
}

func (st *SynthType) SetFilterCutoff(hz float64) {
	st.Lock()
	defer st.Unlock()
	st.params.Filter.Cutoff = clamp(hz, minCutoff, st.sampleRate*0.49)
	if f, ok := st.module(moduleFilter, "set cutoff").(*lowPassFilter); ok {
		f.setCutoff(hz)
	}
	st.changed(false)
}

func (st *SynthType) GetFilterResonance() float64 {
	st.Lock()
	defer st.Unlock()
	if f, ok := st.module(moduleFilter, "get resonance").(*lowPassFilter); ok {
		return f.getResonance()
	}
	return defaults.Filter.Resonance
}

func (st *SynthType) SetFilterResonance(q float64) {
	st.Lock()
	defer st.Unlock()
	q = clamp(q, minResonance, maxResonance)
	st.params.Filter.Resonance = q
	if f, ok := st.module(moduleFilter, "set resonance").(*lowPassFilter); ok {
		f.setResonance(q)
	}
	st.changed(false)
}

// ----- Compressor ----- //

// withCompressor runs f on the active compressor (if any) and records the
// resulting parameters.
func (st *SynthType) withCompressor(op string, record func(*CompressorParams), f func(*compressor)) {
	st.Lock()
	defer st.Unlock()
	record(&st.params.Compressor)
	if c, ok := st.module(moduleCompressor, op).(*compressor); ok {
		f(c)
	}
	st.changed(false)
}

func (st *SynthType) compressorValue(op string, get func(*compressor) float64, def float64) float64 {
	st.Lock()
	defer st.Unlock()
	if c, ok := st.module(moduleCompressor, op).(*compressor); ok {
		return get(c)
	}
	return def
}

func (st *SynthType) GetCompressorThreshold() float64 {
	return st.compressorValue("get threshold", func(c *compressor) float64 { return c.threshold }, defaults.Compressor.Threshold)
}

func (st *SynthType) SetCompressorThreshold(db float64) {
	db = clamp(db, minDB, 0)
	st.withCompressor("set threshold",
		func(p *CompressorParams) { p.Threshold = db },
		func(c *compressor) { c.setThreshold(db) })
}

func (st *SynthType) GetCompressorRatio() float64 {
	return st.compressorValue("get ratio", func(c *compressor) float64 { return c.ratio }, defaults.Compressor.Ratio)
}

func (st *SynthType) SetCompressorRatio(ratio float64) {
	ratio = atLeast(ratio, 1)
	st.withCompressor("set ratio",
		func(p *CompressorParams) { p.Ratio = ratio },
		func(c *compressor) { c.setRatio(ratio) })
}

func (st *SynthType) GetCompressorAttack() float64 {
	return st.compressorValue("get attack", func(c *compressor) float64 { return c.attack }, defaults.Compressor.Attack)
}

func (st *SynthType) SetCompressorAttack(seconds float64) {
	seconds = clamp(seconds, minCompTime, maxCompTime)
	st.withCompressor("set attack",
		func(p *CompressorParams) { p.Attack = seconds },
		func(c *compressor) { c.setAttack(seconds) })
}

func (st *SynthType) GetCompressorRelease() float64 {
	return st.compressorValue("get release", func(c *compressor) float64 { return c.release }, defaults.Compressor.Release)
}

func (st *SynthType) SetCompressorRelease(seconds float64) {
	seconds = clamp(seconds, minCompTime, maxCompTime)
	st.withCompressor("set release",
		func(p *CompressorParams) { p.Release = seconds },
		func(c *compressor) { c.setRelease(seconds) })
}

func (st *SynthType) GetCompressorMakeupGain() float64 {
	return st.compressorValue("get makeup gain", func(c *compressor) float64 { return c.makeupGain }, defaults.Compressor.MakeupGain)
}

func (st *SynthType) SetCompressorMakeupGain(db float64) {
	db = clamp(db, minDB, maxDB)
	st.withCompressor("set makeup gain",
		func(p *CompressorParams) { p.MakeupGain = db },
		func(c *compressor) { c.setMakeupGain(db) })
}

func (st *SynthType) GetCompressorKnee() float64 {
	return st.compressorValue("get knee", func(c *compressor) float64 { return c.knee }, defaults.Compressor.Knee)
}

func (st *SynthType) SetCompressorKnee(db float64) {
	db = clamp(db, 0, maxDB)
	st.withCompressor("set knee",
		func(p *CompressorParams) { p.Knee = db },
		func(c *compressor) { c.setKnee(db) })
}

// ----- Echo ----- //

func (st *SynthType) withEcho(op string, record func(*EchoParams), f func(*echo)) {
	st.Lock()
	defer st.Unlock()
	record(&st.params.Echo)
	if e, ok := st.module(moduleEcho, op).(*echo); ok {
		f(e)
	}
	st.changed(false)
}

func (st *SynthType) GetEchoDelay() float64 {
	st.Lock()
	defer st.Unlock()
	if e, ok := st.module(moduleEcho, "get echo delay").(*echo); ok {
		return e.delayMs
	}
	return defaults.Echo.DelayMs
}

func (st *SynthType) SetEchoDelay(ms float64) {
	ms = clamp(ms, minEchoMs, maxEchoMs)
	st.withEcho("set echo delay",
		func(p *EchoParams) { p.DelayMs = ms },
		func(e *echo) { e.setDelayMs(ms) })
}

func (st *SynthType) SetEchoFeedback(g float64) {
	g = clamp(g, 0, maxFeedback)
	st.withEcho("set echo feedback",
		func(p *EchoParams) { p.Feedback = g },
		func(e *echo) { e.setFeedback(g) })
}

func (st *SynthType) SetEchoMix(mix float64) {
	mix = clamp(mix, 0, 1)
	st.withEcho("set echo mix",
		func(p *EchoParams) { p.Mix = mix },
		func(e *echo) { e.setMix(mix) })
}

// ----- Reverb ----- //

func (st *SynthType) GetReverbType() string {
	st.Lock()
	defer st.Unlock()
	if r, ok := st.module(moduleReverb, "get reverb type").(*reverb); ok {
		return r.kind.String()
	}
	return defaults.Reverb.Type
}

// SetReverbType selects a reverb type and resets the mix to its defaults.
func (st *SynthType) SetReverbType(name string) error {
	kind, err := reverbKindFromString(name)
	if err != nil {
		return err
	}
	st.Lock()
	defer st.Unlock()
	p := reverbPresets[kind]
	st.params.Reverb = ReverbParams{
		Enabled:    st.params.Reverb.Enabled,
		Type:       kind.String(),
		DryWet:     p.dryWet,
		EarlyGain:  p.earlyGain,
		TailGain:   p.tailGain,
		PreDelayMs: p.preDelayMs,
		Damping:    p.damping,
	}
	if r, ok := st.module(moduleReverb, "set reverb type").(*reverb); ok {
		r.setType(kind)
	}
	st.changed(false)
	return nil
}

func (st *SynthType) withReverb(op string, record func(*ReverbParams), f func(*reverb)) {
	st.Lock()
	defer st.Unlock()
	record(&st.params.Reverb)
	if r, ok := st.module(moduleReverb, op).(*reverb); ok {
		f(r)
	}
	st.changed(false)
}

func (st *SynthType) GetReverbDryWet() float64 {
	st.Lock()
	defer st.Unlock()
	if r, ok := st.module(moduleReverb, "get dry/wet").(*reverb); ok {
		return r.dryWet
	}
	return defaults.Reverb.DryWet
}

func (st *SynthType) SetReverbDryWet(v float64) {
	v = clamp(v, 0, 1)
	st.withReverb("set dry/wet",
		func(p *ReverbParams) { p.DryWet = v },
		func(r *reverb) { r.setDryWet(v) })
}

func (st *SynthType) SetReverbEarlyGain(v float64) {
	v = clamp(v, 0, maxReverbGain)
	st.withReverb("set early gain",
		func(p *ReverbParams) { p.EarlyGain = v },
		func(r *reverb) { r.setEarlyGain(v) })
}

func (st *SynthType) SetReverbTailGain(v float64) {
	v = clamp(v, 0, maxReverbGain)
	st.withReverb("set tail gain",
		func(p *ReverbParams) { p.TailGain = v },
		func(r *reverb) { r.setTailGain(v) })
}

func (st *SynthType) SetReverbPreDelay(ms float64) {
	ms = clamp(ms, 0, maxPreDelayMs)
	st.withReverb("set pre-delay",
		func(p *ReverbParams) { p.PreDelayMs = ms },
		func(r *reverb) { r.setPreDelayMs(ms) })
}

func (st *SynthType) SetReverbDamping(v float64) {
	v = clamp(v, 0, 1)
	st.withReverb("set damping",
		func(p *ReverbParams) { p.Damping = v },
		func(r *reverb) { r.setDamping(v) })
}

// SetImpulseResponse loads the early-reflection impulse response. It is kept
// across reactivation and preset changes. An empty ir disables early
// reflections.
func (st *SynthType) SetImpulseResponse(ir []float64) {
	st.Lock()
	defer st.Unlock()
	st.ir = append(st.ir[:0], ir...)
	if r, ok := st.synth.findModule(moduleReverb).(*reverb); ok {
		r.setImpulseResponse(st.ir)
	}
	st.changed(false)
}
