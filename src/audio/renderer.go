package audio

import (
	"math"
	"sync"
	"sync/atomic"
)

const (
	normalizeSeconds = 0.01 // time constant of the voice-count normalization
	spectrumSize     = 2048
	maxMasterGain    = 100.0
)

// ----- Voice ----- //

// voice is the renderer-owned state of one sounding note.
type voice struct {
	serial    uint64
	phase     float64 // radians, [0, 2π)
	chain     *ModularSynth
	structure uint64
	version   uint64
	seen      bool
}

// ----- Renderer ----- //

// Renderer turns the active voices into interleaved PCM. Render is meant to
// be called from a single audio goroutine.
type Renderer struct {
	notes *NoteManager
	synth *SynthType

	snap   *synthSnapshot
	voices map[VoiceKey]*voice
	blocks []voiceBlock
	mix    []float64
	time   float64 // s

	norm       *transitiveValue
	normTarget float64
	masterGain uint64 // float64 bits

	spectrumMu  sync.Mutex
	spectrumBuf []float64 // ring of the last mono samples
	spectrumPos int
}

// NewRenderer creates a renderer reading from notes and synth.
func NewRenderer(notes *NoteManager, synth *SynthType) *Renderer {
	r := &Renderer{
		notes:       notes,
		synth:       synth,
		voices:      make(map[VoiceKey]*voice),
		norm:        newTransitiveValue(1),
		normTarget:  1,
		spectrumBuf: make([]float64, spectrumSize),
	}
	r.SetMasterGain(1)
	return r
}

// SetMasterGain sets the linear gain applied after normalization.
func (r *Renderer) SetMasterGain(g float64) {
	g = clamp(g, 0, maxMasterGain)
	atomic.StoreUint64(&r.masterGain, math.Float64bits(g))
}

// MasterGain returns the linear output gain.
func (r *Renderer) MasterGain() float64 {
	return math.Float64frombits(atomic.LoadUint64(&r.masterGain))
}

func silence(buf []float32) {
	for i := range buf {
		buf[i] = 0
	}
}

// Render fills buf with frames of channels interleaved samples in [-1,1].
// Every channel carries the same signal. It never panics: on failure the
// buffer is silenced and the failure logged once.
func (r *Renderer) Render(buf []float32, channels int, sampleRate float64) {
	defer func() {
		if rec := recover(); rec != nil {
			silence(buf)
			warnOnce("render/panic", "render failed, output silenced: %v", rec)
		}
	}()
	if channels < 1 || sampleRate <= 0 {
		silence(buf)
		return
	}
	frames := len(buf) / channels

	r.snap = r.synth.snapshot(r.snap)
	blocks, ok := r.notes.advanceBlock(frames, r.blocks)
	r.blocks = blocks
	if !ok {
		silence(buf)
		warnOnce("render/poisoned", "note state poisoned, rendering silence until reset")
		return
	}

	if cap(r.mix) < frames {
		r.mix = make([]float64, frames)
	}
	mix := r.mix[:frames]
	for i := range mix {
		mix[i] = 0
	}

	for _, v := range r.voices {
		v.seen = false
	}
	anyFinished := false
	dt := 1 / sampleRate
	for i := range blocks {
		b := &blocks[i]
		v := r.voiceFor(b)
		inc := 2 * math.Pi * b.freq / sampleRate
		for j, amp := range b.amps {
			mix[j] += v.chain.GenerateSample(v.phase, r.time+float64(j)*dt) * amp
			v.phase += inc
			if v.phase >= 2*math.Pi {
				v.phase -= 2 * math.Pi * math.Floor(v.phase/(2*math.Pi))
			}
		}
		if b.finished {
			anyFinished = true
		}
	}

	r.updateNormalization(len(blocks), sampleRate)
	gain := r.MasterGain()
	r.spectrumMu.Lock()
	for j, s := range mix {
		r.norm.step()
		out := s * r.norm.value * gain
		if math.IsNaN(out) {
			out = 0
		}
		out = clamp(out, -1, 1)
		for ch := 0; ch < channels; ch++ {
			buf[j*channels+ch] = float32(out)
		}
		r.spectrumBuf[r.spectrumPos] = out
		r.spectrumPos++
		if r.spectrumPos >= len(r.spectrumBuf) {
			r.spectrumPos = 0
		}
	}
	r.spectrumMu.Unlock()
	for i := frames * channels; i < len(buf); i++ {
		buf[i] = 0
	}
	r.time += float64(frames) * dt

	for key, v := range r.voices {
		if !v.seen {
			delete(r.voices, key)
		}
	}
	if anyFinished {
		r.notes.CleanupFinishedNotes()
		for i := range blocks {
			if blocks[i].finished {
				delete(r.voices, blocks[i].key)
			}
		}
	}
}

// voiceFor returns the voice state for b, creating or refreshing its chain
// from the current snapshot.
func (r *Renderer) voiceFor(b *voiceBlock) *voice {
	snap := r.snap
	v, ok := r.voices[b.key]
	if !ok || v.serial != b.serial {
		v = &voice{
			serial:    b.serial,
			chain:     snap.chain.Clone(),
			structure: snap.structure,
			version:   snap.version,
		}
		r.voices[b.key] = v
	} else if v.structure != snap.structure || !v.chain.sameStructure(snap.chain) {
		v.chain = snap.chain.Clone()
		v.structure = snap.structure
		v.version = snap.version
	} else if v.version != snap.version {
		v.chain.adopt(snap.chain)
		v.version = snap.version
	}
	v.seen = true
	return v
}

// updateNormalization divides the mix by sqrt(voices), smoothing changes
// of the voice count.
func (r *Renderer) updateNormalization(count int, sampleRate float64) {
	target := 1.0
	if count > 1 {
		target = 1 / math.Sqrt(float64(count))
	}
	if target != r.normTarget {
		r.normTarget = target
		r.norm.exponential(int(normalizeSeconds*sampleRate), target, 1e-4)
	}
}

// Voices returns the number of voices rendered in the last buffer.
func (r *Renderer) Voices() int {
	return len(r.blocks)
}

// Spectrum copies the last spectrumSize output samples into dst in
// chronological order.
func (r *Renderer) Spectrum(dst []float64) {
	r.spectrumMu.Lock()
	defer r.spectrumMu.Unlock()
	// buf:  | 4 | 1 | 2 | 3 |
	// pos:      ^
	// dst:  | 1 | 2 | 3 | 4 |
	n := copy(dst, r.spectrumBuf[r.spectrumPos:])
	copy(dst[n:], r.spectrumBuf[:r.spectrumPos])
}
