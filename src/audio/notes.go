package audio

import (
	"math"
	"sync"
)

// ----- Voice Key ----- //

// VoiceKey identifies a voice. It is the exact bit pattern of the frequency,
// so equal frequencies share a voice and distinct ones never collide.
type VoiceKey uint64

// KeyOf returns the voice key of a frequency.
func KeyOf(freq float64) VoiceKey {
	if freq == 0 {
		// -0 and +0
		return 0
	}
	return VoiceKey(math.Float64bits(freq))
}

// ----- Active Note ----- //

// ActiveNote is one sounding voice with its own envelope.
type ActiveNote struct {
	Frequency  float64
	adsr       *ADSR
	isReleased bool
	serial     uint64 // distinguishes successive voices with the same key
}

func newActiveNote(freq float64, sampleRate float64, env *EnvelopeParams, serial uint64) *ActiveNote {
	adsr := NewADSR(sampleRate)
	adsr.setParams(env)
	adsr.NoteOn()
	return &ActiveNote{
		Frequency: freq,
		adsr:      adsr,
		serial:    serial,
	}
}

func (n *ActiveNote) noteOff() {
	n.adsr.NoteOff()
	n.isReleased = true
}

// GetAmplitude advances the envelope by one sample.
func (n *ActiveNote) GetAmplitude() float64 { return n.adsr.GetAmplitude() }

// IsFinished reports whether the envelope reached Idle.
func (n *ActiveNote) IsFinished() bool { return n.adsr.IsFinished() }

// IsReleased reports whether the key was released.
func (n *ActiveNote) IsReleased() bool { return n.isReleased }

// Stage returns the envelope stage.
func (n *ActiveNote) Stage() EnvelopeStage { return n.adsr.GetStage() }

// ----- Note Manager ----- //

// NoteState is a copy of a voice's observable state.
type NoteState struct {
	Frequency float64
	Stage     EnvelopeStage
	Level     float64
	Released  bool
}

// NoteManager tracks the sounding voices. It is shared by the control
// surfaces and the renderer; every operation takes the lock once.
//
// A panic inside an operation marks the manager poisoned: the renderer then
// outputs silence until Reset is called.
type NoteManager struct {
	mu       sync.Mutex
	notes    map[VoiceKey]*ActiveNote
	order    []VoiceKey // insertion order, for a stable mixing order
	envelope EnvelopeParams
	serial   uint64
	poisoned bool
}

// NewNoteManager creates an empty manager. New voices use env.
func NewNoteManager(env *EnvelopeParams) *NoteManager {
	if env == nil {
		env = &defaults.Envelope
	}
	return &NoteManager{
		notes:    make(map[VoiceKey]*ActiveNote),
		order:    make([]VoiceKey, 0, 32),
		envelope: *env,
	}
}

func (m *NoteManager) withLock(f func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			m.poisoned = true
			warnOnce("notes/poisoned", "note state poisoned: %v", r)
		}
	}()
	f()
}

// AddNote starts a voice. A released voice restarts its attack from the
// current level; a held voice is left untouched.
func (m *NoteManager) AddNote(freq float64, sampleRate float64) {
	key := KeyOf(freq)
	m.withLock(func() {
		if n, ok := m.notes[key]; ok {
			if n.isReleased {
				n.adsr.NoteOn()
				n.isReleased = false
			}
			return
		}
		m.serial++
		m.notes[key] = newActiveNote(freq, sampleRate, &m.envelope, m.serial)
		m.order = append(m.order, key)
	})
}

// ReleaseNote moves a held voice to its release stage.
func (m *NoteManager) ReleaseNote(freq float64) {
	key := KeyOf(freq)
	m.withLock(func() {
		if n, ok := m.notes[key]; ok && !n.isReleased {
			n.noteOff()
		}
	})
}

func (m *NoteManager) removeFinished() int {
	removed := 0
	kept := m.order[:0]
	for _, key := range m.order {
		if m.notes[key].IsFinished() {
			delete(m.notes, key)
			removed++
			continue
		}
		kept = append(kept, key)
	}
	m.order = kept
	return removed
}

// CleanupFinishedNotes removes every voice whose envelope is Idle and
// returns how many were removed.
func (m *NoteManager) CleanupFinishedNotes() int {
	count := 0
	m.withLock(func() {
		count = m.removeFinished()
	})
	return count
}

// StopAllNotes releases every voice. Tails keep ringing.
func (m *NoteManager) StopAllNotes() {
	m.withLock(func() {
		for _, key := range m.order {
			if n := m.notes[key]; !n.isReleased {
				n.noteOff()
			}
		}
	})
}

// Panic releases every voice and clears them immediately.
func (m *NoteManager) Panic() {
	m.StopAllNotes()
	m.withLock(m.clear)
}

func (m *NoteManager) clear() {
	for key := range m.notes {
		delete(m.notes, key)
	}
	m.order = m.order[:0]
}

// Reset clears every voice and the poisoned state.
func (m *NoteManager) Reset() {
	m.withLock(func() {
		m.clear()
		m.poisoned = false
	})
}

// Poisoned reports whether an earlier operation panicked.
func (m *NoteManager) Poisoned() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.poisoned
}

// SetEnvelope changes the envelope of new voices and re-times sounding ones
// from their current level.
func (m *NoteManager) SetEnvelope(env EnvelopeParams) error {
	if _, err := envelopeCurveFromString(env.Curve); err != nil {
		return err
	}
	m.withLock(func() {
		m.envelope = env
		for _, n := range m.notes {
			n.adsr.setParams(&m.envelope)
		}
	})
	return nil
}

// SetEnvelopeCurve selects linear or exponential segments.
func (m *NoteManager) SetEnvelopeCurve(name string) error {
	curve, err := envelopeCurveFromString(name)
	if err != nil {
		return err
	}
	m.withLock(func() {
		m.envelope.Curve = curve.String()
		for _, n := range m.notes {
			n.adsr.setCurve(curve)
		}
	})
	return nil
}

// Envelope returns the envelope used for new voices.
func (m *NoteManager) Envelope() EnvelopeParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.envelope
}

// Len returns the number of voices, including released ones.
func (m *NoteManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.notes)
}

// Note returns the state of the voice playing freq.
func (m *NoteManager) Note(freq float64) (NoteState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notes[KeyOf(freq)]
	if !ok {
		return NoteState{}, false
	}
	return NoteState{
		Frequency: n.Frequency,
		Stage:     n.adsr.GetStage(),
		Level:     n.adsr.Level(),
		Released:  n.isReleased,
	}, true
}

// GetAmplitude advances the envelope of the voice playing freq by one
// sample. It returns 0 when there is no such voice.
func (m *NoteManager) GetAmplitude(freq float64) float64 {
	amp := 0.0
	m.withLock(func() {
		if n, ok := m.notes[KeyOf(freq)]; ok {
			amp = n.GetAmplitude()
		}
	})
	return amp
}

// ----- Render Interface ----- //

// voiceBlock is one voice as seen by the renderer for one buffer: the
// envelope has already been advanced for every frame.
type voiceBlock struct {
	key      VoiceKey
	serial   uint64
	freq     float64
	amps     []float64
	finished bool
}

// advanceBlock advances every voice by frames samples and fills blocks.
// The returned slice reuses the storage of blocks. ok is false when the
// manager is poisoned.
func (m *NoteManager) advanceBlock(frames int, blocks []voiceBlock) (_ []voiceBlock, ok bool) {
	blocks = blocks[:0]
	m.withLock(func() {
		if m.poisoned {
			return
		}
		for _, key := range m.order {
			n := m.notes[key]
			if len(blocks) < cap(blocks) {
				blocks = blocks[:len(blocks)+1]
			} else {
				blocks = append(blocks, voiceBlock{})
			}
			b := &blocks[len(blocks)-1]
			b.key = key
			b.serial = n.serial
			b.freq = n.Frequency
			if cap(b.amps) < frames {
				b.amps = make([]float64, frames)
			}
			b.amps = b.amps[:frames]
			for i := range b.amps {
				b.amps[i] = n.GetAmplitude()
			}
			b.finished = n.IsFinished()
		}
		ok = true
	})
	if !ok {
		blocks = blocks[:0]
	}
	return blocks, ok
}
