package audio

import (
	"math"
	"sync"
	"testing"
)

func newTestNoteManager(attack, decay, sustain, release float64) *NoteManager {
	return NewNoteManager(&EnvelopeParams{
		Attack:  attack,
		Decay:   decay,
		Sustain: sustain,
		Release: release,
		Curve:   "linear",
	})
}

func TestKeyOf(t *testing.T) {
	expectEqual(t, KeyOf(0), KeyOf(math.Copysign(0, -1)))
	if KeyOf(440) == KeyOf(440.0001) {
		t.Errorf("nearby frequencies share a key")
	}
	if KeyOf(440) == KeyOf(math.Nextafter(440, 441)) {
		t.Errorf("adjacent frequencies share a key")
	}
	expectEqual(t, KeyOf(440), KeyOf(NoteToFreq(69)))
}

func TestAddNoteIsIdempotent(t *testing.T) {
	m := newTestNoteManager(0.1, 0.1, 0.5, 0.1)
	m.AddNote(440, 1000)
	for i := 0; i < 10; i++ {
		m.GetAmplitude(440)
	}
	before, _ := m.Note(440)
	m.AddNote(440, 1000)
	after, _ := m.Note(440)
	expectEqual(t, m.Len(), 1)
	expectEqual(t, after, before)
	expectEqual(t, after.Stage, StageAttack)
}

func TestDistinctFrequencies(t *testing.T) {
	m := NewNoteManager(nil)
	m.AddNote(440, testSampleRate)
	m.AddNote(440.0001, testSampleRate)
	expectEqual(t, m.Len(), 2)
	m.ReleaseNote(440)
	a, _ := m.Note(440)
	b, _ := m.Note(440.0001)
	expectEqual(t, a.Released, true)
	expectEqual(t, b.Released, false)
}

func TestReleaseAndRetrigger(t *testing.T) {
	m := newTestNoteManager(0.01, 0.01, 0.5, 1)
	m.AddNote(440, 1000)
	for i := 0; i < 100; i++ {
		m.GetAmplitude(440)
	}
	m.ReleaseNote(440)
	state, _ := m.Note(440)
	expectEqual(t, state.Released, true)
	expectEqual(t, state.Stage, StageRelease)

	// a second release is a no-op
	for i := 0; i < 100; i++ {
		m.GetAmplitude(440)
	}
	level := state.Level
	state, _ = m.Note(440)
	if state.Level >= level {
		t.Fatalf("level did not decrease in release: %v", state.Level)
	}
	m.ReleaseNote(440)
	again, _ := m.Note(440)
	expectEqual(t, again, state)

	m.AddNote(440, 1000)
	state, _ = m.Note(440)
	expectEqual(t, m.Len(), 1)
	expectEqual(t, state.Released, false)
	expectEqual(t, state.Stage, StageAttack)
	expectNearlyEqual(t, state.Level, again.Level)

	// unknown frequencies are ignored
	m.ReleaseNote(123)
	expectNearlyEqual(t, m.GetAmplitude(123), 0)
	_, ok := m.Note(123)
	expectEqual(t, ok, false)
}

func TestCleanupFinishedNotes(t *testing.T) {
	m := newTestNoteManager(0, 0, 1, 0)
	m.AddNote(440, 1000)
	m.AddNote(880, 1000)
	m.GetAmplitude(440)
	m.GetAmplitude(880)
	expectEqual(t, m.CleanupFinishedNotes(), 0)

	m.ReleaseNote(440)
	m.GetAmplitude(440)
	state, _ := m.Note(440)
	expectEqual(t, state.Stage, StageIdle)
	expectEqual(t, m.CleanupFinishedNotes(), 1)
	expectEqual(t, m.Len(), 1)
	_, ok := m.Note(880)
	expectEqual(t, ok, true)
}

func TestRemoveFinishedDoesNotAllocate(t *testing.T) {
	const runs = 10
	managers := make([]*NoteManager, runs+1)
	for i := range managers {
		m := newTestNoteManager(0, 0, 1, 0)
		for n := 0; n < 8; n++ {
			freq := float64(100 + n)
			m.AddNote(freq, 1000)
			m.GetAmplitude(freq)
			m.ReleaseNote(freq)
			m.GetAmplitude(freq)
		}
		managers[i] = m
	}
	i := 0
	allocs := testing.AllocsPerRun(runs, func() {
		if removed := managers[i].removeFinished(); removed != 8 {
			t.Errorf("expected 8 removed, but got: %d", removed)
		}
		i++
	})
	expectEqual(t, allocs, 0.0)
}

func TestStopAllNotes(t *testing.T) {
	m := NewNoteManager(nil)
	for _, freq := range []float64{220, 330, 440} {
		m.AddNote(freq, testSampleRate)
	}
	m.StopAllNotes()
	expectEqual(t, m.Len(), 3)
	for _, freq := range []float64{220, 330, 440} {
		state, _ := m.Note(freq)
		expectEqual(t, state.Released, true)
		expectEqual(t, state.Stage, StageRelease)
	}
	m.Panic()
	expectEqual(t, m.Len(), 0)
}

func TestPoisonedNoteManager(t *testing.T) {
	m := NewNoteManager(nil)
	m.AddNote(440, testSampleRate)
	m.withLock(func() {
		panic("boom")
	})
	expectEqual(t, m.Poisoned(), true)
	blocks, ok := m.advanceBlock(16, nil)
	expectEqual(t, ok, false)
	expectEqual(t, len(blocks), 0)

	m.Reset()
	expectEqual(t, m.Poisoned(), false)
	expectEqual(t, m.Len(), 0)
	m.AddNote(440, testSampleRate)
	blocks, ok = m.advanceBlock(16, blocks)
	expectEqual(t, ok, true)
	expectEqual(t, len(blocks), 1)
}

func TestAdvanceBlock(t *testing.T) {
	m := newTestNoteManager(0.004, 0, 1, 0)
	m.AddNote(440, 1000)
	m.AddNote(220, 1000)
	blocks, ok := m.advanceBlock(8, nil)
	expectEqual(t, ok, true)
	expectEqual(t, len(blocks), 2)
	// insertion order
	expectEqual(t, blocks[0].key, KeyOf(440))
	expectEqual(t, blocks[1].key, KeyOf(220))
	expectEqual(t, len(blocks[0].amps), 8)
	expectNearlyEqual(t, blocks[0].amps[0], 0.25)
	expectNearlyEqual(t, blocks[0].amps[3], 1)
	expectNearlyEqual(t, blocks[0].amps[7], 1)
	expectEqual(t, blocks[0].finished, false)
	if blocks[0].serial == blocks[1].serial {
		t.Errorf("voices share a serial")
	}

	m.ReleaseNote(220)
	blocks, _ = m.advanceBlock(4, blocks)
	expectEqual(t, len(blocks), 2)
	expectEqual(t, len(blocks[1].amps), 4)
	expectEqual(t, blocks[1].finished, true)
	expectNearlyEqual(t, blocks[1].amps[0], 0)
}

func TestSetEnvelope(t *testing.T) {
	m := newTestNoteManager(1, 0.1, 0.5, 0.1)
	m.AddNote(440, 1000)
	for i := 0; i < 500; i++ {
		m.GetAmplitude(440)
	}
	env := m.Envelope()
	env.Attack = 0.01
	expectNoError(t, m.SetEnvelope(env))
	for i := 0; i < 10; i++ {
		m.GetAmplitude(440)
	}
	state, _ := m.Note(440)
	expectEqual(t, state.Stage, StageDecay)

	env.Curve = "log"
	expectError(t, m.SetEnvelope(env))
	expectEqual(t, m.Envelope().Curve, "linear")

	expectNoError(t, m.SetEnvelopeCurve("exponential"))
	expectEqual(t, m.Envelope().Curve, "exponential")
	expectError(t, m.SetEnvelopeCurve("cubic"))
}

func TestEnvelopeEndToEnd(t *testing.T) {
	sampleRate := 44100.0
	m := newTestNoteManager(1.0, 0.1, 0.7, 0.5)
	m.AddNote(440, sampleRate)
	amp := 0.0
	for i := 0; i < 44100; i++ {
		amp = m.GetAmplitude(440)
	}
	// sample 44099
	expectNearlyEqual(t, amp, 1)

	m.ReleaseNote(440)
	n := 0
	for {
		m.GetAmplitude(440)
		n++
		state, _ := m.Note(440)
		if state.Stage == StageIdle {
			break
		}
		if n > 22050*105/100 {
			t.Fatalf("not finished after %d samples", n)
		}
	}
	if n < 22050*95/100 {
		t.Errorf("finished too early: %d samples", n)
	}
	expectEqual(t, m.CleanupFinishedNotes(), 1)
	expectEqual(t, m.Len(), 0)
}

func TestNoteManagerConcurrency(t *testing.T) {
	m := NewNoteManager(nil)
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				freq := NoteToFreq(60 + (g*7+i)%24)
				if i%3 == 0 {
					m.ReleaseNote(freq)
				} else {
					m.AddNote(freq, testSampleRate)
				}
			}
		}(g)
	}
	var blocks []voiceBlock
	for i := 0; i < 50; i++ {
		var ok bool
		blocks, ok = m.advanceBlock(64, blocks)
		expectEqual(t, ok, true)
		m.CleanupFinishedNotes()
	}
	wg.Wait()
	if m.Len() > 24 {
		t.Errorf("too many voices: %d", m.Len())
	}
	expectEqual(t, m.Poisoned(), false)
}
