package audio

import (
	"math"
	"testing"
)

func newTestADSR(sampleRate, attack, decay, sustain, release float64, curve string) *ADSR {
	a := NewADSR(sampleRate)
	a.setParams(&EnvelopeParams{
		Attack:  attack,
		Decay:   decay,
		Sustain: sustain,
		Release: release,
		Curve:   curve,
	})
	return a
}

func TestADSRStages(t *testing.T) {
	a := newTestADSR(1000, 0.01, 0.01, 0.5, 0.01, "linear")
	expectEqual(t, a.GetStage(), StageIdle)
	expectEqual(t, a.IsFinished(), true)
	a.NoteOn()
	expectEqual(t, a.GetStage(), StageAttack)
	for i := 0; i < 9; i++ {
		a.GetAmplitude()
	}
	expectEqual(t, a.GetStage(), StageAttack)
	expectNearlyEqual(t, a.GetAmplitude(), 1)
	expectEqual(t, a.GetStage(), StageDecay)
	for i := 0; i < 10; i++ {
		a.GetAmplitude()
	}
	expectEqual(t, a.GetStage(), StageSustain)
	expectNearlyEqual(t, a.Level(), 0.5)
	for i := 0; i < 100; i++ {
		expectNearlyEqual(t, a.GetAmplitude(), 0.5)
	}
	a.NoteOff()
	expectEqual(t, a.GetStage(), StageRelease)
	for i := 0; i < 10; i++ {
		a.GetAmplitude()
	}
	expectEqual(t, a.GetStage(), StageIdle)
	expectEqual(t, a.IsFinished(), true)
	expectNearlyEqual(t, a.GetAmplitude(), 0)
}

func TestADSRMonotonicity(t *testing.T) {
	for _, curve := range []string{"linear", "exponential"} {
		a := newTestADSR(1000, 0.1, 0.2, 0.5, 0.3, curve)
		a.NoteOn()
		for i := 0; i < 2000; i++ {
			if i == 500 {
				a.NoteOff()
			}
			before := a.Level()
			stage := a.GetStage()
			v := a.GetAmplitude()
			if v < 0 || v > 1 {
				t.Fatalf("%s: level out of range at %d: %v", curve, i, v)
			}
			switch stage {
			case StageAttack:
				if v < before-1e-12 {
					t.Fatalf("%s: attack decreased at %d: %v -> %v", curve, i, before, v)
				}
			case StageDecay, StageRelease:
				if v > before+1e-12 {
					t.Fatalf("%s: %v increased at %d: %v -> %v", curve, stage, i, before, v)
				}
			}
		}
		expectEqual(t, a.IsFinished(), true)
	}
}

func TestADSRTerminates(t *testing.T) {
	for _, release := range []float64{0, 0.001, 0.05, 1} {
		for _, curve := range []string{"linear", "exponential"} {
			a := newTestADSR(1000, 0, 0, 0.8, release, curve)
			a.NoteOn()
			for i := 0; i < 10; i++ {
				a.GetAmplitude()
			}
			a.NoteOff()
			limit := int(math.Ceil(release*1000)) + 2
			n := 0
			for !a.IsFinished() {
				a.GetAmplitude()
				n++
				if n > limit {
					t.Fatalf("release=%v %s: not idle after %d samples", release, curve, n)
				}
			}
			expectNearlyEqual(t, a.Level(), 0)
		}
	}
}

func TestADSRZeroTimes(t *testing.T) {
	a := newTestADSR(1000, 0, 0, 0.6, 0, "linear")
	a.NoteOn()
	expectNearlyEqual(t, a.GetAmplitude(), 0.6)
	expectEqual(t, a.GetStage(), StageSustain)
	a.NoteOff()
	expectNearlyEqual(t, a.GetAmplitude(), 0)
	expectEqual(t, a.GetStage(), StageIdle)
}

func TestADSRRetriggerFromCurrentLevel(t *testing.T) {
	a := newTestADSR(1000, 0.1, 0.1, 0.5, 0.5, "linear")
	a.NoteOn()
	for i := 0; i < 300; i++ {
		a.GetAmplitude()
	}
	a.NoteOff()
	for i := 0; i < 100; i++ {
		a.GetAmplitude()
	}
	level := a.Level()
	if level <= 0 || level >= 0.5 {
		t.Fatalf("unexpected level in release: %v", level)
	}
	a.NoteOn()
	expectEqual(t, a.GetStage(), StageAttack)
	expectNearlyEqual(t, a.Level(), level)
	next := a.GetAmplitude()
	if next < level || next-level > (1-level)/100+1e-9 {
		t.Errorf("attack did not continue from %v: %v", level, next)
	}
}

func TestADSRNoteOffWhenIdle(t *testing.T) {
	a := NewADSR(1000)
	a.NoteOff()
	expectEqual(t, a.GetStage(), StageIdle)
}

func TestADSRParameterChangeRetimes(t *testing.T) {
	a := newTestADSR(1000, 1, 0.1, 0.5, 0.1, "linear")
	a.NoteOn()
	for i := 0; i < 500; i++ {
		a.GetAmplitude()
	}
	expectNearlyEqual(t, a.Level(), 0.5)
	// the remaining half now takes 10 samples
	a.SetAttack(0.01)
	for i := 0; i < 10; i++ {
		a.GetAmplitude()
	}
	expectEqual(t, a.GetStage(), StageDecay)
	expectNearlyEqual(t, a.Level(), 1)

	a.SetSustain(2)
	expectNearlyEqual(t, a.sustain, 1)
	a.SetRelease(-1)
	expectNearlyEqual(t, a.release, 0)
}

func TestExponentialCurve(t *testing.T) {
	a := newTestADSR(1000, 0.1, 0.1, 0.5, 0.1, "exponential")
	a.NoteOn()
	v1 := a.GetAmplitude()
	v2 := a.GetAmplitude()
	v3 := a.GetAmplitude()
	// constant ratio
	expectNearlyEqual(t, v2/v1, v3/v2)
	for a.GetStage() == StageAttack {
		a.GetAmplitude()
	}
	expectNearlyEqual(t, a.Level(), 1)

	_, err := envelopeCurveFromString("log")
	expectError(t, err)
	c, err := envelopeCurveFromString("")
	expectNoError(t, err)
	expectEqual(t, c, curveLinear)
}

func TestEnvelopeStageString(t *testing.T) {
	expectEqual(t, StageIdle.String(), "idle")
	expectEqual(t, StageRelease.String(), "release")
	expectEqual(t, EnvelopeStage(42).String(), "unknown")
}
