package audio

import (
	"math"
	"testing"
)

const testSampleRate = 48000.0

func expectFinite(t *testing.T, v float64) {
	t.Helper()
	if math.IsNaN(v) || math.IsInf(v, 0) {
		t.Fatalf("expected a finite value, but got: %v", v)
	}
}

func TestOscillators(t *testing.T) {
	expectNearlyEqual(t, sineOsc{}.Sample(math.Pi/2), 1)
	expectNearlyEqual(t, squareOsc{}.Sample(0.1), 1)
	expectNearlyEqual(t, squareOsc{}.Sample(math.Pi+0.1), -1)
	expectNearlyEqual(t, squareOsc{}.Sample(-0.1), -1)
	expectNearlyEqual(t, sawtoothOsc{}.Sample(0), -1)
	expectNearlyEqual(t, sawtoothOsc{}.Sample(math.Pi), 0)
	expectNearlyEqual(t, sawtoothOsc{}.Sample(3*math.Pi), 0)

	for _, name := range synthKindNames {
		kind, err := synthKindFromString(name)
		expectNoError(t, err)
		osc := newOscillator(kind)
		for i := 0; i < 1000; i++ {
			v := osc.Sample(float64(i) * 2 * math.Pi / 1000)
			if v < -1 || v > 1 {
				t.Fatalf("%s: sample out of range at %d: %v", osc.Name(), i, v)
			}
		}
	}
	_, err := synthKindFromString("Sine")
	expectError(t, err)
}

func TestGain(t *testing.T) {
	g := newGain(-6.0206)
	expectNearlyEqual(t, g.Process(1, 0), 0.5)
	g.setDB(0)
	expectNearlyEqual(t, g.Process(0.3, 0), 0.3)
}

func TestNoise(t *testing.T) {
	n := newNoise(2)
	expectNearlyEqual(t, n.getAmount(), 1)
	for i := 0; i < 10000; i++ {
		v := n.Process(0.9, 0)
		if v < -1 || v > 1 {
			t.Fatalf("noise out of range: %v", v)
		}
	}
	n.setAmount(-1)
	expectNearlyEqual(t, n.Process(0.5, 0), 0.5)
}

func TestLowPassFilterPassesDC(t *testing.T) {
	f := newLowPassFilter(1000, 0.707, testSampleRate)
	out := 0.0
	for i := 0; i < 48000; i++ {
		out = f.Process(1, 0)
	}
	expectNearlyEqual(t, out, 1)
}

func TestLowPassFilterIsStable(t *testing.T) {
	for _, cutoff := range []float64{0, 20, 1000, 10000, 23000, 100000} {
		for _, q := range []float64{0, 0.707, 10} {
			f := newLowPassFilter(cutoff, q, testSampleRate)
			tail := 0.0
			for i := 0; i < 48000; i++ {
				in := 0.0
				if i == 0 {
					in = 1
				}
				v := f.Process(in, 0)
				expectFinite(t, v)
				if math.Abs(v) > 100 {
					t.Fatalf("cutoff=%v q=%v: diverged: %v", cutoff, q, v)
				}
				if i >= 47000 {
					tail = math.Max(tail, math.Abs(v))
				}
			}
			if tail > 1e-3 {
				t.Errorf("cutoff=%v q=%v: impulse response does not decay: %v", cutoff, q, tail)
			}
		}
	}
}

func TestLowPassFilterSetters(t *testing.T) {
	f := newLowPassFilter(1000, 0.707, testSampleRate)
	b0 := f.b0
	f.setCutoff(5000)
	expectNearlyEqual(t, f.getCutoff(), 5000)
	if f.b0 == b0 {
		t.Errorf("coefficients were not recomputed")
	}
	f.setCutoff(1e9)
	expectNearlyEqual(t, f.getCutoff(), testSampleRate*0.49)
	f.setResonance(0)
	expectNearlyEqual(t, f.getResonance(), minResonance)

	// adopt keeps the history
	f.Process(1, 0)
	src := newLowPassFilter(300, 2, testSampleRate)
	f.adopt(src)
	expectNearlyEqual(t, f.getCutoff(), 300)
	expectNearlyEqual(t, f.x1, 1)
}

func TestLFOShapes(t *testing.T) {
	expectNearlyEqual(t, lfoTriangle.value(0), -1)
	expectNearlyEqual(t, lfoTriangle.value(0.25), 0)
	expectNearlyEqual(t, lfoTriangle.value(0.5), 1)
	expectNearlyEqual(t, lfoTriangle.value(0.75), 0)
	expectNearlyEqual(t, lfoSquare.value(0.25), 1)
	expectNearlyEqual(t, lfoSquare.value(0.75), -1)
	expectNearlyEqual(t, lfoSawUp.value(0), -1)
	expectNearlyEqual(t, lfoSawUp.value(0.5), 0)
	expectNearlyEqual(t, lfoSawDown.value(0), 1)
	expectNearlyEqual(t, lfoSawDown.value(0.75), -0.5)
	expectNearlyEqual(t, lfoSine.value(0.25), 1)

	for _, name := range lfoWaveNames {
		wave, err := lfoWaveFromString(name)
		expectNoError(t, err)
		expectEqual(t, wave.String(), name)
	}
	_, err := lfoWaveFromString("random")
	expectError(t, err)
}

func TestLFOModulatesAmplitude(t *testing.T) {
	// one cycle every four samples: phases 0, 0.25, 0.5, 0.75
	l := newLfo(lfoSine, 1, 0.5, 4)
	for _, expected := range []float64{1, 1.5, 1, 0.5, 1} {
		expectNearlyEqual(t, l.Process(1, 0), expected)
	}

	l = newLfo(lfoSquare, 1, 1, 4)
	l.setUnipolar(true)
	for _, expected := range []float64{2, 2, 1, 1} {
		expectNearlyEqual(t, l.Process(1, 0), expected)
	}

	l = newLfo(lfoSine, 5, 0, testSampleRate)
	for i := 0; i < 100; i++ {
		expectNearlyEqual(t, l.Process(0.25, 0), 0.25)
	}
	l.setOffset(0.5)
	expectNearlyEqual(t, l.Process(0.25, 0), 0.375)
}

func TestCompressorIsTransparentBelowThreshold(t *testing.T) {
	for _, knee := range []float64{0, 6} {
		c := newCompressor(-20, 4, 0.01, 0.1, 6, knee, testSampleRate)
		for i := 0; i < 48000; i++ {
			in := 0.001 * math.Sin(2*math.Pi*440*float64(i)/testSampleRate)
			out := c.Process(in, 0)
			expectNearlyEqual(t, out, in*dbToLinear(6))
		}
		expectNearlyEqual(t, c.gainReduction(), 0)
	}
}

func TestCompressorReducesLoudInput(t *testing.T) {
	c := newCompressor(-20, 4, 0.01, 0.1, 0, 0, testSampleRate)
	out := 0.0
	for i := 0; i < 48000; i++ {
		out = c.Process(1, 0)
	}
	// 20dB over, 4:1
	expectNearlyEqual(t, c.gainReduction(), 15)
	expectNearlyEqual(t, out, dbToLinear(-15))

	// released after the input stops
	for i := 0; i < 48000; i++ {
		c.Process(0, 0)
	}
	if c.gainReduction() > 0.01 {
		t.Errorf("gain reduction was not released: %v", c.gainReduction())
	}
}

func TestCompressorKneeIsContinuous(t *testing.T) {
	c := newCompressor(-20, 4, 0.01, 0.1, 0, 6, testSampleRate)
	hard := newCompressor(-20, 4, 0.01, 0.1, 0, 0, testSampleRate)
	expectNearlyEqual(t, c.targetReduction(-23), 0)
	expectNearlyEqual(t, c.targetReduction(-17), hard.targetReduction(-17))
	expectNearlyEqual(t, c.targetReduction(0), hard.targetReduction(0))
	prev := 0.0
	for level := -40.0; level <= 0; level += 0.1 {
		r := c.targetReduction(level)
		if r < prev-1e-9 {
			t.Fatalf("reduction decreased at %v dB", level)
		}
		prev = r
	}
}

func TestEcho(t *testing.T) {
	e := newEcho(10, 0.5, 1, 1000)
	expectEqual(t, e.delay.length(), 10)
	out := make([]float64, 35)
	for i := range out {
		in := 0.0
		if i == 0 {
			in = 1
		}
		out[i] = e.Process(in, 0)
	}
	expectNearlyEqual(t, out[0], 1)
	expectNearlyEqual(t, out[10], 1)
	expectNearlyEqual(t, out[20], 0.5)
	expectNearlyEqual(t, out[30], 0.25)
	expectNearlyEqual(t, out[5], 0)

	e.setFeedback(2)
	expectNearlyEqual(t, e.feedbackGain, maxFeedback)
	e.setDelayMs(1)
	expectNearlyEqual(t, e.delayMs, minEchoMs)
	e.setDelayMs(20)
	expectEqual(t, e.delay.length(), 20)
}

func TestReverbDryIsIdentity(t *testing.T) {
	for _, name := range reverbKindNames {
		kind, err := reverbKindFromString(name)
		expectNoError(t, err)
		r := newReverb(kind, testSampleRate)
		r.setDryWet(0)
		for i := 0; i < 4800; i++ {
			in := math.Sin(float64(i) * 0.01)
			if out := r.Process(in, 0); out != in {
				t.Fatalf("%s: expected %v, but got %v", name, in, out)
			}
		}
	}
}

func TestReverbTailDecays(t *testing.T) {
	for _, name := range reverbKindNames {
		kind, _ := reverbKindFromString(name)
		r := newReverb(kind, testSampleRate)
		r.setDryWet(1)
		r.setImpulseResponse(nil)
		peak := 0.0
		for i := 0; i < 24000; i++ {
			v := r.Process(0.5, 0)
			expectFinite(t, v)
			peak = math.Max(peak, math.Abs(v))
		}
		if peak == 0 {
			t.Errorf("%s: no wet signal", name)
		}
		last := 0.0
		for i := 0; i < 480000; i++ {
			last = r.Process(0, 0)
		}
		if math.Abs(last) > 1e-4 {
			t.Errorf("%s: tail does not decay: %v", name, last)
		}
	}
}

func TestReverbEarlyReflections(t *testing.T) {
	r := newReverb(reverbRoom, testSampleRate)
	r.setDryWet(1)
	r.setEarlyGain(1)
	r.setTailGain(0)
	r.setPreDelayMs(0)
	r.setImpulseResponse([]float64{0, 0, 1})
	expectNearlyEqual(t, r.Process(1, 0), 0)
	expectNearlyEqual(t, r.Process(0, 0), 0)
	expectNearlyEqual(t, r.Process(0, 0), 1)
	expectNearlyEqual(t, r.Process(0, 0), 0)
}

func TestReverbCloneSharesNoState(t *testing.T) {
	r := newReverb(reverbHall, testSampleRate)
	r.setImpulseResponse([]float64{0.5, 0.25})
	c := r.clone()
	for i := 0; i < 1000; i++ {
		r.Process(1, 0)
	}
	for i := 0; i < 1000; i++ {
		if v := c.Process(0, 0); v != 0 {
			t.Fatalf("clone was affected by the original: %v", v)
		}
	}
}

func TestDelay(t *testing.T) {
	d := newDelay(3)
	for i := 1; i <= 3; i++ {
		expectNearlyEqual(t, d.getDelayed(), 0)
		d.step(float64(i))
	}
	expectNearlyEqual(t, d.getDelayed(), 1)
	c := d.clone()
	d.step(4)
	expectNearlyEqual(t, d.getDelayed(), 2)
	expectNearlyEqual(t, c.getDelayed(), 1)
	d.resize(0)
	expectEqual(t, d.length(), 1)
	expectEqual(t, msToSamples(10, 1000), 10)
	expectEqual(t, msToSamples(-10, 1000), 0)
}

func TestTransitiveValue(t *testing.T) {
	tv := newTransitiveValue(0)
	tv.linear(4, 1)
	values := []float64{}
	for !tv.step() {
		values = append(values, tv.value)
	}
	expectEqual(t, len(values), 4)
	expectNearlyEqual(t, values[2], 0.5)
	expectNearlyEqual(t, tv.value, 1)

	tv.exponential(100, 0, 1e-4)
	ended := false
	for i := 0; i < 2000 && !ended; i++ {
		ended = tv.step()
	}
	expectEqual(t, ended, true)
	expectNearlyEqual(t, tv.value, 0)
}
