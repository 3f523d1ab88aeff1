package audio

import (
	"math"
	"testing"
)

func expectEqual(t *testing.T, actual, expected interface{}) {
	t.Helper()
	if actual != expected {
		t.Errorf("expected %v, but got: %v", expected, actual)
	}
}

func expectNearlyEqual(t *testing.T, actual, expected float64) {
	t.Helper()
	if math.Abs(actual-expected) > 0.0001 {
		t.Errorf("expected %v, but got: %v", expected, actual)
	}
}

func TestBitreverse(t *testing.T) {
	expectEqual(t, bitReverse(0, 8), 0)
	expectEqual(t, bitReverse(1, 8), 4)
	expectEqual(t, bitReverse(2, 8), 2)
	expectEqual(t, bitReverse(3, 8), 6)
	expectEqual(t, bitReverse(4, 8), 1)
	expectEqual(t, bitReverse(5, 8), 5)
	expectEqual(t, bitReverse(6, 8), 3)
	expectEqual(t, bitReverse(7, 8), 7)
}

func TestFFT(t *testing.T) {
	fft := NewFFT(8, false)
	x := []float64{0, 0.25, 0.5, 0.75, 1, 0.75, 0.5, 0.25}
	expectNoError(t, fft.CalcReal(x))
	expectNearlyEqual(t, x[0], 4)
	expectNearlyEqual(t, x[1], -(1 + math.Sqrt(2)/2))
	expectNearlyEqual(t, x[2], 0)
	expectNearlyEqual(t, x[3], -(1 - math.Sqrt(2)/2))
	expectNearlyEqual(t, x[4], 0)
	expectNearlyEqual(t, x[5], -(1 - math.Sqrt(2)/2))
	expectNearlyEqual(t, x[6], 0)
	expectNearlyEqual(t, x[7], -(1 + math.Sqrt(2)/2))
}

func TestInverseFFT(t *testing.T) {
	n := 16
	x := make([]complex128, n)
	for i := range x {
		x[i] = complex(math.Sin(float64(i)), 0)
	}
	y := append([]complex128(nil), x...)
	expectNoError(t, NewFFT(n, false).Calc(y))
	expectNoError(t, NewFFT(n, true).Calc(y))
	for i := range x {
		expectNearlyEqual(t, real(y[i]), real(x[i]))
		expectNearlyEqual(t, imag(y[i]), 0)
	}
}

func TestFFTLength(t *testing.T) {
	fft := NewFFT(8, false)
	expectEqual(t, fft.Len(), 8)
	expectError(t, fft.CalcAbs(make([]float64, 4)))
	expectError(t, fft.Calc(make([]complex128, 16)))
	defer func() {
		if recover() == nil {
			t.Errorf("expected a panic for a length that is not a power of two")
		}
	}()
	NewFFT(12, false)
}

func TestSpectrum(t *testing.T) {
	n := 256
	x := make([]float64, n)
	for i := range x {
		x[i] = 0.5 * math.Sin(2*math.Pi*8*float64(i)/float64(n))
	}
	for _, name := range []string{"han", "blackman", "hamming"} {
		w, err := windowByName(name)
		expectNoError(t, err)
		data := append([]float64(nil), x...)
		result, err := spectrum(NewFFT(n, false), w, data)
		expectNoError(t, err)
		expectEqual(t, len(result), n/2)
		peak := 0
		for i, v := range result {
			if v > result[peak] {
				peak = i
			}
		}
		expectEqual(t, peak, 8)
	}
	w, _ := windowByName("han")
	result, _ := spectrum(NewFFT(n, false), w, x)
	// full Hann gain: amplitude reads back as is
	expectNearlyEqual(t, result[8], 0.5)

	_, err := windowByName("rectangle")
	expectError(t, err)
}
