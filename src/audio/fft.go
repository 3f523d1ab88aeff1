package audio

import (
	"fmt"
	"math"
	"math/cmplx"
)

// FFT is a radix-2 transform of a fixed length with precomputed tables.
type FFT struct {
	bitReverseTable []int
	wTable          []complex128
	inverse         bool
	work            []complex128
}

// NewFFT panics if length is not a power of two.
func NewFFT(length int, inverse bool) *FFT {
	if length < 1 || length&(length-1) != 0 {
		panic(fmt.Sprintf("FFT length should be a power of two: %v", length))
	}
	return &FFT{
		bitReverseTable: makeBitReverseTable(length),
		wTable:          makeWTable(length),
		inverse:         inverse,
		work:            make([]complex128, length),
	}
}
func makeBitReverseTable(n int) []int {
	array := make([]int, n)
	for i := 0; i < n; i++ {
		array[i] = bitReverse(i, n)
	}
	return array
}
func bitReverse(k, n int) int {
	m := 0
	for ; n > 1; n = n >> 1 {
		m = m<<1 + k&1
		k = k >> 1
	}
	return m
}
func makeWTable(n int) []complex128 {
	array := make([]complex128, n)
	w := -2.0 * math.Pi / float64(n)
	for i := 0; i < n; i++ {
		array[i] = cmplx.Exp(complex(0, w*float64(i)))
	}
	return array
}

// Len is the transform length.
func (fft *FFT) Len() int { return len(fft.bitReverseTable) }

// Calc transforms x in place.
func (fft *FFT) Calc(x []complex128) error {
	n := len(x)
	if n != len(fft.bitReverseTable) {
		return fmt.Errorf("length should be %v, but got %v", len(fft.bitReverseTable), n)
	}
	for i := 0; i < n; i++ {
		rev := fft.bitReverseTable[i]
		if i < rev {
			x[i], x[rev] = x[rev], x[i]
		}
	}
	for m := 1; m < n; m = m << 1 {
		step := m << 1
		for k := 0; k < m; k++ {
			idx := n / step * k
			if fft.inverse && idx != 0 {
				idx = n - idx
			}
			w := fft.wTable[idx]
			for i := k; i < n; i += step {
				j := i + m
				tmp := x[j] * w
				x[j] = x[i] - tmp
				x[i] = x[i] + tmp
			}
		}
	}
	if fft.inverse {
		for i := 0; i < n; i++ {
			x[i] /= complex(float64(n), 0)
		}
	}
	return nil
}

func (fft *FFT) load(x []float64) error {
	if len(x) != len(fft.work) {
		return fmt.Errorf("length should be %v, but got %v", len(fft.work), len(x))
	}
	for i, v := range x {
		fft.work[i] = complex(v, 0)
	}
	return fft.Calc(fft.work)
}

// CalcReal replaces x with the real part of its transform.
func (fft *FFT) CalcReal(x []float64) error {
	if err := fft.load(x); err != nil {
		return err
	}
	for i := range x {
		x[i] = real(fft.work[i])
	}
	return nil
}

// CalcAbs replaces x with the magnitude of its transform.
func (fft *FFT) CalcAbs(x []float64) error {
	if err := fft.load(x); err != nil {
		return err
	}
	for i := range x {
		x[i] = cmplx.Abs(fft.work[i])
	}
	return nil
}

// ----- Spectrum ----- //

// spectrum windows x, transforms it and scales the first half of the
// magnitudes so that a full-scale sine reads about 1 at its bin.
func spectrum(fft *FFT, window windowFunc, x []float64) ([]float64, error) {
	applyWindow(x, window)
	if err := fft.CalcAbs(x); err != nil {
		return nil, err
	}
	n := len(x)
	for i := range x {
		x[i] = x[i] * 4 / float64(n) // x2 for the mirrored half, x2 for the Hann gain
	}
	return x[:n/2], nil
}
