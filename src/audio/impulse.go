package audio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
)

const maxImpulseSamples = 1 << 16

// ----- Impulse Response ----- //

// ImpulseResponse is a short early-reflection response for the reverb.
type ImpulseResponse struct {
	values []float64
}

// NewImpulseResponse copies values.
func NewImpulseResponse(values []float64) *ImpulseResponse {
	return &ImpulseResponse{values: append([]float64(nil), values...)}
}

// Values returns the samples. The slice must not be modified.
func (ir *ImpulseResponse) Values() []float64 { return ir.values }

// MakeEarlyReflections generates a sparse set of decaying taps whose spread
// follows the comb lengths of the given reverb type. The result is
// deterministic for a given seed.
func MakeEarlyReflections(reverbType string, sampleRate float64, seed int64) (*ImpulseResponse, error) {
	kind, err := reverbKindFromString(reverbType)
	if err != nil {
		return nil, err
	}
	p := reverbPresets[kind]
	longest := 0.0
	for _, ms := range p.combMs {
		longest = math.Max(longest, ms)
	}
	length := msToSamples(longest, sampleRate)
	if length < 1 {
		length = 1
	}
	values := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	values[0] = 1
	taps := 4 + 2*len(p.combMs)
	for i := 0; i < taps; i++ {
		pos := 1 + rng.Intn(length)
		if pos >= length {
			pos = length - 1
		}
		decay := math.Exp(-3 * float64(pos) / float64(length))
		sign := 1.0
		if rng.Intn(2) == 0 {
			sign = -1
		}
		values[pos] += sign * decay * (0.3 + 0.4*rng.Float64()) * (1 - p.damping*0.5)
	}
	return &ImpulseResponse{values: values}, nil
}

// IO
//   ir = { number_of_samples int32, samples []float64 }

// Write encodes the response.
func (ir *ImpulseResponse) Write(w io.Writer) error {
	if err := binary.Write(w, binary.BigEndian, int32(len(ir.values))); err != nil {
		return err
	}
	return binary.Write(w, binary.BigEndian, ir.values)
}

// ReadImpulseResponse decodes a response written by Write.
func ReadImpulseResponse(r io.Reader) (*ImpulseResponse, error) {
	var numSamples int32
	if err := binary.Read(r, binary.BigEndian, &numSamples); err != nil {
		return nil, fmt.Errorf("failed to read impulse response length: %w", err)
	}
	if numSamples < 0 || numSamples > maxImpulseSamples {
		return nil, fmt.Errorf("invalid impulse response length %v", numSamples)
	}
	values := make([]float64, numSamples)
	if err := binary.Read(r, binary.BigEndian, values); err != nil {
		return nil, fmt.Errorf("failed to read impulse response: %w", err)
	}
	return &ImpulseResponse{values: values}, nil
}

// Save writes the response to path.
func (ir *ImpulseResponse) Save(path string) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()
	w := bufio.NewWriter(file)
	if err := ir.Write(w); err != nil {
		return err
	}
	return w.Flush()
}

// LoadImpulseResponse reads a response from path.
func LoadImpulseResponse(path string) (*ImpulseResponse, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	ir, err := ReadImpulseResponse(bufio.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ir, nil
}
