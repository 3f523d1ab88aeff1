package audio

import "fmt"

// ----- Module Kind ----- //

// moduleKind also defines the signal order of a preset chain:
// modules are always kept sorted by kind.
type moduleKind int

const (
	moduleNoise moduleKind = iota
	moduleLFO
	moduleFilter
	moduleGain
	moduleCompressor
	moduleEcho
	moduleReverb
	moduleADSR
)

var moduleKindNames = []string{"noise", "lfo", "filter", "gain", "compressor", "echo", "reverb", "adsr"}

func (k moduleKind) String() string {
	if k < 0 || int(k) >= len(moduleKindNames) {
		return "unknown"
	}
	return moduleKindNames[k]
}

func moduleKindFromString(s string) (moduleKind, error) {
	for i, name := range moduleKindNames {
		if name == s {
			return moduleKind(i), nil
		}
	}
	return moduleNoise, fmt.Errorf("unknown module %q", s)
}

// ----- Module ----- //

// Module is a single-input single-output DSP stage.
//
// Process is called once per sample with the absolute time in seconds and
// must not allocate. clone returns a copy that shares no state with the
// receiver. adopt copies the parameters (not the running state) of a module
// of the same kind.
type Module interface {
	Process(in float64, t float64) float64
	Kind() moduleKind
	Name() string
	clone() Module
	adopt(src Module)
}
