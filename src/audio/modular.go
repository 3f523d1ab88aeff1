package audio

// ----- Modular Synth ----- //

// ModularSynth is one oscillator followed by a chain of modules.
// The chain is kept in moduleKind order and holds at most one module per kind.
type ModularSynth struct {
	osc     Oscillator
	modules []Module
}

// NewModularSynth creates a synth with an empty chain.
func NewModularSynth(osc Oscillator) *ModularSynth {
	return &ModularSynth{
		osc:     osc,
		modules: make([]Module, 0, len(moduleKindNames)),
	}
}

// GenerateSample evaluates the oscillator at phase (radians) and folds the
// result through the chain. t is the absolute time in seconds.
func (s *ModularSynth) GenerateSample(phase float64, t float64) float64 {
	sample := s.osc.Sample(phase)
	for _, m := range s.modules {
		sample = m.Process(sample, t)
	}
	return sample
}

// AddModule inserts m at its position in the chain, replacing a module of
// the same kind.
func (s *ModularSynth) AddModule(m Module) {
	for i, existing := range s.modules {
		if existing.Kind() == m.Kind() {
			s.modules[i] = m
			return
		}
		if existing.Kind() > m.Kind() {
			s.modules = append(s.modules, nil)
			copy(s.modules[i+1:], s.modules[i:])
			s.modules[i] = m
			return
		}
	}
	s.modules = append(s.modules, m)
}

func (s *ModularSynth) removeModule(kind moduleKind) bool {
	for i, m := range s.modules {
		if m.Kind() == kind {
			s.modules = append(s.modules[:i], s.modules[i+1:]...)
			return true
		}
	}
	return false
}

func (s *ModularSynth) findModule(kind moduleKind) Module {
	for _, m := range s.modules {
		if m.Kind() == kind {
			return m
		}
	}
	return nil
}

// ModuleNames lists the chain in signal order.
func (s *ModularSynth) ModuleNames() []string {
	names := make([]string, len(s.modules))
	for i, m := range s.modules {
		names[i] = m.Name()
	}
	return names
}

// Oscillator returns the source of the chain.
func (s *ModularSynth) Oscillator() Oscillator { return s.osc }

// NoteOn triggers every envelope placed in the chain.
func (s *ModularSynth) NoteOn() {
	for _, m := range s.modules {
		if a, ok := m.(*ADSR); ok {
			a.NoteOn()
		}
	}
}

// NoteOff releases every envelope placed in the chain.
func (s *ModularSynth) NoteOff() {
	for _, m := range s.modules {
		if a, ok := m.(*ADSR); ok {
			a.NoteOff()
		}
	}
}

// Clone returns a synth whose modules share no state with s.
func (s *ModularSynth) Clone() *ModularSynth {
	c := &ModularSynth{
		osc:     s.osc,
		modules: make([]Module, len(s.modules), cap(s.modules)),
	}
	for i, m := range s.modules {
		c.modules[i] = m.clone()
	}
	return c
}

// sameStructure reports whether both chains hold the same module kinds in
// the same order.
func (s *ModularSynth) sameStructure(o *ModularSynth) bool {
	if len(s.modules) != len(o.modules) {
		return false
	}
	for i, m := range s.modules {
		if m.Kind() != o.modules[i].Kind() {
			return false
		}
	}
	return true
}

// adopt copies the oscillator and module parameters from a chain of the
// same structure, keeping the running state (filter history, delay lines,
// RMS window) of s.
func (s *ModularSynth) adopt(src *ModularSynth) {
	s.osc = src.osc
	for i, m := range s.modules {
		m.adopt(src.modules[i])
	}
}
