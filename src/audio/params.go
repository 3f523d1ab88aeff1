package audio

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// ----- Params ----- //

// Params is the dynamic part of the configuration: everything a preset or
// a control surface may change while audio is running.
type Params struct {
	Kind       string           `json:"kind"`
	Noise      NoiseParams      `json:"noise"`
	LFO        LFOParams        `json:"lfo"`
	Filter     FilterParams     `json:"filter"`
	Gain       GainParams       `json:"gain"`
	Compressor CompressorParams `json:"compressor"`
	Echo       EchoParams       `json:"echo"`
	Reverb     ReverbParams     `json:"reverb"`
	Envelope   EnvelopeParams   `json:"envelope"`
}

type NoiseParams struct {
	Enabled bool    `json:"enabled"`
	Amount  float64 `json:"amount"` // 0-1
}

type LFOParams struct {
	Enabled  bool    `json:"enabled"`
	Wave     string  `json:"wave"`
	Rate     float64 `json:"rate"` // Hz
	Depth    float64 `json:"depth"`
	Offset   float64 `json:"offset"`
	Unipolar bool    `json:"unipolar"`
}

type FilterParams struct {
	Enabled   bool    `json:"enabled"`
	Cutoff    float64 `json:"cutoff"` // Hz
	Resonance float64 `json:"resonance"`
}

type GainParams struct {
	Enabled bool    `json:"enabled"`
	DB      float64 `json:"db"`
}

type CompressorParams struct {
	Enabled    bool    `json:"enabled"`
	Threshold  float64 `json:"threshold"` // dB
	Ratio      float64 `json:"ratio"`
	Attack     float64 `json:"attack"`  // s
	Release    float64 `json:"release"` // s
	MakeupGain float64 `json:"makeupGain"`
	Knee       float64 `json:"knee"` // dB
}

type EchoParams struct {
	Enabled  bool    `json:"enabled"`
	DelayMs  float64 `json:"delayMs"`
	Feedback float64 `json:"feedback"`
	Mix      float64 `json:"mix"`
}

type ReverbParams struct {
	Enabled    bool    `json:"enabled"`
	Type       string  `json:"type"`
	DryWet     float64 `json:"dryWet"`
	EarlyGain  float64 `json:"earlyGain"`
	TailGain   float64 `json:"tailGain"`
	PreDelayMs float64 `json:"preDelayMs"`
	Damping    float64 `json:"damping"`
}

type EnvelopeParams struct {
	Attack  float64 `json:"attack"` // s
	Decay   float64 `json:"decay"`  // s
	Sustain float64 `json:"sustain"`
	Release float64 `json:"release"` // s
	Curve   string  `json:"curve"`
}

// DefaultParams returns the values used when nothing else is configured.
// Accessors for an inactive module fall back to these.
func DefaultParams() *Params {
	room := reverbPresets[reverbRoom]
	return &Params{
		Kind:  synthSine.String(),
		Noise: NoiseParams{Enabled: false, Amount: 0.02},
		LFO: LFOParams{
			Enabled: false,
			Wave:    lfoSine.String(),
			Rate:    5,
			Depth:   0.3,
		},
		Filter: FilterParams{Enabled: true, Cutoff: 2000, Resonance: 0.707},
		Gain:   GainParams{Enabled: true, DB: 0},
		Compressor: CompressorParams{
			Enabled:   true,
			Threshold: -18,
			Ratio:     4,
			Attack:    0.01,
			Release:   0.1,
			Knee:      6,
		},
		Echo: EchoParams{Enabled: false, DelayMs: 300, Feedback: 0.35, Mix: 0.3},
		Reverb: ReverbParams{
			Enabled:    false,
			Type:       reverbRoom.String(),
			DryWet:     room.dryWet,
			EarlyGain:  room.earlyGain,
			TailGain:   room.tailGain,
			PreDelayMs: room.preDelayMs,
			Damping:    room.damping,
		},
		Envelope: EnvelopeParams{
			Attack:  0.01,
			Decay:   0.1,
			Sustain: 0.7,
			Release: 0.2,
			Curve:   curveLinear.String(),
		},
	}
}

func (p *Params) clone() *Params {
	c := *p
	return &c
}

// applyJSON overwrites the fields present in data.
func (p *Params) applyJSON(data []byte) error {
	if err := json.Unmarshal(data, p); err != nil {
		return fmt.Errorf("failed to apply JSON to params: %w", err)
	}
	return nil
}

// validate reports names that do not resolve to a known kind.
func (p *Params) validate() error {
	if _, err := synthKindFromString(p.Kind); err != nil {
		return err
	}
	if _, err := lfoWaveFromString(p.LFO.Wave); err != nil {
		return err
	}
	if _, err := reverbKindFromString(p.Reverb.Type); err != nil {
		return err
	}
	if _, err := envelopeCurveFromString(p.Envelope.Curve); err != nil {
		return err
	}
	return nil
}

func (p *Params) enabled(kind moduleKind) bool {
	switch kind {
	case moduleNoise:
		return p.Noise.Enabled
	case moduleLFO:
		return p.LFO.Enabled
	case moduleFilter:
		return p.Filter.Enabled
	case moduleGain:
		return p.Gain.Enabled
	case moduleCompressor:
		return p.Compressor.Enabled
	case moduleEcho:
		return p.Echo.Enabled
	case moduleReverb:
		return p.Reverb.Enabled
	}
	return false
}

func (p *Params) setEnabled(kind moduleKind, enabled bool) {
	switch kind {
	case moduleNoise:
		p.Noise.Enabled = enabled
	case moduleLFO:
		p.LFO.Enabled = enabled
	case moduleFilter:
		p.Filter.Enabled = enabled
	case moduleGain:
		p.Gain.Enabled = enabled
	case moduleCompressor:
		p.Compressor.Enabled = enabled
	case moduleEcho:
		p.Echo.Enabled = enabled
	case moduleReverb:
		p.Reverb.Enabled = enabled
	}
}

// ----- Key-Value Updates ----- //

func parseFloat(value string) (float64, error) {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", value, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid number %q: not finite", value)
	}
	return f, nil
}

func (e *EnvelopeParams) set(key string, value string) error {
	if key == "curve" {
		if _, err := envelopeCurveFromString(value); err != nil {
			return err
		}
		e.Curve = value
		return nil
	}
	f, err := parseFloat(value)
	if err != nil {
		return err
	}
	switch key {
	case "attack":
		e.Attack = f
	case "decay":
		e.Decay = f
	case "sustain":
		e.Sustain = f
	case "release":
		e.Release = f
	default:
		return fmt.Errorf("unknown envelope key %q", key)
	}
	return nil
}

// setOnSynth applies one "set <module> <key> <value>" update through the
// facade so the running chain and the recorded params stay in sync.
func setOnSynth(st *SynthType, module string, key string, value string) error {
	kind, err := moduleKindFromString(module)
	if err != nil {
		return err
	}
	switch kind {
	case moduleLFO:
		switch key {
		case "wave":
			return st.SetLFOWaveform(value)
		case "unipolar":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return err
			}
			st.SetLFOUnipolar(b)
			return nil
		}
	case moduleReverb:
		if key == "type" {
			return st.SetReverbType(value)
		}
	}
	f, err := parseFloat(value)
	if err != nil {
		return err
	}
	switch kind {
	case moduleNoise:
		if key == "amount" {
			st.SetNoise(f)
			return nil
		}
	case moduleLFO:
		switch key {
		case "rate":
			st.SetLFORate(f)
			return nil
		case "depth":
			st.SetLFODepth(f)
			return nil
		case "offset":
			st.SetLFOOffset(f)
			return nil
		}
	case moduleFilter:
		switch key {
		case "cutoff":
			st.SetFilterCutoff(f)
			return nil
		case "resonance":
			st.SetFilterResonance(f)
			return nil
		}
	case moduleGain:
		if key == "db" {
			st.SetGain(f)
			return nil
		}
	case moduleCompressor:
		switch key {
		case "threshold":
			st.SetCompressorThreshold(f)
			return nil
		case "ratio":
			st.SetCompressorRatio(f)
			return nil
		case "attack":
			st.SetCompressorAttack(f)
			return nil
		case "release":
			st.SetCompressorRelease(f)
			return nil
		case "makeupGain":
			st.SetCompressorMakeupGain(f)
			return nil
		case "knee":
			st.SetCompressorKnee(f)
			return nil
		}
	case moduleEcho:
		switch key {
		case "delayMs":
			st.SetEchoDelay(f)
			return nil
		case "feedback":
			st.SetEchoFeedback(f)
			return nil
		case "mix":
			st.SetEchoMix(f)
			return nil
		}
	case moduleReverb:
		switch key {
		case "dryWet":
			st.SetReverbDryWet(f)
			return nil
		case "earlyGain":
			st.SetReverbEarlyGain(f)
			return nil
		case "tailGain":
			st.SetReverbTailGain(f)
			return nil
		case "preDelayMs":
			st.SetReverbPreDelay(f)
			return nil
		case "damping":
			st.SetReverbDamping(f)
			return nil
		}
	}
	return fmt.Errorf("unknown key %q for %v", key, kind)
}
