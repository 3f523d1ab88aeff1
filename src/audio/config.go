package audio

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"os"
)

const (
	BackendOto       = "oto"
	BackendPortAudio = "portaudio"
	BackendNone      = "none" // render only on demand
)

// Config holds the static settings read at start and the dynamic Params
// that may be re-applied while running.
type Config struct {
	SampleRate     int     `json:"sampleRate"`
	Channels       int     `json:"channels"`
	BufferFrames   int     `json:"bufferFrames"`
	Backend        string  `json:"backend"`
	SocketPath     string  `json:"socketPath"`
	MIDI           bool    `json:"midi"`
	WatchConfig    bool    `json:"watchConfig"`
	MasterGain     float64 `json:"masterGain"`
	PresetsDir     string  `json:"presetsDir"`
	ImpulseFile    string  `json:"impulseFile"`
	SpectrumWindow string  `json:"spectrumWindow"`
	Params         *Params `json:"params"`
}

// DefaultConfig returns the configuration written when no file exists.
func DefaultConfig() *Config {
	return &Config{
		SampleRate:     48000,
		Channels:       2,
		BufferFrames:   1024,
		Backend:        BackendOto,
		SocketPath:     "/tmp/desktop-synth.sock",
		MIDI:           true,
		WatchConfig:    true,
		MasterGain:     1.0,
		PresetsDir:     "presets",
		SpectrumWindow: "han",
		Params:         DefaultParams(),
	}
}

func (c *Config) validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("invalid sampleRate %v", c.SampleRate)
	}
	if c.Channels != 1 && c.Channels != 2 {
		return fmt.Errorf("channels should be 1 or 2, but got %v", c.Channels)
	}
	if c.BufferFrames <= 0 {
		return fmt.Errorf("invalid bufferFrames %v", c.BufferFrames)
	}
	switch c.Backend {
	case BackendOto, BackendPortAudio, BackendNone:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if _, err := windowByName(c.SpectrumWindow); err != nil {
		return err
	}
	return c.Params.validate()
}

// ParseConfig decodes data over the defaults, so missing fields keep their
// default values.
func ParseConfig(data []byte) (*Config, error) {
	c := DefaultConfig()
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("unmarshalling: %w", err)
	}
	if c.Params == nil {
		c.Params = DefaultParams()
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return c, nil
}

// ReadConfig reads the config at p, writing the defaults there first if the
// file does not exist.
func ReadConfig(p string) (*Config, error) {
	if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
		data, err := json.MarshalIndent(DefaultConfig(), "", "  ")
		if err != nil {
			return nil, fmt.Errorf("can't encode defaultConfig: %w", err)
		}
		err = ioutil.WriteFile(p, data, 0644)
		if err != nil {
			return nil, fmt.Errorf("can't write defaultConfig: %w", err)
		}
	}
	return LoadConfig(p)
}

// LoadConfig reads the config file at p without creating it.
func LoadConfig(p string) (*Config, error) {
	data, err := ioutil.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("can't read config: %w", err)
	}
	return ParseConfig(data)
}
