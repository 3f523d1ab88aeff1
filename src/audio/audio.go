package audio

import (
	"context"
	"fmt"
	"log"
	"math"
	"strconv"
	"sync"
)

const baseFreq = 440.0

const (
	minDB = -96.0
	maxDB = 24.0
)

// ----- Utility ----- //

// clamp maps NaN to lo.
func clamp(v float64, lo float64, hi float64) float64 {
	if !(v >= lo) {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// atLeast is math.Max(v, lo) except that NaN gives lo.
func atLeast(v float64, lo float64) float64 {
	if !(v >= lo) {
		return lo
	}
	return v
}
func dbToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}
func linearToDB(x float64) float64 {
	return 20 * math.Log10(math.Max(math.Abs(x), 1e-12))
}
func positiveMod(a float64, b float64) float64 {
	if b <= 0 {
		panic("b should be positive")
	}
	m := math.Mod(a, b)
	if m < 0 {
		m += b
	}
	return m
}

// NoteToFreq converts a MIDI note number to Hz (A4 = 69 = 440Hz).
func NoteToFreq(note int) float64 {
	return baseFreq * math.Pow(2, float64(note-69)/12)
}

var warned sync.Map

// warnOnce logs a warning the first time key is seen.
func warnOnce(key string, format string, args ...interface{}) {
	if _, loaded := warned.LoadOrStore(key, struct{}{}); loaded {
		return
	}
	log.Printf("WARN: "+format+"\n", args...)
}

// ----- Audio ----- //

// Audio wires the synth, the voices and the renderer to an output device
// and to the text command protocol.
type Audio struct {
	CommandCh  chan []string
	Notes      *NoteManager
	Synth      *SynthType
	renderer   *Renderer
	backend    backend
	presets    *presetManager
	sampleRate float64
	closeOnce  sync.Once

	fftMu     sync.Mutex
	fft       *FFT
	window    windowFunc
	fftResult []float64
}

// NewAudio builds the engine and opens the output device. Device errors are
// returned before any voice exists.
func NewAudio(c *Config) (*Audio, error) {
	a, err := newAudio(c)
	if err != nil {
		return nil, err
	}
	b, err := openBackend(c, a.renderer)
	if err != nil {
		return nil, err
	}
	a.backend = b
	return a, nil
}

// newAudio builds everything except the device.
func newAudio(c *Config) (*Audio, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	synth, err := NewSynthType(c.Params, float64(c.SampleRate))
	if err != nil {
		return nil, err
	}
	if c.ImpulseFile != "" {
		ir, err := LoadImpulseResponse(c.ImpulseFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load impulse response: %w", err)
		}
		synth.SetImpulseResponse(ir.Values())
	}
	window, _ := windowByName(c.SpectrumWindow)
	notes := NewNoteManager(&c.Params.Envelope)
	renderer := NewRenderer(notes, synth)
	renderer.SetMasterGain(c.MasterGain)
	return &Audio{
		CommandCh:  make(chan []string, 256),
		Notes:      notes,
		Synth:      synth,
		renderer:   renderer,
		presets:    newPresetManager(c.PresetsDir),
		sampleRate: float64(c.SampleRate),
		fft:        NewFFT(spectrumSize, false),
		window:     window,
		fftResult:  make([]float64, spectrumSize),
	}, nil
}

// SampleRate is the output rate in Hz.
func (a *Audio) SampleRate() float64 { return a.sampleRate }

// Render fills buf like the output device would.
func (a *Audio) Render(buf []float32, channels int) {
	a.renderer.Render(buf, channels, a.sampleRate)
}

// Start processes commands and plays until ctx is done.
func (a *Audio) Start(ctx context.Context) error {
	go a.processCommands(ctx)
	if a.backend == nil {
		<-ctx.Done()
		return nil
	}
	if err := a.backend.run(ctx); err != nil {
		return err
	}
	log.Println("Start() ended.")
	return nil
}

func (a *Audio) processCommands(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Println("processCommands() ended.")
			return
		case command, ok := <-a.CommandCh:
			if !ok {
				log.Println("processCommands() ended.")
				return
			}
			if err := a.update(command); err != nil {
				log.Printf("WARN: command %v: %v\n", command, err)
			}
		}
	}
}

// Close releases the device.
func (a *Audio) Close() error {
	var err error
	a.closeOnce.Do(func() {
		log.Println("Closing Audio...")
		close(a.CommandCh)
		if a.backend != nil {
			err = a.backend.Close()
		}
	})
	return err
}

// ApplyConfig applies the dynamic part of c: params and master gain.
func (a *Audio) ApplyConfig(c *Config) error {
	if err := a.ApplyParams(c.Params); err != nil {
		return err
	}
	a.renderer.SetMasterGain(c.MasterGain)
	return nil
}

// ApplyParams replaces the synth parameters and the envelope of the voices.
func (a *Audio) ApplyParams(p *Params) error {
	if err := a.Synth.ApplyParams(p); err != nil {
		return err
	}
	return a.Notes.SetEnvelope(p.Envelope)
}

func argsLength(command []string, n int) error {
	if len(command) != n+1 {
		return fmt.Errorf("%s takes %d argument(s), but got %d", command[0], n, len(command)-1)
	}
	return nil
}

func (a *Audio) update(command []string) error {
	if len(command) == 0 {
		return fmt.Errorf("empty command")
	}
	switch command[0] {
	case "note_on", "note_off":
		if err := argsLength(command, 1); err != nil {
			return err
		}
		note, err := strconv.ParseInt(command[1], 10, 32)
		if err != nil {
			return err
		}
		if note < 0 || note > 127 {
			return fmt.Errorf("note out of range: %v", note)
		}
		if command[0] == "note_on" {
			a.Notes.AddNote(NoteToFreq(int(note)), a.sampleRate)
		} else {
			a.Notes.ReleaseNote(NoteToFreq(int(note)))
		}
	case "freq_on", "freq_off":
		if err := argsLength(command, 1); err != nil {
			return err
		}
		freq, err := parseFloat(command[1])
		if err != nil {
			return err
		}
		if !(freq > 0) || math.IsInf(freq, 0) {
			return fmt.Errorf("frequency should be positive: %v", freq)
		}
		if command[0] == "freq_on" {
			a.Notes.AddNote(freq, a.sampleRate)
		} else {
			a.Notes.ReleaseNote(freq)
		}
	case "stop_all":
		a.Notes.StopAllNotes()
	case "panic":
		a.Notes.Panic()
	case "reset":
		a.Notes.Reset()
	case "synth":
		if err := argsLength(command, 1); err != nil {
			return err
		}
		return a.Synth.SetKind(command[1])
	case "enable":
		if err := argsLength(command, 2); err != nil {
			return err
		}
		active, err := strconv.ParseBool(command[2])
		if err != nil {
			return err
		}
		return a.Synth.SetActivation(command[1], active)
	case "set":
		if err := argsLength(command, 3); err != nil {
			return err
		}
		return setOnSynth(a.Synth, command[1], command[2], command[3])
	case "envelope":
		if err := argsLength(command, 2); err != nil {
			return err
		}
		env := a.Notes.Envelope()
		if err := env.set(command[1], command[2]); err != nil {
			return err
		}
		return a.Notes.SetEnvelope(env)
	case "master":
		if err := argsLength(command, 1); err != nil {
			return err
		}
		g, err := parseFloat(command[1])
		if err != nil {
			return err
		}
		a.renderer.SetMasterGain(g)
	case "preset":
		if err := argsLength(command, 1); err != nil {
			return err
		}
		p, err := a.presets.load(command[1], DefaultParams())
		if err != nil {
			return err
		}
		return a.ApplyParams(p)
	case "presets":
		list, err := a.Presets()
		if err != nil {
			return err
		}
		log.Printf("presets: %v\n", list)
	case "save_preset":
		if err := argsLength(command, 1); err != nil {
			return err
		}
		p := a.Synth.Params()
		p.Envelope = a.Notes.Envelope()
		return a.presets.save(command[1], p)
	case "ir":
		if err := argsLength(command, 1); err != nil {
			return err
		}
		ir, err := LoadImpulseResponse(command[1])
		if err != nil {
			return err
		}
		a.Synth.SetImpulseResponse(ir.Values())
	default:
		return fmt.Errorf("unknown command %v", command[0])
	}
	return nil
}

// Presets lists the names in the presets directory.
func (a *Audio) Presets() ([]string, error) {
	return a.presets.getList()
}

// GetFFT returns the magnitude spectrum of the latest output.
// The returned slice is reused by the next call.
func (a *Audio) GetFFT() []float64 {
	a.fftMu.Lock()
	defer a.fftMu.Unlock()
	a.renderer.Spectrum(a.fftResult)
	result, err := spectrum(a.fft, a.window, a.fftResult)
	if err != nil {
		log.Printf("WARN: %v\n", err)
		return nil
	}
	return result
}

// AddMidiEvent applies a raw MIDI note-on or note-off.
func (a *Audio) AddMidiEvent(data []byte) {
	msg, ok := parseMidi(data)
	if !ok {
		return
	}
	freq := NoteToFreq(msg.note)
	if msg.on {
		a.Notes.AddNote(freq, a.sampleRate)
	} else {
		a.Notes.ReleaseNote(freq)
	}
}
