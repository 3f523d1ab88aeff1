package audio

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/gordonklaus/portaudio"
	"github.com/hajimehoshi/oto"
)

const bitDepthInBytes = 2

// ----- Backend ----- //

// backend drives a Renderer from an output device.
type backend interface {
	// run blocks until ctx is done or the device fails.
	run(ctx context.Context) error
	Close() error
}

func openBackend(c *Config, r *Renderer) (backend, error) {
	switch c.Backend {
	case BackendPortAudio:
		return openPortAudio(c, r)
	case BackendNone:
		return nil, nil
	default:
		return openOto(c, r)
	}
}

// ----- oto ----- //

type otoBackend struct {
	context      *oto.Context
	reader       *pcmReader
	bufferFrames int
}

func openOto(c *Config, r *Renderer) (*otoBackend, error) {
	bytesPerFrame := bitDepthInBytes * c.Channels
	// oto wants at least 4096 bytes
	bufferSizeInBytes := c.BufferFrames * bytesPerFrame
	if bufferSizeInBytes < 4096 {
		bufferSizeInBytes = 4096
	}
	otoContext, err := oto.NewContext(c.SampleRate, c.Channels, bitDepthInBytes, bufferSizeInBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to open oto context: %w", err)
	}
	return &otoBackend{
		context:      otoContext,
		reader:       newPCMReader(r, c.Channels, float64(c.SampleRate)),
		bufferFrames: c.BufferFrames,
	}, nil
}

func (b *otoBackend) run(ctx context.Context) error {
	p := b.context.NewPlayer()
	defer func() {
		if err := p.Close(); err != nil {
			log.Printf("error: %v", err)
		}
	}()
	b.reader.ctx = ctx
	// block until ctx is done
	buf := make([]byte, b.bufferFrames*bitDepthInBytes*b.reader.channels)
	if _, err := io.CopyBuffer(p, b.reader, buf); err != nil {
		return err
	}
	return nil
}

func (b *otoBackend) Close() error {
	return b.context.Close()
}

// pcmReader renders on demand into 16-bit little-endian interleaved PCM.
type pcmReader struct {
	ctx        context.Context
	renderer   *Renderer
	channels   int
	sampleRate float64
	out        []float32
}

var _ io.Reader = (*pcmReader)(nil)

func newPCMReader(r *Renderer, channels int, sampleRate float64) *pcmReader {
	return &pcmReader{
		ctx:        context.Background(),
		renderer:   r,
		channels:   channels,
		sampleRate: sampleRate,
	}
}

func (p *pcmReader) Read(buf []byte) (int, error) {
	select {
	case <-p.ctx.Done():
		log.Println("Read() interrupted.")
		return 0, io.EOF
	default:
	}
	bytesPerFrame := bitDepthInBytes * p.channels
	frames := len(buf) / bytesPerFrame
	if frames == 0 {
		return 0, nil
	}
	samples := frames * p.channels
	if cap(p.out) < samples {
		p.out = make([]float32, samples)
	}
	out := p.out[:samples]
	p.renderer.Render(out, p.channels, p.sampleRate)
	writeBuffer(out, buf)
	return samples * bitDepthInBytes, nil
}

func writeBuffer(out []float32, buf []byte) {
	const max = 32767
	for i, value := range out {
		b := int16(value * max)
		buf[2*i] = byte(b)
		buf[2*i+1] = byte(b >> 8)
	}
}

// ----- PortAudio ----- //

type portAudioBackend struct {
	stream *portaudio.Stream
}

func openPortAudio(c *Config, r *Renderer) (*portAudioBackend, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("can't init portaudio: %w", err)
	}
	channels := c.Channels
	sampleRate := float64(c.SampleRate)
	output := func(out []float32) {
		r.Render(out, channels, sampleRate)
	}
	stream, err := portaudio.OpenDefaultStream(0, channels, sampleRate, c.BufferFrames, output)
	if err != nil {
		// ignore Terminate error
		portaudio.Terminate()
		return nil, fmt.Errorf("can't open default stream: %w", err)
	}
	return &portAudioBackend{stream: stream}, nil
}

func (b *portAudioBackend) run(ctx context.Context) error {
	if err := b.stream.Start(); err != nil {
		return fmt.Errorf("can't start stream: %w", err)
	}
	<-ctx.Done()
	if err := b.stream.Stop(); err != nil {
		return fmt.Errorf("can't stop stream: %w", err)
	}
	return nil
}

func (b *portAudioBackend) Close() error {
	err := b.stream.Close()
	// ignore Terminate error
	portaudio.Terminate()
	return err
}
