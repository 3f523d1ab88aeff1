package audio

import (
	"context"
	"log"

	"gitlab.com/gomidi/rtmididrv"
)

// ListenToMidiIn forwards raw messages from the first MIDI input port until
// ctx is done. The channel is closed when listening stops.
func ListenToMidiIn(ctx context.Context) <-chan []byte {
	ch := make(chan []byte, 65536)
	go func() {
		defer close(ch)
		drv, err := rtmididrv.New()
		if err != nil {
			log.Printf("failed to initialize MIDI driver: %v\n", err)
			return
		}
		defer func() {
			err := drv.Close()
			if err != nil {
				log.Printf("failed to close MIDI driver: %v\n", err)
			}
		}()
		ins, err := drv.Ins()
		if err != nil {
			log.Printf("failed to get MIDI IN: %v\n", err)
			return
		}
		log.Printf("MIDI IN: %v\n", ins)

		if len(ins) == 0 {
			log.Println("WARN: MIDI IN not found")
			return
		}
		in := ins[0]
		if err := in.Open(); err != nil {
			log.Printf("failed to open MIDI IN: %v\n", err)
			return
		}
		log.Println("opened " + in.String())
		defer func() {
			err := in.Close()
			if err != nil {
				log.Printf("failed to close MIDI IN: %v\n", err)
			}
		}()
		log.Println("start listening MIDI IN...")
		if err := in.SetListener(func(data []byte, deltaMicroseconds int64) {
			msg := append([]byte(nil), data...)
			select {
			case ch <- msg:
			default:
				warnOnce("midi/overflow", "MIDI IN queue is full, dropping messages")
			}
		}); err != nil {
			log.Println("failed to set listener: " + err.Error())
			return
		}
		defer func() {
			log.Println("stop listening MIDI IN...")
			err := in.StopListening()
			if err != nil {
				log.Printf("failed to stop listening: %v\n", err)
			}
		}()
		<-ctx.Done()
	}()
	return ch
}

// midiMessage is a decoded channel voice message.
type midiMessage struct {
	on   bool
	note int
}

// parseMidi decodes note-on and note-off. A note-on with zero velocity is a
// note-off.
func parseMidi(data []byte) (midiMessage, bool) {
	if len(data) < 3 {
		return midiMessage{}, false
	}
	status := data[0] >> 4
	note := int(data[1] & 0x7f)
	switch {
	case status == 8 || status == 9 && data[2] == 0:
		return midiMessage{on: false, note: note}, true
	case status == 9:
		return midiMessage{on: true, note: note}, true
	}
	return midiMessage{}, false
}
