package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"syscall"
	"time"

	"github.com/jinjor/desktop-synth/src/audio"
	"golang.org/x/term"
)

const keyEscape = 0x1b

// keyNotes maps keys to MIDI notes, A4 to G#5.
var keyNotes = map[byte]int{
	'q': 69, // A4
	'1': 70, // A#4
	'b': 71, // B4
	'c': 72, // C5
	'2': 73, // C#5
	'd': 74, // D5
	'3': 75, // D#5
	'e': 76, // E5
	'f': 77, // F5
	'4': 78, // F#5
	'g': 79, // G5
	'5': 80, // G#5
}

var keySynths = map[byte]string{
	'z': "sine",
	'x': "square",
	's': "sawtooth",
	'k': "fm",
	'h': "hammond",
}

// keyboard turns key presses into notes. A terminal reports no key release,
// so a note key toggles its note.
type keyboard struct {
	audio *audio.Audio
	held  map[int]bool
}

func newKeyboard(a *audio.Audio) *keyboard {
	return &keyboard{audio: a, held: make(map[int]bool)}
}

// handle applies one key and reports whether the user asked to quit.
func (k *keyboard) handle(b byte) (quit bool) {
	a := k.audio
	if note, ok := keyNotes[b]; ok {
		freq := audio.NoteToFreq(note)
		if k.held[note] {
			delete(k.held, note)
			a.Notes.ReleaseNote(freq)
			fmt.Printf("\rnote off: %.2f Hz\n", freq)
		} else {
			k.held[note] = true
			a.Notes.AddNote(freq, a.SampleRate())
			fmt.Printf("\rnote on: %.2f Hz\n", freq)
		}
		return false
	}
	if kind, ok := keySynths[b]; ok {
		if err := a.Synth.SetKind(kind); err != nil {
			log.Printf("WARN: %v\n", err)
		}
		fmt.Printf("\rsynth: %s\n", a.Synth.Name())
		return false
	}
	switch b {
	case 'n':
		// sine with tremolo
		if err := a.Synth.SetKind("sine"); err != nil {
			log.Printf("WARN: %v\n", err)
		}
		a.Synth.SetLFOActivation(true)
		fmt.Printf("\rsynth: %s + LFO\n", a.Synth.Name())
	case ' ':
		k.held = make(map[int]bool)
		a.Notes.StopAllNotes()
		fmt.Print("\rall notes stopped\n")
	case keyEscape, 3: // esc, ctrl-c
		return true
	}
	return false
}

// listenToKeyboard reads stdin in raw mode until ctx is done or escape is
// pressed. It returns immediately when stdin is not a terminal.
func listenToKeyboard(ctx context.Context, a *audio.Audio, quit func()) error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		log.Println("stdin is not a terminal, keyboard disabled")
		return nil
	}
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("failed to set raw mode: %w", err)
	}
	defer func() {
		if err := term.Restore(fd, oldState); err != nil {
			log.Printf("failed to restore terminal: %v\n", err)
		}
	}()
	if err := syscall.SetNonblock(fd, true); err != nil {
		return fmt.Errorf("failed to set nonblocking stdin: %w", err)
	}
	defer syscall.SetNonblock(fd, false)

	fmt.Print("\rq b c d e f g: A4..G5, 1-5: sharps, space: stop, z x s n k h: synth, esc: quit\n")
	k := newKeyboard(a)
	buf := make([]byte, 1)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		n, err := syscall.Read(fd, buf)
		if n > 0 && k.handle(buf[0]) {
			log.Println("quit requested from keyboard")
			quit()
			return nil
		}
		if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		if err != nil {
			return err
		}
		if n == 0 {
			time.Sleep(5 * time.Millisecond)
		}
	}
}
