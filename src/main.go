package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"net"
	"net/url"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jinjor/desktop-synth/src/audio"
	"golang.org/x/sync/errgroup"
)

var (
	configPath = flag.String("config", "config.json", "path to the config file (created with defaults if missing)")
	noKeyboard = flag.Bool("no-keyboard", false, "do not read keys from the terminal")
)

func main() {
	flag.Parse()
	log.SetFlags(log.Lshortfile)
	log.Printf("NumCPU: %v\n", runtime.NumCPU())

	config, err := audio.ReadConfig(*configPath)
	if err != nil {
		log.Fatalf("error: %v\n", err)
	}

	ctx := context.Background()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a, err := audio.NewAudio(config)
	if err != nil {
		log.Fatalf("error: %v\n", err)
	}
	defer a.Close()
	log.Printf("synth: %s %v\n", a.Synth.Name(), a.Synth.ModuleNames())

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	defer func() {
		signal.Stop(signalCh)
		cancel()
	}()
	go func() {
		select {
		case sig := <-signalCh:
			log.Printf("Caught signal %s: shutting down...\n", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Start(ctx)
	})
	g.Go(func() error {
		return serveIPC(ctx, config.SocketPath, a)
	})
	if config.MIDI {
		g.Go(func() error {
			for data := range audio.ListenToMidiIn(ctx) {
				a.AddMidiEvent(data)
			}
			return nil
		})
	}
	if config.WatchConfig {
		g.Go(func() error {
			return audio.WatchConfig(ctx, *configPath, func(c *audio.Config) {
				if err := a.ApplyConfig(c); err != nil {
					log.Printf("WARN: failed to apply config: %v\n", err)
				}
			})
		})
	}
	if !*noKeyboard {
		g.Go(func() error {
			return listenToKeyboard(ctx, a, cancel)
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("error: %v\n", err)
	}
	log.Println("main() ended.")
}

// serveIPC accepts connections on a unix socket, one at a time, until ctx
// is done.
func serveIPC(ctx context.Context, sockFileName string, a *audio.Audio) error {
	os.Remove(sockFileName)
	listener, err := new(net.ListenConfig).Listen(ctx, "unix", sockFileName)
	if err != nil {
		return err
	}
	defer os.Remove(sockFileName)
	go func() {
		<-ctx.Done()
		log.Println("Closing IPC...")
		if err := listener.Close(); err != nil {
			log.Printf("error while closing listener: %v", err)
		}
	}()
	log.Printf("start listening on %s...\n", sockFileName)
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		if err := withIPCConnection(ctx, conn, a); err != nil {
			log.Printf("WARN: connection: %v\n", err)
		}
	}
}

func withIPCConnection(ctx context.Context, conn net.Conn, a *audio.Audio) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		err := conn.Close()
		if err != nil && !errors.Is(err, net.ErrClosed) {
			log.Printf("error while closing connection: %v", err)
		}
	}()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return receiveCommands(ctx, conn, a.CommandCh)
	})
	g.Go(func() error {
		return sendReports(ctx, conn, a)
	})
	return g.Wait()
}

func receiveCommands(ctx context.Context, conn io.Reader, commandCh chan<- []string) error {
	reader := bufio.NewReader(conn)
	var line []byte
loop:
	for {
		select {
		case <-ctx.Done():
			log.Println("Connection interrupted")
			break loop
		default:
		}
		next, isPrefix, err := reader.ReadLine()
		if err == io.EOF || ctx.Err() != nil {
			break loop
		}
		if err != nil {
			return err
		}
		line = append(line, next...)
		if isPrefix {
			continue
		}
		command, err := parseCommand(string(line))
		line = line[:0]
		if err != nil {
			log.Printf("WARN: %v\n", err)
			continue
		}
		if len(command) == 0 {
			continue
		}
		select {
		case commandCh <- command:
		case <-ctx.Done():
			break loop
		}
	}
	log.Println("receiveCommands() ended.")
	return nil
}

// parseCommand splits a line into URL-escaped tokens.
func parseCommand(line string) ([]string, error) {
	tokens := strings.Fields(line)
	for i, item := range tokens {
		escaped, err := url.QueryUnescape(item)
		if err != nil {
			return nil, err
		}
		tokens[i] = escaped
	}
	return tokens, nil
}

func sendReports(ctx context.Context, conn io.Writer, a *audio.Audio) error {
	t := time.NewTicker(time.Second / 60)
	defer t.Stop()
	var sb strings.Builder
loop:
	for {
		select {
		case <-ctx.Done():
			log.Println("sendReports() interrupted")
			break loop
		case <-t.C:
			result := a.GetFFT()
			if result == nil {
				continue
			}
			sb.Reset()
			sb.WriteString("fft")
			for _, value := range result {
				sb.WriteByte(' ')
				sb.WriteString(strconv.FormatFloat(value, 'f', 6, 64))
			}
			sb.WriteByte('\n')
			if _, err := io.WriteString(conn, sb.String()); err != nil {
				if ctx.Err() != nil {
					break loop
				}
				return err
			}
		}
	}
	log.Println("sendReports() ended.")
	return nil
}
