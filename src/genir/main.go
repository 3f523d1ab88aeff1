package main

import (
	"context"
	"flag"
	"log"
	"path/filepath"

	"github.com/jinjor/desktop-synth/src/audio"
	"golang.org/x/sync/errgroup"
)

var (
	sampleRate = flag.Float64("rate", 48000, "sample rate in Hz")
	seed       = flag.Int64("seed", 1, "random seed")
)

var reverbTypes = []string{"room", "plate", "spring", "hall", "shimmer"}

func main() {
	flag.Parse()
	dir := flag.Arg(0)
	if dir == "" {
		log.Fatalln("usage: genir [-rate hz] [-seed n] <dir>")
	}
	log.SetFlags(log.Lshortfile)

	ctx := context.Background()
	g, _ := errgroup.WithContext(ctx)
	for i, name := range reverbTypes {
		i, name := i, name
		g.Go(func() error {
			ir, err := audio.MakeEarlyReflections(name, *sampleRate, *seed+int64(i))
			if err != nil {
				return err
			}
			log.Printf("generated %s (%d samples)\n", name, len(ir.Values()))
			path := filepath.Join(dir, name+".ir")
			if err := ir.Save(path); err != nil {
				return err
			}
			log.Printf("saved %s\n", path)
			return nil
		})
	}
	err := g.Wait()
	if err != nil {
		log.Fatalf("error: %v\n", err)
	}
	log.Println("Successfully generated impulse responses.")
}
