package audio

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WatchConfig calls onChange with the re-read config each time the file at
// path is written or replaced. Read errors are logged and skipped. It blocks
// until ctx is done.
func WatchConfig(ctx context.Context, path string, onChange func(*Config)) error {
	path = filepath.Clean(path)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("can't watch %s: %w", path, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("can't create watcher: %w", err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			log.Printf("failed to close watcher: %v\n", err)
		}
	}()
	// the directory, so that a file renamed over path is still seen
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("can't watch %s: %w", path, err)
	}
	log.Printf("watching %s\n", path)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			c, err := LoadConfig(path)
			if err != nil {
				log.Printf("WARN: ignoring config change: %v\n", err)
				continue
			}
			log.Println("config reloaded")
			onChange(c)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("WARN: watcher: %v\n", err)
		case <-ctx.Done():
			return nil
		}
	}
}
