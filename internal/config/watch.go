package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hammamikhairi/kitchenops/internal/logger"
)

const debounceInterval = 200 * time.Millisecond

// Watch reloads the config file whenever it changes and passes each valid
// result to fn. Invalid files are logged and skipped. The directory is
// watched rather than the file so editors that replace the file on save
// are still seen. Blocks until ctx is cancelled.
func Watch(ctx context.Context, path string, log *logger.Logger, fn func(Config)) error {
	fsW, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fsW.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}
	if err := fsW.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}
	log.Debug("config: watching %s", abs)

	reload := make(chan struct{}, 1)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsW.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			// Debounce: reset timer on each event.
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceInterval, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case <-reload:
			cfg, err := LoadFrom(path)
			if err != nil {
				log.Warn("config: reload of %s failed: %v", path, err)
				continue
			}
			log.Info("config: reloaded %s", path)
			fn(cfg)

		case err, ok := <-fsW.Errors:
			if !ok {
				return nil
			}
			log.Warn("config: watcher error: %v", err)
		}
	}
}
