// Package watch calls a function whenever a file is written.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"
)

// DefaultInterval is the minimum time between two runs.
const DefaultInterval = 2 * time.Second

// Func is called after each change. An error stops the watch unless
// KeepGoing is set.
type Func func(ctx context.Context) error

// Options configures File.
type Options struct {
	Interval  time.Duration
	KeepGoing bool
	// Ready, if set, is closed once the watch is installed.
	Ready chan<- struct{}
}

// File watches path and calls fn after every write to it, at most once per
// Interval. Bursts of events during a run or the wait collapse into a
// single call. It returns when ctx is done or fn fails.
func File(ctx context.Context, path string, opts Options, fn Func) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("error creating file watcher: %w", err)
	}
	defer w.Close() //nolint:errcheck

	// Editors often replace the file, so watch its directory.
	dir := filepath.Dir(abs)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("error watching %s: %w", dir, err)
	}
	log.Info("Watching file", "path", abs)
	if opts.Ready != nil {
		close(opts.Ready)
	}

	limiter := rate.NewLimiter(rate.Every(opts.Interval), 1)
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Debug("Watcher error", "dir", dir, "err", err)
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !relevant(event, abs) {
				continue
			}
			log.Debug("File changed", "file", event.Name, "event", event.Op)

			if err := limiter.Wait(ctx); err != nil {
				return nil //nolint:nilerr
			}
			drain(w.Events, abs)

			if err := fn(ctx); err != nil {
				if errors.Is(err, context.Canceled) || ctx.Err() != nil {
					return nil
				}
				if !opts.KeepGoing {
					return err
				}
				log.Warn("Run failed, still watching", "err", err)
			}
			drain(w.Events, abs)
		}
	}
}

func relevant(event fsnotify.Event, path string) bool {
	if filepath.Clean(event.Name) != path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}

// drain discards events already queued for path.
func drain(events <-chan fsnotify.Event, path string) {
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if relevant(event, path) {
				log.Debug("Coalesced file event", "file", event.Name, "event", event.Op)
			}
		default:
			return
		}
	}
}
