// SPDX-License-Identifier: MIT

// Package watch re-runs a check whenever a fragment under the watched roots changes.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/LorenzBischof/lorenzbischof.github.io/internal/fragment"
	xglog "github.com/LorenzBischof/lorenzbischof.github.io/internal/log"
)

// DefaultDebounce collapses editor save bursts into one run.
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches fragment roots recursively and calls OnChange after a quiet period.
type Watcher struct {
	roots    []string
	debounce time.Duration
	onChange func(ctx context.Context)
	logger   zerolog.Logger

	watcher *fsnotify.Watcher
	watched map[string]bool // resolved directories already registered
	wg      sync.WaitGroup
}

// New creates a watcher. onChange runs on the watcher's goroutine, never concurrently with
// itself.
func New(roots []string, debounce time.Duration, onChange func(ctx context.Context)) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		roots:    append([]string(nil), roots...),
		debounce: debounce,
		onChange: onChange,
		logger:   xglog.WithComponent("watch"),
	}
}

// Start registers every directory under every root and starts the watch loop. The loop
// stops when ctx is cancelled; Wait blocks until it has.
func (w *Watcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	w.watcher = watcher
	w.watched = make(map[string]bool)

	for _, root := range w.roots {
		if err := w.addTree(root); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("watch %s: %w", root, err)
		}
	}

	w.logger.Info().
		Str(xglog.FieldEvent, "watch.started").
		Strs(xglog.FieldRoot, w.roots).
		Dur("debounce", w.debounce).
		Msg("watching fragment roots for changes")

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop(ctx)
	}()
	return nil
}

// Wait blocks until the watch loop has exited.
func (w *Watcher) Wait() {
	w.wg.Wait()
}

// addTree registers root and every non-hidden directory below it, following symlinked
// directories the way the fragment collector does.
func (w *Watcher) addTree(root string) error {
	resolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		return err
	}
	return filepath.WalkDir(resolved, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != resolved && fragment.IsHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				return w.addTree(path)
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if w.watched[path] {
			return filepath.SkipDir
		}
		w.watched[path] = true
		return w.watcher.Add(path)
	})
}

func (w *Watcher) loop(ctx context.Context) {
	defer func() { _ = w.watcher.Close() }()

	// Timer channel is nil until the first relevant event arrives.
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Str(xglog.FieldEvent, "watch.stopped").Msg("fragment watcher stopped")
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !relevant(event) {
				continue
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.forget(event.Name)
			}
			if event.Has(fsnotify.Create) {
				// New directories must be watched too; addTree on a plain file adds nothing.
				if err := w.addTree(event.Name); err != nil {
					w.logger.Debug().Err(err).Str(xglog.FieldPath, event.Name).Msg("could not watch new path")
				}
			}
			w.logger.Debug().
				Str(xglog.FieldEvent, "watch.fragment_changed").
				Str(xglog.FieldPath, event.Name).
				Str("op", event.Op.String()).
				Msg("fragment tree changed")

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.onChange(ctx)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().
				Err(err).
				Str(xglog.FieldEvent, "watch.error").
				Msg("fragment watcher error")
		}
	}
}

// forget drops path and everything below it from the registered set; the kernel has
// already removed their watches.
func (w *Watcher) forget(path string) {
	prefix := path + string(filepath.Separator)
	for dir := range w.watched {
		if dir == path || strings.HasPrefix(dir, prefix) {
			delete(w.watched, dir)
		}
	}
}

func relevant(event fsnotify.Event) bool {
	if fragment.IsHidden(filepath.Base(event.Name)) {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}
