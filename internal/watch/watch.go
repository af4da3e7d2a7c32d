// Package watch re-runs an action when a file changes.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last change
// of the file before the action runs.
const DefaultDebounce = 200 * time.Millisecond

// Watcher watches one file. The directory of the file is watched,
// so that editors replacing the file (rename over it) are supported.
type Watcher struct {
	name     string
	debounce time.Duration
	log      *slog.Logger
	w        *fsnotify.Watcher
}

// New starts watching the named file. Changes happening before Run
// is called are not lost.
func New(name string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watching %s: %w", name, err)
	}
	return &Watcher{name: abs, debounce: debounce, log: logger, w: w}, nil
}

// Run calls action after each change of the file, until ctx is cancelled.
// Errors returned by action are logged, and do not stop the watch.
func (wa *Watcher) Run(ctx context.Context, action func(context.Context) error) error {
	defer wa.w.Close()

	wa.log.Info("watcher: started", slog.String("file", wa.name))

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(wa.debounce)
			timerCh = timer.C
		} else {
			timer.Reset(wa.debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			wa.log.Info("watcher: stopped")
			return nil

		case <-timerCh:
			wa.log.Debug("watcher: file changed", slog.String("file", wa.name))
			if err := action(ctx); err != nil {
				wa.log.Error("watcher: action failed", slog.String("file", wa.name), slog.String("error", err.Error()))
			}

		case ev, ok := <-wa.w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != wa.name {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				schedule()
			}

		case err, ok := <-wa.w.Errors:
			if !ok {
				return nil
			}
			wa.log.Error("watcher: error", slog.String("error", err.Error()))
		}
	}
}
