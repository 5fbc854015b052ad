package pricing

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the pricing table when the pricing file changes on disk.
// It debounces rapid successive writes to prevent reload storms.
type Watcher struct {
	path     string
	calc     *Calculator
	debounce time.Duration
	logger   *slog.Logger
}

// NewWatcher creates a watcher for the pricing file at path. Reloaded
// tables are swapped into calc atomically.
func NewWatcher(path string, calc *Calculator, debounce time.Duration, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	return &Watcher{
		path:     path,
		calc:     calc,
		debounce: debounce,
		logger:   logger.With("component", "pricing.watcher"),
	}
}

// Watch blocks, reloading the pricing table on file changes, until the
// context is cancelled. The parent directory is watched rather than the
// file itself so that editors replacing the file via rename are handled.
func (w *Watcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %q: %w", dir, err)
	}

	w.logger.Info("pricing watcher started",
		"path", w.path,
		"debounce_ms", w.debounce.Milliseconds(),
	)

	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("pricing watcher stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			// Debounce: restart the timer on every event
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerCh = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-timerCh:
			timer = nil
			timerCh = nil
			w.reload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("pricing watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	table := LoadTable(w.path, w.logger)
	w.calc.SetTable(table)
	w.logger.Info("pricing table reloaded",
		"path", w.path,
		"version", table.Version,
		"provider_count", len(table.Providers),
	)
}
