package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Janitor runs scheduled cache maintenance: an expiry sweep followed by
// capacity-bounded eviction. The store itself never self-triggers
// maintenance; the janitor is the periodic caller.
type Janitor struct {
	store      *Store
	schedule   string
	maxEntries int
	cron       *cron.Cron
	logger     *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewJanitor creates a janitor for the given store. schedule is a standard
// cron expression; maxEntries of zero disables capacity eviction.
func NewJanitor(store *Store, schedule string, maxEntries int) *Janitor {
	return &Janitor{
		store:      store,
		schedule:   schedule,
		maxEntries: maxEntries,
		cron:       cron.New(),
		logger:     slog.Default().With("component", "cache.janitor"),
	}
}

// Start begins scheduled maintenance. If the schedule is empty the janitor
// does nothing. The janitor stops when the context is cancelled or Stop is
// called.
func (j *Janitor) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.schedule == "" {
		j.logger.Info("maintenance schedule not configured, skipping janitor")
		return nil
	}

	if _, err := cron.ParseStandard(j.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", j.schedule, err)
	}

	if _, err := j.cron.AddFunc(j.schedule, func() {
		j.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule cache maintenance: %w", err)
	}

	j.cron.Start()
	j.running = true

	j.logger.Info("cache janitor started",
		"schedule", j.schedule,
		"max_entries", j.maxEntries,
	)

	go func() {
		<-ctx.Done()
		j.Stop()
	}()

	return nil
}

// Stop halts scheduled maintenance. Safe to call multiple times.
func (j *Janitor) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.running {
		return
	}
	j.cron.Stop()
	j.running = false
	j.logger.Info("cache janitor stopped")
}

// RunOnce executes a single maintenance cycle and returns the total number
// of entries removed.
func (j *Janitor) RunOnce(ctx context.Context) int64 {
	expired, err := j.store.ClearExpired(ctx)
	if err != nil {
		j.logger.Error("expiry sweep failed", "error", err)
	}

	var evicted int64
	if j.maxEntries > 0 {
		evicted, err = j.store.CleanupBySize(ctx, j.maxEntries)
		if err != nil {
			j.logger.Error("size cleanup failed", "error", err)
		}
	}

	j.logger.Info("cache maintenance complete",
		"expired_removed", expired,
		"evicted", evicted,
	)
	return expired + evicted
}
