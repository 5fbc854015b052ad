package config

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

// Validate checks the configuration for invalid values. It returns an error
// describing the first problem found, or nil if the configuration is valid.
func Validate(cfg *Config) error {
	if cfg.Cache.DefaultTTLHours < 0 {
		return fmt.Errorf("cache.default_ttl_hours must be >= 0, got %d", cfg.Cache.DefaultTTLHours)
	}
	if cfg.Cache.MaxEntries < 0 {
		return fmt.Errorf("cache.max_entries must be >= 0, got %d", cfg.Cache.MaxEntries)
	}
	if cfg.Budget.ReservationTTL < 0 {
		return fmt.Errorf("budget.reservation_ttl must be >= 0, got %s", cfg.Budget.ReservationTTL)
	}

	if cfg.Janitor.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Janitor.Schedule); err != nil {
			return fmt.Errorf("invalid janitor.schedule %q: %w", cfg.Janitor.Schedule, err)
		}
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level %q (expected debug, info, warn, or error)", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid logging.format %q (expected json or text)", cfg.Logging.Format)
	}

	for name, p := range cfg.Providers {
		if p.Enabled && p.AllowNetwork && p.APIKey == "" {
			return fmt.Errorf("provider %q allows network access but has no api_key", name)
		}
	}

	return nil
}
