package config

import "time"

// Default values for configuration fields.
const (
	// Cache defaults
	DefaultCacheTTLHours   = 0 // never expires
	DefaultCacheMaxEntries = 10000
	DefaultCacheBusyTimeout = 5 * time.Second

	// Budget defaults
	DefaultBudgetBusyTimeout    = 5 * time.Second
	DefaultBudgetReservationTTL = 5 * time.Minute

	// Pricing defaults
	DefaultPricingDebounce = 100 * time.Millisecond

	// Janitor defaults
	DefaultJanitorSchedule = "0 3 * * *"

	// Provider defaults
	DefaultProviderTimeout = 60 * time.Second

	// Logging defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// ApplyDefaults fills in default values for any unset configuration fields.
// It modifies the configuration in place.
func ApplyDefaults(cfg *Config) {
	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = DefaultCacheMaxEntries
	}
	if cfg.Cache.BusyTimeout == 0 {
		cfg.Cache.BusyTimeout = DefaultCacheBusyTimeout
	}

	if cfg.Budget.BusyTimeout == 0 {
		cfg.Budget.BusyTimeout = DefaultBudgetBusyTimeout
	}
	if cfg.Budget.ReservationTTL == 0 {
		cfg.Budget.ReservationTTL = DefaultBudgetReservationTTL
	}

	if cfg.Pricing.DebounceInterval == 0 {
		cfg.Pricing.DebounceInterval = DefaultPricingDebounce
	}

	if cfg.Janitor.Schedule == "" {
		cfg.Janitor.Schedule = DefaultJanitorSchedule
	}

	for name, p := range cfg.Providers {
		if p.Timeout == 0 {
			p.Timeout = DefaultProviderTimeout
			cfg.Providers[name] = p
		}
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}
}
