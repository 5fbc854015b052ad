package config

import "time"

// Config is the root configuration structure for the PromptOps cost engine.
// It contains all configuration sections for the response cache, the budget
// ledger, pricing, maintenance, providers, and logging.
type Config struct {
	// Cache contains configuration for the response cache store including
	// its base directory and default entry TTL.
	Cache CacheConfig `yaml:"cache"`

	// Budget contains configuration for the spend ledger and budget store.
	Budget BudgetConfig `yaml:"budget"`

	// Pricing contains configuration for the pricing table including the
	// pricing file path and hot-reload settings.
	Pricing PricingConfig `yaml:"pricing"`

	// Janitor contains configuration for scheduled cache maintenance
	// (expiry sweeps and capacity-bounded eviction).
	Janitor JanitorConfig `yaml:"janitor"`

	// Providers contains configuration for LLM provider integrations.
	// Keys are provider names (e.g., "openai", "anthropic").
	Providers map[string]ProviderConfig `yaml:"providers"`

	// Logging contains configuration for structured logging.
	Logging LoggingConfig `yaml:"logging"`
}

// CacheConfig contains configuration for the response cache store.
type CacheConfig struct {
	// Dir is the base directory for the cache database file.
	// Default: resolved from the platform cache directory convention.
	Dir string `yaml:"dir"`

	// DefaultTTLHours is the default time-to-live for cache entries in
	// hours. Zero means entries never expire.
	// Default: 0
	DefaultTTLHours int `yaml:"default_ttl_hours"`

	// MaxEntries is the capacity bound enforced by scheduled cleanup.
	// Zero disables capacity-based eviction.
	// Default: 10000
	MaxEntries int `yaml:"max_entries"`

	// BusyTimeout is how long to wait for database locks before failing.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// BudgetConfig contains configuration for the spend ledger and budget store.
type BudgetConfig struct {
	// Dir is the base directory for the budget database file.
	// Default: resolved from the platform data directory convention.
	Dir string `yaml:"dir"`

	// BusyTimeout is how long to wait for database locks before failing.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// ReservationTTL is how long an admission reservation stays valid
	// before it can no longer be attached to a spend record.
	// Default: 5m
	ReservationTTL time.Duration `yaml:"reservation_ttl"`
}

// PricingConfig contains configuration for the pricing table.
type PricingConfig struct {
	// Path is the pricing file location (JSON). If the file is missing or
	// unparsable, the embedded default table is used and written back to
	// this path on a best-effort basis.
	Path string `yaml:"path"`

	// Watch enables hot-reload of the pricing file via filesystem
	// notifications.
	// Default: false
	Watch bool `yaml:"watch"`

	// DebounceInterval is the time to wait before reloading after
	// detecting pricing file changes.
	// Default: 100ms
	DebounceInterval time.Duration `yaml:"debounce_interval"`
}

// JanitorConfig contains configuration for scheduled cache maintenance.
type JanitorConfig struct {
	// Schedule is a cron expression controlling when maintenance runs.
	// Empty disables scheduled maintenance.
	// Default: "0 3 * * *" (daily at 3 AM)
	Schedule string `yaml:"schedule"`
}

// ProviderConfig contains configuration for a single LLM provider.
//
// Network access is denied by default: a provider only becomes usable when
// Enabled is true, AllowNetwork is true, and APIKey is non-empty. All three
// are required.
type ProviderConfig struct {
	// Enabled controls whether this provider is configured for use.
	Enabled bool `yaml:"enabled"`

	// AllowNetwork is the explicit opt-in for outbound network calls.
	AllowNetwork bool `yaml:"allow_network"`

	// APIKey is the provider credential.
	APIKey string `yaml:"api_key"`

	// BaseURL is the base URL for the provider's API endpoint.
	BaseURL string `yaml:"base_url"`

	// Timeout is the per-request timeout.
	// Default: 60s
	Timeout time.Duration `yaml:"timeout"`
}

// LoggingConfig contains configuration for structured logging.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format ("json" or "text").
	// Default: "text"
	Format string `yaml:"format"`
}
