package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any
// errors. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies environment variable overrides. Environment variables follow the
// naming convention PROMPTOPS_SECTION_FIELD (e.g., PROMPTOPS_CACHE_DIR) and
// always take precedence over file-based configuration.
//
// The loading sequence is:
//  1. Load YAML from file
//  2. Apply default values
//  3. Apply environment variable overrides
//  4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("PROMPTOPS_CACHE_DIR"); val != "" {
		cfg.Cache.Dir = val
	}
	if val := os.Getenv("PROMPTOPS_CACHE_DEFAULT_TTL_HOURS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Cache.DefaultTTLHours = i
		}
	}
	if val := os.Getenv("PROMPTOPS_CACHE_MAX_ENTRIES"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Cache.MaxEntries = i
		}
	}
	if val := os.Getenv("PROMPTOPS_BUDGET_DIR"); val != "" {
		cfg.Budget.Dir = val
	}
	if val := os.Getenv("PROMPTOPS_PRICING_PATH"); val != "" {
		cfg.Pricing.Path = val
	}
	if val := os.Getenv("PROMPTOPS_JANITOR_SCHEDULE"); val != "" {
		cfg.Janitor.Schedule = val
	}
	if val := os.Getenv("PROMPTOPS_LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("PROMPTOPS_LOG_FORMAT"); val != "" {
		cfg.Logging.Format = val
	}
}
