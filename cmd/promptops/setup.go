package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"promptops-hq/promptops/pkg/budget"
	"promptops-hq/promptops/pkg/cache"
	"promptops-hq/promptops/pkg/config"
	"promptops-hq/promptops/pkg/pricing"
	"promptops-hq/promptops/pkg/providers"
)

const (
	cacheDBName  = "cache.db"
	budgetDBName = "budget.db"
	pricingFile  = "pricing.json"
)

// openCacheStore opens the response cache store under the resolved cache
// directory.
func openCacheStore(cfg *config.Config) (*cache.Store, error) {
	dir, err := config.ResolveCacheDir(cfg.Cache.Dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	store, err := cache.NewStore(cache.StoreConfig{
		Path:        filepath.Join(dir, cacheDBName),
		BusyTimeout: cfg.Cache.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache store: %w", err)
	}
	return store, nil
}

// newCalculator loads the pricing table and wraps it in a calculator. A
// missing or unparsable pricing file falls back to the embedded defaults.
func newCalculator(cfg *config.Config) (*pricing.Calculator, error) {
	path, err := pricingPath(cfg)
	if err != nil {
		return nil, err
	}
	table := pricing.LoadTable(path, slog.Default().With("component", "pricing"))
	return pricing.NewCalculator(table), nil
}

func pricingPath(cfg *config.Config) (string, error) {
	if cfg.Pricing.Path != "" {
		return cfg.Pricing.Path, nil
	}
	dir, err := config.ResolveDataDir(cfg.Budget.Dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, pricingFile), nil
}

// openBudgetStore opens the budget store under the resolved data
// directory, priced by the given calculator.
func openBudgetStore(cfg *config.Config, calc *pricing.Calculator) (*budget.Store, error) {
	dir, err := config.ResolveDataDir(cfg.Budget.Dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	store, err := budget.NewStore(budget.StoreConfig{
		Path:           filepath.Join(dir, budgetDBName),
		Calculator:     calc,
		BusyTimeout:    cfg.Budget.BusyTimeout,
		ReservationTTL: cfg.Budget.ReservationTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open budget store: %w", err)
	}
	return store, nil
}

// buildProviders constructs every enabled provider backend from the
// configuration. Providers that are configured but disabled are logged
// with their reason and skipped.
func buildProviders(cfg *config.Config) map[string]providers.Provider {
	backends := make(map[string]providers.Provider)
	logger := slog.Default().With("component", "providers")

	for name, pc := range cfg.Providers {
		var backend providers.Provider
		var reason providers.DisabledReason

		switch name {
		case "openai":
			backend, reason = providers.NewOpenAI(pc)
		case "anthropic":
			backend, reason = providers.NewAnthropic(pc)
		default:
			logger.Warn("unknown provider in config, skipping", "provider", name)
			continue
		}

		if !reason.Enabled() {
			logger.Info("provider disabled", "provider", name, "reason", reason.String())
			continue
		}
		backends[name] = backend
	}
	return backends
}
