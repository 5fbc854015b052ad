package pricing

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// ModelPricing contains per-1000-token costs for a single model.
type ModelPricing struct {
	// InputCostPer1K is the cost in USD per 1000 input (prompt) tokens.
	InputCostPer1K float64 `json:"inputCostPer1k"`

	// OutputCostPer1K is the cost in USD per 1000 output (completion) tokens.
	OutputCostPer1K float64 `json:"outputCostPer1k"`
}

// Table is a nested mapping from provider to model to per-token pricing.
type Table struct {
	// Version identifies the pricing table revision.
	Version string `json:"version"`

	// LastUpdated is when the table was last revised (RFC 3339 date).
	LastUpdated string `json:"lastUpdated"`

	// Currency is the pricing currency. Always "USD" for the built-in table.
	Currency string `json:"currency"`

	// Providers maps provider name to model name to pricing.
	Providers map[string]map[string]ModelPricing `json:"providers"`
}

// Lookup returns the pricing for a (provider, model) pair and whether the
// pair is present in the table.
func (t *Table) Lookup(provider, model string) (ModelPricing, bool) {
	models, ok := t.Providers[provider]
	if !ok {
		return ModelPricing{}, false
	}
	p, ok := models[model]
	return p, ok
}

// DefaultTable returns the embedded fallback pricing table. It is used when
// no pricing file exists or the configured file cannot be parsed.
func DefaultTable() *Table {
	return &Table{
		Version:     "1",
		LastUpdated: "2025-11-01",
		Currency:    "USD",
		Providers: map[string]map[string]ModelPricing{
			"openai": {
				"gpt-4o":      {InputCostPer1K: 0.0025, OutputCostPer1K: 0.01},
				"gpt-4o-mini": {InputCostPer1K: 0.00015, OutputCostPer1K: 0.0006},
			},
			"anthropic": {
				"claude-sonnet-4-20250514": {InputCostPer1K: 0.003, OutputCostPer1K: 0.015},
				"claude-haiku-3-5":         {InputCostPer1K: 0.0008, OutputCostPer1K: 0.004},
			},
		},
	}
}

// LoadTable loads a pricing table from the JSON file at path. If path is
// empty, the file is missing, or it fails to parse, the embedded default
// table is returned instead and written back to path on a best-effort
// basis. A write-back failure is logged and otherwise ignored; the
// in-memory defaults remain usable for the process lifetime.
func LoadTable(path string, logger *slog.Logger) *Table {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "pricing")

	if path == "" {
		return DefaultTable()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("pricing file unavailable, using built-in defaults",
			"path", path,
			"error", err,
		)
		table := DefaultTable()
		persistDefaults(path, table, logger)
		return table
	}

	var table Table
	if err := json.Unmarshal(data, &table); err != nil || len(table.Providers) == 0 {
		logger.Warn("pricing file unparsable, using built-in defaults",
			"path", path,
			"error", err,
		)
		table := DefaultTable()
		persistDefaults(path, table, logger)
		return table
	}

	logger.Debug("pricing table loaded",
		"path", path,
		"version", table.Version,
		"provider_count", len(table.Providers),
	)
	return &table
}

// persistDefaults writes the default table to path. Failure is non-fatal.
func persistDefaults(path string, table *Table, logger *slog.Logger) {
	data, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		logger.Warn("failed to encode default pricing table", "error", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		logger.Warn("failed to persist default pricing table", "path", path, "error", err)
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		logger.Warn("failed to persist default pricing table", "path", path, "error", err)
		return
	}
	logger.Info("wrote default pricing table", "path", path)
}

// Save writes the table as indented JSON to path.
func (t *Table) Save(path string) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode pricing table: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write pricing table %q: %w", path, err)
	}
	return nil
}
