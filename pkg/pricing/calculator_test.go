package pricing

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func testTable() *Table {
	return &Table{
		Version:  "test",
		Currency: "USD",
		Providers: map[string]map[string]ModelPricing{
			"openai": {
				"gpt-4o": {InputCostPer1K: 0.0025, OutputCostPer1K: 0.01},
			},
			"anthropic": {
				"claude-sonnet-4-20250514": {InputCostPer1K: 0.003, OutputCostPer1K: 0.015},
			},
		},
	}
}

func TestCost_Linearity(t *testing.T) {
	calc := NewCalculator(testTable())

	// 1000 input + 1000 output tokens costs exactly input + output per-1k rates
	cost, err := calc.Cost("openai", "gpt-4o", 1000, 1000)
	if err != nil {
		t.Fatalf("Cost failed: %v", err)
	}
	expected := 0.0025 + 0.01
	if cost != expected {
		t.Errorf("Expected cost %.4f, got %.4f", expected, cost)
	}
}

func TestCost_ZeroTokens(t *testing.T) {
	calc := NewCalculator(testTable())

	cost, err := calc.Cost("openai", "gpt-4o", 0, 0)
	if err != nil {
		t.Fatalf("Cost failed: %v", err)
	}
	if cost != 0 {
		t.Errorf("Expected zero cost, got %.6f", cost)
	}
}

func TestCost_PricingNotFound(t *testing.T) {
	calc := NewCalculator(testTable())

	tests := []struct {
		name     string
		provider string
		model    string
	}{
		{"unknown provider", "unknown-provider", "x"},
		{"unknown model", "openai", "gpt-nonexistent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := calc.Cost(tt.provider, tt.model, 10, 10)
			if !errors.Is(err, ErrPricingNotFound) {
				t.Errorf("Expected ErrPricingNotFound, got %v", err)
			}
		})
	}
}

func TestCost_FractionalTokens(t *testing.T) {
	calc := NewCalculator(testTable())

	cost, err := calc.Cost("anthropic", "claude-sonnet-4-20250514", 500, 250)
	if err != nil {
		t.Fatalf("Cost failed: %v", err)
	}
	expected := 0.5*0.003 + 0.25*0.015
	if cost != expected {
		t.Errorf("Expected cost %.6f, got %.6f", expected, cost)
	}
}

func TestSetTable_Swap(t *testing.T) {
	calc := NewCalculator(testTable())

	updated := testTable()
	updated.Providers["openai"]["gpt-4o"] = ModelPricing{InputCostPer1K: 1.0, OutputCostPer1K: 2.0}
	calc.SetTable(updated)

	cost, err := calc.Cost("openai", "gpt-4o", 1000, 1000)
	if err != nil {
		t.Fatalf("Cost failed: %v", err)
	}
	if cost != 3.0 {
		t.Errorf("Expected cost 3.0 after table swap, got %.4f", cost)
	}
}

func TestLoadTable_MissingFileFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pricing.json")

	table := LoadTable(path, nil)
	if len(table.Providers) < 2 {
		t.Fatalf("Expected default table with at least 2 providers, got %d", len(table.Providers))
	}

	// Defaults are persisted back to the configured path
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Expected default table written back: %v", err)
	}
	var reread Table
	if err := json.Unmarshal(data, &reread); err != nil {
		t.Fatalf("Written-back table is not valid JSON: %v", err)
	}
	if reread.Currency != "USD" {
		t.Errorf("Expected USD currency, got %q", reread.Currency)
	}
}

func TestLoadTable_UnparsableFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pricing.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	table := LoadTable(path, nil)
	if _, ok := table.Lookup("openai", "gpt-4o"); !ok {
		t.Error("Expected default table after parse failure")
	}
}

func TestLoadTable_ValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pricing.json")
	custom := testTable()
	custom.Providers["local"] = map[string]ModelPricing{
		"llama-3": {InputCostPer1K: 0, OutputCostPer1K: 0},
	}
	if err := custom.Save(path); err != nil {
		t.Fatal(err)
	}

	table := LoadTable(path, nil)
	if _, ok := table.Lookup("local", "llama-3"); !ok {
		t.Error("Expected custom provider from file")
	}
}

func TestLoadTable_WriteBackFailureNonFatal(t *testing.T) {
	// Point at a path whose parent cannot be created
	path := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	table := LoadTable(filepath.Join(path, "nested", "pricing.json"), nil)
	if table == nil || len(table.Providers) == 0 {
		t.Error("Expected usable default table despite write-back failure")
	}
}
