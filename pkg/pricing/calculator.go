package pricing

import (
	"errors"
	"fmt"
	"sync"
)

// ErrPricingNotFound is returned when a (provider, model) pair is absent
// from the pricing table. Callers decide whether absence is fatal: the
// spend ledger propagates it, while admission checks fail open.
var ErrPricingNotFound = errors.New("pricing not found")

// Calculator computes call costs from token counts using a pricing table.
// It is thread-safe and supports hot-swapping the table for pricing file
// reloads.
type Calculator struct {
	mu    sync.RWMutex
	table *Table
}

// NewCalculator creates a Calculator backed by the given table.
func NewCalculator(table *Table) *Calculator {
	if table == nil {
		table = DefaultTable()
	}
	return &Calculator{table: table}
}

// Cost calculates the USD cost of a call:
//
//	cost = (inputTokens/1000)*inputCostPer1k + (outputTokens/1000)*outputCostPer1k
//
// It returns ErrPricingNotFound when the (provider, model) pair is absent
// from the table.
func (c *Calculator) Cost(provider, model string, inputTokens, outputTokens int) (float64, error) {
	c.mu.RLock()
	pricing, ok := c.table.Lookup(provider, model)
	c.mu.RUnlock()

	if !ok {
		return 0, fmt.Errorf("%w for %s/%s", ErrPricingNotFound, provider, model)
	}

	cost := float64(inputTokens)/1000*pricing.InputCostPer1K +
		float64(outputTokens)/1000*pricing.OutputCostPer1K
	return cost, nil
}

// Lookup returns the pricing for a (provider, model) pair and whether the
// pair is present.
func (c *Calculator) Lookup(provider, model string) (ModelPricing, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.table.Lookup(provider, model)
}

// Table returns the current pricing table.
func (c *Calculator) Table() *Table {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.table
}

// SetTable atomically replaces the pricing table. Used by the hot-reload
// watcher; in-flight Cost calls finish against the old table.
func (c *Calculator) SetTable(table *Table) {
	if table == nil {
		return
	}
	c.mu.Lock()
	c.table = table
	c.mu.Unlock()
}
