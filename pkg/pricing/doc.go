// Package pricing provides the pricing table and cost calculator for LLM
// provider calls.
//
// # Pricing Table
//
// The table is a nested mapping from provider to model to per-1000-token
// input/output costs, loaded from a JSON file. When the file is missing or
// unparsable an embedded default table is used and written back to the
// configured path on a best-effort basis.
//
// # Cost Calculation
//
//	cost = (inputTokens/1000)*inputCostPer1k + (outputTokens/1000)*outputCostPer1k
//
// Cost returns ErrPricingNotFound for unknown (provider, model) pairs.
// Whether that is fatal is the caller's decision: the spend ledger
// propagates it, while budget admission checks fail open.
//
// # Hot Reload
//
// Watcher observes the pricing file via filesystem notifications and swaps
// the calculator's table atomically when the file changes, debounced to
// absorb editor write bursts.
package pricing
