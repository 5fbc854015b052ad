// PromptOps is a cost-aware response cache and budget enforcement engine
// for LLM API usage.
//
// It provides:
//   - Content-addressed caching of LLM responses with TTL expiry
//   - Token-based cost calculation from a hot-reloadable pricing table
//   - An append-only spend ledger with calendar-month aggregation
//   - Per-organization/project monthly budgets with pre-call admission
//
// Usage:
//
//	# One-shot chat request through the cache and budget pipeline
//	promptops chat --provider openai --model gpt-4o "Explain CRDTs"
//
//	# Set a monthly budget
//	promptops budget set --org acme --project demo --limit 50
//
//	# Show budget status
//	promptops budget status --org acme --project demo
//
//	# Cache statistics
//	promptops cache stats
//
//	# Run scheduled cache maintenance in the foreground
//	promptops janitor
//
// For complete documentation, see: https://github.com/promptops-hq/promptops
package main

func main() {
	Execute()
}
