// Package engine composes the cache, budget, and provider layers into a
// single request pipeline.
//
// The pipeline order is deliberate: the cache is consulted before the
// budget, so serving a cached response never consumes budget and never
// records spend. Only a live provider call passes through admission, and
// only its actual token usage lands in the ledger. Failures downstream of
// the provider call degrade gracefully: a response the caller already
// paid for is always returned, even when recording or caching it fails.
package engine
