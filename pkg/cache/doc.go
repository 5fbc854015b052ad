// Package cache implements a content-addressable, TTL-aware cache for LLM
// responses backed by SQLite.
//
// # Keys and Content Hashes
//
// Every entry is identified by a deterministic SHA-256 key derived from
// the normalized request (messages, provider, model, and parameters with
// canonical ordering). A second digest, the content hash, covers only the
// response's semantic content and is used to surface identical answers
// cached under different keys, typically produced by different models. The
// content hash never participates in lookup.
//
// # Lifecycle
//
// Entries are created by Put (an upsert; last write wins), mutated only by
// the store itself on Get hits (atomic hit-count increment and
// last-accessed touch in a single UPDATE), and removed by explicit
// invalidation, expiry sweeps, provider-scoped clears, full clears, or
// least-recently-used capacity eviction.
//
// # Concurrency
//
// Operations on different keys are independent. The store keeps no
// in-memory state between calls; SQLite single-statement atomicity is the
// only synchronization. Get's hit-count increment is one atomic UPDATE, so
// concurrent hits on the same key never lose counts. Concurrent Puts on
// the same key race on which response is retained (last write wins).
//
// # Maintenance
//
// ClearExpired and CleanupBySize are on-demand operations; Janitor invokes
// them on a cron schedule for deployments that want periodic upkeep.
package cache
