package cache

import (
	"encoding/json"
	"time"
)

// Entry is one cached LLM response. Entries are owned exclusively by the
// Store; callers never mutate fields directly.
type Entry struct {
	// Key is the deterministic cache key derived from the request.
	Key string

	// ContentHash is the digest of the response's semantic content only,
	// used to find identical answers across different keys and models.
	ContentHash string

	// Provider and Model identify the backend that produced the response.
	Provider string
	Model    string

	// Body is the cached response body. On a Get hit the body of JSON
	// object responses is annotated with "cached" and "cacheKey" fields.
	Body json.RawMessage

	// CreatedAt is when the entry was stored.
	CreatedAt time.Time

	// ExpiresAt is when the entry expires. Nil means it never expires.
	ExpiresAt *time.Time

	// HitCount is the number of successful lookups, including the one
	// that returned this Entry.
	HitCount int64

	// LastAccessed is when the entry was last returned by a lookup. Nil
	// means it has never been accessed.
	LastAccessed *time.Time
}

// ProviderStats is the per-provider slice of cache statistics.
type ProviderStats struct {
	// Entries is the number of cache entries for the provider.
	Entries int64

	// Hits is the total hit count across the provider's entries.
	Hits int64
}

// Stats contains aggregate cache statistics.
type Stats struct {
	// TotalEntries is the number of entries in the store, expired or not.
	TotalEntries int64

	// ActiveEntries is the number of entries that have not expired.
	ActiveEntries int64

	// ExpiredEntries is the number of entries past their expiry.
	ExpiredEntries int64

	// TotalHits is the sum of hit counts across all entries.
	TotalHits int64

	// HitRate is TotalHits / max(TotalEntries, 1).
	HitRate float64

	// StorageBytes is the total size of stored response bodies.
	StorageBytes int64

	// Providers breaks entries and hits down by provider.
	Providers map[string]ProviderStats
}
