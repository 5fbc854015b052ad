package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// Annotation fields injected into JSON object bodies on a cache hit and
// stripped again before persisting.
const (
	annotationCached = "cached"
	annotationKey    = "cacheKey"
)

const schema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	key TEXT PRIMARY KEY,
	content_hash TEXT NOT NULL,
	provider TEXT NOT NULL,
	model TEXT NOT NULL,
	response_body BLOB NOT NULL,
	created_at INTEGER NOT NULL,
	expires_at INTEGER,
	hit_count INTEGER NOT NULL DEFAULT 0,
	last_accessed INTEGER
);
CREATE INDEX IF NOT EXISTS idx_cache_content_hash ON cache_entries(content_hash);
CREATE INDEX IF NOT EXISTS idx_cache_expires_at ON cache_entries(expires_at);
CREATE INDEX IF NOT EXISTS idx_cache_provider_model ON cache_entries(provider, model);
`

// StoreConfig configures the cache store.
type StoreConfig struct {
	// Path is the SQLite database file path.
	Path string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration

	// Metrics receives cache observations. Nil disables metrics.
	Metrics *Metrics

	// Logger is the structured logger. Nil uses slog.Default().
	Logger *slog.Logger
}

// Store is a content-addressable cache for LLM responses backed by SQLite.
//
// Every public operation performs blocking reads/writes against the
// database and returns before the caller proceeds; the store runs no
// background work of its own. Expiry sweeps and capacity eviction are
// invoked on demand (see Janitor).
//
// The hit-count increment on Get is a single atomic UPDATE statement, so
// concurrent lookups of the same key never lose increments.
type Store struct {
	db      *sql.DB
	metrics *Metrics
	logger  *slog.Logger

	// now is the clock; replaced in tests.
	now func() time.Time
}

// NewStore opens (creating if necessary) the cache database at cfg.Path.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("cache store path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "cache.store")

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.Path, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	// SQLite only supports a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}

	logger.Debug("cache store opened", "path", cfg.Path)

	return &Store{
		db:      db,
		metrics: cfg.Metrics,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get looks up the cached response for a request. It returns nil (not an
// error) when no entry exists, the entry has expired, or the stored body
// no longer deserializes. On a hit the entry's hit count is incremented
// and its last-accessed time updated atomically, and the returned body is
// annotated with cache metadata.
func (s *Store) Get(ctx context.Context, req Request) (*Entry, error) {
	key := DeriveKey(req)

	row := s.db.QueryRowContext(ctx, `
		SELECT key, content_hash, provider, model, response_body,
		       created_at, expires_at, hit_count, last_accessed
		FROM cache_entries WHERE key = ?`, key)

	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		s.metrics.observeMiss()
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}

	now := s.now()
	if entry.ExpiresAt != nil && !entry.ExpiresAt.After(now) {
		s.metrics.observeMiss()
		return nil, nil
	}

	// A body that no longer deserializes is invisible but left in place.
	var decoded any
	if err := json.Unmarshal(entry.Body, &decoded); err != nil {
		s.logger.Debug("corrupt cache entry treated as miss", "key", key, "error", err)
		s.metrics.observeMiss()
		return nil, nil
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE cache_entries SET hit_count = hit_count + 1, last_accessed = ?
		WHERE key = ?`, now.UnixNano(), key)
	if err != nil {
		return nil, fmt.Errorf("failed to record cache hit: %w", err)
	}

	entry.HitCount++
	entry.LastAccessed = &now
	entry.Body = annotateBody(entry.Body, key)

	s.metrics.observeHit()
	return entry, nil
}

// Put stores a response for a request, replacing any existing entry with
// the same key (last write wins; hit statistics start over). Cache
// annotation fields left over from a previous hit are stripped before
// persisting. A ttl greater than zero sets the expiry to now+ttl; a ttl of
// zero stores an entry that never expires.
func (s *Store) Put(ctx context.Context, req Request, response any, ttl time.Duration) error {
	body, err := encodeResponse(response)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	body = stripAnnotations(body)

	key := DeriveKey(req)
	contentHash := DeriveContentHash(body)
	now := s.now()

	var expiresAt any
	if ttl > 0 {
		expiresAt = now.Add(ttl).UnixNano()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO cache_entries
			(key, content_hash, provider, model, response_body,
			 created_at, expires_at, hit_count, last_accessed)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, NULL)`,
		key, contentHash, req.Provider, req.Model, []byte(body),
		now.UnixNano(), expiresAt)
	if err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}

	s.metrics.observePut()
	return nil
}

// Invalidate deletes the entry for the exact request key. It reports
// whether an entry existed.
func (s *Store) Invalidate(ctx context.Context, req Request) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE key = ?`, DeriveKey(req))
	if err != nil {
		return false, fmt.Errorf("failed to invalidate cache entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to invalidate cache entry: %w", err)
	}
	return n > 0, nil
}

// ClearExpired deletes every entry whose expiry has passed and returns the
// number of entries removed.
func (s *Store) ClearExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM cache_entries
		WHERE expires_at IS NOT NULL AND expires_at <= ?`, s.now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to clear expired entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to clear expired entries: %w", err)
	}
	s.metrics.observeEvictions(n)
	return n, nil
}

// ClearProvider deletes all entries for a provider, optionally narrowed to
// a single model when model is non-empty. It returns the number removed.
func (s *Store) ClearProvider(ctx context.Context, provider, model string) (int64, error) {
	var res sql.Result
	var err error
	if model == "" {
		res, err = s.db.ExecContext(ctx,
			`DELETE FROM cache_entries WHERE provider = ?`, provider)
	} else {
		res, err = s.db.ExecContext(ctx,
			`DELETE FROM cache_entries WHERE provider = ? AND model = ?`, provider, model)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to clear provider entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to clear provider entries: %w", err)
	}
	s.metrics.observeEvictions(n)
	return n, nil
}

// ClearAll deletes every entry and returns the number removed.
func (s *Store) ClearAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to clear cache: %w", err)
	}
	s.metrics.observeEvictions(n)
	return n, nil
}

// Stats returns aggregate cache statistics including a per-provider
// breakdown.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{Providers: make(map[string]ProviderStats)}
	now := s.now().UnixNano()

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(hit_count), 0),
		       COALESCE(SUM(LENGTH(response_body)), 0),
		       COALESCE(SUM(CASE WHEN expires_at IS NOT NULL AND expires_at <= ? THEN 1 ELSE 0 END), 0)
		FROM cache_entries`, now).
		Scan(&stats.TotalEntries, &stats.TotalHits, &stats.StorageBytes, &stats.ExpiredEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to compute cache stats: %w", err)
	}

	stats.ActiveEntries = stats.TotalEntries - stats.ExpiredEntries
	denom := stats.TotalEntries
	if denom < 1 {
		denom = 1
	}
	stats.HitRate = float64(stats.TotalHits) / float64(denom)

	rows, err := s.db.QueryContext(ctx, `
		SELECT provider, COUNT(*), COALESCE(SUM(hit_count), 0)
		FROM cache_entries GROUP BY provider`)
	if err != nil {
		return nil, fmt.Errorf("failed to compute provider breakdown: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var provider string
		var ps ProviderStats
		if err := rows.Scan(&provider, &ps.Entries, &ps.Hits); err != nil {
			return nil, fmt.Errorf("failed to scan provider stats: %w", err)
		}
		stats.Providers[provider] = ps
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to compute provider breakdown: %w", err)
	}

	return stats, nil
}

// FindSimilar returns entries sharing a content hash, ordered by hit count
// descending then creation time descending. This surfaces identical
// answers produced under different keys (typically by different models).
func (s *Store) FindSimilar(ctx context.Context, contentHash string, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT key, content_hash, provider, model, response_body,
		       created_at, expires_at, hit_count, last_accessed
		FROM cache_entries
		WHERE content_hash = ?
		ORDER BY hit_count DESC, created_at DESC
		LIMIT ?`, contentHash, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to find similar entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cache entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to find similar entries: %w", err)
	}
	return entries, nil
}

// CleanupBySize evicts least-recently-used entries until the store holds
// at most maxEntries, returning the number removed. Ranking uses the
// last-accessed time, falling back to creation time for entries that were
// never accessed; a never-accessed entry sorts before an accessed entry
// that ranks at the same instant.
func (s *Store) CleanupBySize(ctx context.Context, maxEntries int) (int64, error) {
	if maxEntries < 0 {
		return 0, fmt.Errorf("maxEntries must be >= 0, got %d", maxEntries)
	}

	var count int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cache_entries`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count cache entries: %w", err)
	}

	excess := count - int64(maxEntries)
	if excess <= 0 {
		return 0, nil
	}

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM cache_entries WHERE key IN (
			SELECT key FROM cache_entries
			ORDER BY COALESCE(last_accessed, created_at) ASC,
			         (last_accessed IS NULL) DESC,
			         created_at ASC
			LIMIT ?
		)`, excess)
	if err != nil {
		return 0, fmt.Errorf("failed to evict cache entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to evict cache entries: %w", err)
	}

	s.metrics.observeEvictions(n)
	s.logger.Info("cache size cleanup complete",
		"max_entries", maxEntries,
		"removed", n,
	)
	return n, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var entry Entry
	var body []byte
	var createdAt int64
	var expiresAt, lastAccessed sql.NullInt64

	err := row.Scan(&entry.Key, &entry.ContentHash, &entry.Provider, &entry.Model,
		&body, &createdAt, &expiresAt, &entry.HitCount, &lastAccessed)
	if err != nil {
		return nil, err
	}

	entry.Body = body
	entry.CreatedAt = time.Unix(0, createdAt)
	if expiresAt.Valid {
		t := time.Unix(0, expiresAt.Int64)
		entry.ExpiresAt = &t
	}
	if lastAccessed.Valid {
		t := time.Unix(0, lastAccessed.Int64)
		entry.LastAccessed = &t
	}
	return &entry, nil
}

// encodeResponse converts a response value to its stored JSON form. Byte
// slices and raw messages are stored as-is; everything else is marshaled.
func encodeResponse(response any) (json.RawMessage, error) {
	switch v := response.(type) {
	case json.RawMessage:
		return append(json.RawMessage(nil), v...), nil
	case []byte:
		return append(json.RawMessage(nil), v...), nil
	default:
		return json.Marshal(response)
	}
}

// annotateBody marks a JSON object body as a cache hit. Non-object bodies
// are returned unchanged.
func annotateBody(body json.RawMessage, key string) json.RawMessage {
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		return body
	}
	obj[annotationCached] = true
	obj[annotationKey] = key
	annotated, err := json.Marshal(obj)
	if err != nil {
		return body
	}
	return annotated
}

// stripAnnotations removes cache-hit annotation fields from a JSON object
// body so a previously returned hit can be re-stored cleanly.
func stripAnnotations(body json.RawMessage) json.RawMessage {
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		return body
	}
	if _, hasCached := obj[annotationCached]; !hasCached {
		if _, hasKey := obj[annotationKey]; !hasKey {
			return body
		}
	}
	delete(obj, annotationCached)
	delete(obj, annotationKey)
	stripped, err := json.Marshal(obj)
	if err != nil {
		return body
	}
	return stripped
}
