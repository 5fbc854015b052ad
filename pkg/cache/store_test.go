package cache

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"promptops-hq/promptops/pkg/providers"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(StoreConfig{
		Path: filepath.Join(t.TempDir(), "cache.db"),
	})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func requestFor(content string) Request {
	return Request{
		Messages: []providers.Message{{Role: "user", Content: content}},
		Provider: "openai",
		Model:    "gpt-4o",
		Params:   map[string]any{"temperature": 0.0},
	}
}

func responseFor(content string) map[string]any {
	return map[string]any{
		"content": content,
		"usage":   map[string]any{"input_tokens": 5, "output_tokens": 9},
	}
}

func TestStore_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	req := requestFor("hello")

	if err := store.Put(ctx, req, responseFor("hi"), 0); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	entry, err := store.Get(ctx, req)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if entry == nil {
		t.Fatal("Expected cache hit")
	}

	// hitCount goes 0 -> 1 on the first lookup
	if entry.HitCount != 1 {
		t.Errorf("Expected hit count 1, got %d", entry.HitCount)
	}
	if entry.LastAccessed == nil {
		t.Error("Expected last accessed to be set")
	}

	// Body matches modulo cache annotations
	var body map[string]any
	if err := json.Unmarshal(entry.Body, &body); err != nil {
		t.Fatalf("Body unmarshal failed: %v", err)
	}
	if body["content"] != "hi" {
		t.Errorf("Expected content %q, got %v", "hi", body["content"])
	}
	if body[annotationCached] != true {
		t.Error("Expected cached annotation on hit")
	}
	if body[annotationKey] != entry.Key {
		t.Errorf("Expected cacheKey annotation %q, got %v", entry.Key, body[annotationKey])
	}
}

func TestStore_MissOnAbsent(t *testing.T) {
	store := newTestStore(t)

	entry, err := store.Get(context.Background(), requestFor("never stored"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if entry != nil {
		t.Error("Expected miss for absent entry")
	}
}

func TestStore_HitCountAccumulates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	req := requestFor("counted")

	if err := store.Put(ctx, req, responseFor("x"), 0); err != nil {
		t.Fatal(err)
	}

	for i := 1; i <= 3; i++ {
		entry, err := store.Get(ctx, req)
		if err != nil {
			t.Fatal(err)
		}
		if entry.HitCount != int64(i) {
			t.Errorf("Expected hit count %d, got %d", i, entry.HitCount)
		}
	}
}

func TestStore_TTLExpiry(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	req := requestFor("ttl")

	base := time.Now()
	store.now = func() time.Time { return base }

	if err := store.Put(ctx, req, responseFor("short-lived"), time.Hour); err != nil {
		t.Fatal(err)
	}

	// Immediate lookup hits
	if entry, _ := store.Get(ctx, req); entry == nil {
		t.Fatal("Expected hit before expiry")
	}

	// Just before expiry still hits
	store.now = func() time.Time { return base.Add(59 * time.Minute) }
	if entry, _ := store.Get(ctx, req); entry == nil {
		t.Error("Expected hit just before expiry")
	}

	// Past expiry misses
	store.now = func() time.Time { return base.Add(61 * time.Minute) }
	if entry, _ := store.Get(ctx, req); entry != nil {
		t.Error("Expected miss after expiry")
	}
}

func TestStore_ZeroTTLNeverExpires(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	req := requestFor("immortal")

	base := time.Now()
	store.now = func() time.Time { return base }
	if err := store.Put(ctx, req, responseFor("y"), 0); err != nil {
		t.Fatal(err)
	}

	store.now = func() time.Time { return base.Add(10 * 365 * 24 * time.Hour) }
	entry, err := store.Get(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if entry == nil {
		t.Error("Expected ttl=0 entry to never expire")
	}
	if entry != nil && entry.ExpiresAt != nil {
		t.Error("Expected nil ExpiresAt for ttl=0")
	}
}

func TestStore_PutReplacesEntry(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	req := requestFor("replace")

	if err := store.Put(ctx, req, responseFor("first"), 0); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(ctx, req); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ctx, req, responseFor("second"), 0); err != nil {
		t.Fatal(err)
	}

	entry, err := store.Get(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	var body map[string]any
	json.Unmarshal(entry.Body, &body)
	if body["content"] != "second" {
		t.Errorf("Expected last write to win, got %v", body["content"])
	}
	// Replacement starts hit statistics over
	if entry.HitCount != 1 {
		t.Errorf("Expected hit count reset by replacement, got %d", entry.HitCount)
	}
}

func TestStore_PutStripsAnnotations(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	req := requestFor("strip")

	if err := store.Put(ctx, req, responseFor("orig"), 0); err != nil {
		t.Fatal(err)
	}
	hit, err := store.Get(ctx, req)
	if err != nil {
		t.Fatal(err)
	}

	// Re-store the annotated hit body under a different key
	req2 := requestFor("strip-redux")
	if err := store.Put(ctx, req2, hit.Body, 0); err != nil {
		t.Fatal(err)
	}

	entry2, err := store.Get(ctx, req2)
	if err != nil {
		t.Fatal(err)
	}
	var body map[string]any
	json.Unmarshal(entry2.Body, &body)
	if body[annotationKey] != entry2.Key {
		t.Errorf("Expected fresh cacheKey annotation, got %v", body[annotationKey])
	}

	// The two entries held the same semantic content, so content hashes match
	if hit.ContentHash != entry2.ContentHash {
		t.Error("Expected stripped body to hash identically to the original")
	}
}

func TestStore_Invalidate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	req := requestFor("gone")

	if err := store.Put(ctx, req, responseFor("z"), 0); err != nil {
		t.Fatal(err)
	}

	existed, err := store.Invalidate(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if !existed {
		t.Error("Expected first invalidate to report an existing entry")
	}

	existed, err = store.Invalidate(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if existed {
		t.Error("Expected second invalidate to report no entry")
	}
}

func TestStore_CorruptEntryIsMiss(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	req := requestFor("corrupt")

	if err := store.Put(ctx, req, responseFor("fine"), 0); err != nil {
		t.Fatal(err)
	}

	// Corrupt the stored body directly
	key := DeriveKey(req)
	if _, err := store.db.Exec(
		`UPDATE cache_entries SET response_body = ? WHERE key = ?`,
		[]byte("{not json"), key); err != nil {
		t.Fatal(err)
	}

	entry, err := store.Get(ctx, req)
	if err != nil {
		t.Fatalf("Expected miss, not error: %v", err)
	}
	if entry != nil {
		t.Error("Expected corrupt entry to read as miss")
	}

	// The entry is invisible but not proactively deleted
	var count int
	store.db.QueryRow(`SELECT COUNT(*) FROM cache_entries WHERE key = ?`, key).Scan(&count)
	if count != 1 {
		t.Error("Expected corrupt entry to remain in the store")
	}
}

func TestStore_ClearExpired(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now()
	store.now = func() time.Time { return base }

	store.Put(ctx, requestFor("a"), responseFor("a"), time.Hour)
	store.Put(ctx, requestFor("b"), responseFor("b"), 2*time.Hour)
	store.Put(ctx, requestFor("c"), responseFor("c"), 0)

	store.now = func() time.Time { return base.Add(90 * time.Minute) }
	removed, err := store.ClearExpired(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Errorf("Expected 1 expired entry removed, got %d", removed)
	}

	stats, _ := store.Stats(ctx)
	if stats.TotalEntries != 2 {
		t.Errorf("Expected 2 remaining entries, got %d", stats.TotalEntries)
	}
}

func TestStore_ClearProvider(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	openai4o := requestFor("p1")
	mini := requestFor("p2")
	mini.Model = "gpt-4o-mini"
	claude := requestFor("p3")
	claude.Provider = "anthropic"
	claude.Model = "claude-sonnet-4-20250514"

	store.Put(ctx, openai4o, responseFor("1"), 0)
	store.Put(ctx, mini, responseFor("2"), 0)
	store.Put(ctx, claude, responseFor("3"), 0)

	// Narrowed to one model
	removed, err := store.ClearProvider(ctx, "openai", "gpt-4o-mini")
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Errorf("Expected 1 entry removed for openai/gpt-4o-mini, got %d", removed)
	}

	// Whole provider
	removed, err = store.ClearProvider(ctx, "openai", "")
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Errorf("Expected 1 remaining openai entry removed, got %d", removed)
	}

	stats, _ := store.Stats(ctx)
	if stats.TotalEntries != 1 {
		t.Errorf("Expected only the anthropic entry to remain, got %d", stats.TotalEntries)
	}
}

func TestStore_ClearAll(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.Put(ctx, requestFor("x"), responseFor("x"), 0)
	store.Put(ctx, requestFor("y"), responseFor("y"), 0)

	removed, err := store.ClearAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 2 {
		t.Errorf("Expected 2 entries removed, got %d", removed)
	}
}

func TestStore_Stats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now()
	store.now = func() time.Time { return base }

	store.Put(ctx, requestFor("s1"), responseFor("1"), 0)
	store.Put(ctx, requestFor("s2"), responseFor("2"), time.Minute)
	other := requestFor("s3")
	other.Provider = "anthropic"
	store.Put(ctx, other, responseFor("3"), 0)

	// Two hits on s1
	store.Get(ctx, requestFor("s1"))
	store.Get(ctx, requestFor("s1"))

	store.now = func() time.Time { return base.Add(2 * time.Minute) }
	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if stats.TotalEntries != 3 {
		t.Errorf("Expected 3 total entries, got %d", stats.TotalEntries)
	}
	if stats.ExpiredEntries != 1 {
		t.Errorf("Expected 1 expired entry, got %d", stats.ExpiredEntries)
	}
	if stats.ActiveEntries != 2 {
		t.Errorf("Expected 2 active entries, got %d", stats.ActiveEntries)
	}
	if stats.TotalHits != 2 {
		t.Errorf("Expected 2 total hits, got %d", stats.TotalHits)
	}
	wantRate := 2.0 / 3.0
	if stats.HitRate != wantRate {
		t.Errorf("Expected hit rate %.4f, got %.4f", wantRate, stats.HitRate)
	}
	if stats.StorageBytes <= 0 {
		t.Error("Expected positive storage size")
	}
	if stats.Providers["openai"].Entries != 2 || stats.Providers["anthropic"].Entries != 1 {
		t.Errorf("Unexpected provider breakdown %+v", stats.Providers)
	}
}

func TestStore_StatsEmpty(t *testing.T) {
	store := newTestStore(t)

	stats, err := store.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	// hitRate divides by max(totalEntries, 1)
	if stats.HitRate != 0 {
		t.Errorf("Expected zero hit rate for empty store, got %.4f", stats.HitRate)
	}
}

func TestStore_FindSimilar(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Same answer from two different models, a different answer from a third
	gpt := requestFor("dup")
	mini := requestFor("dup")
	mini.Model = "gpt-4o-mini"
	claude := requestFor("dup")
	claude.Provider = "anthropic"

	store.Put(ctx, gpt, responseFor("same answer"), 0)
	store.Put(ctx, mini, responseFor("same answer"), 0)
	store.Put(ctx, claude, responseFor("different answer"), 0)

	// Give the mini entry more hits so ordering is observable
	store.Get(ctx, mini)
	store.Get(ctx, mini)
	store.Get(ctx, gpt)

	hash := DeriveContentHash([]byte(`{"content": "same answer"}`))
	similar, err := store.FindSimilar(ctx, hash, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(similar) != 2 {
		t.Fatalf("Expected 2 similar entries, got %d", len(similar))
	}
	if similar[0].Model != "gpt-4o-mini" {
		t.Errorf("Expected highest hit count first, got %s", similar[0].Model)
	}
	if similar[0].HitCount < similar[1].HitCount {
		t.Error("Expected hit count descending order")
	}
}

func TestStore_CleanupBySize(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now()

	// C: never accessed, created 2 hours ago
	store.now = func() time.Time { return base.Add(-2 * time.Hour) }
	reqC := requestFor("C")
	store.Put(ctx, reqC, responseFor("C"), 0)

	// A: created 2 hours ago, accessed 1 hour ago
	reqA := requestFor("A")
	store.Put(ctx, reqA, responseFor("A"), 0)
	store.now = func() time.Time { return base.Add(-1 * time.Hour) }
	store.Get(ctx, reqA)

	// B: created 2 hours ago, accessed now
	store.now = func() time.Time { return base.Add(-2 * time.Hour) }
	reqB := requestFor("B")
	store.Put(ctx, reqB, responseFor("B"), 0)
	store.now = func() time.Time { return base }
	store.Get(ctx, reqB)

	removed, err := store.CleanupBySize(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Fatalf("Expected exactly 1 entry removed, got %d", removed)
	}

	// C (never accessed, oldest by fallback) is the one evicted
	if entry, _ := store.Get(ctx, reqC); entry != nil {
		t.Error("Expected C to be evicted")
	}
	if entry, _ := store.Get(ctx, reqA); entry == nil {
		t.Error("Expected A to survive")
	}
	if entry, _ := store.Get(ctx, reqB); entry == nil {
		t.Error("Expected B to survive")
	}
}

func TestStore_CleanupBySizeUnderLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.Put(ctx, requestFor("only"), responseFor("1"), 0)

	removed, err := store.CleanupBySize(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 0 {
		t.Errorf("Expected no eviction under the limit, got %d", removed)
	}
}

func TestJanitor_RunOnce(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now()
	store.now = func() time.Time { return base }

	store.Put(ctx, requestFor("j1"), responseFor("1"), time.Minute)
	store.Put(ctx, requestFor("j2"), responseFor("2"), 0)
	store.Put(ctx, requestFor("j3"), responseFor("3"), 0)

	store.now = func() time.Time { return base.Add(time.Hour) }

	janitor := NewJanitor(store, "", 1)
	removed := janitor.RunOnce(ctx)

	// One expired sweep victim plus one size eviction
	if removed != 2 {
		t.Errorf("Expected 2 entries removed, got %d", removed)
	}

	stats, _ := store.Stats(ctx)
	if stats.TotalEntries != 1 {
		t.Errorf("Expected 1 remaining entry, got %d", stats.TotalEntries)
	}
}

func TestJanitor_InvalidSchedule(t *testing.T) {
	store := newTestStore(t)

	janitor := NewJanitor(store, "not a schedule", 0)
	if err := janitor.Start(context.Background()); err == nil {
		t.Error("Expected error for invalid cron schedule")
	}
}

func TestJanitor_EmptyScheduleNoop(t *testing.T) {
	store := newTestStore(t)

	janitor := NewJanitor(store, "", 0)
	if err := janitor.Start(context.Background()); err != nil {
		t.Errorf("Expected empty schedule to be a no-op, got %v", err)
	}
	janitor.Stop()
}
