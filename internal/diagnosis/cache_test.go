package diagnosis

import (
	"fmt"
	"testing"
	"time"

	"github.com/medassist/symptomcheck/internal/shared/config"
)

func newTestCache(ttl time.Duration, capacity int) *Cache {
	return NewCache(config.CacheConfig{TTL: ttl, Capacity: capacity})
}

// TestCacheSetGet tests basic storage and retrieval
func TestCacheSetGet(t *testing.T) {
	c := newTestCache(time.Hour, 10)

	resp := &DiagnosisResponse{Summary: "test"}
	c.Set("key1", resp)

	got, ok := c.Get("key1")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.Summary != "test" {
		t.Errorf("expected summary 'test', got %q", got.Summary)
	}

	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss for unknown key")
	}
}

// TestCacheTTLExpiry tests that entries become unreadable past TTL
func TestCacheTTLExpiry(t *testing.T) {
	c := newTestCache(time.Hour, 10)

	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set("key1", &DiagnosisResponse{Summary: "fresh"})

	if _, ok := c.Get("key1"); !ok {
		t.Fatal("expected hit before expiry")
	}

	// Advance past TTL; the entry is dropped lazily on read.
	c.now = func() time.Time { return now.Add(time.Hour + time.Minute) }

	if _, ok := c.Get("key1"); ok {
		t.Error("expected miss after TTL expiry")
	}
	if c.Stats().Entries != 0 {
		t.Errorf("expired entry should be removed, have %d entries", c.Stats().Entries)
	}
}

// TestCacheLRUEviction tests capacity-bounded eviction
func TestCacheLRUEviction(t *testing.T) {
	c := newTestCache(time.Hour, 3)

	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("key%d", i), &DiagnosisResponse{Summary: fmt.Sprintf("v%d", i)})
	}

	// Touch key0 so key1 becomes least recently used.
	if _, ok := c.Get("key0"); !ok {
		t.Fatal("expected hit for key0")
	}

	c.Set("key3", &DiagnosisResponse{Summary: "v3"})

	if _, ok := c.Get("key1"); ok {
		t.Error("expected key1 to be evicted as least recently used")
	}
	if _, ok := c.Get("key0"); !ok {
		t.Error("recently used key0 should survive eviction")
	}
	if _, ok := c.Get("key3"); !ok {
		t.Error("newest key3 should be present")
	}
	if got := c.Stats().Entries; got != 3 {
		t.Errorf("expected 3 entries at capacity, got %d", got)
	}
}

// TestCacheStats tests the advisory hit/miss counters
func TestCacheStats(t *testing.T) {
	c := newTestCache(time.Hour, 10)

	c.Set("key1", &DiagnosisResponse{Summary: "v"})
	c.Get("key1")
	c.Get("key1")
	c.Get("absent")
	c.Miss()

	stats := c.Stats()
	if stats.Hits != 2 {
		t.Errorf("expected 2 hits, got %d", stats.Hits)
	}
	if stats.Misses != 2 {
		t.Errorf("expected 2 misses, got %d", stats.Misses)
	}
}

// TestCacheSetOverwrite tests that re-setting a key refreshes it
func TestCacheSetOverwrite(t *testing.T) {
	c := newTestCache(time.Hour, 10)

	c.Set("key1", &DiagnosisResponse{Summary: "old"})
	c.Set("key1", &DiagnosisResponse{Summary: "new"})

	got, ok := c.Get("key1")
	if !ok {
		t.Fatal("expected hit")
	}
	if got.Summary != "new" {
		t.Errorf("expected overwritten value, got %q", got.Summary)
	}
	if c.Stats().Entries != 1 {
		t.Errorf("overwrite should not duplicate the entry, have %d", c.Stats().Entries)
	}
}
