package diagnosis

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"

	"github.com/medassist/symptomcheck/internal/shared/config"
	"github.com/medassist/symptomcheck/internal/shared/metrics"
)

// Cache is a fixed-capacity TTL cache mapping fingerprints to prior
// diagnosis responses. Entries expire lazily on read; when the capacity is
// exceeded the least recently used entry is evicted first. Hit/miss
// counters are advisory and delegated to the metrics sink.
type Cache struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	entries  map[string]*list.Element
	order    *list.List // front = most recently used

	hits   atomic.Int64
	misses atomic.Int64

	now func() time.Time
}

type cacheEntry struct {
	key       string
	value     *DiagnosisResponse
	expiresAt time.Time
}

// CacheStats is an advisory snapshot of cache performance.
type CacheStats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

// NewCache creates a cache with the configured TTL and capacity.
func NewCache(cfg config.CacheConfig) *Cache {
	return &Cache{
		ttl:      cfg.TTL,
		capacity: cfg.Capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		now:      time.Now,
	}
}

// Get returns the cached response for key, if present and unexpired.
func (c *Cache) Get(key string) (*DiagnosisResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		c.miss()
		return nil, false
	}

	entry := elem.Value.(*cacheEntry)
	if c.now().After(entry.expiresAt) {
		c.order.Remove(elem)
		delete(c.entries, key)
		c.miss()
		return nil, false
	}

	c.order.MoveToFront(elem)
	c.hits.Add(1)
	metrics.RecordCacheHit()
	return entry.value, true
}

// Set stores a response under key with the configured TTL, evicting the
// least recently used entry when the capacity is exceeded.
func (c *Cache) Set(key string, value *DiagnosisResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.value = value
		entry.expiresAt = c.now().Add(c.ttl)
		c.order.MoveToFront(elem)
		return
	}

	elem := c.order.PushFront(&cacheEntry{
		key:       key,
		value:     value,
		expiresAt: c.now().Add(c.ttl),
	})
	c.entries[key] = elem

	for c.capacity > 0 && c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
}

// Miss counts a request that bypassed lookup (an addendum was supplied)
// toward the miss rate.
func (c *Cache) Miss() {
	c.miss()
}

func (c *Cache) miss() {
	c.misses.Add(1)
	metrics.RecordCacheMiss()
}

// Stats returns an advisory snapshot of the counters.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	entries := c.order.Len()
	c.mu.Unlock()

	return CacheStats{
		Entries: entries,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
}
