package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/lborres/webpro/core"
)

const (
	defaultTTL     = 5 * time.Minute
	defaultMaxSize = 500
)

// InMemoryCache is a TTL cache with a size bound. Values are returned as
// stored; callers that share pointers must not mutate them.
type InMemoryCache[V any] struct {
	cache   map[string]*cachedRecord[V]
	mu      sync.RWMutex
	ttl     time.Duration
	maxSize int
	now     func() time.Time

	// counters
	hits      int64
	misses    int64
	sets      int64
	deletes   int64
	evictions int64
}

type cachedRecord[V any] struct {
	value    V
	cachedAt time.Time
}

// NewInMemoryCache creates a new in-memory cache
func NewInMemoryCache[V any](c core.CacheConfig) *InMemoryCache[V] {
	if c.TTL == 0 {
		c.TTL = defaultTTL
	}
	if c.MaxSize == 0 {
		c.MaxSize = defaultMaxSize
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}

	return &InMemoryCache[V]{
		cache:   make(map[string]*cachedRecord[V]),
		ttl:     c.TTL,
		maxSize: c.MaxSize,
		now:     c.Clock,
	}
}

// Get retrieves a value from cache. Expired entries are removed and
// reported as ErrCacheNotFound.
func (c *InMemoryCache[V]) Get(key string) (V, error) {
	var zero V

	c.mu.RLock()
	record, exists := c.cache[key]
	c.mu.RUnlock()

	if !exists {
		atomic.AddInt64(&c.misses, 1)
		return zero, core.ErrCacheNotFound
	}

	if c.now().Sub(record.cachedAt) > c.ttl {
		atomic.AddInt64(&c.misses, 1)

		c.mu.Lock()
		// only drop the entry we looked at; a concurrent Set may have replaced it
		if current, ok := c.cache[key]; ok && current == record {
			delete(c.cache, key)
			atomic.AddInt64(&c.evictions, 1)
		}
		c.mu.Unlock()

		return zero, core.ErrCacheNotFound
	}

	atomic.AddInt64(&c.hits, 1)
	return record.value, nil
}

// Set stores a value in cache
func (c *InMemoryCache[V]) Set(key string, value V) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Simple eviction if full
	if _, replacing := c.cache[key]; !replacing && len(c.cache) >= c.maxSize {
		for k := range c.cache {
			delete(c.cache, k)
			atomic.AddInt64(&c.evictions, 1)
			break
		}
	}

	c.cache[key] = &cachedRecord[V]{
		value:    value,
		cachedAt: c.now(),
	}

	atomic.AddInt64(&c.sets, 1)
	return nil
}

// Delete removes a value from cache
func (c *InMemoryCache[V]) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, existed := c.cache[key]; existed {
		delete(c.cache, key)
		atomic.AddInt64(&c.deletes, 1)
	}
	return nil
}

// Clear removes all values from cache
func (c *InMemoryCache[V]) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]*cachedRecord[V])
	return nil
}

// Len returns the number of cached values
func (c *InMemoryCache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// Stats returns cache statistics
func (c *InMemoryCache[V]) Stats() core.CacheStats {
	return core.CacheStats{
		Hits:      atomic.LoadInt64(&c.hits),
		Misses:    atomic.LoadInt64(&c.misses),
		Sets:      atomic.LoadInt64(&c.sets),
		Deletes:   atomic.LoadInt64(&c.deletes),
		Evictions: atomic.LoadInt64(&c.evictions),
		Size:      c.Len(),
		TTL:       c.ttl,
	}
}
