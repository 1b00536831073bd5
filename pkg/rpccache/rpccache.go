// Package rpccache implements the admission pipeline's response cache: a
// small TTL map from a canonical key to an immutable response snapshot,
// directly modeled on the teacher's own block-cache locking discipline —
// one mutex guarding a map, scaled down from 4MB block buffers to
// opaque response bytes.
//
// The cache is per-process and not shared across replicas; staleness is
// bounded by the per-entry TTL and is an accepted tradeoff, not something
// this package tries to solve with invalidation.
package rpccache

import (
	"sync"
	"time"
)

// entry is an immutable cached response snapshot.
type entry struct {
	value      []byte
	insertedAt time.Time
	ttl        time.Duration
}

func (e *entry) expired(now time.Time) bool {
	return now.After(e.insertedAt.Add(e.ttl))
}

// DefaultTTL is the response cache's default entry lifetime.
const DefaultTTL = 60 * time.Second

// Cache is a canonical-key -> response-snapshot TTL map. The cache key
// never includes caller identity: the same authorization gate must always
// see the same answer, per the admission pipeline's cacheability
// invariant.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry

	defaultTTL time.Duration
}

// New builds an empty Cache. defaultTTL of zero uses DefaultTTL.
func New(defaultTTL time.Duration) *Cache {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &Cache{
		entries:    make(map[string]*entry),
		defaultTTL: defaultTTL,
	}
}

// Get looks up key. A lookup past insertedAt+ttl is treated as a miss and
// the stale entry is dropped lazily.
func (c *Cache) Get(key string) (value []byte, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, found := c.entries[key]
	if !found {
		return nil, false
	}
	if e.expired(time.Now()) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

// Put installs value under key with the cache's default TTL. Concurrent
// writes to the same key are last-writer-wins — the cache is an
// optimization, not a source of truth, so both writers still return
// correct data to their own callers regardless of which write "wins" here.
func (c *Cache) Put(key string, value []byte) {
	c.PutWithTTL(key, value, c.defaultTTL)
}

// PutWithTTL installs value under key with an explicit TTL.
func (c *Cache) PutWithTTL(key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &entry{value: value, insertedAt: time.Now(), ttl: ttl}
}

// Invalidate removes a single key, if present.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len reports the current number of entries, including any not yet lazily
// evicted past their TTL. Exposed for tests and metrics.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
