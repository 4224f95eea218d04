// package cache provides time-bounded memoization for idempotent catalog
// reads. Each instance carries a fixed TTL; entries expire lazily on Get, and
// there is no size bound or background sweep.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a concurrency-safe TTL cache. Distinct kinds of data (song search,
// single song, playlist search, ...) get their own instances with their own
// TTLs rather than sharing one namespace.
type Cache[V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry[V]
	now     func() time.Time
}

// New creates a Cache whose entries live for ttl after each Set.
func New[V any](ttl time.Duration) *Cache[V] {
	return &Cache[V]{
		ttl:     ttl,
		entries: make(map[string]entry[V]),
		now:     time.Now,
	}
}

// Get returns the stored value for key if present and not yet expired.
// An expired entry is evicted and reported as a miss.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}

	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		var zero V
		return zero, false
	}

	return e.value, true
}

// Set stores value under key, resetting its expiry to now + TTL.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry[V]{value: value, expiresAt: c.now().Add(c.ttl)}
}

// Clear discards every entry.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]entry[V])
}

// Size returns the number of stored entries, counting entries that have
// expired but not yet been evicted.
func (c *Cache[V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}
