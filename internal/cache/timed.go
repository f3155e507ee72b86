// Package cache provides a small TTL-keyed memoization store. Each consumer
// owns its own instance so TTL policies never collide: the header cache is
// keyed by stable message ids with a long TTL, the query cache by a fuzzy
// fingerprint with a short one.
package cache

import (
	"sync"
	"time"
)

// Clock returns the current time. Injectable for tests.
type Clock func() time.Time

type entry[V any] struct {
	value    V
	storedAt time.Time
	ttl      time.Duration
}

// TimedCache maps string keys to values with per-entry expiry. An entry is
// visible while now-storedAt <= ttl and treated as absent afterwards; the
// boundary convention is uniform across all instances. Expired entries are
// evicted lazily on the next Get, there is no background sweeper and no
// size bound.
type TimedCache[V any] struct {
	mu      sync.Mutex
	entries map[string]entry[V]
	now     Clock
}

// New creates a cache using the wall clock.
func New[V any]() *TimedCache[V] {
	return NewWithClock[V](time.Now)
}

// NewWithClock creates a cache with an injected clock.
func NewWithClock[V any](now Clock) *TimedCache[V] {
	return &TimedCache[V]{
		entries: make(map[string]entry[V]),
		now:     now,
	}
}

// Set stores a value under key, overwriting any prior entry.
func (c *TimedCache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry[V]{value: value, storedAt: c.now(), ttl: ttl}
}

// Get returns the stored value for key if it has not expired. A stale entry
// is removed as a side effect and reported as absent.
func (c *TimedCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.now().Sub(e.storedAt) > e.ttl {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Len reports the number of entries currently held, including any that have
// expired but not yet been evicted.
func (c *TimedCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
