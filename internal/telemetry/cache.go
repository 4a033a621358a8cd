package telemetry

import (
	"context"
	"sync"
	"time"
)

// DefaultTTL matches the refresh cadence of the slowest consumer: a value
// younger than this is considered fresh for every view.
const DefaultTTL = 5 * time.Second

// Cache is a keyed TTL cache with request coalescing. Within one TTL
// window at most one acquisition runs per key: concurrent getters for a
// key with an acquisition in flight block until it completes and share
// its result. Failed acquisitions are not cached, so the next get retries.
type Cache[V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]*cacheEntry[V]

	// now is swappable for tests.
	now func() time.Time
}

type cacheEntry[V any] struct {
	value     V
	err       error
	fetchedAt time.Time

	// pending is non-nil while an acquisition is in flight and is closed
	// when it completes.
	pending chan struct{}
}

// NewCache creates a cache with the given TTL (DefaultTTL when zero).
func NewCache[V any](ttl time.Duration) *Cache[V] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache[V]{
		ttl:     ttl,
		entries: make(map[string]*cacheEntry[V]),
		now:     time.Now,
	}
}

// Get returns the cached value for key, running acquire when the entry is
// missing or older than the TTL. Concurrent calls for the same key share
// a single acquisition.
func (c *Cache[V]) Get(ctx context.Context, key string, acquire func(context.Context) (V, error)) (V, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok && e.pending == nil && c.now().Sub(e.fetchedAt) < c.ttl {
		value, err := e.value, e.err
		c.mu.Unlock()
		return value, err
	}
	if ok && e.pending != nil {
		pending := e.pending
		c.mu.Unlock()
		select {
		case <-pending:
			// Share the in-flight acquisition's outcome, error
			// included: the attempt a waiter joined is the one
			// attempt it gets.
			c.mu.Lock()
			value, err := e.value, e.err
			c.mu.Unlock()
			return value, err
		case <-ctx.Done():
			var zero V
			return zero, ctx.Err()
		}
	}

	// Entry missing or expired: this caller acquires.
	e = &cacheEntry[V]{pending: make(chan struct{})}
	c.entries[key] = e
	c.mu.Unlock()

	value, err := acquire(ctx)

	c.mu.Lock()
	e.value, e.err = value, err
	e.fetchedAt = c.now()
	close(e.pending)
	e.pending = nil
	if err != nil {
		// Failures are handed to already-queued waiters through the
		// entry but never cached, so the next Get starts fresh.
		delete(c.entries, key)
	}
	c.mu.Unlock()
	return value, err
}

// Forget drops the entry for key so the next Get acquires fresh data.
// An acquisition already in flight is left to finish; its result lands in
// the cache as usual.
func (c *Cache[V]) Forget(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok && e.pending == nil {
		delete(c.entries, key)
	}
}

// ForgetAll clears every settled entry.
func (c *Cache[V]) ForgetAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if e.pending == nil {
			delete(c.entries, key)
		}
	}
}

// Peek returns the cached value without triggering an acquisition, even
// when the entry is expired. ok is false when no settled value exists.
func (c *Cache[V]) Peek(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok && e.pending == nil && e.err == nil {
		return e.value, true
	}
	var zero V
	return zero, false
}
