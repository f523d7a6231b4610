package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

// Options configures a Cache.
type Options struct {
	// Capacity bounds the number of resident entries. Zero or negative
	// means unbounded.
	Capacity int
	// WriteTTL expires an entry a fixed duration after it was stored.
	WriteTTL time.Duration
	// AccessTTL expires an entry after it has gone unread for the
	// duration. Whichever deadline fires first wins.
	AccessTTL time.Duration

	// now overrides the clock in tests.
	now func() time.Time
}

type entry[V any] struct {
	value      V
	writeExp   time.Time
	lastAccess atomic.Int64
}

// Cache is a bounded in-process read cache keyed by comparable K. Reads
// take the read lock only, so concurrent readers never serialize against
// each other. Clear swaps the whole map under the write lock, so a reader
// either sees the pre-clear or post-clear state, never a partial one.
type Cache[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]*entry[V]
	opts    Options
	now     func() time.Time
}

// New builds an empty cache with the provided options.
func New[K comparable, V any](opts Options) *Cache[K, V] {
	now := opts.now
	if now == nil {
		now = time.Now
	}
	return &Cache[K, V]{
		entries: make(map[K]*entry[V]),
		opts:    opts,
		now:     now,
	}
}

// Get returns the cached value for key and refreshes its access time.
// Expired entries are treated as absent and lazily removed.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	now := c.now()

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		var zero V
		return zero, false
	}

	if c.expired(e, now) {
		c.mu.Lock()
		if cur, ok := c.entries[key]; ok && cur == e {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		var zero V
		return zero, false
	}

	e.lastAccess.Store(now.UnixNano())
	return e.value, true
}

// Set stores value under key, evicting expired entries first and then the
// least recently accessed entry if the cache is still at capacity.
func (c *Cache[K, V]) Set(key K, value V) {
	now := c.now()
	e := &entry[V]{value: value}
	if c.opts.WriteTTL > 0 {
		e.writeExp = now.Add(c.opts.WriteTTL)
	}
	e.lastAccess.Store(now.UnixNano())

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && c.opts.Capacity > 0 && len(c.entries) >= c.opts.Capacity {
		c.evictLocked(now)
	}
	c.entries[key] = e
}

// Clear atomically discards every entry.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	c.entries = make(map[K]*entry[V])
	c.mu.Unlock()
}

// Len reports the number of resident entries, expired ones included.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache[K, V]) expired(e *entry[V], now time.Time) bool {
	if !e.writeExp.IsZero() && now.After(e.writeExp) {
		return true
	}
	if c.opts.AccessTTL > 0 {
		last := time.Unix(0, e.lastAccess.Load())
		if now.Sub(last) > c.opts.AccessTTL {
			return true
		}
	}
	return false
}

// evictLocked drops all expired entries; if nothing expired it drops the
// least recently accessed entry to make room. Caller holds the write lock.
func (c *Cache[K, V]) evictLocked(now time.Time) {
	removed := false
	for k, e := range c.entries {
		if c.expired(e, now) {
			delete(c.entries, k)
			removed = true
		}
	}
	if removed {
		return
	}

	var (
		oldestKey K
		oldest    int64
		found     bool
	)
	for k, e := range c.entries {
		last := e.lastAccess.Load()
		if !found || last < oldest {
			oldestKey = k
			oldest = last
			found = true
		}
	}
	if found {
		delete(c.entries, oldestKey)
	}
}
