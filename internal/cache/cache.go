// Package cache provides the bounded lookup cache for resolved reverse
// names: a TTL-aware LRU mapping from IPv4 address to domain name.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// Default cache parameters.
const (
	DefaultTTL        = 300 * time.Second
	DefaultMaxEntries = 100
	DefaultSweepEvery = 60 * time.Second
)

// entry holds a cached domain with its insertion time and LRU position.
type entry struct {
	key      string
	domain   string
	storedAt time.Time
	elem     *list.Element
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Entries   int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// LookupCache is a mutex-serialized, bounded TTL+LRU cache.
//
// Entries become stale once now-storedAt reaches the TTL and are then
// never returned, whether or not a sweep has removed them yet. Sweeps run
// opportunistically from Retrieve and Add, at most once per sweep
// interval; there is no background timer. Capacity eviction removes the
// least-recently-inserted-or-touched entry first.
type LookupCache struct {
	mu sync.Mutex

	ttl        time.Duration
	maxEntries int
	sweepEvery time.Duration
	lastSweep  time.Time

	order   *list.List        // front = least recently used
	entries map[string]*entry // key -> entry

	hits      uint64
	misses    uint64
	evictions uint64

	now func() time.Time // clock, replaceable in tests
}

// New creates a LookupCache. Non-positive parameters fall back to the
// package defaults.
func New(ttl time.Duration, maxEntries int, sweepEvery time.Duration) *LookupCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if sweepEvery <= 0 {
		sweepEvery = DefaultSweepEvery
	}
	c := &LookupCache{
		ttl:        ttl,
		maxEntries: maxEntries,
		sweepEvery: sweepEvery,
		order:      list.New(),
		entries:    map[string]*entry{},
		now:        time.Now,
	}
	c.lastSweep = c.now()
	return c
}

// Retrieve returns the cached domain for key if present and not stale.
// A hit refreshes the entry's LRU position. Stale entries are left for
// the next sweep; staleness is always re-checked here because a sweep may
// have been skipped on this call.
func (c *LookupCache) Retrieve(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.maybeSweep(now)

	e := c.entries[key]
	if e == nil || now.Sub(e.storedAt) >= c.ttl {
		c.misses++
		return "", false
	}

	c.order.MoveToBack(e.elem)
	c.hits++
	return e.domain, true
}

// Add stores domain under key as the most-recently-used entry. An existing
// entry for key is replaced, refreshing its recency and insertion time.
// If the cache is at capacity, least-recently-used entries are evicted
// until there is room; the size never exceeds the maximum afterwards.
func (c *LookupCache) Add(key, domain string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.maybeSweep(now)

	if existing := c.entries[key]; existing != nil {
		c.order.Remove(existing.elem)
		delete(c.entries, key)
	} else {
		for len(c.entries) >= c.maxEntries {
			c.evictOldestLocked()
		}
	}

	e := &entry{key: key, domain: domain, storedAt: now}
	e.elem = c.order.PushBack(key)
	c.entries[key] = e
}

// Len returns the number of entries currently held, stale or not.
func (c *LookupCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Snapshot returns the current cache statistics.
func (c *LookupCache) Snapshot() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Entries:   len(c.entries),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

// maybeSweep runs an eviction sweep if at least the sweep interval has
// passed since the previous one. Caller must hold mu.
func (c *LookupCache) maybeSweep(now time.Time) {
	if now.Sub(c.lastSweep) <= c.sweepEvery {
		return
	}
	c.lastSweep = now

	// Time-based pass: drop every stale entry regardless of position.
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		key := el.Value.(string)
		if e := c.entries[key]; e != nil && now.Sub(e.storedAt) >= c.ttl {
			c.order.Remove(el)
			delete(c.entries, key)
			c.evictions++
		}
		el = next
	}

	// Size-based pass: trim from the least-recently-used end.
	for len(c.entries) > c.maxEntries {
		c.evictOldestLocked()
	}
}

// evictOldestLocked removes the entry at the LRU front. Caller must hold mu.
func (c *LookupCache) evictOldestLocked() {
	front := c.order.Front()
	if front == nil {
		return
	}
	key := front.Value.(string)
	c.order.Remove(front)
	delete(c.entries, key)
	c.evictions++
}
