package valuation

import (
	"sync"
	"time"

	"domusreport/server/internal/models"
)

type cacheEntry struct {
	result    models.ValuationResult
	timestamp time.Time
}

// ResultCache holds computed valuations keyed by their input. Entries older
// than the TTL are never returned. Concurrent writers for the same key race
// last-write-wins, which is fine because identical inputs produce identical
// results.
type ResultCache struct {
	ttl        time.Duration
	maxEntries int

	mu      sync.RWMutex
	entries map[string]cacheEntry

	now func() time.Time
}

// NewResultCache creates a cache with the given TTL and the entry count
// past which Set prunes expired entries.
func NewResultCache(ttl time.Duration, maxEntries int) *ResultCache {
	return &ResultCache{
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]cacheEntry),
		now:        time.Now,
	}
}

// Get returns the cached result for key if it is still fresh.
func (c *ResultCache) Get(key string) (models.ValuationResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		return models.ValuationResult{}, false
	}
	if c.now().Sub(entry.timestamp) >= c.ttl {
		return models.ValuationResult{}, false
	}
	return entry.result, true
}

// Set stores a result, opportunistically pruning expired entries once the
// cache grows past its size threshold.
func (c *ResultCache) Set(key string, result models.ValuationResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxEntries {
		c.prune()
	}
	c.entries[key] = cacheEntry{result: result, timestamp: c.now()}
}

// Len returns the current number of entries.
func (c *ResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// prune removes expired entries. Caller must hold the write lock.
func (c *ResultCache) prune() {
	cutoff := c.now().Add(-c.ttl)
	for key, entry := range c.entries {
		if entry.timestamp.Before(cutoff) {
			delete(c.entries, key)
		}
	}
}
