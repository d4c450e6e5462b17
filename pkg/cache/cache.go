// Package cache provides thread-safe TTL caching plus durable JSON
// snapshots used for crash-recovery checkpoints.
package cache

import (
	"sync"
	"time"
)

// cleanupInterval is how often expired entries are swept from memory.
const cleanupInterval = 5 * time.Minute

// entry holds a cached value with its expiration.
type entry struct {
	expiration time.Time
	value      any
}

// Cache provides a thread-safe in-memory cache with per-entry TTL. The
// transport client uses it to avoid re-fetching pages it already holds
// when a run is restarted within the TTL.
type Cache struct {
	entries map[string]entry
	ttl     time.Duration
	mu      sync.RWMutex
}

// New creates a cache with the given default TTL and starts the background
// sweep of expired entries.
func New(ttl time.Duration) *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
	}
	go c.cleanupExpired()
	return c
}

// Get retrieves a value if present and not expired.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if time.Now().After(e.expiration) {
		c.mu.Lock()
		// Re-check under the write lock; another goroutine may have
		// replaced the entry in the meantime.
		if cur, ok := c.entries[key]; ok && time.Now().After(cur.expiration) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return e.value, true
}

// Set stores a value with the default TTL.
func (c *Cache) Set(key string, value any) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores a value with a custom TTL.
func (c *Cache) SetWithTTL(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{
		value:      value,
		expiration: time.Now().Add(ttl),
	}
}

// Len reports the number of live entries, expired ones included until the
// next sweep.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// cleanupExpired periodically removes expired entries.
func (c *Cache) cleanupExpired() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		c.mu.Lock()
		for key, e := range c.entries {
			if now.After(e.expiration) {
				delete(c.entries, key)
			}
		}
		c.mu.Unlock()
	}
}
