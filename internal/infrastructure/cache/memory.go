package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is a thread-safe TTL set of message keys. The monitor marks
// every processed message here so a history scan overlapping the live feed
// does not notify twice. Only the expiration is stored per key; membership
// is the whole payload.
type MemoryCache struct {
	mu      sync.RWMutex
	expires map[string]time.Time
}

// NewMemoryCache creates the dedupe set and starts its cleanup loop
func NewMemoryCache() *MemoryCache {
	c := &MemoryCache{
		expires: make(map[string]time.Time),
	}

	// Expired keys are skipped on read; the sweep every 10 minutes just keeps
	// the map from growing unbounded on a busy channel.
	go c.sweep()

	return c
}

// Set marks a key as seen for the given TTL, extending it if already present
func (c *MemoryCache) Set(ctx context.Context, key string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.expires[key] = time.Now().Add(ttl)
	return nil
}

// Exists reports whether the key was marked and has not yet expired
func (c *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	exp, ok := c.expires[key]
	if !ok || time.Now().After(exp) {
		return false, nil
	}
	return true, nil
}

func (c *MemoryCache) sweep() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		now := time.Now()
		for key, exp := range c.expires {
			if now.After(exp) {
				delete(c.expires, key)
			}
		}
		c.mu.Unlock()
	}
}
