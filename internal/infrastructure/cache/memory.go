package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"archie-core-shopee-layer/internal/ports"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache is an in-process ResponseCache. Entries are evicted
// lazily on read; no background sweeper.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache creates an empty in-memory response cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get returns the cached value if present and unexpired.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have
		// replaced the entry.
		if current, ok := c.entries[key]; ok && c.now().After(current.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	// Hand out a copy; callers may mutate what they get back.
	value := make([]byte, len(entry.value))
	copy(value, entry.value)
	return value, true
}

// Set stores value under key for ttl.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[key] = memoryEntry{value: value, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
}

// Invalidate removes the key and every key it prefixes.
func (c *MemoryCache) Invalidate(_ context.Context, prefix string) {
	c.mu.Lock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
}

var _ ports.ResponseCache = (*MemoryCache)(nil)
