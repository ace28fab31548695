// cache/memory_cache.go
package cache

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryCache is an in-process cache backend. It serves the memory storage
// driver and the test suite; expiry is checked lazily on read, there is no
// background sweep.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

var _ Cache = (*MemoryCache)(nil)

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string, dest any) bool {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return false
	}

	if entry.expired(c.now()) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return false
	}

	return json.Unmarshal(entry.data, dest) == nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value any, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.now().Add(ttl)
	}

	c.mu.Lock()
	c.entries[key] = &memoryEntry{data: data, expiresAt: expiresAt}
	c.mu.Unlock()
}

func (c *MemoryCache) Delete(_ context.Context, keys ...string) {
	c.mu.Lock()
	for _, key := range keys {
		delete(c.entries, key)
	}
	c.mu.Unlock()
}

func (c *MemoryCache) DeleteByPattern(_ context.Context, pattern string) {
	prefix := strings.TrimSuffix(pattern, "*")

	c.mu.Lock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
}

func (c *MemoryCache) Exists(_ context.Context, key string) bool {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return false
	}
	if entry.expired(c.now()) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return false
	}
	return true
}
