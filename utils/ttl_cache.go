package utils

import (
	"sync"
	"time"
)

type cacheEntry struct {
	value     string
	expiresAt time.Time
}

// TTLCache is a bounded, expiring string cache. It replaces ad-hoc global
// maps: it is constructed explicitly and injected into whatever needs it,
// so tests can swap or reset it.
type TTLCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

// NewTTLCache creates a cache holding at most maxSize entries, each valid
// for ttl after insertion. A maxSize of zero or less disables bounding.
func NewTTLCache(maxSize int, ttl time.Duration) *TTLCache {
	return &TTLCache{
		entries: make(map[string]cacheEntry),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached value for key, or ("", false) if absent or expired.
func (c *TTLCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if !entry.expiresAt.After(c.now()) {
		delete(c.entries, key)
		return "", false
	}
	return entry.value, true
}

// Set stores value under key. When the cache is full, expired entries are
// evicted first; if it is still full, one arbitrary entry is dropped so
// the cache never grows beyond maxSize.
func (c *TTLCache) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists && c.maxSize > 0 && len(c.entries) >= c.maxSize {
		c.evictLocked()
	}
	c.entries[key] = cacheEntry{value: value, expiresAt: c.now().Add(c.ttl)}
}

// Len reports the number of entries currently held, expired or not.
func (c *TTLCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Reset drops every entry.
func (c *TTLCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

func (c *TTLCache) evictLocked() {
	now := c.now()
	for k, e := range c.entries {
		if !e.expiresAt.After(now) {
			delete(c.entries, k)
		}
	}
	if len(c.entries) < c.maxSize {
		return
	}
	for k := range c.entries {
		delete(c.entries, k)
		return
	}
}
