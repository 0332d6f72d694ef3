package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is an in-process Cache bounded by entry count
type MemoryCache struct {
	cache   map[string]*cacheEntry
	mu      sync.RWMutex
	maxSize int
	hits    int64
	misses  int64
	now     func() time.Time
}

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCacheConfig configures the memory cache
type MemoryCacheConfig struct {
	MaxSize int
}

// DefaultMemoryCacheConfig returns sensible defaults
func DefaultMemoryCacheConfig() MemoryCacheConfig {
	return MemoryCacheConfig{
		MaxSize: 1000,
	}
}

// NewMemoryCache creates a new memory cache
func NewMemoryCache(config MemoryCacheConfig) *MemoryCache {
	if config.MaxSize < 1 {
		config.MaxSize = DefaultMemoryCacheConfig().MaxSize
	}
	return &MemoryCache{
		cache:   make(map[string]*cacheEntry),
		maxSize: config.MaxSize,
		now:     time.Now,
	}
}

func (c *MemoryCache) Name() string { return "memory" }

func (c *MemoryCache) Ping(context.Context) error { return nil }

func (c *MemoryCache) Fetch(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	entry, exists := c.cache[key]
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if exists && c.now().Before(entry.expiresAt) {
		c.hits++
		return entry.value, true, nil
	}
	if exists {
		delete(c.cache, key)
	}
	c.misses++
	return nil, false, nil
}

func (c *MemoryCache) Store(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.cache[key]; !exists && len(c.cache) >= c.maxSize {
		c.evictHalf()
	}

	c.cache[key] = &cacheEntry{
		value:     value,
		expiresAt: c.now().Add(ttl),
	}
	return nil
}

// evictHalf drops expired entries, then half of what remains (must be called with lock held)
func (c *MemoryCache) evictHalf() {
	now := c.now()
	for key, entry := range c.cache {
		if !now.Before(entry.expiresAt) {
			delete(c.cache, key)
		}
	}
	if len(c.cache) < c.maxSize {
		return
	}

	count := 0
	target := max(len(c.cache)/2, 1)
	for key := range c.cache {
		delete(c.cache, key)
		count++
		if count >= target {
			break
		}
	}
}

// Clear removes all entries from the cache
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	c.cache = make(map[string]*cacheEntry)
	c.mu.Unlock()
}

// Stats is a snapshot of cache counters
type Stats struct {
	Size   int
	Hits   int64
	Misses int64
}

func (c *MemoryCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Size:   len(c.cache),
		Hits:   c.hits,
		Misses: c.misses,
	}
}
