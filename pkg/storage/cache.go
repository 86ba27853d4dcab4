package storage

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// Cache is an in-memory TTL cache for expensive backend calls (listings,
// vector-store lookups). Expired entries are swept lazily during reads, at
// most once per sweepInterval.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]cacheEntry
	defaultTTL time.Duration
	hits       int64
	misses     int64
	lastSweep  time.Time
}

type cacheEntry struct {
	value   any
	expires time.Time
}

const sweepInterval = 5 * time.Minute

// NewCache returns a cache whose Set calls without an explicit TTL use
// defaultTTL.
func NewCache(defaultTTL time.Duration) *Cache {
	return &Cache{
		entries:    map[string]cacheEntry{},
		defaultTTL: defaultTTL,
		lastSweep:  time.Now(),
	}
}

// Get returns the cached value, or nil and false on a miss or expiry.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	if now.Sub(c.lastSweep) > sweepInterval {
		c.sweepLocked(now)
	}
	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if now.After(e.expires) {
		delete(c.entries, key)
		c.misses++
		return nil, false
	}
	c.hits++
	return e.value, true
}

// Set stores a value for the default TTL.
func (c *Cache) Set(key string, value any) {
	c.SetTTL(key, value, c.defaultTTL)
}

// SetTTL stores a value with an explicit lifetime.
func (c *Cache) SetTTL(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{value: value, expires: time.Now().Add(ttl)}
	c.mu.Unlock()
}

// Invalidate drops a single key.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear drops everything.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = map[string]cacheEntry{}
	c.mu.Unlock()
}

func (c *Cache) sweepLocked(now time.Time) {
	for k, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, k)
		}
	}
	c.lastSweep = now
}

// CacheStats is a point-in-time snapshot of cache effectiveness.
type CacheStats struct {
	Entries       int    `json:"total_entries"`
	Hits          int64  `json:"hits"`
	Misses        int64  `json:"misses"`
	HitRate       string `json:"hit_rate"`
	TotalRequests int64  `json:"total_requests"`
}

func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := c.hits + c.misses
	rate := 0.0
	if total > 0 {
		rate = float64(c.hits) / float64(total)
	}
	return CacheStats{
		Entries:       len(c.entries),
		Hits:          c.hits,
		Misses:        c.misses,
		HitRate:       fmt.Sprintf("%.2f%%", rate*100),
		TotalRequests: total,
	}
}

// ListKey builds the cache key for a directory listing request.
func ListKey(dir, sortBy, sortOrder string) string {
	return fmt.Sprintf("file_list:%s:%s:%s", dir, sortBy, sortOrder)
}

// VectorStoreKey builds the cache key for a folder's vector store, hashed so
// arbitrary folder paths stay key-safe.
func VectorStoreKey(folder string) string {
	sum := md5.Sum([]byte(folder))
	return "vector_store:" + hex.EncodeToString(sum[:])
}
