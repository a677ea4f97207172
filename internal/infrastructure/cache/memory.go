package cache

import (
	"context"
	"sync"
	"time"

	"github.com/mpr131/whiskey-inventory-app-sub000/internal/domain"
)

const defaultSweepInterval = 10 * time.Minute

// cacheItem is one cached value with its expiry
type cacheItem struct {
	value      interface{}
	expiration time.Time
}

// Stats reports cache effectiveness
type Stats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

// MemoryCache is a thread-safe in-memory TTL cache. The resolver uses it to remember
// which canonical entry a group key resolved to so repeated imports of the same
// bottle skip candidate generation. When maxEntries is reached the entry closest
// to expiry is evicted.
type MemoryCache struct {
	data       map[string]cacheItem
	mutex      sync.RWMutex
	maxEntries int
	hits       int64
	misses     int64
	now        func() time.Time
	stop       chan struct{}
	stopOnce   sync.Once
}

// NewMemoryCache creates a cache holding at most maxEntries items (0 means
// unbounded) and starts its expiry sweeper. Call Close to stop the sweeper.
func NewMemoryCache(maxEntries int) *MemoryCache {
	cache := &MemoryCache{
		data:       make(map[string]cacheItem),
		maxEntries: maxEntries,
		now:        time.Now,
		stop:       make(chan struct{}),
	}
	go cache.sweep(defaultSweepInterval)
	return cache
}

// Get retrieves a value from the cache
func (c *MemoryCache) Get(ctx context.Context, key string) (interface{}, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	item, exists := c.data[key]
	if !exists || c.now().After(item.expiration) {
		c.misses++
		return nil, domain.ErrCacheMiss
	}
	c.hits++
	return item.value, nil
}

// Set stores a value in the cache with TTL
func (c *MemoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if key == "" {
		return domain.NewValidationError("key", "cache key is empty")
	}
	if ttl <= 0 {
		return domain.NewValidationError("ttl", "must be positive")
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, exists := c.data[key]; !exists && c.maxEntries > 0 && len(c.data) >= c.maxEntries {
		c.evictLocked()
	}
	c.data[key] = cacheItem{
		value:      value,
		expiration: c.now().Add(ttl),
	}
	return nil
}

// Delete removes a value from the cache
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.data, key)
	return nil
}

// Exists checks if a key exists in the cache and is not expired
func (c *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item, exists := c.data[key]
	if !exists {
		return false, nil
	}
	return !c.now().After(item.expiration), nil
}

// Stats returns the current size and hit counters
func (c *MemoryCache) Stats() Stats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return Stats{Entries: len(c.data), Hits: c.hits, Misses: c.misses}
}

// Size returns the current number of items in the cache
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}

// Clear removes all items from the cache
func (c *MemoryCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.data = make(map[string]cacheItem)
}

// Close stops the expiry sweeper. It is safe to call more than once.
func (c *MemoryCache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// evictLocked drops expired items, or the item nearest expiry when none have expired
func (c *MemoryCache) evictLocked() {
	if c.removeExpiredLocked() > 0 {
		return
	}
	var (
		victim string
		soonest time.Time
	)
	for key, item := range c.data {
		if victim == "" || item.expiration.Before(soonest) {
			victim, soonest = key, item.expiration
		}
	}
	delete(c.data, victim)
}

func (c *MemoryCache) removeExpiredLocked() int {
	now := c.now()
	removed := 0
	for key, item := range c.data {
		if now.After(item.expiration) {
			delete(c.data, key)
			removed++
		}
	}
	return removed
}

// sweep removes expired entries periodically until Close
func (c *MemoryCache) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.mutex.Lock()
			c.removeExpiredLocked()
			c.mutex.Unlock()
		}
	}
}
