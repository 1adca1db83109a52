// Package cache keeps recently published stream events in memory so a
// reconnecting client can resume after its Last-Event-ID. It uses
// patrickmn/go-cache for TTL-based expiry.
package cache

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache wraps go-cache with bounded per-key lists.
type Cache struct {
	store *gocache.Cache
	mu    sync.Mutex // serializes read-modify-write of lists
}

// New creates a new cache with the given TTL and cleanup interval.
// defaultTTL is how long a key lives after its last write.
func New(defaultTTL, cleanupInterval time.Duration) *Cache {
	return &Cache{
		store: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Append adds v to the list stored at key, keeping the newest limit
// entries, and refreshes the key's TTL.
func Append[T any](c *Cache, key string, v T, limit int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var list []T
	if existing, ok := c.store.Get(key); ok {
		list, _ = existing.([]T)
	}
	list = append(list, v)
	if limit > 0 && len(list) > limit {
		list = append([]T(nil), list[len(list)-limit:]...)
	}
	c.store.Set(key, list, gocache.DefaultExpiration)
}

// List returns a copy of the list stored at key.
func List[T any](c *Cache, key string) []T {
	c.mu.Lock()
	defer c.mu.Unlock()

	existing, ok := c.store.Get(key)
	if !ok {
		return nil
	}
	list, _ := existing.([]T)
	return append([]T(nil), list...)
}
