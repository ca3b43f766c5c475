package utils

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type cacheItem[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache is an LRU cache whose entries also expire after a fixed TTL.
// It is safe for concurrent use.
type TTLCache[K comparable, V any] struct {
	lru *lru.Cache[K, cacheItem[V]]
	ttl time.Duration
	now func() time.Time
}

// NewTTLCache creates a cache holding at most size entries.
func NewTTLCache[K comparable, V any](size int, ttl time.Duration) (*TTLCache[K, V], error) {
	l, err := lru.New[K, cacheItem[V]](size)
	if err != nil {
		return nil, err
	}
	return &TTLCache[K, V]{lru: l, ttl: ttl, now: time.Now}, nil
}

// Set stores value under key for the cache's TTL.
func (c *TTLCache[K, V]) Set(key K, value V) {
	c.lru.Add(key, cacheItem[V]{value: value, expiresAt: c.now().Add(c.ttl)})
}

// Get returns the cached value, or false when absent or expired.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	item, ok := c.lru.Get(key)
	if !ok {
		var zero V
		return zero, false
	}
	if c.now().After(item.expiresAt) {
		c.lru.Remove(key)
		var zero V
		return zero, false
	}
	return item.value, true
}

// Delete removes key.
func (c *TTLCache[K, V]) Delete(key K) {
	c.lru.Remove(key)
}

// Purge drops every entry.
func (c *TTLCache[K, V]) Purge() {
	c.lru.Purge()
}
