package cache

import (
	"context"
	"time"
)

// MemoryCache is the in-process backend. Expired entries are dropped lazily
// on read and in bulk by CleanupExpired.
type MemoryCache struct {
	lru *LRUCache
}

// NewMemoryCache creates an in-process cache.
func NewMemoryCache(capacity int, defaultTTL time.Duration) *MemoryCache {
	return &MemoryCache{lru: NewLRUCache(capacity, defaultTTL)}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	return m.lru.Get(key)
}

func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.lru.Set(key, value, ttl)
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.lru.Delete(key)
	return nil
}

func (m *MemoryCache) Close() error {
	return nil
}

// CleanupExpired removes expired entries and returns how many were removed.
func (m *MemoryCache) CleanupExpired() int {
	return m.lru.CleanupExpired()
}

// Size returns the number of stored entries.
func (m *MemoryCache) Size() int {
	return m.lru.Size()
}

var (
	_ CacheService = (*MemoryCache)(nil)
	_ Sweeper      = (*MemoryCache)(nil)
)
