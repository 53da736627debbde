// Package cache provides the key-value backends that hold per-caller
// assistant state (conversation history, pending clarifications, linked
// calendar tokens). Every backend honors a per-entry TTL.
package cache

import (
	"context"
	"time"
)

// CacheService defines the cache service interface.
type CacheService interface {
	// Get retrieves a value from cache.
	// Returns: value, whether it exists
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores a value in cache.
	// ttl: expiration time, zero uses the backend default
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the backend.
	Close() error
}

// Sweeper is implemented by backends that need expired entries removed
// explicitly. Redis and badger expire keys on their own.
type Sweeper interface {
	CleanupExpired() int
}
