package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLRU(capacity int, ttl time.Duration) (*LRUCache, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache(capacity, ttl)
	c.now = clock.Now
	return c, clock
}

func TestLRUCache_BasicOperations(t *testing.T) {
	cache, _ := newTestLRU(100, time.Minute)

	t.Run("SetAndGet", func(t *testing.T) {
		cache.Set("key1", []byte("value1"), 0)

		val, ok := cache.Get("key1")
		assert.True(t, ok)
		assert.Equal(t, []byte("value1"), val)
	})

	t.Run("GetNonExistent", func(t *testing.T) {
		val, ok := cache.Get("nonexistent")
		assert.False(t, ok)
		assert.Nil(t, val)
	})

	t.Run("UpdateExisting", func(t *testing.T) {
		cache.Set("key2", []byte("original"), 0)
		cache.Set("key2", []byte("updated"), 0)

		val, ok := cache.Get("key2")
		assert.True(t, ok)
		assert.Equal(t, []byte("updated"), val)
	})

	t.Run("Delete", func(t *testing.T) {
		cache.Set("key3", []byte("v"), 0)
		assert.True(t, cache.Delete("key3"))
		assert.False(t, cache.Delete("key3"))

		_, ok := cache.Get("key3")
		assert.False(t, ok)
	})
}

func TestLRUCache_Expiration(t *testing.T) {
	cache, clock := newTestLRU(100, time.Hour)

	cache.Set("default", []byte("a"), 0)
	cache.Set("short", []byte("b"), time.Minute)

	clock.Advance(2 * time.Minute)
	_, ok := cache.Get("short")
	assert.False(t, ok)
	_, ok = cache.Get("default")
	assert.True(t, ok)

	clock.Advance(time.Hour)
	_, ok = cache.Get("default")
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Size())
}

func TestLRUCache_Eviction(t *testing.T) {
	cache, _ := newTestLRU(3, time.Minute)

	cache.Set("key1", []byte("1"), 0)
	cache.Set("key2", []byte("2"), 0)
	cache.Set("key3", []byte("3"), 0)
	assert.Equal(t, 3, cache.Size())

	// Access key1 to make it recently used
	cache.Get("key1")

	// Add new entry, should evict key2 (LRU)
	cache.Set("key4", []byte("4"), 0)
	assert.Equal(t, 3, cache.Size())

	_, ok := cache.Get("key2")
	assert.False(t, ok)

	_, ok = cache.Get("key1")
	assert.True(t, ok)
}

func TestLRUCache_CleanupExpired(t *testing.T) {
	cache, clock := newTestLRU(100, 24*time.Hour)

	cache.Set("stale-1", []byte("1"), time.Hour)
	cache.Set("stale-2", []byte("2"), time.Hour)
	cache.Set("fresh", []byte("3"), 0)

	clock.Advance(2 * time.Hour)

	assert.Equal(t, 2, cache.CleanupExpired())
	assert.Equal(t, 1, cache.Size())
	assert.Equal(t, 0, cache.CleanupExpired())
}

func TestLRUCache_ConcurrentAccess(t *testing.T) {
	cache := NewLRUCache(1000, time.Minute)
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			key := string(rune('a' + n%26))
			cache.Set(key, []byte{byte(n)}, 0)
		}(i)
		go func(n int) {
			defer wg.Done()
			key := string(rune('a' + n%26))
			cache.Get(key)
		}(i)
	}

	wg.Wait()
	assert.LessOrEqual(t, cache.Size(), 26)
}
