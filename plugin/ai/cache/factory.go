package cache

import (
	"context"
	"fmt"

	"github.com/hrygo/coworkr/internal/profile"
)

// NewFromProfile opens the backend selected by kv.driver.
func NewFromProfile(ctx context.Context, p profile.KVProfile) (CacheService, error) {
	switch p.Driver {
	case "", "memory":
		return NewMemoryCache(p.Capacity, p.TTL), nil
	case "redis":
		c, err := NewRedisCache(ctx, RedisConfig{
			Addr:       p.RedisAddr,
			Password:   p.RedisPassword,
			DB:         p.RedisDB,
			DefaultTTL: p.TTL,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	case "badger":
		c, err := NewBadgerCache(p.BadgerDir, p.TTL)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported kv driver: %s", p.Driver)
	}
}
