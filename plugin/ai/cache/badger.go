package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// BadgerCache is an embedded, persistent backend for single-node deployments
// that want history to survive restarts.
type BadgerCache struct {
	db         *badger.DB
	defaultTTL time.Duration
}

// NewBadgerCache opens (or creates) a badger store in dir. An empty dir
// opens an in-memory store.
func NewBadgerCache(dir string, defaultTTL time.Duration) (*BadgerCache, error) {
	if defaultTTL <= 0 {
		defaultTTL = 24 * time.Hour
	}

	opts := badger.DefaultOptions(dir).
		WithLoggingLevel(badger.ERROR)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store: %w", err)
	}
	slog.Info("Badger cache opened", "dir", dir)

	return &BadgerCache{db: db, defaultTTL: defaultTTL}, nil
}

func (b *BadgerCache) Get(_ context.Context, key string) ([]byte, bool) {
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			slog.Warn("failed to get cache value", "key", key, "error", err)
		}
		return nil, false
	}
	return value, true
}

func (b *BadgerCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = b.defaultTTL
	}
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(key), value).WithTTL(ttl))
	})
	if err != nil {
		return fmt.Errorf("failed to set cache value %q: %w", key, err)
	}
	return nil
}

func (b *BadgerCache) Delete(_ context.Context, key string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("failed to delete cache value %q: %w", key, err)
	}
	return nil
}

func (b *BadgerCache) Close() error {
	return b.db.Close()
}

var _ CacheService = (*BadgerCache)(nil)
