// Package store builds the configured corpus store and run lock.
package store

import (
	"context"
	"fmt"

	"gapscan/internal/config"
	"gapscan/internal/domain"
	"gapscan/internal/store/csvfile"
	"gapscan/internal/store/memory"
	redisstore "gapscan/internal/store/redis"
	"gapscan/internal/store/sqlite"
)

// Store is a CorpusStore that owns resources released by Close.
type Store interface {
	domain.CorpusStore
	Close() error
}

// New returns the store selected by cfg.Type.
func New(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Type {
	case "", "csv":
		path := cfg.Path
		if path == "" {
			path = "data_store.csv"
		}
		return csvfile.NewStore(path), nil
	case "memory":
		return memory.NewStore(), nil
	case "sqlite":
		path := "gapscan.db"
		if cfg.SQLite != nil && cfg.SQLite.Path != "" {
			path = cfg.SQLite.Path
		}
		return sqlite.NewStore(path)
	case "redis":
		if cfg.Redis == nil || cfg.Redis.Addr == "" {
			return nil, fmt.Errorf("store.redis.addr is required for the redis store")
		}
		client, err := redisstore.NewClient(ctx, *cfg.Redis)
		if err != nil {
			return nil, err
		}
		return redisstore.NewStore(client, cfg.Redis.Key), nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", cfg.Type)
	}
}

// NewRunLock returns the lock selected by cfg.Type, or nil for "none".
// The returned close func is never nil.
func NewRunLock(ctx context.Context, cfg config.LockConfig, storeRedis *config.RedisConfig) (domain.RunLock, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Type {
	case "", "none":
		return nil, noop, nil
	case "redis":
		rc := cfg.Redis
		if rc == nil {
			rc = storeRedis
		}
		if rc == nil || rc.Addr == "" {
			return nil, noop, fmt.Errorf("lock.redis.addr (or store.redis.addr) is required for the redis lock")
		}
		client, err := redisstore.NewClient(ctx, *rc)
		if err != nil {
			return nil, noop, err
		}
		return redisstore.NewLock(client), client.Close, nil
	default:
		return nil, noop, fmt.Errorf("unsupported lock type: %s", cfg.Type)
	}
}
