package kv

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a key does not exist or has expired.
var ErrNotFound = errors.New("not found")

// Store is the subset of Redis string semantics the service relies on.
// A ttl of zero means the key never expires.
type Store interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Del(ctx context.Context, keys ...string) (int64, error)
	Exists(ctx context.Context, keys ...string) (int64, error)
	TTL(ctx context.Context, key string) (time.Duration, error)

	Ping(ctx context.Context) error
	Close() error
}

type Backend string

const (
	BackendMemory Backend = "memory"
	BackendRedis  Backend = "redis"
)

type Config struct {
	Backend Backend

	// RedisAddr is host:port of the Redis server (BackendRedis only).
	RedisAddr string

	// JanitorInterval controls how often the memory backend evicts expired
	// keys. Zero selects the default of 30s; negative disables the janitor.
	JanitorInterval time.Duration
}

// StoreFactory creates a Store for one backend.
type StoreFactory func(cfg Config) (Store, error)

var factories = make(map[Backend]StoreFactory)

// RegisterBackend makes a backend available to NewStoreFromConfig.
func RegisterBackend(backend Backend, factory StoreFactory) {
	factories[backend] = factory
}

func NewStoreFromConfig(cfg Config) (Store, error) {
	if cfg.JanitorInterval == 0 {
		cfg.JanitorInterval = 30 * time.Second
	}
	factory, ok := factories[cfg.Backend]
	if !ok {
		return nil, fmt.Errorf("kv backend %q not registered (supported: %s, %s)",
			cfg.Backend, BackendMemory, BackendRedis)
	}
	return factory(cfg)
}
