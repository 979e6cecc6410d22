package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/leafsii/crypto-tracker/internal/metrics"
	"github.com/leafsii/crypto-tracker/pkg/kv"
	memkv "github.com/leafsii/crypto-tracker/pkg/kv/memory"
	rediskv "github.com/leafsii/crypto-tracker/pkg/kv/redis"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache keys and pub/sub channels.
const (
	KeyTableLatest = "ct:assets:table:latest"
	ChannelTable   = "ct:assets:table"

	DefaultTableTTL = 10 * time.Second
)

var ErrCacheMiss = errors.New("cache miss")

// Cache holds the latest published table and fans out updates. It talks to
// Redis when reachable and otherwise keeps everything in process.
type Cache struct {
	kv kv.Store
	// nil in in-memory mode
	client *redis.Client
	// nil in redis mode
	hub *PubSubHub

	tableTTL time.Duration
	logger   *zap.SugaredLogger
	metrics  *metrics.Metrics
}

// NewCache connects to Redis at addr, falling back to in-memory mode when
// addr is empty or the server does not answer a ping within two seconds.
// Both backends come from the kv registry.
func NewCache(addr string, tableTTL time.Duration, logger *zap.SugaredLogger, m *metrics.Metrics) (*Cache, error) {
	backend, err := kv.NewStoreFromConfig(kv.Config{Backend: kv.BackendRedis, RedisAddr: addr})
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = backend.Ping(ctx)
		cancel()
		if err != nil {
			_ = backend.Close()
		}
	}
	if err != nil {
		if logger != nil {
			logger.Warnw("Redis unavailable; using in-memory cache and pubsub", "addr", addr, "error", err)
		}
		mem, memErr := kv.NewStoreFromConfig(kv.Config{Backend: kv.BackendMemory})
		if memErr != nil {
			return nil, fmt.Errorf("memory cache: %w", memErr)
		}
		return newCache(mem, nil, tableTTL, logger, m), nil
	}

	rs, ok := backend.(*rediskv.Store)
	if !ok {
		_ = backend.Close()
		return nil, fmt.Errorf("redis backend returned %T", backend)
	}
	if logger != nil {
		logger.Infow("Connected to Redis", "addr", addr)
	}
	return newCache(rs, rs.Client(), tableTTL, logger, m), nil
}

// NewMemoryCache builds a cache that never touches the network.
func NewMemoryCache(tableTTL time.Duration, logger *zap.SugaredLogger, m *metrics.Metrics) *Cache {
	return newCache(memkv.NewStore(), nil, tableTTL, logger, m)
}

func newCache(store kv.Store, client *redis.Client, tableTTL time.Duration, logger *zap.SugaredLogger, m *metrics.Metrics) *Cache {
	c := &Cache{
		kv:       store,
		client:   client,
		tableTTL: ttlOrDefault(tableTTL),
		logger:   logger,
		metrics:  m,
	}
	if client == nil {
		c.hub = NewPubSubHub()
	}
	return c
}

func ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultTableTTL
	}
	return ttl
}

func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			if c.metrics != nil {
				c.metrics.RecordCacheMiss(ctx, key)
			}
			return ErrCacheMiss
		}
		if c.logger != nil {
			c.logger.Errorw("Cache get error", "key", key, "error", err)
		}
		return fmt.Errorf("cache get: %w", err)
	}
	if c.metrics != nil {
		c.metrics.RecordCacheHit(ctx, key)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("cache unmarshal: %w", err)
	}
	return nil
}

func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal: %w", err)
	}
	if err := c.kv.Set(ctx, key, data, ttl); err != nil {
		if c.logger != nil {
			c.logger.Errorw("Cache set error", "key", key, "error", err)
		}
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if _, err := c.kv.Del(ctx, keys...); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.kv.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("cache exists: %w", err)
	}
	return n > 0, nil
}

// GetTable loads the most recently published table into dest.
func (c *Cache) GetTable(ctx context.Context, dest interface{}) error {
	return c.Get(ctx, KeyTableLatest, dest)
}

// SetTable stores table as the latest snapshot with the configured TTL.
func (c *Cache) SetTable(ctx context.Context, table interface{}) error {
	return c.Set(ctx, KeyTableLatest, table, c.tableTTL)
}

// PublishTable stores table and broadcasts it on ChannelTable.
func (c *Cache) PublishTable(ctx context.Context, table interface{}) error {
	if err := c.SetTable(ctx, table); err != nil {
		return err
	}
	return c.Publish(ctx, ChannelTable, table)
}

func (c *Cache) Publish(ctx context.Context, channel string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("pubsub marshal: %w", err)
	}

	if c.client != nil {
		if err := c.client.Publish(ctx, channel, data).Err(); err != nil {
			if c.logger != nil {
				c.logger.Errorw("Publish error", "channel", channel, "error", err)
			}
			return fmt.Errorf("pubsub publish: %w", err)
		}
		return nil
	}

	c.hub.Publish(channel, string(data))
	return nil
}

// Subscribe returns a subscription to channels in either mode. It ends when
// ctx is cancelled or Close is called.
func (c *Cache) Subscribe(ctx context.Context, channels ...string) *Subscription {
	if c.client != nil {
		return relayRedis(ctx, c.client.Subscribe(ctx, channels...), channels)
	}
	return c.hub.Subscribe(ctx, channels...)
}

// TableTTL returns how long the cached table stays valid. It returns
// ErrCacheMiss when no table is cached.
func (c *Cache) TableTTL(ctx context.Context) (time.Duration, error) {
	d, err := c.kv.TTL(ctx, KeyTableLatest)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return 0, ErrCacheMiss
		}
		return 0, fmt.Errorf("cache ttl: %w", err)
	}
	return d, nil
}

// IsInMemoryMode reports whether Redis was unreachable at startup.
func (c *Cache) IsInMemoryMode() bool {
	return c.client == nil
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.kv.Ping(ctx)
}

// Close releases the backend, including the Redis client in redis mode.
func (c *Cache) Close() error {
	return c.kv.Close()
}
