package redis

import (
	"fmt"

	"github.com/leafsii/crypto-tracker/pkg/kv"
)

func init() {
	kv.RegisterBackend(kv.BackendRedis, func(cfg kv.Config) (kv.Store, error) {
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("redis address is required when backend is 'redis'")
		}
		return New(cfg.RedisAddr), nil
	})
}
