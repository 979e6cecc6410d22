package redis

import (
	"context"
	"os"
	"testing"

	"github.com/leafsii/crypto-tracker/pkg/kv"
	"github.com/leafsii/crypto-tracker/pkg/kv/kvtest"
)

func TestRedisStoreConformance(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping redis tests")
	}

	kvtest.RunConformanceTests(t, func(t *testing.T) kv.Store {
		s := New(addr)
		if err := s.Ping(context.Background()); err != nil {
			t.Skipf("redis unavailable at %s: %v", addr, err)
		}
		return s
	})
}

func TestRegisterRequiresAddr(t *testing.T) {
	if _, err := kv.NewStoreFromConfig(kv.Config{Backend: kv.BackendRedis}); err == nil {
		t.Fatal("expected error for empty redis address")
	}
}
