// Package kvtest provides conformance tests for kv.Store implementations.
package kvtest

import (
	"context"
	"testing"
	"time"

	"github.com/leafsii/crypto-tracker/pkg/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// StoreFactory creates a fresh Store instance for testing.
type StoreFactory func(t *testing.T) kv.Store

// RunConformanceTests runs every conformance case against a fresh store.
func RunConformanceTests(t *testing.T, factory StoreFactory) {
	tests := []struct {
		name string
		test func(t *testing.T, store kv.Store)
	}{
		{"SetGet", testSetGet},
		{"GetMissing", testGetMissing},
		{"Overwrite", testOverwrite},
		{"DelExists", testDelExists},
		{"TTL", testTTL},
		{"Expiry", testExpiry},
		{"Ping", testPing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := factory(t)
			defer store.Close()
			tt.test(t, store)
		})
	}
}

func testSetGet(t *testing.T, store kv.Store) {
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "kvtest:a", []byte(`{"rows":[]}`), 0))

	got, err := store.Get(ctx, "kvtest:a")
	require.NoError(t, err)
	assert.Equal(t, `{"rows":[]}`, string(got))
}

func testGetMissing(t *testing.T, store kv.Store) {
	_, err := store.Get(context.Background(), "kvtest:missing")
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func testOverwrite(t *testing.T, store kv.Store) {
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "kvtest:b", []byte("v1"), 0))
	require.NoError(t, store.Set(ctx, "kvtest:b", []byte("v2"), 0))

	got, err := store.Get(ctx, "kvtest:b")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(got))
}

func testDelExists(t *testing.T, store kv.Store) {
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "kvtest:c1", []byte("x"), 0))
	require.NoError(t, store.Set(ctx, "kvtest:c2", []byte("y"), 0))

	n, err := store.Exists(ctx, "kvtest:c1", "kvtest:c2", "kvtest:c3")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = store.Del(ctx, "kvtest:c1", "kvtest:c3")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = store.Exists(ctx, "kvtest:c1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testTTL(t *testing.T, store kv.Store) {
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "kvtest:persist", []byte("x"), 0))
	require.NoError(t, store.Set(ctx, "kvtest:ttl", []byte("y"), time.Minute))

	d, err := store.TTL(ctx, "kvtest:persist")
	require.NoError(t, err)
	assert.Equal(t, time.Duration(-1), d)

	d, err = store.TTL(ctx, "kvtest:ttl")
	require.NoError(t, err)
	assert.Greater(t, d, 50*time.Second)
	assert.LessOrEqual(t, d, time.Minute)

	_, err = store.TTL(ctx, "kvtest:nope")
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func testExpiry(t *testing.T, store kv.Store) {
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "kvtest:short", []byte("x"), time.Second))

	assert.Eventually(t, func() bool {
		_, err := store.Get(ctx, "kvtest:short")
		return err == kv.ErrNotFound
	}, 3*time.Second, 100*time.Millisecond)
}

func testPing(t *testing.T, store kv.Store) {
	assert.NoError(t, store.Ping(context.Background()))
}
