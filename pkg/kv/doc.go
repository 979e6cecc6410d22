// Package kv is a small key-value abstraction with TTL support, backed
// either by process memory or by Redis.
//
// The dashboard cache uses it to hold the latest rendered table so that
// a new subscriber can be served immediately:
//
//	store, err := kv.NewStoreFromConfig(kv.Config{Backend: kv.BackendMemory})
//	if err != nil {
//		return err
//	}
//	defer store.Close()
//
//	_ = store.Set(ctx, "ct:assets:table:latest", payload, 10*time.Second)
//	data, err := store.Get(ctx, "ct:assets:table:latest")
//	if errors.Is(err, kv.ErrNotFound) {
//		// nothing published yet
//	}
//
// Backends register themselves from their package init, so callers import
// the backend packages they need for side effects.
package kv
