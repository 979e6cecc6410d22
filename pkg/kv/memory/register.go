package memory

import (
	"time"

	"github.com/leafsii/crypto-tracker/pkg/kv"
)

const defaultJanitorInterval = 30 * time.Second

func init() {
	kv.RegisterBackend(kv.BackendMemory, func(cfg kv.Config) (kv.Store, error) {
		return New(cfg.JanitorInterval), nil
	})
}

// NewStore creates an in-memory store with the default janitor interval.
func NewStore() kv.Store {
	return New(defaultJanitorInterval)
}
