package assets

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/leafsii/crypto-tracker/internal/market"
)

var (
	ErrEmptyID       = errors.New("asset id is empty")
	ErrDuplicateID   = errors.New("duplicate asset id")
	ErrNegativePrice = errors.New("asset price is negative")
)

// Snapshot is an immutable copy of the store state at one version.
type Snapshot struct {
	Assets    []market.Asset `json:"assets"`
	Loading   bool           `json:"loading"`
	Error     *string        `json:"error"`
	Version   uint64         `json:"version"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Store owns the canonical asset list. It is safe for concurrent use:
// every mutation runs to completion under the write lock, so readers see
// either the whole previous list or the whole new one.
type Store struct {
	mu      sync.RWMutex
	assets  []market.Asset
	index   map[string]int
	loading bool
	errMsg  *string
	version uint64
	updated time.Time
	rng     market.Rand

	subMu  sync.Mutex
	subs   map[int]chan Snapshot
	nextID int
}

// NewStore creates a store seeded with initial. The list is validated the
// same way SetAssets validates it.
func NewStore(initial []market.Asset, rng market.Rand) (*Store, error) {
	if rng == nil {
		rng = market.NewRand(0)
	}
	s := &Store{
		rng:  rng,
		subs: make(map[int]chan Snapshot),
	}
	if err := s.SetAssets(initial); err != nil {
		return nil, err
	}
	return s, nil
}

func validate(list []market.Asset) (map[string]int, error) {
	index := make(map[string]int, len(list))
	for i, a := range list {
		if a.ID == "" {
			return nil, fmt.Errorf("asset at position %d: %w", i, ErrEmptyID)
		}
		if _, dup := index[a.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, a.ID)
		}
		if a.Price < 0 {
			return nil, fmt.Errorf("%w: %s", ErrNegativePrice, a.ID)
		}
		index[a.ID] = i
	}
	return index, nil
}

// Selectors

// All returns a copy of the asset list in insertion order.
func (s *Store) All() []market.Asset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return market.CloneAll(s.assets)
}

// ByID returns the asset with the given id.
func (s *Store) ByID(id string) (market.Asset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return market.Asset{}, false
	}
	return s.assets[i].Clone(), true
}

func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Error returns the last advisory error message, if any.
func (s *Store) Error() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.errMsg == nil {
		return "", false
	}
	return *s.errMsg, true
}

// Version increases by one on every mutation.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		Assets:    market.CloneAll(s.assets),
		Loading:   s.loading,
		Version:   s.version,
		UpdatedAt: s.updated,
	}
	if s.errMsg != nil {
		msg := *s.errMsg
		snap.Error = &msg
	}
	return snap
}

// Mutations

// UpdatePrices applies one simulated market tick to every asset.
func (s *Store) UpdatePrices() {
	s.mutate(func() {
		next := make([]market.Asset, len(s.assets))
		for i, a := range s.assets {
			next[i] = market.Tick(s.rng, a)
		}
		s.assets = next
	})
}

// SetAssets replaces the whole list. Invalid lists are rejected and the
// current state is kept.
func (s *Store) SetAssets(list []market.Asset) error {
	index, err := validate(list)
	if err != nil {
		return err
	}
	cp := market.CloneAll(list)
	if cp == nil {
		cp = []market.Asset{}
	}
	s.mutate(func() {
		s.assets = cp
		s.index = index
	})
	return nil
}

func (s *Store) SetLoading(loading bool) {
	s.mutate(func() { s.loading = loading })
}

// SetError records an advisory error message. It never stops ticking.
func (s *Store) SetError(msg string) {
	s.mutate(func() { s.errMsg = &msg })
}

func (s *Store) ClearError() {
	s.mutate(func() { s.errMsg = nil })
}

func (s *Store) mutate(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn()
	s.version++
	s.updated = time.Now()
	// Notifying under the write lock keeps delivery in version order.
	s.notify(s.snapshotLocked())
}

// Subscriptions

// Subscribe registers an observer. The channel holds at most one pending
// snapshot; a slow reader only ever sees the latest one. Call cancel to
// unregister; it closes the channel.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (s *Store) notify(snap Snapshot) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for _, ch := range s.subs {
		// Replace any stale pending snapshot with the newest one.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}
