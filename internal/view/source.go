package view

import (
	"strconv"
	"sync"

	"github.com/leafsii/crypto-tracker/internal/assets"
	"golang.org/x/sync/singleflight"
)

// SnapshotReader is the read side of the asset store.
type SnapshotReader interface {
	Version() uint64
	Snapshot() assets.Snapshot
}

// Source serves the table for the store's current version, building it at
// most once per version however many readers ask concurrently.
type Source struct {
	reader SnapshotReader
	sf     singleflight.Group

	mu   sync.RWMutex
	last *Table
}

func NewSource(reader SnapshotReader) *Source {
	return &Source{reader: reader}
}

func (s *Source) Table() Table {
	v := s.reader.Version()

	s.mu.RLock()
	last := s.last
	s.mu.RUnlock()
	if last != nil && last.Version == v {
		return *last
	}

	res, _, _ := s.sf.Do(strconv.FormatUint(v, 10), func() (interface{}, error) {
		t := Build(s.reader.Snapshot())

		s.mu.Lock()
		if s.last == nil || t.Version >= s.last.Version {
			s.last = &t
		}
		s.mu.Unlock()
		return t, nil
	})
	return res.(Table)
}
