// Package memory implements an in-process StateStore. Contents are lost when
// the process exits.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mkt918/timetable-kun-v1-sub000/pkg/domain"
)

var _ domain.StateStore = (*Store)(nil)

// Store keeps bucket documents in a map.
type Store struct {
	mu   sync.RWMutex
	docs map[domain.Bucket][]byte
}

// New returns an empty memory store.
func New() *Store {
	return &Store{docs: make(map[domain.Bucket][]byte)}
}

// Driver implements domain.StateStore.
func (s *Store) Driver() domain.Driver { return domain.DriverMemory }

// Load returns a copy of the stored document.
func (s *Store) Load(_ context.Context, bucket domain.Bucket) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	payload, ok := s.docs[bucket]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), payload...), true, nil
}

// Save replaces the bucket document.
func (s *Store) Save(_ context.Context, bucket domain.Bucket, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[bucket] = append([]byte(nil), payload...)
	return nil
}

// Buckets lists the buckets written so far in name order.
func (s *Store) Buckets() []domain.Bucket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Bucket, 0, len(s.docs))
	for b := range s.docs {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
