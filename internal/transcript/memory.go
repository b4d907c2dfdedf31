package transcript

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore keeps the most recent transcripts in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	max     int
	order   []string
	records map[string]Record
}

// NewMemoryStore returns a store that keeps at most maxRecords transcripts.
func NewMemoryStore(maxRecords int) *MemoryStore {
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}
	return &MemoryStore{max: maxRecords, records: make(map[string]Record)}
}

// Save stores r, evicting the oldest transcript when the store is full.
// Saving a run id again replaces its record and makes it the newest.
func (s *MemoryStore) Save(_ context.Context, r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := slices.Index(s.order, r.RunID); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
	s.order = append(s.order, r.RunID)
	s.records[r.RunID] = r

	for len(s.order) > s.max {
		delete(s.records, s.order[0])
		s.order = s.order[1:]
	}
	return nil
}

// Get returns the transcript of runID or ErrNotFound.
func (s *MemoryStore) Get(_ context.Context, runID string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[runID]
	if !ok {
		return Record{}, ErrNotFound
	}
	return r, nil
}

// Recent returns up to n transcripts, newest first.
func (s *MemoryStore) Recent(_ context.Context, n int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n > len(s.order) || n <= 0 {
		n = len(s.order)
	}
	out := make([]Record, 0, n)
	for i := len(s.order) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.records[s.order[i]])
	}
	return out, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
