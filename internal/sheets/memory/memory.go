// Package memory is an in-process archive adapter used in tests and when
// no spreadsheet is configured.
package memory

import (
	"context"
	"sync"

	"budgetwizard/internal/core"
)

type Store struct {
	mu      sync.Mutex
	records []core.ActivityRecord
}

func New() *Store {
	return &Store{}
}

// Archive stores the record.
func (s *Store) Archive(_ context.Context, rec core.ActivityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

// Records returns a copy of everything archived so far.
func (s *Store) Records() []core.ActivityRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.ActivityRecord, len(s.records))
	copy(out, s.records)
	return out
}
