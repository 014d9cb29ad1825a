package subscription

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryStore is an in-memory persistence gateway for tests and local
// development. Commit semantics match the PG implementation, including
// version conflicts.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Get(_ context.Context, subjectID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[subjectID]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}
	return &rec, nil
}

func (s *MemoryStore) Commit(_ context.Context, expectedVersion int64, next Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.records[next.SubjectID]
	if expectedVersion == 0 {
		if exists {
			return ErrVersionConflict
		}
	} else if !exists || current.Version != expectedVersion {
		return ErrVersionConflict
	}

	s.records[next.SubjectID] = next
	return nil
}

type idempotencyEntry struct {
	outcome   Outcome
	appliedAt time.Time
}

// MemoryIdempotencyStore is an in-memory idempotency store for tests and
// local development.
type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	applied map[string]idempotencyEntry
}

func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{applied: make(map[string]idempotencyEntry)}
}

func (s *MemoryIdempotencyStore) Check(_ context.Context, eventID string) (Outcome, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.applied[eventID]
	if !ok {
		return "", false, nil
	}
	return entry.outcome, true, nil
}

func (s *MemoryIdempotencyStore) MarkApplied(_ context.Context, eventID string, outcome Outcome, appliedAt time.Time) (bool, Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prior, ok := s.applied[eventID]; ok {
		return false, prior.outcome, nil
	}
	s.applied[eventID] = idempotencyEntry{outcome: outcome, appliedAt: appliedAt}
	return true, outcome, nil
}

func (s *MemoryIdempotencyStore) Cleanup(_ context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for id, entry := range s.applied {
		if entry.appliedAt.Before(olderThan) {
			delete(s.applied, id)
			removed++
		}
	}
	return removed, nil
}

// MemoryDeadLetterStore collects dead letters in memory for tests.
type MemoryDeadLetterStore struct {
	mu      sync.RWMutex
	letters []DeadLetter
}

func NewMemoryDeadLetterStore() *MemoryDeadLetterStore {
	return &MemoryDeadLetterStore{}
}

func (s *MemoryDeadLetterStore) Store(_ context.Context, letter DeadLetter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.letters = append(s.letters, letter)
	return nil
}

// Letters returns a copy of the collected dead letters.
func (s *MemoryDeadLetterStore) Letters() []DeadLetter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.letters)
}
