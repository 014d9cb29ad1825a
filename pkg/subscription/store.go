package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store is the persistence gateway for subscription records: the only
// component allowed to write them. Commit uses optimistic concurrency so no
// lock is held across the round trip to the datastore.
type Store interface {
	// Get retrieves a record by subject id.
	// Returns ErrSubscriptionNotFound if no record exists.
	Get(ctx context.Context, subjectID string) (*Record, error)

	// Commit writes next conditioned on the stored version still equaling
	// expectedVersion. expectedVersion 0 means the record must not exist yet
	// (insert). Returns ErrVersionConflict when the condition fails; the
	// dispatcher then reloads and re-runs the state machine.
	Commit(ctx context.Context, expectedVersion int64, next Record) error
}

// IdempotencyStore tracks billing event ids that have already been applied,
// guaranteeing at-most-once application per event id even under concurrent
// delivery. Both methods must be atomic with respect to concurrent callers
// for the same event id.
type IdempotencyStore interface {
	// Check returns the recorded outcome for an event id, if any. Used as
	// the fast path before the state machine runs.
	Check(ctx context.Context, eventID string) (Outcome, bool, error)

	// MarkApplied records the outcome of an event. Exactly one caller
	// observes first=true (its insert won the unique constraint); all others
	// receive the previously recorded outcome for acknowledgment purposes.
	MarkApplied(ctx context.Context, eventID string, outcome Outcome, appliedAt time.Time) (first bool, prior Outcome, err error)

	// Cleanup removes entries applied before the cutoff, enforcing the
	// bounded retention window. Returns the number of entries removed.
	Cleanup(ctx context.Context, olderThan time.Time) (int64, error)
}

// DeadLetter is a terminally failed delivery retained for manual inspection.
type DeadLetter struct {
	ID        uuid.UUID
	EventID   string
	SubjectID string
	Reason    string
	Detail    string
	Payload   []byte
	Attempts  int
	FailedAt  time.Time
}

// DeadLetterStore persists deliveries that could not be applied after
// bounded retries or were rejected as permanently invalid.
type DeadLetterStore interface {
	Store(ctx context.Context, letter DeadLetter) error
}
