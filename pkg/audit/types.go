package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Entry is one audit record: the outcome of applying a single billing event
// to a subscription.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	SubjectID string    `json:"subject_id"`
	EventID   string    `json:"event_id"`
	Outcome   string    `json:"outcome"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Sink receives audit entries. Implementations must not block the caller:
// the dispatcher records outcomes fire-and-forget and never fails a webhook
// acknowledgment on audit errors.
type Sink interface {
	Record(ctx context.Context, entry Entry)
}
