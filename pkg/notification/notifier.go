package notification

import (
	"context"
	"time"
)

// TrialEndingNotice describes an upcoming trial expiry surfaced by a
// trial.ending billing event. The event does not mutate subscription state;
// this side-channel is its only effect.
type TrialEndingNotice struct {
	SubjectID string
	OwnerID   string
	TrialEnd  time.Time
}

// Notifier delivers trial-ending notices. Delivery is best-effort: the
// dispatcher invokes it fire-and-forget and a failed notification never
// affects webhook acknowledgment.
type Notifier interface {
	TrialEnding(ctx context.Context, notice TrialEndingNotice) error
}

// RecipientResolver maps an internal account reference to an email address.
// Wire it to the account store; notices without a resolvable recipient are
// skipped.
type RecipientResolver func(ctx context.Context, ownerID string) (string, error)
