package subscription

import (
	"time"

	"github.com/dmitrymomot/subsync/pkg/billing"
)

// Record is the canonical subscription row owned by this engine. The
// persistence gateway is its sole writer; every other component works on
// copies passed by value.
type Record struct {
	// SubjectID is the primary key, equal to the provider's subscription id.
	SubjectID string
	// OwnerID is the internal account reference.
	OwnerID string

	Status          billing.Status
	PlanID          string
	BillingInterval billing.BillingInterval

	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	TrialStart         *time.Time
	TrialEnd           *time.Time

	CancelAtPeriodEnd bool
	CanceledAt        *time.Time

	// LastAppliedEventID and LastAppliedEventTime form the watermark used by
	// the ordering guard: an event at or before the watermark is stale.
	LastAppliedEventID   string
	LastAppliedEventTime time.Time

	// Version increments exactly once per applied event and backs the
	// optimistic-concurrency commit.
	Version int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsTerminal reports whether the record has reached its terminal state.
// Canceled records reject all further status transitions.
func (r *Record) IsTerminal() bool {
	return r.Status == billing.StatusCanceled
}

// IsTrialing reports whether the subscription is in its trial period.
func (r *Record) IsTrialing() bool {
	return r.Status == billing.StatusTrialing
}

// IsActive reports whether the subscription is in good standing.
func (r *Record) IsActive() bool {
	return r.Status == billing.StatusActive
}
