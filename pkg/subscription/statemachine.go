package subscription

import (
	"time"

	"github.com/dmitrymomot/subsync/pkg/billing"
)

// Apply reconciles one billing event against the current subscription state
// and returns the next state with its outcome classification. Pure function:
// no I/O, no clock reads, no mutation of the input record.
//
// current is nil when the subject has never been observed. Only a
// subscription.created event may bring a record into existence; every other
// event for an absent subject is rejected with ErrUnknownSubject.
//
// Ordering guard: any event whose OccurredAt is earlier than or equal to the
// record's LastAppliedEventTime is classified OutcomeStale and leaves the
// state untouched. Exact duplicates are filtered upstream by the idempotency
// store; this guard is the second line of defense against distinct events
// arriving out of order.
func Apply(current *Record, ev billing.Event) ApplyResult {
	if current == nil {
		if ev.Type == billing.EventSubscriptionCreated {
			return ApplyResult{Outcome: OutcomeApplied, Record: createRecord(ev)}
		}
		return ApplyResult{Outcome: OutcomeRejected, Reason: ErrUnknownSubject}
	}

	if !ev.OccurredAt.After(current.LastAppliedEventTime) {
		return ApplyResult{Outcome: OutcomeStale, Record: *current}
	}

	switch ev.Type {
	case billing.EventSubscriptionCreated:
		// The record already exists; a late or duplicate creation for the
		// same subject carries nothing new.
		return ApplyResult{Outcome: OutcomeIgnored, Record: *current}

	case billing.EventSubscriptionUpdated:
		if current.IsTerminal() {
			return ApplyResult{Outcome: OutcomeIgnored, Record: *current}
		}
		next := *current
		applyPayload(&next, ev.Payload)
		next.CancelAtPeriodEnd = ev.Payload.CancelAtPeriodEnd
		if ev.Payload.Status != "" {
			next.Status = ev.Payload.Status
		}
		// cancel_at_period_end resolving arrives as an update carrying the
		// canceled status.
		if next.Status == billing.StatusCanceled && next.CanceledAt == nil {
			canceledAt := ev.OccurredAt
			next.CanceledAt = &canceledAt
		}
		return ApplyResult{Outcome: OutcomeApplied, Record: advance(next, ev)}

	case billing.EventPaymentSucceeded:
		if current.Status != billing.StatusPastDue && current.Status != billing.StatusIncomplete {
			return ApplyResult{Outcome: OutcomeIgnored, Record: *current}
		}
		next := *current
		next.Status = billing.StatusActive
		applyPayload(&next, ev.Payload)
		return ApplyResult{Outcome: OutcomeApplied, Record: advance(next, ev)}

	case billing.EventPaymentFailed:
		if current.Status != billing.StatusActive && current.Status != billing.StatusTrialing {
			return ApplyResult{Outcome: OutcomeIgnored, Record: *current}
		}
		next := *current
		next.Status = billing.StatusPastDue
		return ApplyResult{Outcome: OutcomeApplied, Record: advance(next, ev)}

	case billing.EventSubscriptionCanceled:
		if current.IsTerminal() {
			return ApplyResult{Outcome: OutcomeIgnored, Record: *current}
		}
		next := *current
		next.Status = billing.StatusCanceled
		canceledAt := ev.OccurredAt
		next.CanceledAt = &canceledAt
		return ApplyResult{Outcome: OutcomeApplied, Record: advance(next, ev)}

	case billing.EventTrialEnding:
		// Informational: status stays put, only the notification
		// side-channel fires. The watermark still advances so a replay of
		// the same notice is stale.
		next := *current
		if ev.Payload.TrialEnd != nil {
			next.TrialEnd = ev.Payload.TrialEnd
		}
		return ApplyResult{Outcome: OutcomeApplied, Record: advance(next, ev), TrialEnding: true}
	}

	// Unreachable for normalized events; the normalizer enforces the closed
	// type set.
	return ApplyResult{Outcome: OutcomeIgnored, Record: *current}
}

// createRecord builds the initial record from a creation event. A trial
// window in the payload forces the trialing status; otherwise the initial
// payload status decides, defaulting to incomplete until the first payment
// confirms.
func createRecord(ev billing.Event) Record {
	rec := Record{
		SubjectID: ev.SubjectID,
		OwnerID:   ev.Payload.OwnerID,
		CreatedAt: ev.OccurredAt,
	}
	applyPayload(&rec, ev.Payload)
	rec.CancelAtPeriodEnd = ev.Payload.CancelAtPeriodEnd

	switch {
	case ev.Payload.TrialEnd != nil && hasTrialAhead(ev.Payload.TrialEnd, ev.OccurredAt):
		rec.Status = billing.StatusTrialing
	case ev.Payload.Status != "":
		rec.Status = ev.Payload.Status
	default:
		rec.Status = billing.StatusIncomplete
	}

	return advance(rec, ev)
}

// applyPayload copies the event's non-empty payload fields onto the record.
func applyPayload(rec *Record, p billing.Payload) {
	if p.PlanID != "" {
		rec.PlanID = p.PlanID
	}
	if p.BillingInterval != "" {
		rec.BillingInterval = p.BillingInterval
	}
	if p.CurrentPeriodStart != nil {
		rec.CurrentPeriodStart = p.CurrentPeriodStart
	}
	if p.CurrentPeriodEnd != nil {
		rec.CurrentPeriodEnd = p.CurrentPeriodEnd
	}
	if p.TrialStart != nil {
		rec.TrialStart = p.TrialStart
	}
	if p.TrialEnd != nil {
		rec.TrialEnd = p.TrialEnd
	}
}

// advance stamps the watermark and increments the version. Called exactly
// once per applied event.
func advance(rec Record, ev billing.Event) Record {
	rec.LastAppliedEventID = ev.ID
	rec.LastAppliedEventTime = ev.OccurredAt
	rec.Version++
	rec.UpdatedAt = ev.OccurredAt
	return rec
}

func hasTrialAhead(trialEnd *time.Time, occurredAt time.Time) bool {
	return trialEnd.After(occurredAt)
}
