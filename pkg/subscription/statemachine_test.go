package subscription_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/subsync/pkg/billing"
	"github.com/dmitrymomot/subsync/pkg/subscription"
)

var baseTime = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func eventAt(id string, kind billing.EventType, at time.Time, payload billing.Payload) billing.Event {
	return billing.Event{
		ID:         id,
		Type:       kind,
		OccurredAt: at,
		SubjectID:  "sub_123",
		Payload:    payload,
	}
}

func createdEvent(at time.Time, payload billing.Payload) billing.Event {
	if payload.OwnerID == "" {
		payload.OwnerID = "acct_42"
	}
	return eventAt("evt_created", billing.EventSubscriptionCreated, at, payload)
}

func TestApplyCreation(t *testing.T) {
	t.Run("trial window forces trialing", func(t *testing.T) {
		trialEnd := baseTime.Add(14 * 24 * time.Hour)
		res := subscription.Apply(nil, createdEvent(baseTime, billing.Payload{
			Status:   billing.StatusActive,
			TrialEnd: &trialEnd,
			PlanID:   "price_pro",
		}))

		require.Equal(t, subscription.OutcomeApplied, res.Outcome)
		assert.Equal(t, billing.StatusTrialing, res.Record.Status)
		assert.Equal(t, "sub_123", res.Record.SubjectID)
		assert.Equal(t, "acct_42", res.Record.OwnerID)
		assert.Equal(t, "price_pro", res.Record.PlanID)
		assert.Equal(t, int64(1), res.Record.Version)
		assert.Equal(t, "evt_created", res.Record.LastAppliedEventID)
		assert.Equal(t, baseTime, res.Record.LastAppliedEventTime)
	})

	t.Run("payload status without trial", func(t *testing.T) {
		res := subscription.Apply(nil, createdEvent(baseTime, billing.Payload{
			Status: billing.StatusActive,
		}))

		require.Equal(t, subscription.OutcomeApplied, res.Outcome)
		assert.Equal(t, billing.StatusActive, res.Record.Status)
	})

	t.Run("defaults to incomplete without status", func(t *testing.T) {
		res := subscription.Apply(nil, createdEvent(baseTime, billing.Payload{}))

		require.Equal(t, subscription.OutcomeApplied, res.Outcome)
		assert.Equal(t, billing.StatusIncomplete, res.Record.Status)
	})

	t.Run("elapsed trial window does not force trialing", func(t *testing.T) {
		trialEnd := baseTime.Add(-time.Hour)
		res := subscription.Apply(nil, createdEvent(baseTime, billing.Payload{
			Status:   billing.StatusActive,
			TrialEnd: &trialEnd,
		}))

		require.Equal(t, subscription.OutcomeApplied, res.Outcome)
		assert.Equal(t, billing.StatusActive, res.Record.Status)
	})

	t.Run("non-creation event for absent subject is rejected", func(t *testing.T) {
		res := subscription.Apply(nil, eventAt("evt_upd", billing.EventSubscriptionUpdated, baseTime, billing.Payload{
			Status: billing.StatusActive,
		}))

		require.Equal(t, subscription.OutcomeRejected, res.Outcome)
		assert.ErrorIs(t, res.Reason, subscription.ErrUnknownSubject)
	})
}

func existingRecord(status billing.Status) *subscription.Record {
	return &subscription.Record{
		SubjectID:            "sub_123",
		OwnerID:              "acct_42",
		Status:               status,
		PlanID:               "price_pro",
		LastAppliedEventID:   "evt_created",
		LastAppliedEventTime: baseTime,
		Version:              1,
		CreatedAt:            baseTime,
		UpdatedAt:            baseTime,
	}
}

func TestApplyTransitions(t *testing.T) {
	later := baseTime.Add(time.Hour)

	t.Run("updated moves to payload status", func(t *testing.T) {
		current := existingRecord(billing.StatusTrialing)
		res := subscription.Apply(current, eventAt("evt_upd", billing.EventSubscriptionUpdated, later, billing.Payload{
			Status: billing.StatusActive,
			PlanID: "price_team",
		}))

		require.Equal(t, subscription.OutcomeApplied, res.Outcome)
		assert.Equal(t, billing.StatusActive, res.Record.Status)
		assert.Equal(t, "price_team", res.Record.PlanID)
		assert.Equal(t, int64(2), res.Record.Version)
	})

	t.Run("updated carrying canceled sets canceledAt", func(t *testing.T) {
		current := existingRecord(billing.StatusActive)
		res := subscription.Apply(current, eventAt("evt_upd", billing.EventSubscriptionUpdated, later, billing.Payload{
			Status: billing.StatusCanceled,
		}))

		require.Equal(t, subscription.OutcomeApplied, res.Outcome)
		assert.Equal(t, billing.StatusCanceled, res.Record.Status)
		require.NotNil(t, res.Record.CanceledAt)
		assert.Equal(t, later, *res.Record.CanceledAt)
	})

	t.Run("payment succeeded recovers past_due", func(t *testing.T) {
		current := existingRecord(billing.StatusPastDue)
		res := subscription.Apply(current, eventAt("evt_pay", billing.EventPaymentSucceeded, later, billing.Payload{}))

		require.Equal(t, subscription.OutcomeApplied, res.Outcome)
		assert.Equal(t, billing.StatusActive, res.Record.Status)
	})

	t.Run("payment succeeded activates incomplete", func(t *testing.T) {
		current := existingRecord(billing.StatusIncomplete)
		res := subscription.Apply(current, eventAt("evt_pay", billing.EventPaymentSucceeded, later, billing.Payload{}))

		require.Equal(t, subscription.OutcomeApplied, res.Outcome)
		assert.Equal(t, billing.StatusActive, res.Record.Status)
	})

	t.Run("payment succeeded on active is ignored", func(t *testing.T) {
		current := existingRecord(billing.StatusActive)
		res := subscription.Apply(current, eventAt("evt_pay", billing.EventPaymentSucceeded, later, billing.Payload{}))

		require.Equal(t, subscription.OutcomeIgnored, res.Outcome)
		assert.Equal(t, billing.StatusActive, res.Record.Status)
		assert.Equal(t, int64(1), res.Record.Version)
	})

	t.Run("payment failed marks past_due", func(t *testing.T) {
		for _, status := range []billing.Status{billing.StatusActive, billing.StatusTrialing} {
			current := existingRecord(status)
			res := subscription.Apply(current, eventAt("evt_fail", billing.EventPaymentFailed, later, billing.Payload{}))

			require.Equal(t, subscription.OutcomeApplied, res.Outcome, status)
			assert.Equal(t, billing.StatusPastDue, res.Record.Status)
		}
	})

	t.Run("payment failed elsewhere is ignored", func(t *testing.T) {
		current := existingRecord(billing.StatusIncomplete)
		res := subscription.Apply(current, eventAt("evt_fail", billing.EventPaymentFailed, later, billing.Payload{}))

		require.Equal(t, subscription.OutcomeIgnored, res.Outcome)
	})

	t.Run("canceled from any non-terminal state", func(t *testing.T) {
		for _, status := range []billing.Status{
			billing.StatusTrialing, billing.StatusActive, billing.StatusPastDue,
			billing.StatusIncomplete, billing.StatusIncompleteExpired, billing.StatusUnpaid,
		} {
			current := existingRecord(status)
			res := subscription.Apply(current, eventAt("evt_cancel", billing.EventSubscriptionCanceled, later, billing.Payload{}))

			require.Equal(t, subscription.OutcomeApplied, res.Outcome, status)
			assert.Equal(t, billing.StatusCanceled, res.Record.Status)
			require.NotNil(t, res.Record.CanceledAt)
		}
	})

	t.Run("duplicate creation for existing subject is ignored", func(t *testing.T) {
		current := existingRecord(billing.StatusActive)
		res := subscription.Apply(current, createdEvent(later, billing.Payload{Status: billing.StatusActive}))

		require.Equal(t, subscription.OutcomeIgnored, res.Outcome)
		assert.Equal(t, int64(1), res.Record.Version)
	})
}

func TestApplyTerminalState(t *testing.T) {
	later := baseTime.Add(time.Hour)
	canceledAt := baseTime
	canceled := existingRecord(billing.StatusCanceled)
	canceled.CanceledAt = &canceledAt

	t.Run("updates after cancellation are ignored", func(t *testing.T) {
		res := subscription.Apply(canceled, eventAt("evt_upd", billing.EventSubscriptionUpdated, later, billing.Payload{
			Status: billing.StatusActive,
		}))

		require.Equal(t, subscription.OutcomeIgnored, res.Outcome)
		assert.Equal(t, billing.StatusCanceled, res.Record.Status)
		assert.Equal(t, int64(1), res.Record.Version)
	})

	t.Run("repeat cancellation is ignored", func(t *testing.T) {
		res := subscription.Apply(canceled, eventAt("evt_cancel2", billing.EventSubscriptionCanceled, later, billing.Payload{}))

		require.Equal(t, subscription.OutcomeIgnored, res.Outcome)
	})
}

func TestApplyStalenessGuard(t *testing.T) {
	current := existingRecord(billing.StatusActive)

	t.Run("earlier event is stale", func(t *testing.T) {
		res := subscription.Apply(current, eventAt("evt_old", billing.EventSubscriptionUpdated, baseTime.Add(-time.Minute), billing.Payload{
			Status: billing.StatusPastDue,
		}))

		require.Equal(t, subscription.OutcomeStale, res.Outcome)
		assert.Equal(t, billing.StatusActive, res.Record.Status)
	})

	t.Run("equal timestamp is stale", func(t *testing.T) {
		res := subscription.Apply(current, eventAt("evt_same", billing.EventSubscriptionUpdated, baseTime, billing.Payload{
			Status: billing.StatusPastDue,
		}))

		require.Equal(t, subscription.OutcomeStale, res.Outcome)
	})
}

func TestApplyTrialEnding(t *testing.T) {
	later := baseTime.Add(time.Hour)
	trialEnd := baseTime.Add(3 * 24 * time.Hour)
	current := existingRecord(billing.StatusTrialing)

	res := subscription.Apply(current, eventAt("evt_trial", billing.EventTrialEnding, later, billing.Payload{
		TrialEnd: &trialEnd,
	}))

	require.Equal(t, subscription.OutcomeApplied, res.Outcome)
	assert.True(t, res.TrialEnding)
	// Status untouched, watermark advanced.
	assert.Equal(t, billing.StatusTrialing, res.Record.Status)
	assert.Equal(t, later, res.Record.LastAppliedEventTime)
	assert.Equal(t, int64(2), res.Record.Version)
}

// Order-independence: delivering created(t0), updated→past_due(t1),
// updated→active(t2) in arrival order [t2, t1, t0] must end active.
func TestApplyOrderIndependence(t *testing.T) {
	t0 := baseTime
	t1 := baseTime.Add(time.Minute)
	t2 := baseTime.Add(2 * time.Minute)

	created := createdEvent(t0, billing.Payload{Status: billing.StatusActive})
	updPastDue := eventAt("evt_t1", billing.EventSubscriptionUpdated, t1, billing.Payload{Status: billing.StatusPastDue})
	updActive := eventAt("evt_t2", billing.EventSubscriptionUpdated, t2, billing.Payload{Status: billing.StatusActive})

	// t2 first: subject unknown, rejected until creation arrives.
	res := subscription.Apply(nil, updActive)
	require.Equal(t, subscription.OutcomeRejected, res.Outcome)

	// t0 creates.
	res = subscription.Apply(nil, created)
	require.Equal(t, subscription.OutcomeApplied, res.Outcome)
	rec := res.Record

	// t2 applies on the fresh record.
	res = subscription.Apply(&rec, updActive)
	require.Equal(t, subscription.OutcomeApplied, res.Outcome)
	rec = res.Record
	require.Equal(t, billing.StatusActive, rec.Status)

	// t1 arrives last and is rejected as stale relative to t2.
	res = subscription.Apply(&rec, updPastDue)
	require.Equal(t, subscription.OutcomeStale, res.Outcome)
	assert.Equal(t, billing.StatusActive, res.Record.Status)
	assert.Equal(t, "evt_t2", res.Record.LastAppliedEventID)
}
