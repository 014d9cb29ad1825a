package subscription_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/subsync/pkg/billing"
	"github.com/dmitrymomot/subsync/pkg/subscription"
)

func TestMemoryStoreCommit(t *testing.T) {
	ctx := context.Background()

	rec := subscription.Record{
		SubjectID: "sub_123",
		OwnerID:   "acct_42",
		Status:    billing.StatusActive,
		Version:   1,
	}

	t.Run("insert requires expected version zero", func(t *testing.T) {
		store := subscription.NewMemoryStore()
		require.NoError(t, store.Commit(ctx, 0, rec))

		got, err := store.Get(ctx, "sub_123")
		require.NoError(t, err)
		assert.Equal(t, rec, *got)
	})

	t.Run("insert conflicts when record exists", func(t *testing.T) {
		store := subscription.NewMemoryStore()
		require.NoError(t, store.Commit(ctx, 0, rec))
		assert.ErrorIs(t, store.Commit(ctx, 0, rec), subscription.ErrVersionConflict)
	})

	t.Run("update requires matching version", func(t *testing.T) {
		store := subscription.NewMemoryStore()
		require.NoError(t, store.Commit(ctx, 0, rec))

		next := rec
		next.Status = billing.StatusPastDue
		next.Version = 2
		require.NoError(t, store.Commit(ctx, 1, next))

		got, err := store.Get(ctx, "sub_123")
		require.NoError(t, err)
		assert.Equal(t, billing.StatusPastDue, got.Status)

		// A writer holding the superseded version loses.
		assert.ErrorIs(t, store.Commit(ctx, 1, next), subscription.ErrVersionConflict)
	})

	t.Run("update of absent record conflicts", func(t *testing.T) {
		store := subscription.NewMemoryStore()
		assert.ErrorIs(t, store.Commit(ctx, 1, rec), subscription.ErrVersionConflict)
	})

	t.Run("get returns a copy", func(t *testing.T) {
		store := subscription.NewMemoryStore()
		require.NoError(t, store.Commit(ctx, 0, rec))

		got, err := store.Get(ctx, "sub_123")
		require.NoError(t, err)
		got.Status = billing.StatusCanceled

		again, err := store.Get(ctx, "sub_123")
		require.NoError(t, err)
		assert.Equal(t, billing.StatusActive, again.Status)
	})

	t.Run("get unknown subject", func(t *testing.T) {
		store := subscription.NewMemoryStore()
		_, err := store.Get(ctx, "sub_missing")
		assert.ErrorIs(t, err, subscription.ErrSubscriptionNotFound)
	})
}

func TestMemoryIdempotencyStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("first mark wins", func(t *testing.T) {
		store := subscription.NewMemoryIdempotencyStore()

		first, prior, err := store.MarkApplied(ctx, "evt_1", subscription.OutcomeApplied, now)
		require.NoError(t, err)
		assert.True(t, first)
		assert.Equal(t, subscription.OutcomeApplied, prior)

		first, prior, err = store.MarkApplied(ctx, "evt_1", subscription.OutcomeStale, now)
		require.NoError(t, err)
		assert.False(t, first)
		assert.Equal(t, subscription.OutcomeApplied, prior)
	})

	t.Run("check reports recorded outcome", func(t *testing.T) {
		store := subscription.NewMemoryIdempotencyStore()

		_, seen, err := store.Check(ctx, "evt_1")
		require.NoError(t, err)
		assert.False(t, seen)

		_, _, err = store.MarkApplied(ctx, "evt_1", subscription.OutcomeIgnored, now)
		require.NoError(t, err)

		outcome, seen, err := store.Check(ctx, "evt_1")
		require.NoError(t, err)
		assert.True(t, seen)
		assert.Equal(t, subscription.OutcomeIgnored, outcome)
	})

	t.Run("cleanup removes entries past the cutoff", func(t *testing.T) {
		store := subscription.NewMemoryIdempotencyStore()

		_, _, err := store.MarkApplied(ctx, "evt_old", subscription.OutcomeApplied, now.Add(-48*time.Hour))
		require.NoError(t, err)
		_, _, err = store.MarkApplied(ctx, "evt_recent", subscription.OutcomeApplied, now)
		require.NoError(t, err)

		removed, err := store.Cleanup(ctx, now.Add(-24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(1), removed)

		_, seen, err := store.Check(ctx, "evt_old")
		require.NoError(t, err)
		assert.False(t, seen)
		_, seen, err = store.Check(ctx, "evt_recent")
		require.NoError(t, err)
		assert.True(t, seen)
	})
}
