package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/subsync/pkg/pg"
)

// PGStore is the PostgreSQL persistence gateway. Commits are conditioned on
// the stored version so concurrent pipelines never overwrite each other.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	if pool == nil {
		panic("subscription: pgx pool is required")
	}
	return &PGStore{pool: pool}
}

const selectRecordQuery = `
SELECT subject_id, owner_id, status, plan_id, billing_interval,
       current_period_start, current_period_end, trial_start, trial_end,
       cancel_at_period_end, canceled_at,
       last_applied_event_id, last_applied_event_time,
       version, created_at, updated_at
FROM subscriptions
WHERE subject_id = $1`

func (s *PGStore) Get(ctx context.Context, subjectID string) (*Record, error) {
	var rec Record
	err := s.pool.QueryRow(ctx, selectRecordQuery, subjectID).Scan(
		&rec.SubjectID, &rec.OwnerID, &rec.Status, &rec.PlanID, &rec.BillingInterval,
		&rec.CurrentPeriodStart, &rec.CurrentPeriodEnd, &rec.TrialStart, &rec.TrialEnd,
		&rec.CancelAtPeriodEnd, &rec.CanceledAt,
		&rec.LastAppliedEventID, &rec.LastAppliedEventTime,
		&rec.Version, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, errors.Join(ErrPersistenceUnavailable, err)
	}
	return &rec, nil
}

const insertRecordQuery = `
INSERT INTO subscriptions (
	subject_id, owner_id, status, plan_id, billing_interval,
	current_period_start, current_period_end, trial_start, trial_end,
	cancel_at_period_end, canceled_at,
	last_applied_event_id, last_applied_event_time,
	version, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
ON CONFLICT (subject_id) DO NOTHING`

const updateRecordQuery = `
UPDATE subscriptions SET
	owner_id = $2, status = $3, plan_id = $4, billing_interval = $5,
	current_period_start = $6, current_period_end = $7,
	trial_start = $8, trial_end = $9,
	cancel_at_period_end = $10, canceled_at = $11,
	last_applied_event_id = $12, last_applied_event_time = $13,
	version = $14, updated_at = $15
WHERE subject_id = $1 AND version = $16`

func (s *PGStore) Commit(ctx context.Context, expectedVersion int64, next Record) error {
	if expectedVersion == 0 {
		tag, err := s.pool.Exec(ctx, insertRecordQuery,
			next.SubjectID, next.OwnerID, next.Status, next.PlanID, next.BillingInterval,
			next.CurrentPeriodStart, next.CurrentPeriodEnd, next.TrialStart, next.TrialEnd,
			next.CancelAtPeriodEnd, next.CanceledAt,
			next.LastAppliedEventID, next.LastAppliedEventTime,
			next.Version, next.CreatedAt, next.UpdatedAt,
		)
		if err != nil {
			if pg.IsDuplicateKeyError(err) {
				return ErrVersionConflict
			}
			return errors.Join(ErrPersistenceUnavailable, err)
		}
		if tag.RowsAffected() == 0 {
			// Another pipeline created the record first.
			return ErrVersionConflict
		}
		return nil
	}

	tag, err := s.pool.Exec(ctx, updateRecordQuery,
		next.SubjectID, next.OwnerID, next.Status, next.PlanID, next.BillingInterval,
		next.CurrentPeriodStart, next.CurrentPeriodEnd,
		next.TrialStart, next.TrialEnd,
		next.CancelAtPeriodEnd, next.CanceledAt,
		next.LastAppliedEventID, next.LastAppliedEventTime,
		next.Version, next.UpdatedAt, expectedVersion,
	)
	if err != nil {
		return errors.Join(ErrPersistenceUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	return nil
}

// PGIdempotencyStore records applied event ids in the billing_events table.
// The primary key on event_id makes the insert the atomic check-and-set the
// at-most-once guarantee rests on.
type PGIdempotencyStore struct {
	pool *pgxpool.Pool
}

func NewPGIdempotencyStore(pool *pgxpool.Pool) *PGIdempotencyStore {
	if pool == nil {
		panic("subscription: pgx pool is required")
	}
	return &PGIdempotencyStore{pool: pool}
}

func (s *PGIdempotencyStore) Check(ctx context.Context, eventID string) (Outcome, bool, error) {
	var outcome Outcome
	err := s.pool.QueryRow(ctx,
		`SELECT outcome FROM billing_events WHERE event_id = $1`, eventID,
	).Scan(&outcome)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return "", false, nil
		}
		return "", false, errors.Join(ErrPersistenceUnavailable, err)
	}
	return outcome, true, nil
}

func (s *PGIdempotencyStore) MarkApplied(ctx context.Context, eventID string, outcome Outcome, appliedAt time.Time) (bool, Outcome, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO billing_events (event_id, outcome, applied_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (event_id) DO NOTHING`,
		eventID, outcome, appliedAt,
	)
	if err != nil {
		return false, "", errors.Join(ErrPersistenceUnavailable, err)
	}
	if tag.RowsAffected() > 0 {
		return true, outcome, nil
	}

	// Lost the insert race: surface the winner's outcome.
	prior, found, err := s.Check(ctx, eventID)
	if err != nil {
		return false, "", err
	}
	if !found {
		// The winning row vanished between insert and read; only retention
		// cleanup deletes rows, and it never races fresh events under any
		// sane retention window.
		return false, outcome, nil
	}
	return false, prior, nil
}

func (s *PGIdempotencyStore) Cleanup(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM billing_events WHERE applied_at < $1`, olderThan,
	)
	if err != nil {
		return 0, errors.Join(ErrPersistenceUnavailable, err)
	}
	return tag.RowsAffected(), nil
}

// PGDeadLetterStore persists terminally failed deliveries for inspection.
type PGDeadLetterStore struct {
	pool *pgxpool.Pool
}

func NewPGDeadLetterStore(pool *pgxpool.Pool) *PGDeadLetterStore {
	if pool == nil {
		panic("subscription: pgx pool is required")
	}
	return &PGDeadLetterStore{pool: pool}
}

func (s *PGDeadLetterStore) Store(ctx context.Context, letter DeadLetter) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO billing_dead_letters (id, event_id, subject_id, reason, detail, payload, attempts, failed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		letter.ID, letter.EventID, letter.SubjectID, letter.Reason, letter.Detail,
		letter.Payload, letter.Attempts, letter.FailedAt,
	)
	if err != nil {
		return errors.Join(ErrPersistenceUnavailable, err)
	}
	return nil
}
