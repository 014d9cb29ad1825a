package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStorage persists audit entries into the audit_log table. Batches from
// the async sink are written in a single round trip.
type PGStorage struct {
	pool *pgxpool.Pool
}

func NewPGStorage(pool *pgxpool.Pool) *PGStorage {
	if pool == nil {
		panic("audit: pgx pool is required")
	}
	return &PGStorage{pool: pool}
}

func (s *PGStorage) Store(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, entry := range entries {
		batch.Queue(
			`INSERT INTO audit_log (id, subject_id, event_id, outcome, error, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			entry.ID, entry.SubjectID, entry.EventID, entry.Outcome, entry.Error, entry.CreatedAt,
		)
	}

	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to store audit batch: %w", err)
	}
	return nil
}
