package pg

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect establishes a PostgreSQL connection pool with startup retry.
// Each failed attempt waits attempt*RetryInterval before trying again, which
// spreads out reconnects when several instances restart at once.
func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	if cfg.ConnectionString == "" {
		return nil, ErrEmptyConnectionString
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseDBConfig, err)
	}
	poolConfig.MaxConns = cfg.MaxOpenConns
	poolConfig.MinConns = cfg.MinIdleConns
	poolConfig.HealthCheckPeriod = cfg.HealthCheckPeriod
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime

	for i := range cfg.RetryAttempts {
		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			if sleepErr := sleep(ctx, time.Duration(i+1)*cfg.RetryInterval); sleepErr != nil {
				return nil, errors.Join(ErrFailedToOpenDBConnection, sleepErr)
			}
			continue
		}

		// Ping to surface authentication and permission problems at startup
		// instead of on the first webhook.
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			if sleepErr := sleep(ctx, time.Duration(i+1)*cfg.RetryInterval); sleepErr != nil {
				return nil, errors.Join(ErrFailedToOpenDBConnection, sleepErr)
			}
			continue
		}

		return pool, nil
	}

	return nil, ErrFailedToOpenDBConnection
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
