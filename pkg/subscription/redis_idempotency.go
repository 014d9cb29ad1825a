package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisIdempotencyStore records applied event ids in Redis. SET NX provides
// the atomic check-and-set, and the key TTL enforces the retention window
// without an explicit GC pass.
type RedisIdempotencyStore struct {
	client    redis.UniversalClient
	retention time.Duration
	prefix    string
}

// NewRedisIdempotencyStore creates a Redis-backed idempotency store.
// retention bounds how long applied event ids are remembered; it must cover
// the provider's maximum redelivery horizon.
func NewRedisIdempotencyStore(client redis.UniversalClient, retention time.Duration) *RedisIdempotencyStore {
	if client == nil {
		panic("subscription: redis client is required")
	}
	if retention <= 0 {
		retention = 60 * 24 * time.Hour
	}
	return &RedisIdempotencyStore{
		client:    client,
		retention: retention,
		prefix:    "billing:event:",
	}
}

func (s *RedisIdempotencyStore) Check(ctx context.Context, eventID string) (Outcome, bool, error) {
	val, err := s.client.Get(ctx, s.prefix+eventID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, errors.Join(ErrPersistenceUnavailable, err)
	}
	return Outcome(val), true, nil
}

func (s *RedisIdempotencyStore) MarkApplied(ctx context.Context, eventID string, outcome Outcome, _ time.Time) (bool, Outcome, error) {
	ok, err := s.client.SetNX(ctx, s.prefix+eventID, string(outcome), s.retention).Result()
	if err != nil {
		return false, "", errors.Join(ErrPersistenceUnavailable, err)
	}
	if ok {
		return true, outcome, nil
	}

	prior, found, err := s.Check(ctx, eventID)
	if err != nil {
		return false, "", err
	}
	if !found {
		// Key expired between SetNX and Get; treat our outcome as prior.
		return false, outcome, nil
	}
	return false, prior, nil
}

// Cleanup is a no-op: key TTLs already enforce the retention window.
func (s *RedisIdempotencyStore) Cleanup(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}
