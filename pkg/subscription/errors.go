package subscription

import "errors"

var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
	// ErrUnknownSubject marks an event for a subject the engine has never
	// created. Retryable a bounded number of times: the creation event may
	// simply not have arrived yet.
	ErrUnknownSubject = errors.New("unknown subscription subject")
	// ErrVersionConflict means the optimistic-concurrency commit lost the
	// race; the dispatcher reloads and re-applies.
	ErrVersionConflict = errors.New("subscription version conflict")
	// ErrConcurrencyExhausted means the reload-and-recommit loop hit its
	// bound without winning a commit.
	ErrConcurrencyExhausted = errors.New("concurrency retries exhausted")
	ErrPersistenceUnavailable = errors.New("subscription persistence unavailable")
	ErrRetriesExhausted       = errors.New("retry attempts exhausted")
)
