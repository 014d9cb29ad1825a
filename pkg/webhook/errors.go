package webhook

import "errors"

// Stable error identities for webhook authentication. Both signature errors
// are non-retryable: a replayed or tampered payload does not become valid
// with time, so the dispatcher rejects without retry.
var (
	ErrSignatureInvalid     = errors.New("webhook signature invalid")
	ErrTimestampExpired     = errors.New("webhook signature timestamp expired")
	ErrInvalidConfiguration = errors.New("invalid webhook configuration")
)
