package billing

import "errors"

// Normalization errors. Both are non-retryable: an unknown event kind or a
// structurally broken payload does not become parseable on redelivery, so
// the dispatcher acknowledges and drops instead of retrying.
var (
	ErrUnsupportedEventType = errors.New("unsupported billing event type")
	ErrMalformedPayload     = errors.New("malformed billing event payload")
)
