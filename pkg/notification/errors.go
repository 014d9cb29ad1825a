package notification

import "errors"

var (
	ErrInvalidConfig        = errors.New("invalid notification config")
	ErrRecipientNotResolved = errors.New("failed to resolve notification recipient")
	ErrFailedToNotify       = errors.New("failed to deliver notification")
)
