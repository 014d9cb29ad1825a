package subscription

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/subsync/pkg/audit"
	"github.com/dmitrymomot/subsync/pkg/notification"
	"github.com/dmitrymomot/subsync/pkg/webhook"
)

// DispatcherOption configures a Dispatcher instance.
type DispatcherOption func(*Dispatcher)

// WithDeadLetterStore sets the dead-letter store. Defaults to an in-memory
// store; production deployments should use the PG implementation.
func WithDeadLetterStore(store DeadLetterStore) DispatcherOption {
	return func(d *Dispatcher) {
		if store != nil {
			d.deadLetters = store
		}
	}
}

// WithBackoffStrategy overrides the retry backoff strategy built from the
// dispatcher config.
func WithBackoffStrategy(strategy webhook.BackoffStrategy) DispatcherOption {
	return func(d *Dispatcher) {
		if strategy != nil {
			d.backoff = strategy
		}
	}
}

// WithAuditSink sets the outcome audit sink. Defaults to logging outcomes.
func WithAuditSink(sink audit.Sink) DispatcherOption {
	return func(d *Dispatcher) {
		if sink != nil {
			d.auditSink = sink
		}
	}
}

// WithNotifier sets the trial-ending notifier. Defaults to logging notices.
func WithNotifier(notifier notification.Notifier) DispatcherOption {
	return func(d *Dispatcher) {
		if notifier != nil {
			d.notifier = notifier
		}
	}
}

// WithLogger supplies a structured logger. If unset, logs are discarded.
func WithLogger(log *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if log != nil {
			d.log = log
		}
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}
