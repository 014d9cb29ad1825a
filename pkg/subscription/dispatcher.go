package subscription

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/subsync/pkg/audit"
	"github.com/dmitrymomot/subsync/pkg/billing"
	"github.com/dmitrymomot/subsync/pkg/notification"
	"github.com/dmitrymomot/subsync/pkg/webhook"
)

// Dead-letter reason codes, stable for querying the dead-letter table.
const (
	reasonSignatureInvalid     = "signature_invalid"
	reasonTimestampExpired     = "timestamp_expired"
	reasonMalformedPayload     = "malformed_payload"
	reasonUnsupportedEventType = "unsupported_event_type"
	reasonUnknownSubject       = "unknown_subject"
	reasonConcurrencyExhausted = "concurrency_exhausted"
	reasonPersistenceFailure   = "persistence_unavailable"
)

// Result is the acknowledged product of one delivery.
type Result struct {
	EventID   string
	SubjectID string
	Outcome   Outcome
	// Reason carries the classification for rejected or dropped deliveries.
	Reason error
}

// Dispatcher drives the full pipeline for one inbound webhook call:
// verify signature, normalize, deduplicate, reconcile, commit, acknowledge.
// It owns all retry, backoff, and dead-letter policy; the components below
// it return typed outcomes and never classify.
//
// Dispatch never acknowledges before persistence durability is confirmed:
// a nil error from Dispatch means the effect (or its deliberate absence) is
// durable and the provider may stop retrying.
type Dispatcher struct {
	secret           string
	tolerance        time.Duration
	maxAttempts      int
	maxCommitRetries int
	retention        time.Duration
	gcInterval       time.Duration

	store       Store
	idempotency IdempotencyStore
	deadLetters DeadLetterStore
	backoff     webhook.BackoffStrategy
	auditSink   audit.Sink
	notifier    notification.Notifier
	log         *slog.Logger
	now         func() time.Time
}

// NewDispatcher wires the pipeline. The store and idempotency store are
// required; everything else has a working default (memory dead letters,
// audit to the logger, notification to the logger).
func NewDispatcher(cfg Config, store Store, idempotency IdempotencyStore, opts ...DispatcherOption) *Dispatcher {
	if cfg.WebhookSecret == "" {
		panic("subscription: webhook secret is required")
	}
	if store == nil {
		panic("subscription: store is required")
	}
	if idempotency == nil {
		panic("subscription: idempotency store is required")
	}

	d := &Dispatcher{
		secret:           cfg.WebhookSecret,
		tolerance:        cfg.SignatureTolerance,
		maxAttempts:      cfg.MaxAttempts,
		maxCommitRetries: cfg.MaxCommitRetries,
		retention:        cfg.EventRetention,
		gcInterval:       cfg.GCInterval,
		store:            store,
		idempotency:      idempotency,
		now:              func() time.Time { return time.Now().UTC() },
	}

	if d.maxAttempts <= 0 {
		d.maxAttempts = 5
	}
	if d.maxCommitRetries <= 0 {
		d.maxCommitRetries = 3
	}
	if d.retention <= 0 {
		d.retention = 60 * 24 * time.Hour
	}
	if d.gcInterval <= 0 {
		d.gcInterval = 12 * time.Hour
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.backoff == nil {
		d.backoff = webhook.ExponentialBackoff{
			InitialInterval: cfg.BackoffBase,
			MaxInterval:     cfg.BackoffCap,
			Multiplier:      2,
			JitterFactor:    0.1,
		}
	}
	if d.log == nil {
		d.log = slog.New(slog.DiscardHandler)
	}
	if d.deadLetters == nil {
		d.deadLetters = NewMemoryDeadLetterStore()
	}
	if d.auditSink == nil {
		d.auditSink = audit.NewSlogSink(d.log)
	}
	if d.notifier == nil {
		d.notifier = notification.NewSlogNotifier(d.log)
	}

	return d
}

// Dispatch processes one raw webhook delivery. A nil error means the
// delivery is acknowledged (200): applied, idempotent skip, stale/ignored
// no-op, or a classified non-retryable rejection. A non-nil error means the
// failure is transient and the provider should redeliver (5xx).
func (d *Dispatcher) Dispatch(ctx context.Context, payload []byte, signatureHeader string) (Result, error) {
	if err := webhook.VerifySignature(d.secret, payload, signatureHeader, d.tolerance, d.now()); err != nil {
		return d.reject(ctx, "", "", classifySignatureError(err), err, payload), nil
	}

	ev, err := billing.Normalize(payload)
	if err != nil {
		// Unknown kinds and broken payloads are not transient; acknowledge
		// so the provider stops redelivering, keep the payload for
		// inspection.
		reason := reasonMalformedPayload
		if errors.Is(err, billing.ErrUnsupportedEventType) {
			reason = reasonUnsupportedEventType
		}
		return d.reject(ctx, "", "", reason, err, payload), nil
	}

	// Fast path: an already applied event id skips the state machine
	// entirely and re-acknowledges with the recorded outcome.
	if prior, seen, err := d.idempotency.Check(ctx, ev.ID); err != nil {
		return Result{EventID: ev.ID, SubjectID: ev.SubjectID}, err
	} else if seen {
		d.recordAudit(ctx, ev.SubjectID, ev.ID, prior, nil)
		return Result{EventID: ev.ID, SubjectID: ev.SubjectID, Outcome: prior}, nil
	}

	return d.reconcile(ctx, ev, payload)
}

// reconcile runs the load→apply→commit loop with the dispatcher's retry
// policy: backoff for unknown subjects and persistence failures, immediate
// reload for version conflicts.
func (d *Dispatcher) reconcile(ctx context.Context, ev billing.Event, payload []byte) (Result, error) {
	conflicts := 0

	for attempt := 1; ; attempt++ {
		current, err := d.store.Get(ctx, ev.SubjectID)
		if err != nil && !errors.Is(err, ErrSubscriptionNotFound) {
			if attempt >= d.maxAttempts {
				d.deadLetter(ctx, ev.ID, ev.SubjectID, reasonPersistenceFailure, err, payload, attempt)
				return Result{EventID: ev.ID, SubjectID: ev.SubjectID}, errors.Join(ErrRetriesExhausted, err)
			}
			if waitErr := d.wait(ctx, attempt); waitErr != nil {
				return Result{EventID: ev.ID, SubjectID: ev.SubjectID}, waitErr
			}
			continue
		}

		applied := Apply(current, ev)

		switch applied.Outcome {
		case OutcomeRejected:
			// The creation event may still be in flight; give it a bounded
			// chance to arrive before dead-lettering.
			if attempt >= d.maxAttempts {
				d.deadLetter(ctx, ev.ID, ev.SubjectID, reasonUnknownSubject, applied.Reason, payload, attempt)
				d.recordAudit(ctx, ev.SubjectID, ev.ID, OutcomeRejected, applied.Reason)
				return Result{EventID: ev.ID, SubjectID: ev.SubjectID, Outcome: OutcomeRejected, Reason: applied.Reason},
					errors.Join(ErrRetriesExhausted, applied.Reason)
			}
			if waitErr := d.wait(ctx, attempt); waitErr != nil {
				return Result{EventID: ev.ID, SubjectID: ev.SubjectID}, waitErr
			}
			continue

		case OutcomeStale, OutcomeIgnored:
			return d.finalize(ctx, ev, applied)

		case OutcomeApplied:
			var expectedVersion int64
			if current != nil {
				expectedVersion = current.Version
			}

			commitErr := d.store.Commit(ctx, expectedVersion, applied.Record)
			if commitErr == nil {
				return d.finalize(ctx, ev, applied)
			}

			if errors.Is(commitErr, ErrVersionConflict) {
				// Reload immediately: the fresh state re-runs the staleness
				// guard, which makes this retry safe.
				conflicts++
				if conflicts > d.maxCommitRetries {
					err := errors.Join(ErrConcurrencyExhausted, commitErr)
					d.deadLetter(ctx, ev.ID, ev.SubjectID, reasonConcurrencyExhausted, err, payload, attempt)
					return Result{EventID: ev.ID, SubjectID: ev.SubjectID}, err
				}
				continue
			}

			if attempt >= d.maxAttempts {
				d.deadLetter(ctx, ev.ID, ev.SubjectID, reasonPersistenceFailure, commitErr, payload, attempt)
				return Result{EventID: ev.ID, SubjectID: ev.SubjectID}, errors.Join(ErrRetriesExhausted, commitErr)
			}
			if waitErr := d.wait(ctx, attempt); waitErr != nil {
				return Result{EventID: ev.ID, SubjectID: ev.SubjectID}, waitErr
			}
			continue
		}
	}
}

// finalize records the event id as applied, emits audit, and fires the
// trial-ending side-channel. Called only after the outcome is durable.
func (d *Dispatcher) finalize(ctx context.Context, ev billing.Event, applied ApplyResult) (Result, error) {
	first, prior, err := d.idempotency.MarkApplied(ctx, ev.ID, applied.Outcome, d.now())
	if err != nil {
		// The commit is already durable; refusing the acknowledgment now
		// would only trigger a redelivery that the staleness guard turns
		// into a no-op. Log and acknowledge.
		d.log.ErrorContext(ctx, "failed to mark event applied",
			slog.String("event_id", ev.ID), slog.Any("error", err))
		first = true
		prior = applied.Outcome
	}

	// Duplicates acknowledge with the winner's outcome so every delivery of
	// the same event id answers identically.
	outcome := prior
	d.recordAudit(ctx, ev.SubjectID, ev.ID, outcome, nil)

	if first && applied.TrialEnding && applied.Record.TrialEnd != nil {
		d.notifyTrialEnding(notification.TrialEndingNotice{
			SubjectID: ev.SubjectID,
			OwnerID:   applied.Record.OwnerID,
			TrialEnd:  *applied.Record.TrialEnd,
		})
	}

	return Result{EventID: ev.ID, SubjectID: ev.SubjectID, Outcome: outcome}, nil
}

// reject dead-letters and audits a permanently rejected delivery, then
// returns the acknowledged result.
func (d *Dispatcher) reject(ctx context.Context, eventID, subjectID, reason string, cause error, payload []byte) Result {
	d.log.WarnContext(ctx, "billing event rejected",
		slog.String("reason", reason), slog.Any("error", cause))
	d.deadLetter(ctx, eventID, subjectID, reason, cause, payload, 1)
	d.recordAudit(ctx, subjectID, eventID, OutcomeRejected, cause)
	return Result{EventID: eventID, SubjectID: subjectID, Outcome: OutcomeRejected, Reason: cause}
}

func (d *Dispatcher) deadLetter(ctx context.Context, eventID, subjectID, reason string, cause error, payload []byte, attempts int) {
	letter := DeadLetter{
		ID:        uuid.New(),
		EventID:   eventID,
		SubjectID: subjectID,
		Reason:    reason,
		Payload:   payload,
		Attempts:  attempts,
		FailedAt:  d.now(),
	}
	if cause != nil {
		letter.Detail = cause.Error()
	}
	if err := d.deadLetters.Store(ctx, letter); err != nil {
		d.log.ErrorContext(ctx, "failed to store dead letter",
			slog.String("event_id", eventID), slog.Any("error", err))
	}
}

func (d *Dispatcher) recordAudit(ctx context.Context, subjectID, eventID string, outcome Outcome, cause error) {
	entry := audit.Entry{
		ID:        uuid.New(),
		SubjectID: subjectID,
		EventID:   eventID,
		Outcome:   string(outcome),
		CreatedAt: d.now(),
	}
	if cause != nil {
		entry.Error = cause.Error()
	}
	d.auditSink.Record(ctx, entry)
}

// notifyTrialEnding fires the notification side-channel detached from the
// request: delivery failures never affect acknowledgment.
func (d *Dispatcher) notifyTrialEnding(notice notification.TrialEndingNotice) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := d.notifier.TrialEnding(ctx, notice); err != nil {
			d.log.ErrorContext(ctx, "failed to deliver trial-ending notice",
				slog.String("subject_id", notice.SubjectID), slog.Any("error", err))
		}
	}()
}

// wait sleeps for the backoff interval of the given attempt, honoring
// cancellation. This and the store calls are the pipeline's only suspension
// points.
func (d *Dispatcher) wait(ctx context.Context, attempt int) error {
	delay := d.backoff.NextInterval(attempt)
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RunRetentionGC periodically removes idempotency entries older than the
// retention window. Blocks until the context is canceled; run it in its own
// goroutine next to the HTTP server.
func (d *Dispatcher) RunRetentionGC(ctx context.Context) {
	ticker := time.NewTicker(d.gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := d.now().Add(-d.retention)
			removed, err := d.idempotency.Cleanup(ctx, cutoff)
			if err != nil {
				d.log.ErrorContext(ctx, "idempotency retention cleanup failed", slog.Any("error", err))
				continue
			}
			if removed > 0 {
				d.log.InfoContext(ctx, "idempotency retention cleanup",
					slog.Int64("removed", removed), slog.Time("cutoff", cutoff))
			}
		}
	}
}

func classifySignatureError(err error) string {
	if errors.Is(err, webhook.ErrTimestampExpired) {
		return reasonTimestampExpired
	}
	return reasonSignatureInvalid
}
