package billing

import "time"

// EventType is the closed set of provider notification kinds the engine
// recognizes. Provider payloads are mapped onto this set by Normalize and
// never travel past the normalizer in their original shape.
type EventType string

const (
	EventSubscriptionCreated  EventType = "subscription.created"
	EventSubscriptionUpdated  EventType = "subscription.updated"
	EventSubscriptionCanceled EventType = "subscription.canceled"
	EventPaymentSucceeded     EventType = "invoice.payment_succeeded"
	EventPaymentFailed        EventType = "invoice.payment_failed"
	EventTrialEnding          EventType = "trial.ending"
)

// knownEventTypes guards the closed set; anything else is unsupported.
var knownEventTypes = map[EventType]struct{}{
	EventSubscriptionCreated:  {},
	EventSubscriptionUpdated:  {},
	EventSubscriptionCanceled: {},
	EventPaymentSucceeded:     {},
	EventPaymentFailed:        {},
	EventTrialEnding:          {},
}

// Valid reports whether the event type belongs to the recognized set.
func (t EventType) Valid() bool {
	_, ok := knownEventTypes[t]
	return ok
}

// Status is the canonical subscription status vocabulary carried in event
// payloads and stored on subscription records.
type Status string

const (
	StatusTrialing          Status = "trialing"
	StatusActive            Status = "active"
	StatusPastDue           Status = "past_due"
	StatusCanceled          Status = "canceled"
	StatusIncomplete        Status = "incomplete"
	StatusIncompleteExpired Status = "incomplete_expired"
	StatusUnpaid            Status = "unpaid"
)

var knownStatuses = map[Status]struct{}{
	StatusTrialing:          {},
	StatusActive:            {},
	StatusPastDue:           {},
	StatusCanceled:          {},
	StatusIncomplete:        {},
	StatusIncompleteExpired: {},
	StatusUnpaid:            {},
}

// Valid reports whether the status belongs to the canonical vocabulary.
func (s Status) Valid() bool {
	_, ok := knownStatuses[s]
	return ok
}

// BillingInterval is the billing frequency carried in event payloads.
type BillingInterval string

const (
	BillingIntervalMonthly BillingInterval = "monthly"
	BillingIntervalAnnual  BillingInterval = "annual"
)

// Payload carries the normalized fields relevant to an event kind. Fields
// that a given kind does not carry are left at their zero value.
type Payload struct {
	Status             Status
	PlanID             string
	BillingInterval    BillingInterval
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	TrialStart         *time.Time
	TrialEnd           *time.Time
	CancelAtPeriodEnd  bool
	OwnerID            string
}

// Event is one normalized provider notification. Immutable after creation:
// components receive it by value and never mutate it.
type Event struct {
	// ID is the provider-assigned event identifier used for deduplication.
	ID string
	// Type is the normalized event kind.
	Type EventType
	// OccurredAt is the provider-asserted timestamp. It is authoritative for
	// ordering; receipt order carries no meaning.
	OccurredAt time.Time
	// SubjectID identifies the subscription the event pertains to.
	SubjectID string
	// Payload holds the normalized fields for the event kind.
	Payload Payload
}
