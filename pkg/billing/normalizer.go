package billing

import (
	"encoding/json"
	"fmt"
	"time"
)

// providerEvent mirrors the provider's webhook envelope: a typed header with
// a kind-specific data object.
type providerEvent struct {
	EventID    string       `json:"event_id"`
	EventType  string       `json:"event_type"`
	OccurredAt string       `json:"occurred_at"`
	Data       providerData `json:"data"`
}

type providerData struct {
	ID                 string         `json:"id"`
	SubscriptionID     string         `json:"subscription_id"`
	Status             string         `json:"status"`
	CustomerID         string         `json:"customer_id"`
	CurrentPeriodStart *time.Time     `json:"current_period_start"`
	CurrentPeriodEnd   *time.Time     `json:"current_period_end"`
	TrialStart         *time.Time     `json:"trial_start"`
	TrialEnd           *time.Time     `json:"trial_end"`
	CancelAtPeriodEnd  bool           `json:"cancel_at_period_end"`
	BillingInterval    string         `json:"billing_interval"`
	Items              []providerItem `json:"items"`
	CustomData         map[string]any `json:"custom_data"`
}

type providerItem struct {
	Price struct {
		ID string `json:"id"`
	} `json:"price"`
}

// Normalize parses an authenticated provider payload into a canonical Event.
// It is side-effect free and must be called only after signature
// verification, since it trusts the payload's self-asserted fields.
//
// Returns ErrUnsupportedEventType for kinds outside the recognized set and
// ErrMalformedPayload when required fields are absent or unparseable.
func Normalize(payload []byte) (Event, error) {
	var raw providerEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	if raw.EventType == "" {
		return Event{}, fmt.Errorf("%w: missing event_type", ErrMalformedPayload)
	}
	eventType := EventType(raw.EventType)
	if !eventType.Valid() {
		return Event{}, fmt.Errorf("%w: %q", ErrUnsupportedEventType, raw.EventType)
	}

	if raw.EventID == "" {
		return Event{}, fmt.Errorf("%w: missing event_id", ErrMalformedPayload)
	}
	if raw.OccurredAt == "" {
		return Event{}, fmt.Errorf("%w: missing occurred_at", ErrMalformedPayload)
	}
	occurredAt, err := time.Parse(time.RFC3339, raw.OccurredAt)
	if err != nil {
		return Event{}, fmt.Errorf("%w: invalid occurred_at %q", ErrMalformedPayload, raw.OccurredAt)
	}

	// Invoice events reference the subscription indirectly; subscription
	// events carry their own id.
	subjectID := raw.Data.SubscriptionID
	if subjectID == "" {
		subjectID = raw.Data.ID
	}
	if subjectID == "" {
		return Event{}, fmt.Errorf("%w: missing subscription identifier", ErrMalformedPayload)
	}

	ev := Event{
		ID:         raw.EventID,
		Type:       eventType,
		OccurredAt: occurredAt.UTC(),
		SubjectID:  subjectID,
		Payload: Payload{
			CurrentPeriodStart: raw.Data.CurrentPeriodStart,
			CurrentPeriodEnd:   raw.Data.CurrentPeriodEnd,
			TrialStart:         raw.Data.TrialStart,
			TrialEnd:           raw.Data.TrialEnd,
			CancelAtPeriodEnd:  raw.Data.CancelAtPeriodEnd,
			BillingInterval:    BillingInterval(raw.Data.BillingInterval),
			OwnerID:            ownerID(raw.Data),
		},
	}

	if raw.Data.Status != "" {
		status := Status(raw.Data.Status)
		if !status.Valid() {
			return Event{}, fmt.Errorf("%w: unknown status %q", ErrMalformedPayload, raw.Data.Status)
		}
		ev.Payload.Status = status
	}

	if len(raw.Data.Items) > 0 {
		ev.Payload.PlanID = raw.Data.Items[0].Price.ID
	}

	// Creation events must carry enough to build a record.
	if eventType == EventSubscriptionCreated && ev.Payload.OwnerID == "" {
		return Event{}, fmt.Errorf("%w: missing customer reference on %s", ErrMalformedPayload, eventType)
	}

	return ev, nil
}

// ownerID resolves the internal account reference: a top-level customer_id
// wins, falling back to the checkout's custom_data passthrough.
func ownerID(data providerData) string {
	if data.CustomerID != "" {
		return data.CustomerID
	}
	if id, ok := data.CustomData["customer_id"].(string); ok {
		return id
	}
	return ""
}
