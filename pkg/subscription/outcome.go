package subscription

// Outcome classifies the result of applying one billing event to a
// subscription. Stale and Ignored are successful no-ops, not errors: the
// event was understood and deliberately left without effect.
type Outcome string

const (
	// OutcomeApplied means the event produced a state transition.
	OutcomeApplied Outcome = "applied"
	// OutcomeIgnored means the event is valid but has no effect in the
	// current state, e.g. an update arriving after cancellation.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeStale means the event's occurred-at timestamp is at or before
	// the record's watermark; a newer event already superseded it.
	OutcomeStale Outcome = "stale"
	// OutcomeRejected means the transition is structurally impossible, e.g.
	// an update for a subject that was never created.
	OutcomeRejected Outcome = "rejected"
)

// ApplyResult is the full product of one state-machine application.
type ApplyResult struct {
	Outcome Outcome
	// Record is the next state when Outcome is OutcomeApplied, otherwise the
	// unchanged current state (zero value when the subject is unknown).
	Record Record
	// TrialEnding signals the notification side-channel: set when a
	// trial.ending event was applied.
	TrialEnding bool
	// Reason carries the rejection cause when Outcome is OutcomeRejected.
	Reason error
}
