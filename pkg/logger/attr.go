package logger

import "log/slog"

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// EventID records the billing event identifier under the key "event_id".
func EventID(id string) slog.Attr {
	return slog.String("event_id", id)
}

// SubjectID records the subscription identifier under the key "subject_id".
func SubjectID(id string) slog.Attr {
	return slog.String("subject_id", id)
}

// Outcome records a reconciliation outcome under the key "outcome".
func Outcome(outcome string) slog.Attr {
	return slog.String("outcome", outcome)
}

// Component names the emitting component under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}
