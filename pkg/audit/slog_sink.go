package audit

import (
	"context"
	"log/slog"
)

// SlogSink writes audit entries to a structured logger. Useful when no
// dedicated audit storage is configured.
type SlogSink struct {
	log *slog.Logger
}

func NewSlogSink(log *slog.Logger) *SlogSink {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &SlogSink{log: log}
}

func (s *SlogSink) Record(ctx context.Context, entry Entry) {
	attrs := []any{
		slog.String("subject_id", entry.SubjectID),
		slog.String("event_id", entry.EventID),
		slog.String("outcome", entry.Outcome),
	}
	if entry.Error != "" {
		attrs = append(attrs, slog.String("error", entry.Error))
	}
	s.log.InfoContext(ctx, "billing event outcome", attrs...)
}
