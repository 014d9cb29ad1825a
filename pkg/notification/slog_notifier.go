package notification

import (
	"context"
	"log/slog"
)

// slogNotifier logs notices instead of delivering them. Default for local
// development and environments without email credentials.
type slogNotifier struct {
	log *slog.Logger
}

// NewSlogNotifier returns a Notifier that writes notices to the logger.
func NewSlogNotifier(log *slog.Logger) Notifier {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &slogNotifier{log: log}
}

func (n *slogNotifier) TrialEnding(ctx context.Context, notice TrialEndingNotice) error {
	n.log.InfoContext(ctx, "trial ending soon",
		slog.String("subject_id", notice.SubjectID),
		slog.String("owner_id", notice.OwnerID),
		slog.Time("trial_end", notice.TrialEnd),
	)
	return nil
}
