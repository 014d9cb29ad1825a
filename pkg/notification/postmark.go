package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrz1836/postmark"
)

// Config holds Postmark notifier configuration.
type Config struct {
	ServerToken  string `env:"POSTMARK_SERVER_TOKEN,required"`
	AccountToken string `env:"POSTMARK_ACCOUNT_TOKEN,required"`
	SenderEmail  string `env:"SENDER_EMAIL,required"`
}

type postmarkNotifier struct {
	client   *postmark.Client
	config   Config
	resolver RecipientResolver
}

// NewPostmarkNotifier creates a Postmark-backed trial-ending notifier.
// The resolver maps owner ids to email addresses and is required.
func NewPostmarkNotifier(cfg Config, resolver RecipientResolver) (Notifier, error) {
	if cfg.ServerToken == "" {
		return nil, fmt.Errorf("%w: ServerToken is required", ErrInvalidConfig)
	}
	if cfg.AccountToken == "" {
		return nil, fmt.Errorf("%w: AccountToken is required", ErrInvalidConfig)
	}
	if cfg.SenderEmail == "" {
		return nil, fmt.Errorf("%w: SenderEmail is required", ErrInvalidConfig)
	}
	if resolver == nil {
		return nil, fmt.Errorf("%w: recipient resolver is required", ErrInvalidConfig)
	}

	return &postmarkNotifier{
		client:   postmark.NewClient(cfg.ServerToken, cfg.AccountToken),
		config:   cfg,
		resolver: resolver,
	}, nil
}

func (n *postmarkNotifier) TrialEnding(ctx context.Context, notice TrialEndingNotice) error {
	recipient, err := n.resolver(ctx, notice.OwnerID)
	if err != nil {
		return errors.Join(ErrRecipientNotResolved, err)
	}

	resp, err := n.client.SendEmail(ctx, postmark.Email{
		From:     n.config.SenderEmail,
		To:       recipient,
		Subject:  "Your trial is ending soon",
		Tag:      "trial-ending",
		TextBody: fmt.Sprintf("Your trial ends on %s. Add a payment method to keep your subscription active.", notice.TrialEnd.Format("January 2, 2006")),
	})
	if err != nil {
		return errors.Join(ErrFailedToNotify, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(ErrFailedToNotify, fmt.Errorf("postmark error %d: %s", resp.ErrorCode, resp.Message))
	}

	return nil
}
