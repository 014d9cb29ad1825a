package subscription

import "time"

type Config struct {
	WebhookSecret      string        `env:"BILLING_WEBHOOK_SECRET,required"`               // WebhookSecret is the shared HMAC signing secret.
	SignatureTolerance time.Duration `env:"BILLING_SIGNATURE_TOLERANCE" envDefault:"5m"`   // SignatureTolerance is the maximum accepted age of a signed payload.
	MaxAttempts        int           `env:"BILLING_RETRY_MAX_ATTEMPTS" envDefault:"5"`     // MaxAttempts bounds retries for transient failures within one delivery.
	BackoffBase        time.Duration `env:"BILLING_RETRY_BACKOFF_BASE" envDefault:"1s"`    // BackoffBase is the first retry delay.
	BackoffCap         time.Duration `env:"BILLING_RETRY_BACKOFF_CAP" envDefault:"60s"`    // BackoffCap is the maximum retry delay.
	MaxCommitRetries   int           `env:"BILLING_COMMIT_MAX_RETRIES" envDefault:"3"`     // MaxCommitRetries bounds the reload-and-recommit loop on version conflicts.
	EventRetention     time.Duration `env:"BILLING_EVENT_RETENTION" envDefault:"1440h"`    // EventRetention is how long applied event ids are remembered (default 60 days).
	GCInterval         time.Duration `env:"BILLING_RETENTION_GC_INTERVAL" envDefault:"12h"` // GCInterval is how often expired idempotency entries are collected.
}
