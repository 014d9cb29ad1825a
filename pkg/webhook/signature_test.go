package webhook_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/subsync/pkg/webhook"
)

func TestVerifySignature(t *testing.T) {
	secret := "whsec_test_secret"
	payload := []byte(`{"event_id":"evt_1","event_type":"subscription.created"}`)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("valid signature", func(t *testing.T) {
		sig := webhook.SignPayload(secret, payload, now)
		err := webhook.VerifySignature(secret, payload, sig.Header(), 5*time.Minute, now)
		assert.NoError(t, err)
	})

	t.Run("tampered payload fails", func(t *testing.T) {
		sig := webhook.SignPayload(secret, payload, now)
		tampered := []byte(`{"event_id":"evt_1","event_type":"subscription.canceled"}`)
		err := webhook.VerifySignature(secret, tampered, sig.Header(), 5*time.Minute, now)
		assert.ErrorIs(t, err, webhook.ErrSignatureInvalid)
	})

	t.Run("wrong secret fails", func(t *testing.T) {
		sig := webhook.SignPayload("whsec_other", payload, now)
		err := webhook.VerifySignature(secret, payload, sig.Header(), 5*time.Minute, now)
		assert.ErrorIs(t, err, webhook.ErrSignatureInvalid)
	})

	t.Run("expired timestamp", func(t *testing.T) {
		sig := webhook.SignPayload(secret, payload, now.Add(-10*time.Minute))
		err := webhook.VerifySignature(secret, payload, sig.Header(), 5*time.Minute, now)
		assert.ErrorIs(t, err, webhook.ErrTimestampExpired)
	})

	t.Run("timestamp just inside tolerance", func(t *testing.T) {
		sig := webhook.SignPayload(secret, payload, now.Add(-4*time.Minute))
		err := webhook.VerifySignature(secret, payload, sig.Header(), 5*time.Minute, now)
		assert.NoError(t, err)
	})

	t.Run("far-future timestamp rejected", func(t *testing.T) {
		sig := webhook.SignPayload(secret, payload, now.Add(10*time.Minute))
		err := webhook.VerifySignature(secret, payload, sig.Header(), 5*time.Minute, now)
		assert.ErrorIs(t, err, webhook.ErrTimestampExpired)
	})

	t.Run("tampered payload with old signature reports signature error", func(t *testing.T) {
		// Digest check runs before the timestamp check, so a tampered body
		// is never masked as a mere expiry.
		sig := webhook.SignPayload(secret, payload, now.Add(-time.Hour))
		err := webhook.VerifySignature(secret, []byte("tampered"), sig.Header(), 5*time.Minute, now)
		assert.ErrorIs(t, err, webhook.ErrSignatureInvalid)
	})

	t.Run("zero tolerance uses default", func(t *testing.T) {
		sig := webhook.SignPayload(secret, payload, now.Add(-4*time.Minute))
		err := webhook.VerifySignature(secret, payload, sig.Header(), 0, now)
		assert.NoError(t, err)
	})

	t.Run("missing secret", func(t *testing.T) {
		sig := webhook.SignPayload(secret, payload, now)
		err := webhook.VerifySignature("", payload, sig.Header(), 5*time.Minute, now)
		assert.ErrorIs(t, err, webhook.ErrInvalidConfiguration)
	})

	t.Run("empty payload", func(t *testing.T) {
		sig := webhook.SignPayload(secret, payload, now)
		err := webhook.VerifySignature(secret, nil, sig.Header(), 5*time.Minute, now)
		assert.ErrorIs(t, err, webhook.ErrSignatureInvalid)
	})
}

func TestParseSignatureHeader(t *testing.T) {
	t.Run("valid header", func(t *testing.T) {
		sig, err := webhook.ParseSignatureHeader("t=1741608000,v1=deadbeef")
		require.NoError(t, err)
		assert.Equal(t, int64(1741608000), sig.Timestamp)
		assert.Equal(t, "deadbeef", sig.Digest)
	})

	t.Run("ignores unknown pairs", func(t *testing.T) {
		sig, err := webhook.ParseSignatureHeader("t=1741608000,v0=old,v1=deadbeef")
		require.NoError(t, err)
		assert.Equal(t, "deadbeef", sig.Digest)
	})

	t.Run("missing digest", func(t *testing.T) {
		_, err := webhook.ParseSignatureHeader("t=1741608000")
		assert.ErrorIs(t, err, webhook.ErrSignatureInvalid)
	})

	t.Run("garbage header", func(t *testing.T) {
		_, err := webhook.ParseSignatureHeader("not-a-signature")
		assert.ErrorIs(t, err, webhook.ErrSignatureInvalid)
	})

	t.Run("non-numeric timestamp", func(t *testing.T) {
		_, err := webhook.ParseSignatureHeader("t=abc,v1=deadbeef")
		assert.ErrorIs(t, err, webhook.ErrSignatureInvalid)
	})
}

func TestSignatureHeaderRoundTrip(t *testing.T) {
	sig := webhook.SignPayload("secret", []byte("payload"), time.Unix(1741608000, 0))
	parsed, err := webhook.ParseSignatureHeader(sig.Header())
	require.NoError(t, err)
	assert.Equal(t, sig, parsed)
}
