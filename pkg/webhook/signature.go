package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultTolerance is the maximum accepted age of a signed payload.
// Old signatures are rejected to block replay of captured webhook calls.
const DefaultTolerance = 5 * time.Minute

// maxClockSkew is how far in the future a timestamp may be before it is
// treated as invalid rather than as provider clock drift.
const maxClockSkew = time.Minute

// Signature carries the parsed components of a signature header.
type Signature struct {
	Timestamp int64
	Digest    string
}

// Header renders the signature in the wire format "t=<unix>,v1=<hex>".
func (s Signature) Header() string {
	return fmt.Sprintf("t=%d,v1=%s", s.Timestamp, s.Digest)
}

// ParseSignatureHeader parses a "t=<unix>,v1=<hex>" header value.
// Unknown key-value pairs are ignored so providers can extend the scheme.
func ParseSignatureHeader(header string) (Signature, error) {
	var sig Signature
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return Signature{}, fmt.Errorf("%w: invalid timestamp %q", ErrSignatureInvalid, value)
			}
			sig.Timestamp = ts
		case "v1":
			sig.Digest = value
		}
	}
	if sig.Timestamp == 0 || sig.Digest == "" {
		return Signature{}, fmt.Errorf("%w: missing timestamp or digest", ErrSignatureInvalid)
	}
	return sig, nil
}

// SignPayload computes the signature header for a payload at the given time.
// Signature format: HMAC-SHA256(secret, timestamp + "." + payload), matching
// the scheme used by Stripe-style webhook providers. Exported so tests and
// outbound callers can produce valid signatures.
func SignPayload(secret string, payload []byte, at time.Time) Signature {
	return Signature{
		Timestamp: at.Unix(),
		Digest:    computeDigest(secret, payload, at.Unix()),
	}
}

// VerifySignature authenticates a raw payload against its signature header.
// It recomputes the HMAC over "timestamp.payload" and compares in constant
// time, then enforces the timestamp tolerance window. Pure function of its
// inputs; no side effects.
//
// Returns ErrSignatureInvalid on digest mismatch or unparseable header, and
// ErrTimestampExpired when the embedded timestamp is older than tolerance.
func VerifySignature(secret string, payload []byte, header string, tolerance time.Duration, now time.Time) error {
	if secret == "" {
		return fmt.Errorf("%w: secret is required", ErrInvalidConfiguration)
	}
	if len(payload) == 0 {
		return fmt.Errorf("%w: payload cannot be empty", ErrSignatureInvalid)
	}

	sig, err := ParseSignatureHeader(header)
	if err != nil {
		return err
	}

	// Verify the digest before the timestamp so a tampered payload is always
	// reported as a signature failure, regardless of the embedded timestamp.
	expected := computeDigest(secret, payload, sig.Timestamp)
	if !hmac.Equal([]byte(expected), []byte(sig.Digest)) {
		return fmt.Errorf("%w: digest mismatch", ErrSignatureInvalid)
	}

	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	age := now.Sub(time.Unix(sig.Timestamp, 0))
	if age > tolerance {
		return fmt.Errorf("%w: signed %s ago, tolerance %s", ErrTimestampExpired, age, tolerance)
	}
	if age < -maxClockSkew {
		return fmt.Errorf("%w: timestamp is in the future", ErrTimestampExpired)
	}

	return nil
}

func computeDigest(secret string, payload []byte, timestamp int64) string {
	h := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(h, "%d.%s", timestamp, payload)
	return hex.EncodeToString(h.Sum(nil))
}
