// Package webhook provides inbound webhook primitives: HMAC-SHA256 payload
// signature verification with replay protection, and backoff strategies used
// by the dispatcher when retrying transient failures.
//
// The signature scheme binds the payload to a timestamp
// (HMAC-SHA256(secret, timestamp + "." + payload), header "t=...,v1=...")
// so a captured payload cannot be replayed outside the tolerance window.
package webhook
