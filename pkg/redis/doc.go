// Package redis provides Redis connectivity with startup retry and a
// healthcheck probe. The synchronization engine uses Redis as an optional
// TTL-backed idempotency store.
package redis
