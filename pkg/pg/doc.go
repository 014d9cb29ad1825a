// Package pg provides PostgreSQL connectivity for the synchronization
// engine: a pgx connection pool with startup retry, goose schema migrations,
// a healthcheck probe, and error classifiers used by the idempotency store
// and persistence gateway to recognize unique-constraint violations.
package pg
