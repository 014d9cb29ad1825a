// Package audit records (subject, event, outcome) tuples produced by the
// webhook dispatcher for observability. Recording is fire-and-forget: sinks
// never block the pipeline and audit failures never affect webhook
// acknowledgment.
package audit
