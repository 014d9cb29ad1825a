// Package subscription reconciles billing-provider webhook events into
// canonical subscription records with strict consistency guarantees despite
// the provider's at-least-once, possibly out-of-order, possibly duplicated
// delivery model.
//
// # Architecture
//
// The pipeline for one inbound delivery is
//
//	signature verify → normalize → dedup check → state machine → commit → mark applied → ack
//
// driven by the Dispatcher, which owns all retry, backoff, and dead-letter
// policy. The pieces below it are deliberately dumb:
//
//   - Apply is a pure function from (current state, event) to (next state,
//     outcome). It enforces the transition edges and the ordering guard:
//     an event at or before the record's last-applied watermark is stale
//     and leaves the state untouched.
//   - Store is the persistence gateway and sole writer of records, using
//     version-conditioned commits instead of locks.
//   - IdempotencyStore remembers applied event ids via unique-constraint
//     inserts, guaranteeing at-most-once application per event id even when
//     the provider retries a call that is still in flight.
//
// # Consistency
//
// For a single subject, the staleness guard plus optimistic commits yield a
// total order over applied events equivalent to sorting by the provider's
// occurred-at timestamp, regardless of arrival order or concurrency. Across
// subjects no ordering is assumed or required.
//
// Acknowledgment (HTTP 200) is returned only after a durable commit, a
// confirmed idempotent skip, or a classified permanent rejection. Transient
// failures surface as 503 so the provider redelivers; the idempotency store
// and staleness guard make every redelivery safe.
package subscription
