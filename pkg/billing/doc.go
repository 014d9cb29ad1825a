// Package billing defines the canonical billing event model and the
// normalizer that maps heterogeneous provider webhook payloads onto it.
//
// The Event type is a closed variant set: every field the rest of the engine
// needs is extracted here, and provider-shaped JSON never crosses this
// package's boundary. Normalization failures are classified as either
// unsupported (unknown event kind) or malformed (required field missing),
// both of which are permanent and must not be retried.
package billing
