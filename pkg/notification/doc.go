// Package notification delivers the trial-ending side-channel: trial.ending
// billing events never mutate subscription state, they only surface a notice
// to the subscription owner. Delivery is best-effort and decoupled from
// webhook acknowledgment.
package notification
