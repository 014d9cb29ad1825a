package subscription

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// SignatureHeader is the HTTP header carrying the "t=...,v1=..." payload
// signature.
const SignatureHeader = "Billing-Signature"

// maxPayloadBytes caps inbound webhook bodies. Provider events are a few KB;
// anything near the cap is garbage.
const maxPayloadBytes = 1 << 20

type ackResponse struct {
	Outcome Outcome `json:"outcome"`
	EventID string  `json:"event_id,omitempty"`
}

// Handler returns the webhook HTTP surface: POST /webhooks/billing.
//
// Responses follow provider retry semantics: 200 means acknowledged and the
// provider must stop retrying (covers applied events, idempotent skips,
// stale/ignored no-ops, and permanent rejections); 503 means transient
// failure and the provider should redeliver per its own policy.
func (d *Dispatcher) Handler() http.Handler {
	r := chi.NewRouter()
	r.Post("/webhooks/billing", d.handleWebhook)
	return r
}

func (d *Dispatcher) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil {
		d.log.WarnContext(ctx, "failed to read webhook body", slog.Any("error", err))
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	result, err := d.Dispatch(ctx, payload, r.Header.Get(SignatureHeader))
	if err != nil {
		d.log.ErrorContext(ctx, "webhook processing failed",
			slog.String("event_id", result.EventID),
			slog.String("subject_id", result.SubjectID),
			slog.Any("error", err))
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(ackResponse{Outcome: result.Outcome, EventID: result.EventID})
}
