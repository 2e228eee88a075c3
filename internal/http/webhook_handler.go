package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/go_bookstore/internal/service"
)

const signatureHeader = "Stripe-Signature"

type WebhookProcessor interface {
	HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) (*service.Outcome, error)
}

type WebhookHandler struct {
	processor   WebhookProcessor
	maxBodySize int64
	timeout     time.Duration
	log         *slog.Logger
}

func NewWebhookHandler(processor WebhookProcessor, maxBodySize int64, timeout time.Duration, log *slog.Logger) *WebhookHandler {
	if log == nil {
		log = slog.Default()
	}
	return &WebhookHandler{
		processor:   processor,
		maxBodySize: maxBodySize,
		timeout:     timeout,
		log:         log,
	}
}

type WebhookResponseDTO struct {
	Received bool   `json:"received"`
	EventID  string `json:"eventId,omitempty"`
	Status   string `json:"status"`
	SaleID   int64  `json:"saleId,omitempty"`
}

// POST /api/book/stripe/webhook
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	body := http.MaxBytesReader(w, r.Body, h.maxBodySize)
	defer body.Close()

	payload, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "webhook payload too large")
			return
		}
		respondError(w, http.StatusBadRequest, "invalid_request", "failed to read webhook payload")
		return
	}

	outcome, err := h.processor.HandleWebhook(ctx, payload, r.Header.Get(signatureHeader))
	if err != nil {
		h.log.WarnContext(ctx, "webhook rejected",
			"request_id", getRequestID(r.Context()),
			"error", err)
		handleServiceError(w, err)
		return
	}

	resp := WebhookResponseDTO{
		Received: true,
		EventID:  outcome.EventID,
		Status:   outcome.Status.String(),
	}
	if outcome.Sale != nil {
		resp.SaleID = outcome.Sale.ID
	}
	respondJSON(w, http.StatusOK, resp)
}
