package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fjod/go_bookstore/internal/domain"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError converts domain errors to HTTP status codes.
func handleServiceError(w http.ResponseWriter, err error) {
	var (
		httpStatus int
		code       string
		message    string
	)

	switch {
	case errors.Is(err, domain.ErrSignatureInvalid):
		httpStatus = http.StatusForbidden
		code = "invalid_signature"
		message = "webhook signature verification failed"
	case errors.Is(err, domain.ErrMalformedEvent):
		httpStatus = http.StatusBadRequest
		code = "malformed_event"
		message = "malformed payment event"
	case errors.Is(err, domain.ErrInvalidProduct):
		httpStatus = http.StatusBadRequest
		code = "invalid_argument"
		message = "invalid book"
	case errors.Is(err, domain.ErrProductNotFound):
		httpStatus = http.StatusNotFound
		code = "book_not_found"
		message = "book not found"
	case errors.Is(err, domain.ErrSaleNotFound):
		httpStatus = http.StatusNotFound
		code = "sale_not_found"
		message = "sale not found"
	case errors.Is(err, domain.ErrSessionNotFound):
		httpStatus = http.StatusNotFound
		code = "session_not_found"
		message = "checkout session not found"
	case errors.Is(err, domain.ErrPriceMismatch):
		httpStatus = http.StatusConflict
		code = "price_mismatch"
		message = "request does not match the catalog"
	case errors.Is(err, domain.ErrGateway):
		httpStatus = http.StatusBadGateway
		code = "gateway_error"
		message = "payment gateway error"
	case errors.Is(err, context.DeadlineExceeded):
		httpStatus = http.StatusGatewayTimeout
		code = "timeout"
		message = "request timed out"
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	respondJSON(w, httpStatus, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: err.Error(),
	})
}
