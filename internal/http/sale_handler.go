package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_bookstore/internal/domain"
)

type Sales interface {
	List(ctx context.Context) ([]*domain.Sale, error)
	Get(ctx context.Context, id int64) (*domain.Sale, error)
	Remove(ctx context.Context, id int64) error
}

type SaleHandler struct {
	sales   Sales
	timeout time.Duration
}

func NewSaleHandler(sales Sales, timeout time.Duration) *SaleHandler {
	return &SaleHandler{
		sales:   sales,
		timeout: timeout,
	}
}

type SalesResponse struct {
	Sales []*domain.Sale `json:"sales"`
}

// GET /api/sale
func (h *SaleHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sales, err := h.sales.List(ctx)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if sales == nil {
		sales = []*domain.Sale{}
	}

	respondJSON(w, http.StatusOK, &SalesResponse{Sales: sales})
}

// GET /api/sale/{id}
func (h *SaleHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	sale, err := h.sales.Get(ctx, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, sale)
}

// DELETE /api/sale/{id}
func (h *SaleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.sales.Remove(ctx, id); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
