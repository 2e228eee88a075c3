package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/go_bookstore/internal/domain"
	"github.com/shopspring/decimal"
)

type CheckoutService struct {
	gateway  SessionGateway
	products ProductReader
	timeout  time.Duration
	log      *slog.Logger
}

func NewCheckoutService(gateway SessionGateway, products ProductReader, timeout time.Duration, log *slog.Logger) *CheckoutService {
	if log == nil {
		log = slog.Default()
	}
	return &CheckoutService{
		gateway:  gateway,
		products: products,
		timeout:  timeout,
		log:      log.With("component", "checkout"),
	}
}

// CreateSession opens a hosted checkout for a catalog entry. The request must
// agree with the catalog on price and external price id.
func (s *CheckoutService) CreateSession(ctx context.Context, req domain.CheckoutRequest) (*domain.CheckoutSession, error) {
	product, err := s.products.GetProduct(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.Purchasable() {
		return nil, fmt.Errorf("%w: book %d has no price", domain.ErrPriceMismatch, product.ID)
	}
	if req.ExternalPriceID != "" && req.ExternalPriceID != product.ExternalPriceID {
		return nil, fmt.Errorf("%w: price id %s", domain.ErrPriceMismatch, req.ExternalPriceID)
	}
	if req.Price != "" {
		if err := samePrice(req.Price, product.Price); err != nil {
			return nil, err
		}
	}

	req.ExternalPriceID = product.ExternalPriceID
	req.Title = product.Title
	req.Price = product.Price

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	session, err := s.gateway.CreateCheckoutSession(ctx, req)
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "checkout session created",
		"session_id", session.ID,
		"book_id", product.ID)
	return session, nil
}

// SessionProduct resolves the book a checkout session was opened for.
func (s *CheckoutService) SessionProduct(ctx context.Context, sessionID string) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	session, err := s.gateway.RetrieveSession(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	id, err := session.ProductID()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrSessionNotFound, err)
	}
	return id, nil
}

func (s *CheckoutService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func samePrice(requested, catalog string) error {
	want, err := decimal.NewFromString(catalog)
	if err != nil {
		return fmt.Errorf("%w: catalog price %q", domain.ErrInvalidProduct, catalog)
	}
	got, err := decimal.NewFromString(requested)
	if err != nil || !got.Equal(want) {
		return fmt.Errorf("%w: price %s, catalog has %s", domain.ErrPriceMismatch, requested, catalog)
	}
	return nil
}
