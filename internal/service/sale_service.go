package service

import (
	"context"
	"fmt"

	"github.com/fjod/go_bookstore/internal/domain"
)

type SaleService struct {
	repo SaleStore
}

func NewSaleService(repo SaleStore) *SaleService {
	return &SaleService{repo: repo}
}

// Create records a sale. The product must still exist when the write commits;
// a sale for an already recorded checkout session returns domain.ErrDuplicateEvent
// together with the stored sale.
func (s *SaleService) Create(ctx context.Context, in domain.SaleInput) (*domain.Sale, error) {
	if in.ProductID <= 0 {
		return nil, fmt.Errorf("%w: book id %d", domain.ErrProductNotFound, in.ProductID)
	}
	if in.SessionID == "" {
		return nil, fmt.Errorf("%w: sale without checkout session", domain.ErrMalformedEvent)
	}
	return s.repo.CreateSale(ctx, in)
}

func (s *SaleService) List(ctx context.Context) ([]*domain.Sale, error) {
	return s.repo.ListSales(ctx)
}

func (s *SaleService) Get(ctx context.Context, id int64) (*domain.Sale, error) {
	return s.repo.GetSale(ctx, id)
}

func (s *SaleService) Remove(ctx context.Context, id int64) error {
	return s.repo.DeleteSale(ctx, id)
}
