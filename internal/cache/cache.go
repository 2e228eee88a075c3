package cache

import (
	"context"
	"errors"

	"github.com/fjod/go_bookstore/internal/domain"
)

// CatalogCache holds read-through copies of catalog entries. It is never
// consulted by the fulfillment path.
type CatalogCache interface {
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	SetProduct(ctx context.Context, product *domain.Product) error
	GetCatalog(ctx context.Context) ([]*domain.Product, error)
	SetCatalog(ctx context.Context, products []*domain.Product) error
	// Invalidate drops the entry for id and the cached listing.
	Invalidate(ctx context.Context, id int64) error
}

var ErrCacheMiss = errors.New("cache miss")
