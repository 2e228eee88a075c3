package service

import (
	"context"
	"io"

	"github.com/fjod/go_bookstore/internal/domain"
	"github.com/fjod/go_bookstore/internal/mail"
	"github.com/fjod/go_bookstore/internal/storage"
)

type EventVerifier interface {
	VerifyAndParseEvent(payload []byte, signatureHeader string) (*domain.PaymentEvent, error)
}

type SessionGateway interface {
	CreateCheckoutSession(ctx context.Context, req domain.CheckoutRequest) (*domain.CheckoutSession, error)
	RetrieveSession(ctx context.Context, id string) (*domain.CheckoutSession, error)
}

type ListingGateway interface {
	CreateProduct(ctx context.Context, title, imageURL, idempotencyKey string) (string, error)
	CreatePrice(ctx context.Context, productID string, unitAmount int64, idempotencyKey string) (string, error)
	DeactivatePrices(ctx context.Context, productID string) error
	DeactivateProduct(ctx context.Context, productID string) error
	Currency() string
}

type ProductReader interface {
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
}

type ProductStore interface {
	ProductReader
	ListProducts(ctx context.Context) ([]*domain.Product, error)
	CreateProduct(ctx context.Context, product *domain.Product) error
	DeleteProduct(ctx context.Context, id int64) error
}

type SaleStore interface {
	CreateSale(ctx context.Context, in domain.SaleInput) (*domain.Sale, error)
	GetSale(ctx context.Context, id int64) (*domain.Sale, error)
	ListSales(ctx context.Context) ([]*domain.Sale, error)
	DeleteSale(ctx context.Context, id int64) error
}

// SaleRecorder persists sales for the fulfillment flow.
type SaleRecorder interface {
	Create(ctx context.Context, in domain.SaleInput) (*domain.Sale, error)
}

type AssetStore interface {
	Upload(ctx context.Context, folder storage.Folder, filename, contentType string, r io.Reader) (string, error)
	Delete(ctx context.Context, assetURL string) error
}

type AssetFetcher interface {
	Fetch(ctx context.Context, assetURL string) ([]byte, error)
}

type ReceiptSender interface {
	SendReceipt(ctx context.Context, r mail.Receipt) error
}
