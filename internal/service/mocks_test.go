package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/fjod/go_bookstore/internal/cache"
	"github.com/fjod/go_bookstore/internal/domain"
	"github.com/fjod/go_bookstore/internal/mail"
	"github.com/fjod/go_bookstore/internal/storage"
)

// MockFetcher serves asset bytes by URL; unknown URLs fail.
type MockFetcher struct {
	mu      sync.Mutex
	Assets  map[string][]byte
	Fetched []string
	// BeforeFetch runs before every fetch, outside the lock.
	BeforeFetch func()
}

func (m *MockFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if m.BeforeFetch != nil {
		m.BeforeFetch()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Fetched = append(m.Fetched, url)
	data, ok := m.Assets[url]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrAssetUnavailable, url)
	}
	return data, nil
}

// MockMailer captures receipts passed to SendReceipt. A cancelled context
// fails the send like a real HTTP client would.
type MockMailer struct {
	mu         sync.Mutex
	Err        error
	Receipts   []mail.Receipt
	BeforeSend func()
}

func (m *MockMailer) SendReceipt(ctx context.Context, r mail.Receipt) error {
	if m.BeforeSend != nil {
		m.BeforeSend()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Receipts = append(m.Receipts, r)
	return m.Err
}

func (m *MockMailer) Sent() []mail.Receipt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Receipt(nil), m.Receipts...)
}

// MockProductStore implements ProductStore in memory
type MockProductStore struct {
	mu        sync.Mutex
	Products  map[int64]*domain.Product
	NextID    int64
	CreateErr error
	Gets      int
	// AfterGet runs once a read has left the lock and before it returns.
	AfterGet func(id int64)
}

func NewMockProductStore(products ...*domain.Product) *MockProductStore {
	m := &MockProductStore{Products: map[int64]*domain.Product{}, NextID: 1}
	for _, p := range products {
		m.Products[p.ID] = p
		if p.ID >= m.NextID {
			m.NextID = p.ID + 1
		}
	}
	return m
}

func (m *MockProductStore) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	m.mu.Lock()
	m.Gets++
	p, ok := m.Products[id]
	var cp domain.Product
	if ok {
		cp = *p
	}
	after := m.AfterGet
	m.mu.Unlock()

	if after != nil {
		after(id)
	}
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return &cp, nil
}

func (m *MockProductStore) ListProducts(_ context.Context) ([]*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Product, 0, len(m.Products))
	for id := int64(1); id < m.NextID; id++ {
		if p, ok := m.Products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MockProductStore) CreateProduct(_ context.Context, p *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return m.CreateErr
	}
	p.ID = m.NextID
	m.NextID++
	m.Products[p.ID] = p
	return nil
}

func (m *MockProductStore) DeleteProduct(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Products[id]; !ok {
		return domain.ErrProductNotFound
	}
	delete(m.Products, id)
	return nil
}

// MockCache is an in-memory CatalogCache
type MockCache struct {
	mu          sync.Mutex
	products    map[int64]*domain.Product
	catalog     []*domain.Product
	GetErr      error
	Invalidated []int64
}

func NewMockCache() *MockCache {
	return &MockCache{products: map[int64]*domain.Product{}}
}

func (m *MockCache) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	p, ok := m.products[id]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return p, nil
}

func (m *MockCache) SetProduct(_ context.Context, p *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = p
	return nil
}

func (m *MockCache) GetCatalog(_ context.Context) ([]*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.catalog == nil {
		return nil, cache.ErrCacheMiss
	}
	return m.catalog, nil
}

func (m *MockCache) SetCatalog(_ context.Context, products []*domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.catalog = products
	return nil
}

func (m *MockCache) Invalidate(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.products, id)
	m.catalog = nil
	m.Invalidated = append(m.Invalidated, id)
	return nil
}

func (m *MockCache) Has(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.products[id]
	return ok
}

// MockListingGateway records Stripe catalog calls in order
type MockListingGateway struct {
	mu                  sync.Mutex
	Calls               []string
	CreateProductErr    error
	CreatePriceErr      error
	DeactivatePricesErr error
	UnitAmounts         []int64
	// PriceCurrency defaults to mxn.
	PriceCurrency string
}

func (m *MockListingGateway) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, call)
}

func (m *MockListingGateway) CallLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Calls...)
}

func (m *MockListingGateway) CreateProduct(_ context.Context, title, _, _ string) (string, error) {
	m.record("create_product " + title)
	if m.CreateProductErr != nil {
		return "", m.CreateProductErr
	}
	return "prod_1", nil
}

func (m *MockListingGateway) CreatePrice(_ context.Context, productID string, unitAmount int64, _ string) (string, error) {
	m.record("create_price " + productID)
	m.mu.Lock()
	m.UnitAmounts = append(m.UnitAmounts, unitAmount)
	m.mu.Unlock()
	if m.CreatePriceErr != nil {
		return "", m.CreatePriceErr
	}
	return "price_abc", nil
}

func (m *MockListingGateway) DeactivatePrices(_ context.Context, productID string) error {
	m.record("deactivate_prices " + productID)
	return m.DeactivatePricesErr
}

func (m *MockListingGateway) Currency() string {
	if m.PriceCurrency == "" {
		return "mxn"
	}
	return m.PriceCurrency
}

func (m *MockListingGateway) DeactivateProduct(_ context.Context, productID string) error {
	m.record("deactivate_product " + productID)
	return nil
}

// MockAssetStore keeps uploads in memory
type MockAssetStore struct {
	mu        sync.Mutex
	Objects   map[string][]byte
	Deleted   []string
	FailOn    storage.Folder
	DeleteErr error
	n         int
}

func NewMockAssetStore() *MockAssetStore {
	return &MockAssetStore{Objects: map[string][]byte{}}
}

func (m *MockAssetStore) Upload(_ context.Context, folder storage.Folder, filename, _ string, r io.Reader) (string, error) {
	if folder == m.FailOn {
		return "", errors.New("bucket unavailable")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.n++
	url := storage.PublicURL("test-bucket", fmt.Sprintf("%s/%d-%s", folder, m.n, filename))
	m.Objects[url] = data
	return url, nil
}

func (m *MockAssetStore) Delete(_ context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deleted = append(m.Deleted, url)
	delete(m.Objects, url)
	return m.DeleteErr
}

func (m *MockAssetStore) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Objects)
}

// MockSessionGateway implements SessionGateway
type MockSessionGateway struct {
	mu       sync.Mutex
	Requests []domain.CheckoutRequest
	Session  *domain.CheckoutSession
	Err      error
}

func (m *MockSessionGateway) CreateCheckoutSession(_ context.Context, req domain.CheckoutRequest) (*domain.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, req)
	return m.Session, m.Err
}

func (m *MockSessionGateway) RetrieveSession(_ context.Context, id string) (*domain.CheckoutSession, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Session == nil || m.Session.ID != id {
		return nil, domain.ErrSessionNotFound
	}
	return m.Session, nil
}
