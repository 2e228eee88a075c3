package http

import (
	"context"
	"io"
	"sync"

	"github.com/fjod/go_bookstore/internal/domain"
	"github.com/fjod/go_bookstore/internal/service"
)

type WebhookProcessorMock struct {
	outcome *service.Outcome
	err     error

	mu        sync.Mutex
	payload   []byte
	signature string
}

func (m *WebhookProcessorMock) HandleWebhook(_ context.Context, payload []byte, sig string) (*service.Outcome, error) {
	m.mu.Lock()
	m.payload = payload
	m.signature = sig
	m.mu.Unlock()
	if m.err != nil {
		return &service.Outcome{Status: domain.FulfillmentFailed}, m.err
	}
	return m.outcome, nil
}

type uploadedFile struct {
	Filename string
	Body     string
}

type CatalogMock struct {
	books   []*domain.Product
	created *domain.Product
	err     error

	gotInput  domain.NewProduct
	gotImage  *uploadedFile
	gotPDF    *uploadedFile
	gotVideos []uploadedFile
}

func (m *CatalogMock) List(context.Context) ([]*domain.Product, error) {
	return m.books, m.err
}

func (m *CatalogMock) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, b := range m.books {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, domain.ErrProductNotFound
}

func (m *CatalogMock) Create(_ context.Context, in domain.NewProduct, files service.CatalogFiles) (*domain.Product, error) {
	m.gotInput = in
	read := func(f *service.FileUpload) *uploadedFile {
		if f == nil {
			return nil
		}
		b, _ := io.ReadAll(f.Body)
		return &uploadedFile{Filename: f.Filename, Body: string(b)}
	}
	m.gotImage = read(files.Image)
	m.gotPDF = read(files.PDF)
	for i := range files.Videos {
		m.gotVideos = append(m.gotVideos, *read(&files.Videos[i]))
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.created, nil
}

func (m *CatalogMock) Delete(ctx context.Context, id int64) (*domain.Product, error) {
	return m.GetProduct(ctx, id)
}

type CheckoutMock struct {
	session *domain.CheckoutSession
	bookID  int64
	err     error
	gotReq  domain.CheckoutRequest
}

func (m *CheckoutMock) CreateSession(_ context.Context, req domain.CheckoutRequest) (*domain.CheckoutSession, error) {
	m.gotReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.session, nil
}

func (m *CheckoutMock) SessionProduct(context.Context, string) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.bookID, nil
}

type SalesMock struct {
	sales   []*domain.Sale
	err     error
	removed []int64
}

func (m *SalesMock) List(context.Context) ([]*domain.Sale, error) {
	return m.sales, m.err
}

func (m *SalesMock) Get(_ context.Context, id int64) (*domain.Sale, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, s := range m.sales {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, domain.ErrSaleNotFound
}

func (m *SalesMock) Remove(ctx context.Context, id int64) error {
	if _, err := m.Get(ctx, id); err != nil {
		return err
	}
	m.removed = append(m.removed, id)
	return nil
}

type PingerMock struct {
	err error
}

func (m PingerMock) Ping(context.Context) error {
	return m.err
}
