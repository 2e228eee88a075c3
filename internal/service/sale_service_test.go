package service

import (
	"context"
	"testing"

	"github.com/fjod/go_bookstore/internal/domain"
	"github.com/fjod/go_bookstore/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSaleService(t *testing.T) (*SaleService, *repository.Repository) {
	t.Helper()
	creds := &repository.Credentials{
		Driver:            repository.DriverSQLite,
		SQLitePath:        ":memory:",
		MigrationsDirPath: "../repository/migrations",
	}
	repo, err := repository.NewRepository(creds)
	require.NoError(t, err)
	require.NoError(t, repo.RunMigrations(creds))
	t.Cleanup(func() { _ = repo.Close() })
	return NewSaleService(repo), repo
}

func TestSaleService_Lifecycle(t *testing.T) {
	svc, repo := newSaleService(t)
	ctx := context.Background()

	book := &domain.Product{Title: "Aprende Go", Price: "250", ExternalPriceID: "price_abc"}
	require.NoError(t, repo.CreateProduct(ctx, book))

	sale, err := svc.Create(ctx, domain.SaleInput{ProductID: book.ID, TotalPrice: 250, SessionID: "cs_1", EventID: "evt_1"})
	require.NoError(t, err)

	got, err := svc.Get(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(250), got.TotalPrice)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.Remove(ctx, sale.ID))
	_, err = svc.Get(ctx, sale.ID)
	assert.ErrorIs(t, err, domain.ErrSaleNotFound)
}

func TestSaleService_CreateRejects(t *testing.T) {
	svc, _ := newSaleService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.SaleInput{ProductID: 0, SessionID: "cs_1"})
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	_, err = svc.Create(ctx, domain.SaleInput{ProductID: 1})
	assert.ErrorIs(t, err, domain.ErrMalformedEvent)

	_, err = svc.Create(ctx, domain.SaleInput{ProductID: 42, SessionID: "cs_1"})
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}
