package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/fjod/go_bookstore/internal/cache"
	"github.com/fjod/go_bookstore/internal/domain"
	"github.com/fjod/go_bookstore/internal/storage"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const (
	MaxVideos = 5

	cleanupTimeout    = time.Minute
	cacheWriteTimeout = time.Second
)

type FileUpload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

type CatalogFiles struct {
	Image  *FileUpload
	PDF    *FileUpload
	Videos []FileUpload
}

type CatalogService struct {
	repo    ProductStore
	cache   cache.CatalogCache
	gateway ListingGateway
	assets  AssetStore
	timeout time.Duration
	log     *slog.Logger

	sfg     singleflight.Group // Prevents cache stampede
	cleanup sync.WaitGroup

	// cacheMu orders cache fills against invalidations. cacheGen moves on
	// every invalidation so a fill loaded before it is dropped.
	cacheMu  sync.Mutex
	cacheGen uint64
}

func NewCatalogService(
	repo ProductStore,
	catalogCache cache.CatalogCache,
	gateway ListingGateway,
	assets AssetStore,
	timeout time.Duration,
	log *slog.Logger,
) *CatalogService {
	if log == nil {
		log = slog.Default()
	}
	return &CatalogService{
		repo:    repo,
		cache:   catalogCache,
		gateway: gateway,
		assets:  assets,
		timeout: timeout,
		log:     log.With("component", "catalog"),
	}
}

func (s *CatalogService) List(ctx context.Context) ([]*domain.Product, error) {
	v, err, _ := s.sfg.Do("books", func() (interface{}, error) {
		products, err := s.cache.GetCatalog(ctx)
		if err == nil {
			return products, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.WarnContext(ctx, "cache get error", "error", err)
		}

		gen := s.generation()
		products, err = s.repo.ListProducts(ctx)
		if err != nil {
			return nil, err
		}

		s.fillCache(ctx, gen, func(cctx context.Context) error {
			return s.cache.SetCatalog(cctx, products)
		})
		return products, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*domain.Product), nil
}

// GetProduct is the cached read used by the API and the checkout flow.
func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	v, err, _ := s.sfg.Do("book:"+strconv.FormatInt(id, 10), func() (interface{}, error) {
		product, err := s.cache.GetProduct(ctx, id)
		if err == nil {
			return product, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.WarnContext(ctx, "cache get error", "book_id", id, "error", err)
		}

		gen := s.generation()
		product, err = s.repo.GetProduct(ctx, id)
		if err != nil {
			return nil, err
		}

		s.fillCache(ctx, gen, func(cctx context.Context) error {
			return s.cache.SetProduct(cctx, product)
		})
		return product, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Product), nil
}

// Create uploads the assets, lists the book with the payment gateway and then
// stores it. Anything created before a failing step is rolled back on a best-effort basis.
func (s *CatalogService) Create(ctx context.Context, in domain.NewProduct, files CatalogFiles) (*domain.Product, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if files.Image == nil {
		return nil, fmt.Errorf("%w: image is required", domain.ErrInvalidProduct)
	}
	if len(files.Videos) > MaxVideos {
		return nil, fmt.Errorf("%w: at most %d videos", domain.ErrInvalidProduct, MaxVideos)
	}

	product := &domain.Product{Title: in.Title, Price: in.Price}
	unitAmount, err := product.UnitAmount(s.gateway.Currency())
	if err != nil {
		return nil, err
	}

	if err := s.uploadAssets(ctx, product, files); err != nil {
		s.compensate(ctx, product, "")
		return nil, err
	}

	gctx, cancel := s.withTimeout(ctx)
	defer cancel()

	key := uuid.NewString()
	product.ExternalProductID, err = s.gateway.CreateProduct(gctx, product.Title, product.ImageURL, "book-"+key+"-product")
	if err != nil {
		s.compensate(ctx, product, "")
		return nil, err
	}
	product.ExternalPriceID, err = s.gateway.CreatePrice(gctx, product.ExternalProductID, unitAmount, "book-"+key+"-price")
	if err != nil {
		s.compensate(ctx, product, product.ExternalProductID)
		return nil, err
	}

	if err := s.repo.CreateProduct(ctx, product); err != nil {
		s.compensate(ctx, product, product.ExternalProductID)
		return nil, fmt.Errorf("store book: %w", err)
	}

	s.invalidateCache(product.ID)
	s.log.InfoContext(ctx, "book created",
		"book_id", product.ID,
		"stripe_price_id", product.ExternalPriceID)
	return product, nil
}

func (s *CatalogService) uploadAssets(ctx context.Context, product *domain.Product, files CatalogFiles) error {
	url, err := s.assets.Upload(ctx, storage.FolderImages, files.Image.Filename, files.Image.ContentType, files.Image.Body)
	if err != nil {
		return fmt.Errorf("upload image: %w", err)
	}
	product.ImageURL = url

	if files.PDF != nil {
		url, err := s.assets.Upload(ctx, storage.FolderDocuments, files.PDF.Filename, files.PDF.ContentType, files.PDF.Body)
		if err != nil {
			return fmt.Errorf("upload pdf: %w", err)
		}
		product.PdfURL = url
	}

	for _, v := range files.Videos {
		url, err := s.assets.Upload(ctx, storage.FolderVideos, v.Filename, v.ContentType, v.Body)
		if err != nil {
			return fmt.Errorf("upload video %s: %w", v.Filename, err)
		}
		product.VideoURLs = append(product.VideoURLs, url)
	}
	return nil
}

// compensate undoes a partially created book.
func (s *CatalogService) compensate(ctx context.Context, product *domain.Product, externalProductID string) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	var tasks []bestEffortTask
	if externalProductID != "" {
		tasks = append(tasks, s.delistTask(externalProductID))
	}
	tasks = append(tasks, s.assetTasks(product.AssetURLs())...)
	_ = runBestEffort(cctx, s.log, "book create rollback", tasks)
}

// Delete delists the book, removes it with its sales and then removes its
// assets in the background.
func (s *CatalogService) Delete(ctx context.Context, id int64) (*domain.Product, error) {
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if product.ExternalProductID != "" {
		gctx, cancel := s.withTimeout(ctx)
		_ = runBestEffort(gctx, s.log, "book delist", []bestEffortTask{s.delistTask(product.ExternalProductID)})
		cancel()
	}

	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return nil, err
	}
	s.invalidateCache(id)

	tasks := s.assetTasks(product.AssetURLs())
	if len(tasks) > 0 {
		s.cleanup.Add(1)
		go func() {
			defer s.cleanup.Done()
			cctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
			defer cancel()
			_ = runBestEffort(cctx, s.log, "book asset cleanup", tasks)
		}()
	}

	s.log.InfoContext(ctx, "book deleted", "book_id", id)
	return product, nil
}

// Wait blocks until background asset cleanups have finished.
func (s *CatalogService) Wait() {
	s.cleanup.Wait()
}

// delistTask archives the prices before the product they belong to.
func (s *CatalogService) delistTask(externalProductID string) bestEffortTask {
	return bestEffortTask{
		name: "delist " + externalProductID,
		run: func(ctx context.Context) error {
			errPrices := s.gateway.DeactivatePrices(ctx, externalProductID)
			errProduct := s.gateway.DeactivateProduct(ctx, externalProductID)
			return errors.Join(errPrices, errProduct)
		},
	}
}

func (s *CatalogService) assetTasks(urls []string) []bestEffortTask {
	tasks := make([]bestEffortTask, 0, len(urls))
	for _, u := range urls {
		u := u
		tasks = append(tasks, bestEffortTask{
			name: "delete " + u,
			run: func(ctx context.Context) error {
				return s.assets.Delete(ctx, u)
			},
		})
	}
	return tasks
}

func (s *CatalogService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *CatalogService) generation() uint64 {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.cacheGen
}

// fillCache stores a value read from the database at generation gen. The
// write is skipped when an invalidation happened since the read started.
func (s *CatalogService) fillCache(ctx context.Context, gen uint64, set func(context.Context) error) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheWriteTimeout)
	defer cancel()

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if gen != s.cacheGen {
		return
	}
	if err := set(cctx); err != nil {
		s.log.WarnContext(ctx, "cache set error", "error", err)
	}
}

func (s *CatalogService) invalidateCache(id int64) {
	ctx, cancel := context.WithTimeout(context.Background(), cacheWriteTimeout)
	defer cancel()

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.cacheGen++
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.log.Warn("cache invalidate error", "book_id", id, "error", err)
	}
}
