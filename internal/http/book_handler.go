package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/go_bookstore/internal/domain"
	"github.com/fjod/go_bookstore/internal/service"
	"github.com/go-chi/chi/v5"
)

type Catalog interface {
	List(ctx context.Context) ([]*domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	Create(ctx context.Context, in domain.NewProduct, files service.CatalogFiles) (*domain.Product, error)
	Delete(ctx context.Context, id int64) (*domain.Product, error)
}

type Checkout interface {
	CreateSession(ctx context.Context, req domain.CheckoutRequest) (*domain.CheckoutSession, error)
	SessionProduct(ctx context.Context, sessionID string) (int64, error)
}

type BookHandler struct {
	catalog       Catalog
	checkout      Checkout
	maxUploadSize int64
	timeout       time.Duration
}

func NewBookHandler(catalog Catalog, checkout Checkout, maxUploadSize int64, timeout time.Duration) *BookHandler {
	return &BookHandler{
		catalog:       catalog,
		checkout:      checkout,
		maxUploadSize: maxUploadSize,
		timeout:       timeout,
	}
}

// BuyRequestDTO mirrors what the storefront posts. Price may arrive as a
// JSON number or string.
type BuyRequestDTO struct {
	BookID        int64       `json:"bookId"`
	Price         json.Number `json:"price"`
	Title         string      `json:"title"`
	ImageURL      string      `json:"imageUrl"`
	StripePriceID string      `json:"stripePriceId"`
}

type BuyResponseDTO struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type SessionBookResponseDTO struct {
	BookID int64 `json:"bookId"`
}

type BooksResponse struct {
	Books []*domain.Product `json:"books"`
}

// POST /api/book/buy
func (h *BookHandler) Buy(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req BuyRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.BookID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_book_id", "bookId must be a positive integer")
		return
	}

	session, err := h.checkout.CreateSession(ctx, domain.CheckoutRequest{
		ProductID:       req.BookID,
		Price:           req.Price.String(),
		Title:           req.Title,
		ImageURL:        req.ImageURL,
		ExternalPriceID: req.StripePriceID,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, BuyResponseDTO{ID: session.ID, URL: session.URL})
}

// GET /api/book/session/{session_id}
func (h *BookHandler) SessionBook(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := chi.URLParam(r, "session_id")
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "session_id is required")
		return
	}

	bookID, err := h.checkout.SessionProduct(ctx, sessionID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, SessionBookResponseDTO{BookID: bookID})
}

// GET /api/book
func (h *BookHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	books, err := h.catalog.List(ctx)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if books == nil {
		books = []*domain.Product{}
	}

	respondJSON(w, http.StatusOK, &BooksResponse{Books: books})
}

// GET /api/book/{id}
func (h *BookHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	book, err := h.catalog.GetProduct(ctx, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, book)
}

// POST /api/book
func (h *BookHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if r.ContentLength > h.maxUploadSize {
		respondError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "upload too large")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "upload too large")
			return
		}
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	files, closeFiles, err := openCatalogFiles(r.MultipartForm)
	defer closeFiles()
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_file", err.Error())
		return
	}

	book, err := h.catalog.Create(ctx, domain.NewProduct{
		Title: strings.TrimSpace(r.FormValue("title")),
		Price: strings.TrimSpace(r.FormValue("price")),
	}, files)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, book)
}

// DELETE /api/book/{id}
func (h *BookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	book, err := h.catalog.Delete(ctx, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, book)
}

func openCatalogFiles(form *multipart.Form) (service.CatalogFiles, func(), error) {
	var (
		files   service.CatalogFiles
		closers []io.Closer
	)
	closeAll := func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}

	open := func(fh *multipart.FileHeader) (*service.FileUpload, error) {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
		}
		closers = append(closers, f)
		return &service.FileUpload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Body:        f,
		}, nil
	}

	if fhs := form.File["image"]; len(fhs) > 0 {
		up, err := open(fhs[0])
		if err != nil {
			return files, closeAll, err
		}
		files.Image = up
	}
	if fhs := form.File["pdf"]; len(fhs) > 0 {
		up, err := open(fhs[0])
		if err != nil {
			return files, closeAll, err
		}
		files.PDF = up
	}

	videos := form.File["videos"]
	if len(videos) > service.MaxVideos {
		return files, closeAll, fmt.Errorf("at most %d videos are allowed", service.MaxVideos)
	}
	for _, fh := range videos {
		up, err := open(fh)
		if err != nil {
			return files, closeAll, err
		}
		files.Videos = append(files.Videos, *up)
	}
	return files, closeAll, nil
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_"+param, param+" must be a positive integer")
		return 0, false
	}
	return id, true
}
