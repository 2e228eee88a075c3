package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_bookstore/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterConfig struct {
	Webhook        *WebhookHandler
	Books          *BookHandler
	Sales          *SaleHandler
	DB             Pinger
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	RequestTimeout time.Duration
}

// NewRouter mounts the API under /api and wraps it with tracing.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	if cfg.Metrics != nil {
		r.Use(MetricsMiddleware(cfg.Metrics))
	}
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if cfg.DB != nil {
			if err := cfg.DB.Ping(r.Context()); err != nil {
				respondError(w, http.StatusServiceUnavailable, "service_unavailable", "database unreachable")
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(cfg.Gatherer))
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/book", func(r chi.Router) {
			r.Post("/stripe/webhook", cfg.Webhook.Handle)
			r.Post("/buy", cfg.Books.Buy)
			r.Get("/session/{session_id}", cfg.Books.SessionBook)
			r.Get("/", cfg.Books.List)
			r.Post("/", cfg.Books.Create)
			r.Get("/{id}", cfg.Books.Get)
			r.Delete("/{id}", cfg.Books.Delete)
		})
		r.Route("/sale", func(r chi.Router) {
			r.Get("/", cfg.Sales.List)
			r.Get("/{id}", cfg.Sales.Get)
			r.Delete("/{id}", cfg.Sales.Delete)
		})
	})

	return otelhttp.NewHandler(r, "bookstore")
}
