package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	gcs "cloud.google.com/go/storage"
	"github.com/fjod/go_bookstore/internal/cache"
	"github.com/fjod/go_bookstore/internal/config"
	bookhttp "github.com/fjod/go_bookstore/internal/http"
	"github.com/fjod/go_bookstore/internal/mail"
	"github.com/fjod/go_bookstore/internal/metrics"
	"github.com/fjod/go_bookstore/internal/payment"
	"github.com/fjod/go_bookstore/internal/publisher"
	"github.com/fjod/go_bookstore/internal/repository"
	"github.com/fjod/go_bookstore/internal/service"
	"github.com/fjod/go_bookstore/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"google.golang.org/api/option"
)

// app holds every long-lived client. Clients are built here and injected.
type app struct {
	handler     http.Handler
	repo        *repository.Repository
	redis       *redis.Client
	gcs         *gcs.Client
	fulfillment *service.Fulfillment
	catalog     *service.CatalogService
	poller      *publisher.OutboxPoller
}

func newApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*app, error) {
	a := &app{}
	ok := false
	defer func() {
		if !ok {
			a.close(log)
		}
	}()

	creds := credentials(cfg)
	repo, err := repository.NewRepository(creds)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.repo = repo
	if err := repo.RunMigrations(creds); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	a.redis = redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	if err := a.redis.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	log.Info("redis ping succeeded", "addr", cfg.RedisAddr)

	var gcsOpts []option.ClientOption
	if cfg.GoogleCredentialsFile != "" {
		gcsOpts = append(gcsOpts, option.WithCredentialsFile(cfg.GoogleCredentialsFile))
	}
	a.gcs, err = gcs.NewClient(ctx, gcsOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	outbound := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}

	stripeGateway := payment.NewStripeGateway(payment.Config{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		SuccessURL:    cfg.CheckoutSuccessURL,
		CancelURL:     cfg.CheckoutCancelURL,
		Currency:      cfg.Currency,
	})
	assets := storage.NewGCSStore(a.gcs, cfg.StorageBucket)
	fetcher := storage.NewFetcher(outbound, cfg.AttachmentFetchTimeout)
	mailer := mail.NewBrevoMailer(mail.Config{
		APIKey:      cfg.BrevoKey,
		SenderEmail: cfg.MailSenderEmail,
		SenderName:  cfg.MailSenderName,
		HTTPClient:  outbound,
	})

	sales := service.NewSaleService(repo)
	a.catalog = service.NewCatalogService(repo, cache.NewRedisCache(a.redis), stripeGateway, assets, cfg.RequestTimeout, log)
	checkout := service.NewCheckoutService(stripeGateway, a.catalog, cfg.RequestTimeout, log)

	opts := []service.FulfillmentOption{
		service.WithLogger(log),
		service.WithMetrics(m),
		service.WithFetchTimeout(cfg.AttachmentFetchTimeout),
	}
	if cfg.ReceiptDelivery == config.DeliveryAsync {
		opts = append(opts, service.WithAsyncDelivery())
	}
	// Fulfillment reads books straight from the database, never the cache.
	a.fulfillment = service.NewFulfillment(stripeGateway, repo, sales, fetcher, mailer, opts...)

	if len(cfg.KafkaBrokers) > 0 {
		writer := publisher.NewKafkaWriter(cfg.KafkaTopic, cfg.KafkaBrokers...)
		a.poller = publisher.NewOutboxPoller(repo, writer, log, m)
	} else {
		log.Info("KAFKA_BROKERS not set, outbox publishing disabled")
	}

	a.handler = bookhttp.NewRouter(bookhttp.RouterConfig{
		Webhook:        bookhttp.NewWebhookHandler(a.fulfillment, cfg.MaxWebhookBodySize, cfg.RequestTimeout, log),
		Books:          bookhttp.NewBookHandler(a.catalog, checkout, cfg.MaxUploadSize, cfg.RequestTimeout),
		Sales:          bookhttp.NewSaleHandler(sales, cfg.RequestTimeout),
		DB:             repo,
		Metrics:        m,
		Gatherer:       reg,
		RequestTimeout: cfg.RequestTimeout,
	})

	ok = true
	return a, nil
}

// drain waits for receipts and asset cleanups still running in the background.
func (a *app) drain() {
	if a.fulfillment != nil {
		a.fulfillment.Wait()
	}
	if a.catalog != nil {
		a.catalog.Wait()
	}
}

func (a *app) close(log *slog.Logger) {
	var errs []error
	if a.poller != nil {
		errs = append(errs, a.poller.Close())
	}
	if a.gcs != nil {
		errs = append(errs, a.gcs.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.repo != nil {
		errs = append(errs, a.repo.Close())
	}
	if err := errors.Join(errs...); err != nil {
		log.Warn("failed to close clients", "error", err)
	}
}
