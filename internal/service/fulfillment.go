package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sync"
	"time"

	"github.com/fjod/go_bookstore/internal/domain"
	"github.com/fjod/go_bookstore/internal/mail"
	"github.com/fjod/go_bookstore/internal/metrics"
	"github.com/fjod/go_bookstore/internal/storage"
)

const (
	defaultFetchTimeout    = 20 * time.Second
	defaultDeliveryTimeout = 2 * time.Minute
)

// Fulfillment turns a signed payment notification into a recorded sale and a
// delivered receipt.
type Fulfillment struct {
	verifier EventVerifier
	products ProductReader
	sales    SaleRecorder
	fetcher  AssetFetcher
	mailer   ReceiptSender

	log             *slog.Logger
	metrics         *metrics.Metrics
	async           bool
	fetchTimeout    time.Duration
	deliveryTimeout time.Duration

	deliveries sync.WaitGroup
}

type FulfillmentOption func(*Fulfillment)

// WithAsyncDelivery sends receipts after the webhook has been answered. The
// sale is still written before the response.
func WithAsyncDelivery() FulfillmentOption {
	return func(f *Fulfillment) { f.async = true }
}

func WithFetchTimeout(d time.Duration) FulfillmentOption {
	return func(f *Fulfillment) { f.fetchTimeout = d }
}

func WithDeliveryTimeout(d time.Duration) FulfillmentOption {
	return func(f *Fulfillment) { f.deliveryTimeout = d }
}

func WithLogger(log *slog.Logger) FulfillmentOption {
	return func(f *Fulfillment) { f.log = log }
}

func WithMetrics(m *metrics.Metrics) FulfillmentOption {
	return func(f *Fulfillment) { f.metrics = m }
}

func NewFulfillment(
	verifier EventVerifier,
	products ProductReader,
	sales SaleRecorder,
	fetcher AssetFetcher,
	mailer ReceiptSender,
	opts ...FulfillmentOption,
) *Fulfillment {
	f := &Fulfillment{
		verifier:        verifier,
		products:        products,
		sales:           sales,
		fetcher:         fetcher,
		mailer:          mailer,
		log:             slog.Default(),
		fetchTimeout:    defaultFetchTimeout,
		deliveryTimeout: defaultDeliveryTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.log = f.log.With("component", "fulfillment")
	return f
}

// Outcome is the result of handling one webhook delivery.
type Outcome struct {
	EventID   string
	EventType string
	Status    domain.FulfillmentStatus
	Sale      *domain.Sale
}

type fulfillmentRun struct {
	outcome Outcome
}

func (r *fulfillmentRun) advance(to domain.FulfillmentStatus) error {
	if !domain.CanTransitionTo(r.outcome.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, r.outcome.Status, to)
	}
	r.outcome.Status = to
	return nil
}

// HandleWebhook verifies the payload and runs the fulfillment steps. The
// returned error is non-nil exactly when the outcome status is FAILED.
func (f *Fulfillment) HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) (*Outcome, error) {
	run := &fulfillmentRun{outcome: Outcome{Status: domain.FulfillmentReceived}}

	event, err := f.verifier.VerifyAndParseEvent(payload, signatureHeader)
	if err != nil {
		return f.fail(ctx, run, err)
	}
	run.outcome.EventID = event.ID
	run.outcome.EventType = event.Type
	if err := run.advance(domain.FulfillmentVerified); err != nil {
		return f.fail(ctx, run, err)
	}

	if event.Kind != domain.EventCheckoutSessionCompleted || event.Session == nil {
		if err := run.advance(domain.FulfillmentIgnored); err != nil {
			return f.fail(ctx, run, err)
		}
		f.log.InfoContext(ctx, "ignoring payment event", "event_id", event.ID, "type", event.Type)
		return f.finish(run), nil
	}

	session := event.Session
	productID, err := session.ProductID()
	if err != nil {
		return f.fail(ctx, run, err)
	}
	if err := run.advance(domain.FulfillmentProcessing); err != nil {
		return f.fail(ctx, run, err)
	}

	product, err := f.products.GetProduct(ctx, productID)
	if err != nil {
		return f.fail(ctx, run, fmt.Errorf("load product %d: %w", productID, err))
	}
	total, err := product.TotalPrice()
	if err != nil {
		return f.fail(ctx, run, fmt.Errorf("product %d has an unusable price: %w", productID, err))
	}
	f.reconcile(ctx, product, session)

	sale, err := f.sales.Create(ctx, domain.SaleInput{
		ProductID:     product.ID,
		TotalPrice:    total,
		SessionID:     session.SessionID,
		EventID:       event.ID,
		CustomerEmail: session.CustomerEmail,
		AmountCharged: session.AmountTotal,
		Currency:      session.Currency,
	})
	if errors.Is(err, domain.ErrDuplicateEvent) {
		if err := run.advance(domain.FulfillmentDuplicate); err != nil {
			return f.fail(ctx, run, err)
		}
		run.outcome.Sale = sale
		f.log.InfoContext(ctx, "payment event already fulfilled",
			"event_id", event.ID,
			"session_id", session.SessionID)
		return f.finish(run), nil
	}
	if err != nil {
		return f.fail(ctx, run, fmt.Errorf("record sale: %w", err))
	}
	run.outcome.Sale = sale
	if err := run.advance(domain.FulfillmentRecorded); err != nil {
		return f.fail(ctx, run, err)
	}
	f.log.InfoContext(ctx, "sale recorded",
		"event_id", event.ID,
		"sale_id", sale.ID,
		"book_id", product.ID,
		"total_price", sale.TotalPrice)

	// The sale is committed: delivery no longer follows the caller's
	// cancellation, only its own timeout.
	if f.async {
		f.deliveries.Add(1)
		go func() {
			defer f.deliveries.Done()
			dctx, cancel := f.deliveryContext(ctx)
			defer cancel()
			_ = f.deliver(dctx, product, sale, session.CustomerEmail)
		}()
		return f.finish(run), nil
	}

	dctx, cancel := f.deliveryContext(ctx)
	defer cancel()
	if err := f.deliver(dctx, product, sale, session.CustomerEmail); err == nil {
		if err := run.advance(domain.FulfillmentDelivered); err != nil {
			return f.fail(ctx, run, err)
		}
	}
	return f.finish(run), nil
}

func (f *Fulfillment) deliveryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), f.deliveryTimeout)
}

// Wait blocks until receipts handed off in async mode have been sent.
func (f *Fulfillment) Wait() {
	f.deliveries.Wait()
}

func (f *Fulfillment) reconcile(ctx context.Context, product *domain.Product, session *domain.CompletedSession) {
	expected, err := product.UnitAmount(session.Currency)
	if err != nil || session.AmountTotal == expected {
		return
	}
	f.log.WarnContext(ctx, "charged amount differs from catalog price",
		"book_id", product.ID,
		"session_id", session.SessionID,
		"amount_charged", session.AmountTotal,
		"expected", expected,
		"currency", session.Currency)
}

// deliver sends the receipt. A failure is logged and counted; the sale stands.
func (f *Fulfillment) deliver(ctx context.Context, product *domain.Product, sale *domain.Sale, email string) error {
	receipt := mail.Receipt{
		To:          email,
		SaleID:      sale.ID,
		Title:       product.Title,
		Price:       product.Price,
		Attachments: f.collectAttachments(ctx, product),
	}

	if err := f.mailer.SendReceipt(ctx, receipt); err != nil {
		if f.metrics != nil {
			f.metrics.ReceiptFailures.Inc()
		}
		f.log.ErrorContext(ctx, "failed to deliver receipt",
			"sale_id", sale.ID,
			"error", err)
		return err
	}
	f.log.InfoContext(ctx, "receipt delivered",
		"sale_id", sale.ID,
		"attachments", len(receipt.Attachments))
	return nil
}

func (f *Fulfillment) collectAttachments(ctx context.Context, product *domain.Product) []mail.Attachment {
	type asset struct {
		url  string
		name string
	}
	var assets []asset
	if product.PdfURL != "" {
		assets = append(assets, asset{url: product.PdfURL, name: attachmentName(product.Title, product.PdfURL, ".pdf", 0)})
	}
	for i, u := range product.VideoURLs {
		assets = append(assets, asset{url: u, name: attachmentName(product.Title, u, ".mp4", i+1)})
	}

	fetched := make([]*mail.Attachment, len(assets))
	tasks := make([]bestEffortTask, 0, len(assets))
	for i, a := range assets {
		i, a := i, a
		tasks = append(tasks, bestEffortTask{
			name: "fetch " + a.name,
			run: func(ctx context.Context) error {
				fctx, cancel := context.WithTimeout(ctx, f.fetchTimeout)
				defer cancel()
				data, err := f.fetcher.Fetch(fctx, a.url)
				if err != nil {
					return err
				}
				fetched[i] = &mail.Attachment{Name: a.name, Content: data}
				return nil
			},
		})
	}
	_ = runBestEffort(ctx, f.log, "receipt attachments", tasks)

	attachments := make([]mail.Attachment, 0, len(fetched))
	for _, a := range fetched {
		if a != nil {
			attachments = append(attachments, *a)
		}
	}
	return attachments
}

func attachmentName(title, assetURL, fallbackExt string, n int) string {
	ext := fallbackExt
	if name, err := storage.ObjectPath(assetURL); err == nil && path.Ext(name) != "" {
		ext = path.Ext(name)
	}
	if n == 0 {
		return title + ext
	}
	return fmt.Sprintf("%s - video %d%s", title, n, ext)
}

func (f *Fulfillment) fail(ctx context.Context, run *fulfillmentRun, err error) (*Outcome, error) {
	run.outcome.Status = domain.FulfillmentFailed
	level := slog.LevelWarn
	if !isRejection(err) {
		level = slog.LevelError
	}
	f.log.Log(ctx, level, "payment event failed",
		"event_id", run.outcome.EventID,
		"error", err)
	return f.finish(run), err
}

func (f *Fulfillment) finish(run *fulfillmentRun) *Outcome {
	if f.metrics != nil {
		f.metrics.Fulfillment.WithLabelValues(run.outcome.Status.String()).Inc()
	}
	out := run.outcome
	return &out
}

// isRejection reports errors caused by the event itself rather than by us.
func isRejection(err error) bool {
	return errors.Is(err, domain.ErrSignatureInvalid) ||
		errors.Is(err, domain.ErrMalformedEvent) ||
		errors.Is(err, domain.ErrProductNotFound)
}
