package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/fjod/go_bookstore/internal/domain"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

type Config struct {
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
	Currency      string
	// Backends overrides the Stripe API endpoint; nil uses the live API.
	Backends *stripe.Backends
}

// StripeGateway adapts the Stripe API to the bookstore's payment operations.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
	successURL    string
	cancelURL     string
	currency      string
}

func NewStripeGateway(cfg Config) *StripeGateway {
	return &StripeGateway{
		api:           client.New(cfg.SecretKey, cfg.Backends),
		webhookSecret: cfg.WebhookSecret,
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
		currency:      cfg.Currency,
	}
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req domain.CheckoutRequest) (*domain.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(req.ExternalPriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(g.successURL),
		CancelURL:  stripe.String(g.cancelURL),
	}
	params.Context = ctx
	params.AddMetadata(domain.MetadataProductID, strconv.FormatInt(req.ProductID, 10))
	params.AddMetadata(domain.MetadataTitle, req.Title)

	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, gatewayError("create checkout session", err)
	}
	return toCheckoutSession(s), nil
}

func (g *StripeGateway) RetrieveSession(ctx context.Context, id string) (*domain.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	s, err := g.api.CheckoutSessions.Get(id, params)
	if err != nil {
		if isResourceMissing(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
		}
		return nil, gatewayError("retrieve checkout session", err)
	}
	return toCheckoutSession(s), nil
}

// VerifyAndParseEvent checks the Stripe-Signature header against the raw body
// before decoding anything from it.
func (g *StripeGateway) VerifyAndParseEvent(payload []byte, signatureHeader string) (*domain.PaymentEvent, error) {
	if err := webhook.ValidatePayload(payload, signatureHeader, g.webhookSecret); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSignatureInvalid, err)
	}

	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: decode event: %v", domain.ErrMalformedEvent, err)
	}
	return decodeEvent(event)
}

func decodeEvent(event stripe.Event) (*domain.PaymentEvent, error) {
	out := &domain.PaymentEvent{
		ID:   event.ID,
		Type: string(event.Type),
		Kind: domain.EventUnknown,
	}
	if out.Type != string(domain.EventCheckoutSessionCompleted) {
		return out, nil
	}

	if event.Data == nil || len(event.Data.Raw) == 0 {
		return nil, fmt.Errorf("%w: event %s has no data object", domain.ErrMalformedEvent, event.ID)
	}
	var s stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
		return nil, fmt.Errorf("%w: decode checkout session: %v", domain.ErrMalformedEvent, err)
	}
	if s.ID == "" {
		return nil, fmt.Errorf("%w: checkout session without id", domain.ErrMalformedEvent)
	}

	email := s.CustomerEmail
	if s.CustomerDetails != nil && s.CustomerDetails.Email != "" {
		email = s.CustomerDetails.Email
	}
	out.Kind = domain.EventCheckoutSessionCompleted
	out.Session = &domain.CompletedSession{
		SessionID:     s.ID,
		CustomerEmail: email,
		Metadata:      s.Metadata,
		AmountTotal:   s.AmountTotal,
		Currency:      string(s.Currency),
	}
	return out, nil
}

func (g *StripeGateway) CreateProduct(ctx context.Context, title, imageURL, idempotencyKey string) (string, error) {
	params := &stripe.ProductParams{
		Name: stripe.String(title),
	}
	if imageURL != "" {
		params.Images = stripe.StringSlice([]string{imageURL})
	}
	params.Context = ctx
	if idempotencyKey != "" {
		params.SetIdempotencyKey(idempotencyKey)
	}

	p, err := g.api.Products.New(params)
	if err != nil {
		return "", gatewayError("create product", err)
	}
	return p.ID, nil
}

// Currency is the lowercase ISO code prices are created in.
func (g *StripeGateway) Currency() string {
	return g.currency
}

func (g *StripeGateway) CreatePrice(ctx context.Context, productID string, unitAmount int64, idempotencyKey string) (string, error) {
	params := &stripe.PriceParams{
		Product:    stripe.String(productID),
		UnitAmount: stripe.Int64(unitAmount),
		Currency:   stripe.String(g.currency),
	}
	params.Context = ctx
	if idempotencyKey != "" {
		params.SetIdempotencyKey(idempotencyKey)
	}

	p, err := g.api.Prices.New(params)
	if err != nil {
		return "", gatewayError("create price", err)
	}
	return p.ID, nil
}

// DeactivatePrices archives every active price of the product. It keeps going
// past individual failures and returns them joined.
func (g *StripeGateway) DeactivatePrices(ctx context.Context, productID string) error {
	listParams := &stripe.PriceListParams{
		Product: stripe.String(productID),
		Active:  stripe.Bool(true),
	}
	listParams.Context = ctx

	var errs []error
	iter := g.api.Prices.List(listParams)
	for iter.Next() {
		p := iter.Price()
		params := &stripe.PriceParams{Active: stripe.Bool(false)}
		params.Context = ctx
		if _, err := g.api.Prices.Update(p.ID, params); err != nil {
			errs = append(errs, gatewayError("deactivate price "+p.ID, err))
		}
	}
	if err := iter.Err(); err != nil {
		errs = append(errs, gatewayError("list prices", err))
	}
	return errors.Join(errs...)
}

func (g *StripeGateway) DeactivateProduct(ctx context.Context, productID string) error {
	params := &stripe.ProductParams{Active: stripe.Bool(false)}
	params.Context = ctx

	if _, err := g.api.Products.Update(productID, params); err != nil {
		return gatewayError("deactivate product", err)
	}
	return nil
}

func toCheckoutSession(s *stripe.CheckoutSession) *domain.CheckoutSession {
	return &domain.CheckoutSession{
		ID:       s.ID,
		URL:      s.URL,
		Status:   string(s.Status),
		Metadata: s.Metadata,
	}
}

func gatewayError(op string, err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		return fmt.Errorf("%w: %s: %s (status %d, code %s)", domain.ErrGateway, op, se.Msg, se.HTTPStatusCode, se.Code)
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrGateway, op, err)
}

func isResourceMissing(err error) bool {
	var se *stripe.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == stripe.ErrorCodeResourceMissing || se.HTTPStatusCode == 404
}
