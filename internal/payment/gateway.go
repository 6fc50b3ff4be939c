// File: internal/payment/gateway.go
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"launchpad_backend/internal/common"
	"launchpad_backend/internal/config"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"
	"github.com/stripe/stripe-go/v74/webhook"
	"go.uber.org/zap"
)

// EventCheckoutCompleted is the only webhook event that is fulfilled.
const EventCheckoutCompleted = "checkout.session.completed"

// ErrInvalidSignature is returned for webhook payloads that fail verification.
var ErrInvalidSignature = common.ErrBadRequest.WithDetails("Invalid webhook signature.")

// SessionParams describes a checkout to open with the processor.
type SessionParams struct {
	PaymentID     string
	ProductID     string
	UserID        string
	CustomerEmail string
	Plan          Plan
	ProductName   string
	Currency      string
	SuccessURL    string
	CancelURL     string
}

// Session is an opened checkout.
type Session struct {
	ID  string
	URL string
}

// WebhookEvent is the verified subset of a processor event the service needs.
type WebhookEvent struct {
	ID            string
	Type          string
	SessionID     string
	PaymentStatus string
	AmountTotal   int64
	Currency      string
	Metadata      map[string]string
}

// Gateway is the payment processor.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, params SessionParams) (*Session, error)
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}

// StripeGateway implements Gateway with Stripe Checkout.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
	logger        *zap.Logger
}

// NewGateway returns nil when no secret key is configured; the service then
// reports payments as unavailable.
func NewGateway(cfg *config.Config, logger *zap.Logger) Gateway {
	if cfg.StripeSecretKey == "" {
		logger.Warn("STRIPE_SECRET_KEY not set. Payments are disabled.")
		return nil
	}
	return NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret, logger)
}

func NewStripeGateway(secretKey, webhookSecret string, logger *zap.Logger) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeGateway{api: api, webhookSecret: webhookSecret, logger: logger.Named("stripe")}
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, p SessionParams) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(p.SuccessURL),
		CancelURL:         stripe.String(p.CancelURL),
		ClientReferenceID: stripe.String(p.PaymentID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(p.Currency),
				UnitAmount: stripe.Int64(p.Plan.AmountCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(p.Plan.Label + ": " + p.ProductName),
				},
			},
		}},
	}
	if p.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(p.CustomerEmail)
	}
	params.Context = ctx
	params.AddMetadata("payment_id", p.PaymentID)
	params.AddMetadata("product_id", p.ProductID)
	params.AddMetadata("user_id", p.UserID)
	params.AddMetadata("plan", p.Plan.Code)

	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			g.logger.Error("Stripe rejected checkout session",
				zap.String("type", string(stripeErr.Type)),
				zap.String("code", string(stripeErr.Code)),
				zap.String("message", stripeErr.Msg),
			)
		}
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	return &Session{ID: s.ID, URL: s.URL}, nil
}

func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		g.logger.Warn("Webhook signature verification failed", zap.Error(err))
		return nil, ErrInvalidSignature
	}

	out := &WebhookEvent{ID: event.ID, Type: string(event.Type)}
	if out.Type != EventCheckoutCompleted {
		return out, nil
	}
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, common.ErrBadRequest.WithDetails("Malformed checkout session payload.")
	}
	out.SessionID = session.ID
	out.PaymentStatus = string(session.PaymentStatus)
	out.AmountTotal = session.AmountTotal
	out.Currency = string(session.Currency)
	out.Metadata = session.Metadata
	return out, nil
}
