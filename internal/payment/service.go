// File: internal/payment/service.go
package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"launchpad_backend/internal/authz"
	"launchpad_backend/internal/clock"
	"launchpad_backend/internal/common"
	"launchpad_backend/internal/config"
	"launchpad_backend/internal/email"
	"launchpad_backend/internal/notification"
	"launchpad_backend/internal/platform/metrics"
	"launchpad_backend/internal/product"
	"launchpad_backend/internal/user"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Webhook outcomes reported to metrics.
const (
	outcomeFulfilled = "fulfilled"
	outcomeIgnored   = "ignored"
	outcomeDuplicate = "duplicate"
	outcomeUnknown   = "unknown_session"
	outcomeInvalid   = "invalid"
	outcomeFailed    = "failed"
)

// Promoter applies the promotions a plan buys.
type Promoter interface {
	FeatureFrom(ctx context.Context, actor *common.Actor, id uuid.UUID, expectedVersion int64, days int, start time.Time) (*product.Product, error)
	SetPremiumFrom(ctx context.Context, actor *common.Actor, id uuid.UUID, expectedVersion int64, days int, start time.Time) (*product.Product, error)
	URL(p *product.Product) string
}

type Service interface {
	Checkout(ctx context.Context, actor *common.Actor, req CheckoutRequest) (*CheckoutResponse, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
	ListMine(ctx context.Context, actor *common.Actor, page common.PaginationQuery) ([]Payment, *common.Pagination, error)
}

type ServiceImplementation struct {
	repo          Repository
	gateway       Gateway
	products      product.Repository
	promoter      Promoter
	users         user.Repository
	authz         authz.Authorizer
	notifications notification.Service
	mailer        email.Sender
	metrics       metrics.Recorder
	clock         clock.Clock
	cfg           *config.Config
	logger        *zap.Logger
}

var _ Service = (*ServiceImplementation)(nil)

func NewService(
	repo Repository,
	gateway Gateway,
	products product.Repository,
	promoter Promoter,
	users user.Repository,
	authorizer authz.Authorizer,
	notifications notification.Service,
	mailer email.Sender,
	recorder metrics.Recorder,
	clk clock.Clock,
	cfg *config.Config,
	logger *zap.Logger,
) *ServiceImplementation {
	return &ServiceImplementation{
		repo:          repo,
		gateway:       gateway,
		products:      products,
		promoter:      promoter,
		users:         users,
		authz:         authorizer,
		notifications: notifications,
		mailer:        mailer,
		metrics:       recorder,
		clock:         clk,
		cfg:           cfg,
		logger:        logger.Named("payment_service"),
	}
}

var errPaymentsDisabled = common.ErrServiceUnavailable.WithDetails("Payments are not configured.")

func (s *ServiceImplementation) currency() string {
	if s.cfg.StripeCurrency == "" {
		return "usd"
	}
	return s.cfg.StripeCurrency
}

// Checkout opens a processor session for a plan on one of the actor's published products.
func (s *ServiceImplementation) Checkout(ctx context.Context, actor *common.Actor, req CheckoutRequest) (*CheckoutResponse, error) {
	if s.gateway == nil {
		return nil, errPaymentsDisabled
	}
	if err := s.authz.Authorize(ctx, actor, authz.ObjectPayment, authz.ActionCheckout); err != nil {
		return nil, err
	}
	plan, ok := LookupPlan(req.Plan)
	if !ok {
		return nil, common.ErrBadRequest.WithDetails("Unknown plan.")
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return nil, common.ErrBadRequest.WithDetails("Invalid product_id format.")
	}
	p, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(p.UserID) {
		return nil, common.ErrForbidden.WithDetails("Only the owner can purchase promotions for a product.")
	}
	if !product.IsPubliclyListed(p) {
		return nil, common.ErrConflict.WithDetails("Only published products can be promoted.")
	}
	owner, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	paymentID := uuid.New()
	session, err := s.gateway.CreateCheckoutSession(ctx, SessionParams{
		PaymentID:     paymentID.String(),
		ProductID:     p.ID.String(),
		UserID:        owner.ID.String(),
		CustomerEmail: owner.Email,
		Plan:          plan,
		ProductName:   p.Name,
		Currency:      s.currency(),
		SuccessURL:    s.cfg.CheckoutSuccessURL,
		CancelURL:     s.cfg.CheckoutCancelURL,
	})
	if err != nil {
		s.logger.Error("Failed to open checkout session", zap.Error(err), zap.String("productID", p.ID.String()))
		return nil, common.ErrServiceUnavailable.WithDetails("The payment processor is unavailable. Please try again.")
	}

	record := &Payment{
		BaseModel:   common.BaseModel{ID: paymentID},
		SessionID:   session.ID,
		UserID:      owner.ID,
		ProductID:   p.ID,
		Plan:        plan.Code,
		AmountCents: plan.AmountCents,
		Currency:    s.currency(),
		Status:      StatusPending,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to record checkout: %w", err)
	}
	s.logger.Info("Checkout session opened",
		zap.String("paymentID", paymentID.String()),
		zap.String("sessionID", session.ID),
		zap.String("plan", plan.Code),
	)
	return &CheckoutResponse{SessionID: session.ID, CheckoutURL: session.URL}, nil
}

// HandleWebhook verifies and fulfils a processor event. Redelivered events for
// an already fulfilled session are acknowledged without side effects. A
// fulfilment failure is returned so the processor retries.
func (s *ServiceImplementation) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.gateway == nil {
		return errPaymentsDisabled
	}
	event, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		s.metrics.RecordWebhook("unknown", outcomeInvalid)
		return err
	}
	if event.Type != EventCheckoutCompleted || event.PaymentStatus != "paid" {
		s.metrics.RecordWebhook(event.Type, outcomeIgnored)
		s.logger.Debug("Ignoring webhook event", zap.String("eventID", event.ID), zap.String("type", event.Type))
		return nil
	}

	record, err := s.repo.FindBySessionID(ctx, event.SessionID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.metrics.RecordWebhook(event.Type, outcomeUnknown)
			s.logger.Warn("Webhook for unknown checkout session", zap.String("sessionID", event.SessionID))
			return nil
		}
		return err
	}

	now := s.clock.Now()
	claimed, err := s.repo.Claim(ctx, record.SessionID, now)
	if err != nil {
		return err
	}
	if !claimed {
		s.metrics.RecordWebhook(event.Type, outcomeDuplicate)
		s.logger.Info("Duplicate webhook delivery ignored", zap.String("sessionID", record.SessionID))
		return nil
	}

	// Windows start at the first claim so a retried fulfilment lands on the same dates.
	paidAt := now
	if record.PaidAt != nil {
		paidAt = *record.PaidAt
	}
	promoted, err := s.fulfil(ctx, record, paidAt)
	if err != nil {
		if releaseErr := s.repo.Release(ctx, record.SessionID); releaseErr != nil {
			s.logger.Error("Failed to release payment claim", zap.Error(releaseErr), zap.String("sessionID", record.SessionID))
		}
		s.metrics.RecordWebhook(event.Type, outcomeFailed)
		s.logger.Error("Payment fulfilment failed", zap.Error(err), zap.String("sessionID", record.SessionID))
		return err
	}

	s.metrics.RecordWebhook(event.Type, outcomeFulfilled)
	s.logger.Info("Payment fulfilled",
		zap.String("paymentID", record.ID.String()),
		zap.String("productID", record.ProductID.String()),
		zap.String("plan", record.Plan),
	)
	s.notifyAndReceipt(ctx, record, promoted)
	return nil
}

// fulfil applies the plan with its window starting at paidAt. The product
// write comes last; everything before it is safe to repeat.
func (s *ServiceImplementation) fulfil(ctx context.Context, record *Payment, paidAt time.Time) (*product.Product, error) {
	plan, ok := LookupPlan(record.Plan)
	if !ok {
		return nil, fmt.Errorf("payment %s references unknown plan %q", record.ID, record.Plan)
	}
	switch plan.Kind {
	case KindFeatured:
		return s.promoter.FeatureFrom(ctx, common.SystemActor, record.ProductID, 0, plan.Days, paidAt)
	case KindPremium:
		if err := s.users.MarkPremium(ctx, record.UserID, paidAt); err != nil {
			return nil, err
		}
		return s.promoter.SetPremiumFrom(ctx, common.SystemActor, record.ProductID, 0, plan.Days, paidAt)
	default:
		return nil, fmt.Errorf("unsupported plan kind %q", plan.Kind)
	}
}

func (s *ServiceImplementation) notifyAndReceipt(ctx context.Context, record *Payment, p *product.Product) {
	plan, _ := LookupPlan(record.Plan)
	productID := p.ID
	if _, err := s.notifications.CreateNotification(ctx, record.UserID, notification.PaymentCompleted,
		fmt.Sprintf("Payment received: %s for %s.", plan.Label, p.Name), &productID); err != nil {
		s.logger.Warn("Failed to create payment notification", zap.Error(err))
	}

	buyer, err := s.users.FindByID(ctx, record.UserID)
	if err != nil {
		s.logger.Warn("Failed to load buyer for receipt", zap.Error(err), zap.String("userID", record.UserID.String()))
		return
	}
	validUntil := p.FeaturedUntil
	if plan.Kind == KindPremium {
		validUntil = p.PremiumUntil
	}
	data := email.ReceiptData{
		Name:        buyer.DisplayName,
		ProductName: p.Name,
		Plan:        plan.Label,
		Amount:      FormatAmount(record.AmountCents, record.Currency),
		ProductURL:  s.promoter.URL(p),
	}
	if validUntil != nil {
		data.ValidUntil = validUntil.UTC().Format("Jan 2, 2006")
	}
	s.mailer.Send(buyer.Email, email.TemplatePaymentReceipt, data)
}

func (s *ServiceImplementation) ListMine(ctx context.Context, actor *common.Actor, page common.PaginationQuery) ([]Payment, *common.Pagination, error) {
	if actor == nil {
		return nil, nil, common.ErrUnauthorized
	}
	return s.repo.ListByUser(ctx, actor.UserID, page)
}
