// File: internal/product/service.go
package product

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"launchpad_backend/internal/authz"
	"launchpad_backend/internal/category"
	"launchpad_backend/internal/clock"
	"launchpad_backend/internal/common"
	"launchpad_backend/internal/config"
	"launchpad_backend/internal/email"
	"launchpad_backend/internal/notification"
	"launchpad_backend/internal/platform/metrics"
	"launchpad_backend/internal/user"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

// maxCASAttempts bounds the read-validate-swap loop when the caller sent no version.
const maxCASAttempts = 3

// Indexer mirrors products into the search index.
type Indexer interface {
	SyncProduct(ctx context.Context, p *Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

// LogoStore promotes staged logo uploads and removes stored logos.
type LogoStore interface {
	Confirm(ctx context.Context, ownerID, uploadID uuid.UUID) (string, error)
	DeleteByURL(ctx context.Context, url string) error
}

// Service defines the product use cases: content CRUD, the moderation state
// machine, promotion windows and the upvote ledger.
type Service interface {
	Create(ctx context.Context, actor *common.Actor, req CreateProductRequest) (*Product, error)
	Get(ctx context.Context, actor *common.Actor, idOrSlug string) (*Product, error)
	Update(ctx context.Context, actor *common.Actor, id uuid.UUID, expectedVersion int64, req UpdateProductRequest) (*Product, error)
	Delete(ctx context.Context, actor *common.Actor, id uuid.UUID) error

	List(ctx context.Context, query ListQuery) ([]Product, *common.Pagination, error)
	Featured(ctx context.Context) ([]Product, error)
	ListMine(ctx context.Context, actor *common.Actor, page common.PaginationQuery) ([]Product, *common.Pagination, error)
	ListByUsername(ctx context.Context, username string, page common.PaginationQuery) ([]Product, *common.Pagination, error)

	Submit(ctx context.Context, actor *common.Actor, id uuid.UUID, expectedVersion int64) (*Product, error)
	Approve(ctx context.Context, actor *common.Actor, id uuid.UUID, expectedVersion int64) (*Product, error)
	Reject(ctx context.Context, actor *common.Actor, id uuid.UUID, expectedVersion int64, reason string) (*Product, error)
	Suspend(ctx context.Context, actor *common.Actor, id uuid.UUID, expectedVersion int64, reason *string) (*Product, error)
	Reinstate(ctx context.Context, actor *common.Actor, id uuid.UUID, expectedVersion int64) (*Product, error)
	Feature(ctx context.Context, actor *common.Actor, id uuid.UUID, expectedVersion int64, days int) (*Product, error)
	Unfeature(ctx context.Context, actor *common.Actor, id uuid.UUID, expectedVersion int64) (*Product, error)
	SetPremium(ctx context.Context, actor *common.Actor, id uuid.UUID, expectedVersion int64, days int) (*Product, error)

	ToggleUpvote(ctx context.Context, actor *common.Actor, id uuid.UUID) (*UpvoteResult, error)
	HasUpvoted(ctx context.Context, actor *common.Actor, id uuid.UUID) (bool, error)
	ListUpvoters(ctx context.Context, id uuid.UUID, page common.PaginationQuery) ([]Upvoter, *common.Pagination, error)

	// Now is the service clock, used to compute visibility flags in responses.
	Now() time.Time
	// URL is the public page of a product.
	URL(p *Product) string
}

// ServiceImplementation implements Service.
type ServiceImplementation struct {
	repo          Repository
	userRepo      user.Repository
	authz         authz.Authorizer
	logos         LogoStore
	indexer       Indexer
	notifications notification.Service
	mailer        email.Sender
	metrics       metrics.Recorder
	clock         clock.Clock
	cfg           *config.Config
	logger        *zap.Logger
	richText      *bluemonday.Policy
	plainText     *bluemonday.Policy
}

var _ Service = (*ServiceImplementation)(nil)

// NewService creates a new product service.
func NewService(
	repo Repository,
	userRepo user.Repository,
	authorizer authz.Authorizer,
	logos LogoStore,
	indexer Indexer,
	notifications notification.Service,
	mailer email.Sender,
	recorder metrics.Recorder,
	clk clock.Clock,
	cfg *config.Config,
	logger *zap.Logger,
) *ServiceImplementation {
	return &ServiceImplementation{
		repo:          repo,
		userRepo:      userRepo,
		authz:         authorizer,
		logos:         logos,
		indexer:       indexer,
		notifications: notifications,
		mailer:        mailer,
		metrics:       recorder,
		clock:         clk,
		cfg:           cfg,
		logger:        logger.Named("product_service"),
		richText:      bluemonday.UGCPolicy(),
		plainText:     bluemonday.StrictPolicy(),
	}
}

func (s *ServiceImplementation) Now() time.Time {
	return s.clock.Now()
}

func (s *ServiceImplementation) URL(p *Product) string {
	return strings.TrimSuffix(s.cfg.PublicBaseURL, "/") + "/products/" + p.Slug
}

// --- Content ---

func (s *ServiceImplementation) Create(ctx context.Context, actor *common.Actor, req CreateProductRequest) (*Product, error) {
	if err := s.authz.Authorize(ctx, actor, authz.ObjectProduct, authz.ActionCreate); err != nil {
		return nil, err
	}

	fieldErrs := map[string]string{}
	if _, ok := category.Parse(req.Category); !ok {
		fieldErrs["Category"] = "Unknown category."
	}
	tags, tagErr := normalizeTags(req.Tags)
	if tagErr != "" {
		fieldErrs["Tags"] = tagErr
	}
	productSlug := slug.Make(firstNonEmpty(req.Slug, req.Name))
	if productSlug == "" {
		fieldErrs["Slug"] = "A slug could not be derived from the product name."
	}
	name := strings.TrimSpace(s.plainText.Sanitize(req.Name))
	if name == "" {
		fieldErrs["Name"] = "The name field is required."
	}
	if len(fieldErrs) > 0 {
		return nil, common.NewValidationAPIError(fieldErrs)
	}

	owner, err := s.userRepo.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	var logo *string
	if req.LogoUploadID != nil {
		url, err := s.confirmLogo(ctx, actor.UserID, *req.LogoUploadID)
		if err != nil {
			return nil, err
		}
		logo = &url
	}

	p := &Product{
		Slug:             productSlug,
		UserID:           owner.ID,
		Username:         owner.Username,
		Name:             name,
		ShortDescription: strings.TrimSpace(s.plainText.Sanitize(req.ShortDescription)),
		Description:      s.richText.Sanitize(req.Description),
		Logo:             logo,
		Category:         req.Category,
		Tags:             tags,
		WebsiteURL:       strings.TrimSpace(req.WebsiteURL),
		Status:           StatusDraft,
		Version:          1,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		if logo != nil {
			s.deleteLogo(ctx, *logo)
		}
		return nil, err
	}
	s.logger.Info("Product created", zap.String("productID", p.ID.String()), zap.String("slug", p.Slug))

	if req.Submit {
		return s.Submit(ctx, actor, p.ID, p.Version)
	}
	return p, nil
}

// Get returns a product by id or slug. Non-public products are only visible
// to their owner and to roles allowed to view hidden products. Public reads
// by non-owners count a view.
func (s *ServiceImplementation) Get(ctx context.Context, actor *common.Actor, idOrSlug string) (*Product, error) {
	var (
		p   *Product
		err error
	)
	if id, parseErr := uuid.Parse(idOrSlug); parseErr == nil {
		p, err = s.repo.FindByID(ctx, id)
	} else {
		p, err = s.repo.FindBySlug(ctx, idOrSlug)
	}
	if err != nil {
		return nil, err
	}

	if !IsPubliclyListed(p) {
		if !s.canViewHidden(ctx, actor, p) {
			return nil, common.ErrNotFound.WithDetails("Product not found.")
		}
		return p, nil
	}

	if !actor.Owns(p.UserID) {
		if err := s.repo.IncrementViews(ctx, p.ID); err != nil {
			s.logger.Warn("Failed to count product view", zap.Error(err), zap.String("productID", p.ID.String()))
		} else {
			p.Views++
		}
	}
	return p, nil
}

func (s *ServiceImplementation) canViewHidden(ctx context.Context, actor *common.Actor, p *Product) bool {
	if actor.Owns(p.UserID) {
		return true
	}
	return actor != nil && s.authz.Authorize(ctx, actor, authz.ObjectProduct, authz.ActionViewHidden) == nil
}

// authorizeOwnerOrAny lets owners act through ownAction and everyone else through anyAction.
func (s *ServiceImplementation) authorizeOwnerOrAny(ctx context.Context, actor *common.Actor, p *Product, ownAction, anyAction string) error {
	if actor.Owns(p.UserID) {
		return s.authz.Authorize(ctx, actor, authz.ObjectProduct, ownAction)
	}
	return s.authz.Authorize(ctx, actor, authz.ObjectProduct, anyAction)
}

// Update edits product content. Owners may only edit drafts and rejected products.
func (s *ServiceImplementation) Update(ctx context.Context, actor *common.Actor, id uuid.UUID, expectedVersion int64, req UpdateProductRequest) (*Product, error) {
	if actor == nil {
		return nil, common.ErrUnauthorized
	}

	fieldErrs := map[string]string{}
	if req.Category != nil {
		if _, ok := category.Parse(*req.Category); !ok {
			fieldErrs["Category"] = "Unknown category."
		}
	}
	var tags Tags
	if req.Tags != nil {
		var tagErr string
		if tags, tagErr = normalizeTags(*req.Tags); tagErr != "" {
			fieldErrs["Tags"] = tagErr
		}
	}
	if req.Name != nil && strings.TrimSpace(s.plainText.Sanitize(*req.Name)) == "" {
		fieldErrs["Name"] = "The name field may not be empty."
	}
	if len(fieldErrs) > 0 {
		return nil, common.NewValidationAPIError(fieldErrs)
	}

	var newLogo *string
	var oldLogo *string
	before, after, err := s.mutate(ctx, id, expectedVersion, func(p *Product, now time.Time) (map[string]interface{}, error) {
		if err := s.authorizeOwnerOrAny(ctx, actor, p, authz.ActionUpdateOwn, authz.ActionUpdateAny); err != nil {
			return nil, err
		}
		if actor.Owns(p.UserID) && !actor.IsAdmin() && p.Status != StatusDraft && p.Status != StatusRejected {
			return nil, common.ErrConflict.WithDetails("Only draft or rejected products can be edited.")
		}
		updates := map[string]interface{}{}
		if req.Name != nil {
			updates["name"] = strings.TrimSpace(s.plainText.Sanitize(*req.Name))
		}
		if req.ShortDescription != nil {
			updates["short_description"] = strings.TrimSpace(s.plainText.Sanitize(*req.ShortDescription))
		}
		if req.Description != nil {
			updates["description"] = s.richText.Sanitize(*req.Description)
		}
		if req.WebsiteURL != nil {
			updates["website_url"] = strings.TrimSpace(*req.WebsiteURL)
		}
		if req.Category != nil {
			updates["category"] = *req.Category
		}
		if req.Tags != nil {
			updates["tags"] = tags
		}
		if req.LogoUploadID != nil && newLogo == nil {
			url, err := s.confirmLogo(ctx, p.UserID, *req.LogoUploadID)
			if err != nil {
				return nil, err
			}
			newLogo = &url
		}
		if newLogo != nil {
			updates["logo"] = *newLogo
			oldLogo = p.Logo
		}
		return updates, nil
	})
	if err != nil {
		if newLogo != nil {
			s.deleteLogo(ctx, *newLogo)
		}
		return nil, err
	}
	if oldLogo != nil && (after.Logo == nil || *oldLogo != *after.Logo) {
		s.deleteLogo(ctx, *oldLogo)
	}
	s.logger.Info("Product updated", zap.String("productID", id.String()), zap.Int64("version", after.Version))
	if IsPubliclyListed(before) {
		s.syncIndex(ctx, after)
	}
	return after, nil
}

func (s *ServiceImplementation) Delete(ctx context.Context, actor *common.Actor, id uuid.UUID) error {
	if actor == nil {
		return common.ErrUnauthorized
	}
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorizeOwnerOrAny(ctx, actor, p, authz.ActionDeleteOwn, authz.ActionDeleteAny); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if p.Logo != nil {
		s.deleteLogo(ctx, *p.Logo)
	}
	if err := s.indexer.DeleteProduct(ctx, id); err != nil {
		s.logger.Warn("Failed to remove product from search index", zap.Error(err), zap.String("productID", id.String()))
	}
	s.logger.Info("Product deleted", zap.String("productID", id.String()), zap.String("by", actor.UserID.String()))
	return nil
}

// --- Listings ---

func (s *ServiceImplementation) List(ctx context.Context, query ListQuery) ([]Product, *common.Pagination, error) {
	switch query.Sort {
	case "":
		query.Sort = SortUpvotes
	case SortUpvotes, SortViews, SortNewest:
	default:
		return nil, nil, common.ErrBadRequest.WithDetails(fmt.Sprintf("Unknown sort %q. Use upvotes, views or newest.", query.Sort))
	}
	if query.Category != "" {
		if _, ok := category.Parse(query.Category); !ok {
			return nil, nil, common.ErrBadRequest.WithDetails("Unknown category.")
		}
	}
	if query.Tag != "" {
		query.Tag = slug.Make(query.Tag)
	}
	return s.repo.ListPublished(ctx, query)
}

func (s *ServiceImplementation) Featured(ctx context.Context) ([]Product, error) {
	return s.repo.ListFeatured(ctx, s.clock.Now(), s.cfg.FeaturedCarouselSize)
}

func (s *ServiceImplementation) ListMine(ctx context.Context, actor *common.Actor, page common.PaginationQuery) ([]Product, *common.Pagination, error) {
	if actor == nil {
		return nil, nil, common.ErrUnauthorized
	}
	return s.repo.ListByUser(ctx, actor.UserID, false, page)
}

func (s *ServiceImplementation) ListByUsername(ctx context.Context, username string, page common.PaginationQuery) ([]Product, *common.Pagination, error) {
	owner, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, nil, err
	}
	return s.repo.ListByUser(ctx, owner.ID, true, page)
}

// --- Status transitions ---

// mutate runs a read-validate-compare-and-swap cycle. build receives the
// current row and returns the column updates; updated_at is stamped here.
// With an expected version a mismatch fails immediately, otherwise a
// concurrent write triggers a re-read, up to maxCASAttempts times.
func (s *ServiceImplementation) mutate(
	ctx context.Context,
	id uuid.UUID,
	expectedVersion int64,
	build func(p *Product, now time.Time) (map[string]interface{}, error),
) (*Product, *Product, error) {
	attempts := maxCASAttempts
	if expectedVersion > 0 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		current, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		if expectedVersion > 0 && current.Version != expectedVersion {
			return nil, nil, common.ErrConflict.WithDetails(map[string]interface{}{
				"message":          "The product was modified since it was read.",
				"expected_version": expectedVersion,
				"current_version":  current.Version,
			})
		}
		now := s.clock.Now()
		updates, err := build(current, now)
		if err != nil {
			return nil, nil, err
		}
		updates["updated_at"] = now

		updated, err := s.repo.CompareAndSwap(ctx, id, current.Version, updates)
		if err == nil {
			return current, updated, nil
		}
		if expectedVersion > 0 || !errors.Is(err, common.ErrConflict) {
			return nil, nil, err
		}
		lastErr = err
		s.logger.Debug("Product version moved, retrying", zap.String("productID", id.String()), zap.Int("attempt", i+1))
	}
	return nil, nil, lastErr
}

func (s *ServiceImplementation) transition(
	ctx context.Context,
	actor *common.Actor,
	id uuid.UUID,
	expectedVersion int64,
	t Transition,
	guard func(p *Product) error,
	extra func(p *Product, now time.Time) map[string]interface{},
) (*Product, *Product, error) {
	before, after, err := s.mutate(ctx, id, expectedVersion, func(p *Product, now time.Time) (map[string]interface{}, error) {
		if guard != nil {
			if err := guard(p); err != nil {
				return nil, err
			}
		}
		next, err := NextStatus(p.Status, t)
		if err != nil {
			return nil, err
		}
		updates := map[string]interface{}{"status": next}
		for k, v := range extra(p, now) {
			updates[k] = v
		}
		return updates, nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.metrics.RecordTransition(string(before.Status), string(after.Status))
	s.logger.Info("Product status changed",
		zap.String("productID", id.String()),
		zap.String("transition", string(t)),
		zap.String("from", string(before.Status)),
		zap.String("to", string(after.Status)),
		zap.String("actor", actor.UserID.String()),
	)
	return before, after, nil
}

// review stamps the reviewer fields shared by every admin decision.
func review(actor *common.Actor, now time.Time) map[string]interface{} {
	updates := map[string]interface{}{"reviewed_at": now}
	if actor.UserID != uuid.Nil {
		updates["reviewed_by"] = actor.UserID
	}
	return updates
}

// Submit moves a draft or rejected product into the review queue. Only the owner may submit.
func (s *ServiceImplementation) Submit(ctx context.Context, actor *common.Actor, id uuid.UUID, expectedVersion int64) (*Product, error) {
	if err := s.authz.Authorize(ctx, actor, authz.ObjectProduct, authz.ActionSubmitOwn); err != nil {
		return nil, err
	}
	ownerOnly := func(p *Product) error {
		if !actor.Owns(p.UserID) {
			return common.ErrForbidden.WithDetails("Only the owner can submit a product.")
		}
		return nil
	}
	_, after, err := s.transition(ctx, actor, id, expectedVersion, TransitionSubmit, ownerOnly, func(p *Product, now time.Time) map[string]interface{} {
		return map[string]interface{}{
			"submitted_at":     now,
			"rejection_reason": nil,
		}
	})
	if err != nil {
		return nil, err
	}
	return after, nil
}

func (s *ServiceImplementation) Approve(ctx context.Context, actor *common.Actor, id uuid.UUID, expectedVersion int64) (*Product, error) {
	if err := s.authz.Authorize(ctx, actor, authz.ObjectProduct, authz.ActionApprove); err != nil {
		return nil, err
	}
	_, after, err := s.transition(ctx, actor, id, expectedVersion, TransitionApprove, nil, func(p *Product, now time.Time) map[string]interface{} {
		updates := review(actor, now)
		updates["published_at"] = now
		updates["rejection_reason"] = nil
		return updates
	})
	if err != nil {
		return nil, err
	}
	s.notifyOwner(ctx, after, notification.ProductApproved, fmt.Sprintf("%s was approved and is now live.", after.Name))
	s.mailOwner(ctx, after, email.TemplateProductApproved, "")
	s.syncIndex(ctx, after)
	return after, nil
}

func (s *ServiceImplementation) Reject(ctx context.Context, actor *common.Actor, id uuid.UUID, expectedVersion int64, reason string) (*Product, error) {
	if err := s.authz.Authorize(ctx, actor, authz.ObjectProduct, authz.ActionReject); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if len([]rune(reason)) < s.cfg.RejectionReasonMinLength {
		return nil, common.NewValidationAPIError(map[string]string{
			"Reason": fmt.Sprintf("The reason must be at least %d characters long.", s.cfg.RejectionReasonMinLength),
		})
	}
	_, after, err := s.transition(ctx, actor, id, expectedVersion, TransitionReject, nil, func(p *Product, now time.Time) map[string]interface{} {
		updates := review(actor, now)
		updates["rejection_reason"] = reason
		return updates
	})
	if err != nil {
		return nil, err
	}
	s.notifyOwner(ctx, after, notification.ProductRejected, fmt.Sprintf("%s needs changes: %s", after.Name, reason))
	s.mailOwner(ctx, after, email.TemplateProductRejected, reason)
	return after, nil
}

func (s *ServiceImplementation) Suspend(ctx context.Context, actor *common.Actor, id uuid.UUID, expectedVersion int64, reason *string) (*Product, error) {
	if err := s.authz.Authorize(ctx, actor, authz.ObjectProduct, authz.ActionSuspend); err != nil {
		return nil, err
	}
	_, after, err := s.transition(ctx, actor, id, expectedVersion, TransitionSuspend, nil, func(p *Product, now time.Time) map[string]interface{} {
		return review(actor, now)
	})
	if err != nil {
		return nil, err
	}
	message := fmt.Sprintf("%s was suspended and is no longer listed.", after.Name)
	if reason != nil && strings.TrimSpace(*reason) != "" {
		message += " Reason: " + strings.TrimSpace(*reason)
	}
	s.notifyOwner(ctx, after, notification.ProductSuspended, message)
	s.removeFromIndex(ctx, after.ID)
	return after, nil
}

func (s *ServiceImplementation) Reinstate(ctx context.Context, actor *common.Actor, id uuid.UUID, expectedVersion int64) (*Product, error) {
	if err := s.authz.Authorize(ctx, actor, authz.ObjectProduct, authz.ActionReinstate); err != nil {
		return nil, err
	}
	_, after, err := s.transition(ctx, actor, id, expectedVersion, TransitionReinstate, nil, func(p *Product, now time.Time) map[string]interface{} {
		return review(actor, now)
	})
	if err != nil {
		return nil, err
	}
	s.notifyOwner(ctx, after, notification.ProductReinstated, fmt.Sprintf("%s was reinstated and is listed again.", after.Name))
	s.syncIndex(ctx, after)
	return after, nil
}

// --- Promotion windows ---

func (s *ServiceImplementation) validateDays(days int) error {
	if days < 1 || days > s.cfg.MaxFeatureDurationDays {
		return common.NewValidationAPIError(map[string]string{
			"Days": fmt.Sprintf("The duration must be between 1 and %d days.", s.cfg.MaxFeatureDurationDays),
		})
	}
	return nil
}

// promote applies a promotion update that leaves the status untouched.
func (s *ServiceImplementation) promote(ctx context.Context, actor *common.Actor, id uuid.UUID, expectedVersion int64, what string, updates func(now time.Time) map[string]interface{}) (*Product, error) {
	_, after, err := s.mutate(ctx, id, expectedVersion, func(p *Product, now time.Time) (map[string]interface{}, error) {
		return updates(now), nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Product promotion changed",
		zap.String("productID", id.String()),
		zap.String("change", what),
		zap.String("actorRole", actor.Role),
	)
	if IsPubliclyListed(after) {
		s.syncIndex(ctx, after)
	}
	return after, nil
}

// windowEnd is days after start, or after now when start is unset.
func windowEnd(start, now time.Time, days int) time.Time {
	if start.IsZero() {
		start = now
	}
	return start.AddDate(0, 0, days)
}

// Feature opens a featured window of days from now, independent of status.
func (s *ServiceImplementation) Feature(ctx context.Context, actor *common.Actor, id uuid.UUID, expectedVersion int64, days int) (*Product, error) {
	return s.FeatureFrom(ctx, actor, id, expectedVersion, days, time.Time{})
}

// FeatureFrom opens a featured window of days starting at start. Applying the
// same start twice yields the same window.
func (s *ServiceImplementation) FeatureFrom(ctx context.Context, actor *common.Actor, id uuid.UUID, expectedVersion int64, days int, start time.Time) (*Product, error) {
	if err := s.authz.Authorize(ctx, actor, authz.ObjectProduct, authz.ActionFeature); err != nil {
		return nil, err
	}
	if err := s.validateDays(days); err != nil {
		return nil, err
	}
	after, err := s.promote(ctx, actor, id, expectedVersion, "feature", func(now time.Time) map[string]interface{} {
		return map[string]interface{}{
			"featured":       true,
			"featured_until": windowEnd(start, now, days),
		}
	})
	if err != nil {
		return nil, err
	}
	s.notifyOwner(ctx, after, notification.ProductFeatured,
		fmt.Sprintf("%s is featured until %s.", after.Name, after.FeaturedUntil.UTC().Format("Jan 2, 2006")))
	return after, nil
}

func (s *ServiceImplementation) Unfeature(ctx context.Context, actor *common.Actor, id uuid.UUID, expectedVersion int64) (*Product, error) {
	if err := s.authz.Authorize(ctx, actor, authz.ObjectProduct, authz.ActionUnfeature); err != nil {
		return nil, err
	}
	return s.promote(ctx, actor, id, expectedVersion, "unfeature", func(now time.Time) map[string]interface{} {
		return map[string]interface{}{
			"featured":       false,
			"featured_until": nil,
		}
	})
}

func (s *ServiceImplementation) SetPremium(ctx context.Context, actor *common.Actor, id uuid.UUID, expectedVersion int64, days int) (*Product, error) {
	return s.SetPremiumFrom(ctx, actor, id, expectedVersion, days, time.Time{})
}

func (s *ServiceImplementation) SetPremiumFrom(ctx context.Context, actor *common.Actor, id uuid.UUID, expectedVersion int64, days int, start time.Time) (*Product, error) {
	if err := s.authz.Authorize(ctx, actor, authz.ObjectProduct, authz.ActionPremium); err != nil {
		return nil, err
	}
	if err := s.validateDays(days); err != nil {
		return nil, err
	}
	return s.promote(ctx, actor, id, expectedVersion, "premium", func(now time.Time) map[string]interface{} {
		return map[string]interface{}{
			"premium":       true,
			"premium_until": windowEnd(start, now, days),
		}
	})
}

// --- Upvote ledger ---

// ToggleUpvote adds or removes the actor's upvote. Anonymous callers are
// rejected before the store is touched.
func (s *ServiceImplementation) ToggleUpvote(ctx context.Context, actor *common.Actor, id uuid.UUID) (*UpvoteResult, error) {
	if actor == nil {
		return nil, common.ErrUnauthorized
	}
	if err := s.authz.Authorize(ctx, actor, authz.ObjectProduct, authz.ActionUpvote); err != nil {
		return nil, err
	}
	result, err := s.repo.ToggleUpvote(ctx, id, actor.UserID, s.clock.Now())
	if err != nil {
		return nil, err
	}
	s.metrics.RecordUpvote(result.Upvoted)
	return result, nil
}

func (s *ServiceImplementation) HasUpvoted(ctx context.Context, actor *common.Actor, id uuid.UUID) (bool, error) {
	if actor == nil {
		return false, nil
	}
	return s.repo.HasUpvoted(ctx, id, actor.UserID)
}

func (s *ServiceImplementation) ListUpvoters(ctx context.Context, id uuid.UUID, page common.PaginationQuery) ([]Upvoter, *common.Pagination, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !IsPubliclyListed(p) {
		return nil, nil, common.ErrNotFound.WithDetails("Product not found.")
	}
	return s.repo.ListUpvoters(ctx, id, page)
}

// --- Side effects. Failures are logged and never fail the request. ---

func (s *ServiceImplementation) notifyOwner(ctx context.Context, p *Product, kind notification.NotificationType, message string) {
	productID := p.ID
	if _, err := s.notifications.CreateNotification(ctx, p.UserID, kind, message, &productID); err != nil {
		s.logger.Warn("Failed to notify product owner", zap.Error(err), zap.String("productID", p.ID.String()))
	}
}

func (s *ServiceImplementation) mailOwner(ctx context.Context, p *Product, tmpl email.Template, reason string) {
	owner, err := s.userRepo.FindByID(ctx, p.UserID)
	if err != nil {
		s.logger.Warn("Failed to load product owner for email", zap.Error(err), zap.String("productID", p.ID.String()))
		return
	}
	s.mailer.Send(owner.Email, tmpl, email.ProductData{
		Name:        owner.DisplayName,
		ProductName: p.Name,
		ProductURL:  s.URL(p),
		Reason:      reason,
	})
}

func (s *ServiceImplementation) syncIndex(ctx context.Context, p *Product) {
	if err := s.indexer.SyncProduct(ctx, p); err != nil {
		s.logger.Warn("Failed to sync product to search index", zap.Error(err), zap.String("productID", p.ID.String()))
	}
}

func (s *ServiceImplementation) removeFromIndex(ctx context.Context, id uuid.UUID) {
	if err := s.indexer.DeleteProduct(ctx, id); err != nil {
		s.logger.Warn("Failed to remove product from search index", zap.Error(err), zap.String("productID", id.String()))
	}
}

func (s *ServiceImplementation) confirmLogo(ctx context.Context, ownerID uuid.UUID, rawUploadID string) (string, error) {
	uploadID, err := uuid.Parse(rawUploadID)
	if err != nil {
		return "", common.NewValidationAPIError(map[string]string{"LogoUploadID": "Invalid upload token."})
	}
	return s.logos.Confirm(ctx, ownerID, uploadID)
}

func (s *ServiceImplementation) deleteLogo(ctx context.Context, url string) {
	if err := s.logos.DeleteByURL(ctx, url); err != nil {
		s.logger.Warn("Failed to delete logo", zap.Error(err), zap.String("url", url))
	}
}

// normalizeTags slugifies, de-duplicates and bounds tags. It returns a
// message when the set is invalid.
func normalizeTags(raw []string) (Tags, string) {
	tags := make(Tags, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, t := range raw {
		norm := slug.Make(t)
		if norm == "" {
			return nil, fmt.Sprintf("Tag %q is empty after normalization.", t)
		}
		if len(norm) > MaxTagLength {
			return nil, fmt.Sprintf("Tags may be at most %d characters.", MaxTagLength)
		}
		if seen[norm] {
			continue
		}
		seen[norm] = true
		tags = append(tags, norm)
	}
	if len(tags) > MaxTags {
		return nil, fmt.Sprintf("At most %d tags are allowed.", MaxTags)
	}
	return tags, ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
