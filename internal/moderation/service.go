// File: internal/moderation/service.go
package moderation

import (
	"context"
	"strings"
	"time"

	"launchpad_backend/internal/authz"
	"launchpad_backend/internal/clock"
	"launchpad_backend/internal/common"
	"launchpad_backend/internal/product"

	"go.uber.org/zap"
)

// Row actions offered by the moderation queue.
const (
	ActionApprove   = "approve"
	ActionReject    = "reject"
	ActionFeature   = "feature"
	ActionUnfeature = "unfeature"
	ActionSuspend   = "suspend"
	ActionReinstate = "reinstate"
)

// FilterAll selects every status.
const FilterAll = "all"

// QueueItem is a product as seen by moderators, with the actions valid for its state.
type QueueItem struct {
	product.ProductResponse
	Actions []string `json:"actions"`
}

// Stats counts products per status.
type Stats struct {
	Counts map[product.Status]int64 `json:"counts"`
	Total  int64                    `json:"total"`
}

// Service projects the product store into the admin moderation queue.
// Nothing is cached; every call reads the store.
type Service interface {
	Queue(ctx context.Context, actor *common.Actor, filter string, page common.PaginationQuery) ([]QueueItem, *common.Pagination, error)
	Stats(ctx context.Context, actor *common.Actor) (*Stats, error)
}

type ServiceImplementation struct {
	products product.Repository
	authz    authz.Authorizer
	clock    clock.Clock
	logger   *zap.Logger
}

func NewService(products product.Repository, authorizer authz.Authorizer, clk clock.Clock, logger *zap.Logger) *ServiceImplementation {
	return &ServiceImplementation{
		products: products,
		authz:    authorizer,
		clock:    clk,
		logger:   logger.Named("moderation_service"),
	}
}

var _ Service = (*ServiceImplementation)(nil)

// ParseFilter maps a status query parameter to the statuses it selects.
// An empty filter means the review queue.
func ParseFilter(raw string) ([]product.Status, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	switch raw {
	case "":
		return []product.Status{product.StatusSubmitted}, nil
	case FilterAll:
		return nil, nil
	}
	status := product.Status(raw)
	if !status.IsValid() || status == product.StatusDraft {
		return nil, common.ErrBadRequest.WithDetails("status must be one of submitted, published, rejected, suspended or all.")
	}
	return []product.Status{status}, nil
}

// ActionsFor lists the moderation actions valid for p at now.
func ActionsFor(p *product.Product, now time.Time) []string {
	switch p.Status {
	case product.StatusSubmitted:
		return []string{ActionApprove, ActionReject}
	case product.StatusPublished:
		if product.IsFeatured(p, now) {
			return []string{ActionUnfeature, ActionSuspend}
		}
		return []string{ActionFeature, ActionSuspend}
	case product.StatusSuspended:
		return []string{ActionReinstate}
	default:
		return []string{}
	}
}

func (s *ServiceImplementation) Queue(ctx context.Context, actor *common.Actor, filter string, page common.PaginationQuery) ([]QueueItem, *common.Pagination, error) {
	if err := s.authz.Authorize(ctx, actor, authz.ObjectModeration, authz.ActionViewQueue); err != nil {
		return nil, nil, err
	}
	statuses, err := ParseFilter(filter)
	if err != nil {
		return nil, nil, err
	}
	products, pagination, err := s.products.ListForModeration(ctx, statuses, page)
	if err != nil {
		s.logger.Error("Failed to load moderation queue", zap.Error(err), zap.String("filter", filter))
		return nil, nil, err
	}

	now := s.clock.Now()
	items := make([]QueueItem, len(products))
	for i := range products {
		items[i] = QueueItem{
			ProductResponse: product.ToProductResponse(&products[i], now, true),
			Actions:         ActionsFor(&products[i], now),
		}
	}
	return items, pagination, nil
}

func (s *ServiceImplementation) Stats(ctx context.Context, actor *common.Actor) (*Stats, error) {
	if err := s.authz.Authorize(ctx, actor, authz.ObjectModeration, authz.ActionViewQueue); err != nil {
		return nil, err
	}
	counts, err := s.products.CountByStatus(ctx)
	if err != nil {
		s.logger.Error("Failed to count products by status", zap.Error(err))
		return nil, err
	}
	stats := &Stats{Counts: counts}
	for _, n := range counts {
		stats.Total += n
	}
	return stats, nil
}
