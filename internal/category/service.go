// File: internal/category/service.go
package category

import (
	"context"

	"launchpad_backend/internal/common"

	"go.uber.org/zap"
)

// ProductCounter counts publicly listed products per category.
type ProductCounter interface {
	CountPublishedByCategory(ctx context.Context) (map[string]int64, error)
}

// Service defines the interface for category-related business logic.
type Service interface {
	List(ctx context.Context) ([]CategoryResponse, error)
	Get(ctx context.Context, slug string) (*CategoryResponse, error)
}

type service struct {
	counter ProductCounter
	logger  *zap.Logger
}

// NewService creates a new category service.
func NewService(counter ProductCounter, logger *zap.Logger) Service {
	return &service{
		counter: counter,
		logger:  logger,
	}
}

// List returns every category with its published product count, zero-filled.
func (s *service) List(ctx context.Context) ([]CategoryResponse, error) {
	counts, err := s.counter.CountPublishedByCategory(ctx)
	if err != nil {
		s.logger.Error("Failed to count products per category", zap.Error(err))
		return nil, common.ErrInternalServer.WithDetails("Could not retrieve categories.")
	}
	out := make([]CategoryResponse, len(All))
	for i, c := range All {
		out[i] = CategoryResponse{Slug: string(c), Name: c.Label(), ProductCount: counts[string(c)]}
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, slug string) (*CategoryResponse, error) {
	c, ok := Parse(slug)
	if !ok {
		return nil, common.ErrNotFound.WithDetails("Category not found.")
	}
	counts, err := s.counter.CountPublishedByCategory(ctx)
	if err != nil {
		s.logger.Error("Failed to count products per category", zap.Error(err))
		return nil, common.ErrInternalServer.WithDetails("Could not retrieve category.")
	}
	return &CategoryResponse{Slug: string(c), Name: c.Label(), ProductCount: counts[string(c)]}, nil
}
