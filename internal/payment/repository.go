// File: internal/payment/repository.go
package payment

import (
	"context"
	"errors"
	"time"

	"launchpad_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, p *Payment) error
	FindBySessionID(ctx context.Context, sessionID string) (*Payment, error)
	// Claim moves a pending payment to completed and reports whether this call did it.
	// The first claim time is kept as paid_at.
	Claim(ctx context.Context, sessionID string, now time.Time) (bool, error)
	// Release reverts a claim whose fulfilment failed so a redelivery can retry it.
	// paid_at is left in place.
	Release(ctx context.Context, sessionID string) error
	ListByUser(ctx context.Context, userID uuid.UUID, page common.PaginationQuery) ([]Payment, *common.Pagination, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, p *Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *gormRepository) FindBySessionID(ctx context.Context, sessionID string) (*Payment, error) {
	var p Payment
	if err := r.db.WithContext(ctx).First(&p, "session_id = ?", sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Payment not found.")
		}
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) Claim(ctx context.Context, sessionID string, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&Payment{}).
		Where("session_id = ? AND status = ?", sessionID, StatusPending).
		Updates(map[string]interface{}{
			"status":       StatusCompleted,
			"completed_at": now,
			"paid_at":      gorm.Expr("COALESCE(paid_at, ?)", now),
			"updated_at":   now,
		})
	return res.RowsAffected == 1, res.Error
}

func (r *gormRepository) Release(ctx context.Context, sessionID string) error {
	return r.db.WithContext(ctx).Model(&Payment{}).
		Where("session_id = ? AND status = ?", sessionID, StatusCompleted).
		Updates(map[string]interface{}{
			"status":       StatusPending,
			"completed_at": nil,
		}).Error
}

func (r *gormRepository) ListByUser(ctx context.Context, userID uuid.UUID, page common.PaginationQuery) ([]Payment, *common.Pagination, error) {
	page = page.Normalize()
	q := r.db.WithContext(ctx).Model(&Payment{}).Where("user_id = ?", userID).Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, nil, err
	}
	var payments []Payment
	if err := q.Order("created_at DESC").Offset(page.Offset()).Limit(page.Limit()).Find(&payments).Error; err != nil {
		return nil, nil, err
	}
	return payments, common.NewPagination(total, page.Page, page.PageSize), nil
}
