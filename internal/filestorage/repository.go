// File: internal/filestorage/repository.go
package filestorage

import (
	"context"
	"errors"
	"time"

	"launchpad_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, upload *PendingUpload) error
	FindByID(ctx context.Context, id uuid.UUID) (*PendingUpload, error)
	// Delete removes the record and reports whether it existed.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	ListOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]PendingUpload, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, upload *PendingUpload) error {
	if upload.ID == uuid.Nil {
		upload.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(upload).Error
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*PendingUpload, error) {
	var upload PendingUpload
	if err := r.db.WithContext(ctx).First(&upload, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Upload not found or already used.")
		}
		return nil, err
	}
	return &upload, nil
}

func (r *gormRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&PendingUpload{}, "id = ?", id)
	return res.RowsAffected > 0, res.Error
}

func (r *gormRepository) ListOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]PendingUpload, error) {
	var uploads []PendingUpload
	err := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Order("created_at").
		Limit(limit).
		Find(&uploads).Error
	return uploads, err
}
