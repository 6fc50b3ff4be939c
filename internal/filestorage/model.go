// File: internal/filestorage/model.go
package filestorage

import (
	"time"

	"github.com/google/uuid"
)

// Key prefixes. Staged objects live under staging/ until a product confirms them.
const (
	StagingPrefix = "staging/"
	LogoPrefix    = "logos/"
)

// PendingUpload records a staged object awaiting confirmation.
type PendingUpload struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	OwnerID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Key         string    `gorm:"type:varchar(255);not null"`
	ContentType string    `gorm:"type:varchar(64);not null"`
	Size        int64     `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null;index"`
}

func (PendingUpload) TableName() string {
	return "pending_uploads"
}

// UploadResponse is returned to the client after staging.
type UploadResponse struct {
	UploadID    uuid.UUID `json:"upload_id"`
	PreviewURL  string    `json:"preview_url"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	ExpiresAt   time.Time `json:"expires_at"`
}
