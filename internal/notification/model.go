package notification

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationType defines the type of notification.
type NotificationType string

const (
	ProductApproved   NotificationType = "product_approved"
	ProductRejected   NotificationType = "product_rejected"
	ProductSuspended  NotificationType = "product_suspended"
	ProductReinstated NotificationType = "product_reinstated"
	ProductFeatured   NotificationType = "product_featured"
	PaymentCompleted  NotificationType = "payment_completed"
)

// Notification represents a user notification. Notifications are immutable
// apart from the read flag.
type Notification struct {
	ID               uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID        `gorm:"type:uuid;not null;index:idx_notifications_user_created" json:"user_id"`
	Type             NotificationType `gorm:"type:varchar(50);not null" json:"type"`
	Message          string           `gorm:"type:text;not null" json:"message"`
	RelatedProductID *uuid.UUID       `gorm:"type:uuid" json:"related_product_id,omitempty"`
	IsRead           bool             `gorm:"not null;default:false" json:"is_read"`
	CreatedAt        time.Time        `gorm:"not null;index:idx_notifications_user_created" json:"created_at"`
}

// TableName specifies the table name for GORM.
func (Notification) TableName() string {
	return "notifications"
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
