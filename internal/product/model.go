// File: internal/product/model.go
package product

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"launchpad_backend/internal/common"

	"github.com/google/uuid"
)

// Status is the moderation lifecycle state of a product.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusPublished Status = "published"
	StatusRejected  Status = "rejected"
	StatusSuspended Status = "suspended"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []Status{StatusDraft, StatusSubmitted, StatusPublished, StatusRejected, StatusSuspended}

func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusPublished, StatusRejected, StatusSuspended:
		return true
	}
	return false
}

const (
	MaxTags      = 5
	MaxTagLength = 24
)

// Tags is stored as a JSON array in a text column so it works on both
// postgres and sqlite.
type Tags []string

func (t Tags) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(t))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (t *Tags) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*t = Tags{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return errors.New("failed to scan Tags: invalid type")
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*t = out
	return nil
}

// Product is a launch listing and the subject of the moderation state machine.
type Product struct {
	common.BaseModel
	Slug             string     `gorm:"type:varchar(120);uniqueIndex:idx_products_slug;not null"`
	UserID           uuid.UUID  `gorm:"type:uuid;not null;index"`
	Username         string     `gorm:"type:varchar(30);not null"`
	Name             string     `gorm:"type:varchar(100);not null"`
	Description      string     `gorm:"type:text;not null"`
	ShortDescription string     `gorm:"type:varchar(160);not null"`
	Logo             *string    `gorm:"type:varchar(512)"`
	Category         string     `gorm:"type:varchar(40);not null;index"`
	Tags             Tags       `gorm:"type:text;not null"`
	WebsiteURL       string     `gorm:"type:varchar(512);not null"`
	Status           Status     `gorm:"type:varchar(20);not null;default:'draft'"`
	Featured         bool       `gorm:"not null;default:false"`
	FeaturedUntil    *time.Time
	Premium          bool `gorm:"not null;default:false"`
	PremiumUntil     *time.Time
	Upvotes          int   `gorm:"not null;default:0"`
	Views            int64 `gorm:"not null;default:0"`
	SubmittedAt      *time.Time
	PublishedAt      *time.Time
	ReviewedAt       *time.Time
	ReviewedBy       *uuid.UUID `gorm:"type:uuid"`
	RejectionReason  *string    `gorm:"type:text"`
	Version          int64      `gorm:"not null;default:1"`
}

func (Product) TableName() string {
	return "products"
}

// Upvote is one member of a product's upvoter set.
type Upvote struct {
	ProductID uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	CreatedAt time.Time `gorm:"not null"`
}

func (Upvote) TableName() string {
	return "product_upvotes"
}

// --- DTOs ---

type CreateProductRequest struct {
	Name             string   `json:"name" binding:"required,min=2,max=100"`
	Slug             string   `json:"slug" binding:"omitempty,max=120,alphanumdash"`
	ShortDescription string   `json:"short_description" binding:"required,max=160"`
	Description      string   `json:"description" binding:"required,max=10000"`
	WebsiteURL       string   `json:"website_url" binding:"required,url,max=512"`
	Category         string   `json:"category" binding:"required"`
	Tags             []string `json:"tags" binding:"omitempty,max=5,dive,min=1,max=24"`
	LogoUploadID     *string  `json:"logo_upload_id" binding:"omitempty,uuid"`
	Submit           bool     `json:"submit"`
}

// UpdateProductRequest edits content. Nil fields are left unchanged.
type UpdateProductRequest struct {
	Name             *string   `json:"name" binding:"omitempty,min=2,max=100"`
	ShortDescription *string   `json:"short_description" binding:"omitempty,max=160"`
	Description      *string   `json:"description" binding:"omitempty,max=10000"`
	WebsiteURL       *string   `json:"website_url" binding:"omitempty,url,max=512"`
	Category         *string   `json:"category"`
	Tags             *[]string `json:"tags" binding:"omitempty,max=5,dive,min=1,max=24"`
	LogoUploadID     *string   `json:"logo_upload_id" binding:"omitempty,uuid"`
}

type RejectRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type SuspendRequest struct {
	Reason *string `json:"reason" binding:"omitempty,max=1000"`
}

type DurationRequest struct {
	Days int `json:"days" binding:"required,gte=1"`
}

// Sort orders for public listings.
const (
	SortUpvotes = "upvotes"
	SortViews   = "views"
	SortNewest  = "newest"
)

// ListQuery filters the public product listing.
type ListQuery struct {
	Sort     string `form:"sort"`
	Category string `form:"category"`
	Tag      string `form:"tag"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// UpvoteResult is the ledger state after a toggle.
type UpvoteResult struct {
	Upvoted bool `json:"upvoted"`
	Upvotes int  `json:"upvotes"`
}

// Upvoter is a public view of a user who upvoted a product.
type Upvoter struct {
	UserID      uuid.UUID `json:"user_id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Avatar      *string   `json:"avatar,omitempty"`
	UpvotedAt   time.Time `json:"upvoted_at"`
}

// ProductResponse is the API representation. Visibility flags are computed at
// response time.
type ProductResponse struct {
	ID               uuid.UUID  `json:"id"`
	Slug             string     `json:"slug"`
	UserID           uuid.UUID  `json:"user_id"`
	Username         string     `json:"username"`
	Name             string     `json:"name"`
	ShortDescription string     `json:"short_description"`
	Description      string     `json:"description"`
	Logo             *string    `json:"logo,omitempty"`
	WebsiteURL       string     `json:"website_url"`
	Category         string     `json:"category"`
	Tags             []string   `json:"tags"`
	Status           Status     `json:"status"`
	IsFeatured       bool       `json:"is_featured"`
	FeaturedUntil    *time.Time `json:"featured_until,omitempty"`
	IsPremium        bool       `json:"is_premium"`
	PremiumUntil     *time.Time `json:"premium_until,omitempty"`
	Upvotes          int        `json:"upvotes"`
	Views            int64      `json:"views"`
	SubmittedAt      *time.Time `json:"submitted_at,omitempty"`
	PublishedAt      *time.Time `json:"published_at,omitempty"`
	ReviewedAt       *time.Time `json:"reviewed_at,omitempty"`
	ReviewedBy       *uuid.UUID `json:"reviewed_by,omitempty"`
	RejectionReason  *string    `json:"rejection_reason,omitempty"`
	Version          int64      `json:"version"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// ToProductResponse converts a Product at time now. Review metadata is only
// included when includeReview is set (owner or admin views).
func ToProductResponse(p *Product, now time.Time, includeReview bool) ProductResponse {
	tags := []string(p.Tags)
	if tags == nil {
		tags = []string{}
	}
	resp := ProductResponse{
		ID:               p.ID,
		Slug:             p.Slug,
		UserID:           p.UserID,
		Username:         p.Username,
		Name:             p.Name,
		ShortDescription: p.ShortDescription,
		Description:      p.Description,
		Logo:             p.Logo,
		WebsiteURL:       p.WebsiteURL,
		Category:         p.Category,
		Tags:             tags,
		Status:           p.Status,
		IsFeatured:       IsFeatured(p, now),
		IsPremium:        IsPremiumBadged(p, now),
		Upvotes:          p.Upvotes,
		Views:            p.Views,
		PublishedAt:      p.PublishedAt,
		Version:          p.Version,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
	if resp.IsFeatured {
		resp.FeaturedUntil = p.FeaturedUntil
	}
	if resp.IsPremium {
		resp.PremiumUntil = p.PremiumUntil
	}
	if includeReview {
		resp.SubmittedAt = p.SubmittedAt
		resp.ReviewedAt = p.ReviewedAt
		resp.ReviewedBy = p.ReviewedBy
		resp.RejectionReason = p.RejectionReason
	}
	return resp
}

func ToProductResponses(products []Product, now time.Time, includeReview bool) []ProductResponse {
	out := make([]ProductResponse, len(products))
	for i := range products {
		out[i] = ToProductResponse(&products[i], now, includeReview)
	}
	return out
}
