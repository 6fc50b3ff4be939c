// File: internal/user/model.go
package user

import (
	"time"

	"launchpad_backend/internal/common"

	"github.com/google/uuid"
)

// User represents an account. FirebaseUID is the identity-provider subject.
type User struct {
	common.BaseModel
	FirebaseUID   string     `gorm:"type:varchar(128);uniqueIndex;not null"`
	Username      string     `gorm:"type:varchar(30);uniqueIndex;not null"`
	Email         string     `gorm:"type:varchar(255);uniqueIndex;not null"`
	Role          string     `gorm:"type:varchar(20);not null;default:'user'"`
	DisplayName   string     `gorm:"type:varchar(100);not null;default:''"`
	Bio           *string    `gorm:"type:text"`
	Website       *string    `gorm:"type:varchar(255)"`
	Twitter       *string    `gorm:"type:varchar(50)"`
	Avatar        *string    `gorm:"type:varchar(512)"`
	IsPremium     bool       `gorm:"not null;default:false"`
	PremiumSince  *time.Time
	ProductCount  int  `gorm:"not null;default:0"`
	EmailVerified bool `gorm:"not null;default:false"`
}

// TableName specifies the table name for the User model.
func (User) TableName() string {
	return "users"
}

func (u *User) IsAdmin() bool {
	return u.Role == common.RoleAdmin
}

// Actor returns the service-layer identity for this account.
func (u *User) Actor() *common.Actor {
	return &common.Actor{UserID: u.ID, Role: u.Role}
}

// --- DTOs (Data Transfer Objects) for API requests/responses ---

// RegisterParams carries what signup knows about a new account.
type RegisterParams struct {
	FirebaseUID   string
	Username      string
	Email         string
	DisplayName   string
	EmailVerified bool
}

// UpdateProfileRequest is the body of PATCH /users/me. Nil fields are left unchanged.
type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name" binding:"omitempty,min=1,max=100"`
	Bio         *string `json:"bio" binding:"omitempty,max=500"`
	Website     *string `json:"website" binding:"omitempty,url,max=255"`
	Twitter     *string `json:"twitter" binding:"omitempty,alphanum,max=50"`
	Avatar      *string `json:"avatar" binding:"omitempty,url,max=512"`
}

// ChangeRoleRequest is the body of PATCH /admin/users/:id/role.
type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=user admin"`
}

// UserResponse is the owner's (or an admin's) view of an account.
type UserResponse struct {
	ID            uuid.UUID  `json:"id"`
	Username      string     `json:"username"`
	Email         string     `json:"email"`
	Role          string     `json:"role"`
	DisplayName   string     `json:"display_name"`
	Bio           *string    `json:"bio,omitempty"`
	Website       *string    `json:"website,omitempty"`
	Twitter       *string    `json:"twitter,omitempty"`
	Avatar        *string    `json:"avatar,omitempty"`
	IsPremium     bool       `json:"is_premium"`
	PremiumSince  *time.Time `json:"premium_since,omitempty"`
	ProductCount  int        `json:"product_count"`
	EmailVerified bool       `json:"email_verified"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// PublicProfileResponse omits private account fields.
type PublicProfileResponse struct {
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	Bio          *string   `json:"bio,omitempty"`
	Website      *string   `json:"website,omitempty"`
	Twitter      *string   `json:"twitter,omitempty"`
	Avatar       *string   `json:"avatar,omitempty"`
	IsPremium    bool      `json:"is_premium"`
	ProductCount int       `json:"product_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// ToUserResponse converts a User model to a UserResponse DTO.
func ToUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		Role:          u.Role,
		DisplayName:   u.DisplayName,
		Bio:           u.Bio,
		Website:       u.Website,
		Twitter:       u.Twitter,
		Avatar:        u.Avatar,
		IsPremium:     u.IsPremium,
		PremiumSince:  u.PremiumSince,
		ProductCount:  u.ProductCount,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func ToPublicProfile(u *User) PublicProfileResponse {
	return PublicProfileResponse{
		Username:     u.Username,
		DisplayName:  u.DisplayName,
		Bio:          u.Bio,
		Website:      u.Website,
		Twitter:      u.Twitter,
		Avatar:       u.Avatar,
		IsPremium:    u.IsPremium,
		ProductCount: u.ProductCount,
		CreatedAt:    u.CreatedAt,
	}
}

// RemovedProduct is a product deleted along with its owner's account.
type RemovedProduct struct {
	ID   uuid.UUID
	Logo *string
}
