// File: internal/user/repository.go
package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"launchpad_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the interface for user data operations.
type Repository interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByFirebaseUID(ctx context.Context, firebaseUID string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*User, error)
	MarkPremium(ctx context.Context, id uuid.UUID, since time.Time) error
	Delete(ctx context.Context, id uuid.UUID) ([]RemovedProduct, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM user repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// Create inserts a new user record into the database.
func (r *gormRepository) Create(ctx context.Context, user *User) error {
	user.Email = normalizeEmail(user.Email)
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))

	err := r.db.WithContext(ctx).Create(user).Error
	if err != nil {
		if isUniqueViolation(err) {
			return duplicateUserError(ctx, r.db, user)
		}
		return err
	}
	return nil
}

// duplicateUserError reports which unique field collided.
func duplicateUserError(ctx context.Context, db *gorm.DB, user *User) error {
	var n int64
	if db.WithContext(ctx).Model(&User{}).Where("username = ?", user.Username).Count(&n); n > 0 {
		return common.ErrConflict.WithDetails("Username is already taken.")
	}
	if db.WithContext(ctx).Model(&User{}).Where("email = ?", user.Email).Count(&n); n > 0 {
		return common.ErrConflict.WithDetails("An account with this email already exists.")
	}
	return common.ErrConflict.WithDetails("This identity is already linked to an account.")
}

func (r *gormRepository) findOne(ctx context.Context, what string, query string, args ...interface{}) (*User, error) {
	var userModel User
	err := r.db.WithContext(ctx).Where(query, args...).First(&userModel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("User not found with this " + what + ".")
		}
		return nil, err
	}
	return &userModel, nil
}

// FindByID retrieves a user by their ID.
func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.findOne(ctx, "ID", "id = ?", id)
}

// FindByFirebaseUID retrieves a user by their Firebase UID.
func (r *gormRepository) FindByFirebaseUID(ctx context.Context, firebaseUID string) (*User, error) {
	return r.findOne(ctx, "Firebase UID", "firebase_uid = ?", firebaseUID)
}

func (r *gormRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	return r.findOne(ctx, "username", "username = ?", strings.ToLower(strings.TrimSpace(username)))
}

// FindByEmail retrieves a user by their email address.
func (r *gormRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, "email", "email = ?", normalizeEmail(email))
}

// UpdateFields applies a partial update and returns the fresh row.
func (r *gormRepository) UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*User, error) {
	result := r.db.WithContext(ctx).Model(&User{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return nil, common.ErrConflict.WithDetails("Update failed: value already taken.")
		}
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, common.ErrNotFound.WithDetails("User not found for update.")
	}
	return r.FindByID(ctx, id)
}

// MarkPremium flags the account premium, keeping the first premium_since.
func (r *gormRepository) MarkPremium(ctx context.Context, id uuid.UUID, since time.Time) error {
	result := r.db.WithContext(ctx).Model(&User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_premium":    true,
			"premium_since": gorm.Expr("COALESCE(premium_since, ?)", since),
			"updated_at":    since,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound.WithDetails("User not found.")
	}
	return nil
}

// Delete removes the account together with its products and upvotes in one
// transaction, returning the id and logo of each removed product. Upvote
// counters on other users' products are decremented for every upvote the
// account held.
func (r *gormRepository) Delete(ctx context.Context, id uuid.UUID) ([]RemovedProduct, error) {
	var removed []RemovedProduct
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Table("products").Select("id, logo").Where("user_id = ?", id).Scan(&removed).Error; err != nil {
			return err
		}
		if err := tx.Exec(`UPDATE products SET upvotes = CASE WHEN upvotes > 0 THEN upvotes - 1 ELSE 0 END
			WHERE user_id <> ? AND id IN (SELECT product_id FROM product_upvotes WHERE user_id = ?)`, id, id).Error; err != nil {
			return err
		}
		if err := tx.Exec(`DELETE FROM product_upvotes WHERE user_id = ? OR product_id IN (SELECT id FROM products WHERE user_id = ?)`, id, id).Error; err != nil {
			return err
		}
		if err := tx.Exec(`DELETE FROM products WHERE user_id = ?`, id).Error; err != nil {
			return err
		}
		result := tx.Delete(&User{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return common.ErrNotFound.WithDetails("User not found for deletion.")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "unique constraint") ||
		strings.Contains(err.Error(), "UNIQUE constraint failed")
}
