// File: internal/product/repository.go
package product

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"launchpad_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository defines the persistence contract for products and the upvote ledger.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	FindBySlug(ctx context.Context, slug string) (*Product, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	// CompareAndSwap applies updates only if the stored version equals
	// version, bumping the version. It returns the fresh row.
	CompareAndSwap(ctx context.Context, id uuid.UUID, version int64, updates map[string]interface{}) (*Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
	IncrementViews(ctx context.Context, id uuid.UUID) error

	ListPublished(ctx context.Context, query ListQuery) ([]Product, *common.Pagination, error)
	// SearchPublished is the database fallback for full-text search.
	SearchPublished(ctx context.Context, term string, query ListQuery) ([]Product, *common.Pagination, error)
	FindPublishedByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)
	ListFeatured(ctx context.Context, now time.Time, limit int) ([]Product, error)
	ListByUser(ctx context.Context, userID uuid.UUID, publishedOnly bool, page common.PaginationQuery) ([]Product, *common.Pagination, error)
	ListForModeration(ctx context.Context, statuses []Status, page common.PaginationQuery) ([]Product, *common.Pagination, error)
	CountByStatus(ctx context.Context) (map[Status]int64, error)
	CountPublishedByCategory(ctx context.Context) (map[string]int64, error)
	FindInBatches(ctx context.Context, batchSize int, fn func([]Product) error) error

	ToggleUpvote(ctx context.Context, productID, userID uuid.UUID, now time.Time) (*UpvoteResult, error)
	HasUpvoted(ctx context.Context, productID, userID uuid.UUID) (bool, error)
	ListUpvoters(ctx context.Context, productID uuid.UUID, page common.PaginationQuery) ([]Upvoter, *common.Pagination, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM product repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

var errSlugTaken = common.ErrConflict.WithDetails("A product with this slug already exists.")

// Create inserts the product and bumps the owner's product_count in one transaction.
func (r *gormRepository) Create(ctx context.Context, p *Product) error {
	if p.Version == 0 {
		p.Version = 1
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&Product{}).Where("slug = ?", p.Slug).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return errSlugTaken
		}
		if err := tx.Create(p).Error; err != nil {
			if isUniqueViolation(err) {
				return errSlugTaken
			}
			return fmt.Errorf("failed to create product: %w", err)
		}
		res := tx.Table("users").Where("id = ?", p.UserID).
			UpdateColumn("product_count", gorm.Expr("product_count + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return common.ErrNotFound.WithDetails("Product owner not found.")
		}
		return nil
	})
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	var p Product
	if err := r.db.WithContext(ctx).First(&p, "products.id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Product not found.")
		}
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) FindBySlug(ctx context.Context, slug string) (*Product, error) {
	var p Product
	if err := r.db.WithContext(ctx).First(&p, "products.slug = ?", slug).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Product not found.")
		}
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&Product{}).Where("slug = ?", slug).Count(&n).Error
	return n > 0, err
}

func (r *gormRepository) CompareAndSwap(ctx context.Context, id uuid.UUID, version int64, updates map[string]interface{}) (*Product, error) {
	values := make(map[string]interface{}, len(updates)+1)
	for k, v := range updates {
		values[k] = v
	}
	values["version"] = gorm.Expr("version + 1")

	res := r.db.WithContext(ctx).Model(&Product{}).
		Where("id = ? AND version = ?", id, version).
		Updates(values)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return nil, errSlugTaken
		}
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		current, err := r.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, common.ErrConflict.WithDetails(map[string]interface{}{
			"message":          "The product was modified concurrently.",
			"expected_version": version,
			"current_version":  current.Version,
		})
	}
	return r.FindByID(ctx, id)
}

// Delete removes the product and its upvotes and decrements the owner's
// product_count in one transaction.
func (r *gormRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p Product
		if err := tx.Select("id", "user_id").First(&p, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return common.ErrNotFound.WithDetails("Product not found.")
			}
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&Upvote{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&Product{}, "id = ?", id).Error; err != nil {
			return err
		}
		return tx.Table("users").Where("id = ?", p.UserID).
			UpdateColumn("product_count", gorm.Expr("CASE WHEN product_count > 0 THEN product_count - 1 ELSE 0 END")).Error
	})
}

// IncrementViews bumps the view counter without touching version or updated_at.
func (r *gormRepository) IncrementViews(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&Product{}).Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + 1")).Error
}

func paginate(q *gorm.DB, page common.PaginationQuery, order string, dest interface{}) (*common.Pagination, error) {
	page = page.Normalize()
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}
	if err := q.Order(order).Offset(page.Offset()).Limit(page.Limit()).Find(dest).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return common.NewPagination(total, page.Page, page.PageSize), nil
}

// ListPublished returns the public listing. Only published products are returned.
func (r *gormRepository) ListPublished(ctx context.Context, query ListQuery) ([]Product, *common.Pagination, error) {
	q := r.db.WithContext(ctx).Model(&Product{}).Scopes(publishedScope)
	if query.Category != "" {
		q = q.Where("products.category = ?", query.Category)
	}
	if tag := strings.ToLower(strings.TrimSpace(query.Tag)); tag != "" {
		// Tags are a JSON array of slugs; match the quoted element.
		q = q.Where("products.tags LIKE ?", "%"+jsonQuoted(tag)+"%")
	}
	var products []Product
	pagination, err := paginate(q, common.PaginationQuery{Page: query.Page, PageSize: query.PageSize}, listingOrder(query.Sort), &products)
	if err != nil {
		return nil, nil, err
	}
	return products, pagination, nil
}

// SearchPublished matches term against name, pitch and tags, case-insensitively.
func (r *gormRepository) SearchPublished(ctx context.Context, term string, query ListQuery) ([]Product, *common.Pagination, error) {
	q := r.db.WithContext(ctx).Model(&Product{}).Scopes(publishedScope)
	if term = strings.ToLower(strings.TrimSpace(term)); term != "" {
		like := "%" + escapeLike(term) + "%"
		q = q.Where("(LOWER(products.name) LIKE ? ESCAPE '\\' OR LOWER(products.short_description) LIKE ? ESCAPE '\\' OR products.tags LIKE ? ESCAPE '\\')", like, like, like)
	}
	if query.Category != "" {
		q = q.Where("products.category = ?", query.Category)
	}
	if tag := strings.ToLower(strings.TrimSpace(query.Tag)); tag != "" {
		q = q.Where("products.tags LIKE ?", "%"+jsonQuoted(tag)+"%")
	}
	var products []Product
	pagination, err := paginate(q, common.PaginationQuery{Page: query.Page, PageSize: query.PageSize}, listingOrder(query.Sort), &products)
	if err != nil {
		return nil, nil, err
	}
	return products, pagination, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
}

// FindPublishedByIDs loads published products, in no particular order.
func (r *gormRepository) FindPublishedByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var products []Product
	err := r.db.WithContext(ctx).Scopes(publishedScope).Where("products.id IN ?", ids).Find(&products).Error
	return products, err
}

// ListFeatured returns the carousel: published products whose featured window
// is open at now, by upvotes.
func (r *gormRepository) ListFeatured(ctx context.Context, now time.Time, limit int) ([]Product, error) {
	var products []Product
	err := r.db.WithContext(ctx).
		Scopes(publishedScope, featuredScope(now)).
		Order(listingOrder(SortUpvotes)).
		Limit(limit).
		Find(&products).Error
	return products, err
}

func (r *gormRepository) ListByUser(ctx context.Context, userID uuid.UUID, publishedOnly bool, page common.PaginationQuery) ([]Product, *common.Pagination, error) {
	q := r.db.WithContext(ctx).Model(&Product{}).Where("products.user_id = ?", userID)
	if publishedOnly {
		q = q.Scopes(publishedScope)
	}
	var products []Product
	pagination, err := paginate(q, page, "products.created_at DESC", &products)
	if err != nil {
		return nil, nil, err
	}
	return products, pagination, nil
}

// ListForModeration returns products in the given statuses, most recently
// submitted first. An empty status list means every status.
func (r *gormRepository) ListForModeration(ctx context.Context, statuses []Status, page common.PaginationQuery) ([]Product, *common.Pagination, error) {
	q := r.db.WithContext(ctx).Model(&Product{})
	if len(statuses) > 0 {
		q = q.Where("products.status IN ?", statuses)
	}
	var products []Product
	pagination, err := paginate(q, page, "COALESCE(products.submitted_at, products.created_at) DESC, products.id", &products)
	if err != nil {
		return nil, nil, err
	}
	return products, pagination, nil
}

func (r *gormRepository) CountByStatus(ctx context.Context) (map[Status]int64, error) {
	var rows []struct {
		Status Status
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&Product{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[Status]int64, len(AllStatuses))
	for _, s := range AllStatuses {
		counts[s] = 0
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *gormRepository) CountPublishedByCategory(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Category string
		Count    int64
	}
	err := r.db.WithContext(ctx).Model(&Product{}).
		Scopes(publishedScope).
		Select("category, COUNT(*) AS count").
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Category] = row.Count
	}
	return counts, nil
}

func (r *gormRepository) FindInBatches(ctx context.Context, batchSize int, fn func([]Product) error) error {
	var batch []Product
	return r.db.WithContext(ctx).FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
		return fn(batch)
	}).Error
}

// ToggleUpvote flips the user's membership in the upvoter set and adjusts the
// counter in the same transaction. Only published products accept upvotes.
func (r *gormRepository) ToggleUpvote(ctx context.Context, productID, userID uuid.UUID, now time.Time) (*UpvoteResult, error) {
	var result UpvoteResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p Product
		if err := tx.Select("id", "status").First(&p, "id = ?", productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return common.ErrNotFound.WithDetails("Product not found.")
			}
			return err
		}
		if !IsPubliclyListed(&p) {
			return common.ErrNotFound.WithDetails("Product not found.")
		}

		del := tx.Where("product_id = ? AND user_id = ?", productID, userID).Delete(&Upvote{})
		if del.Error != nil {
			return del.Error
		}
		if del.RowsAffected == 1 {
			if err := tx.Model(&Product{}).Where("id = ?", productID).
				UpdateColumn("upvotes", gorm.Expr("CASE WHEN upvotes > 0 THEN upvotes - 1 ELSE 0 END")).Error; err != nil {
				return err
			}
			result.Upvoted = false
		} else {
			ins := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&Upvote{ProductID: productID, UserID: userID, CreatedAt: now})
			if ins.Error != nil {
				return ins.Error
			}
			if ins.RowsAffected == 1 {
				if err := tx.Model(&Product{}).Where("id = ?", productID).
					UpdateColumn("upvotes", gorm.Expr("upvotes + 1")).Error; err != nil {
					return err
				}
			}
			result.Upvoted = true
		}
		return tx.Model(&Product{}).Where("id = ?", productID).Select("upvotes").Scan(&result.Upvotes).Error
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *gormRepository) HasUpvoted(ctx context.Context, productID, userID uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&Upvote{}).
		Where("product_id = ? AND user_id = ?", productID, userID).
		Count(&n).Error
	return n > 0, err
}

func (r *gormRepository) ListUpvoters(ctx context.Context, productID uuid.UUID, page common.PaginationQuery) ([]Upvoter, *common.Pagination, error) {
	base := func() *gorm.DB {
		return r.db.WithContext(ctx).Table("product_upvotes").
			Joins("JOIN users ON users.id = product_upvotes.user_id").
			Where("product_upvotes.product_id = ?", productID)
	}

	page = page.Normalize()
	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, nil, err
	}
	var upvoters []Upvoter
	if err := base().
		Select("users.id AS user_id, users.username, users.display_name, users.avatar, product_upvotes.created_at AS upvoted_at").
		Order("product_upvotes.created_at DESC").Offset(page.Offset()).Limit(page.Limit()).Scan(&upvoters).Error; err != nil {
		return nil, nil, err
	}
	return upvoters, common.NewPagination(total, page.Page, page.PageSize), nil
}

func jsonQuoted(s string) string {
	return `"` + s + `"`
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "unique constraint") ||
		strings.Contains(err.Error(), "UNIQUE constraint failed")
}
