// File: internal/product/visibility.go
package product

import (
	"time"

	"gorm.io/gorm"
)

// IsPubliclyListed reports whether anonymous visitors may see the product.
func IsPubliclyListed(p *Product) bool {
	return p.Status == StatusPublished
}

// IsFeatured reports whether the featured window is open at now. An expired
// window leaves the stored flag untouched.
func IsFeatured(p *Product, now time.Time) bool {
	return p.Featured && (p.FeaturedUntil == nil || p.FeaturedUntil.After(now))
}

// IsPremiumBadged reports whether the premium badge is active at now.
func IsPremiumBadged(p *Product, now time.Time) bool {
	return p.Premium && (p.PremiumUntil == nil || p.PremiumUntil.After(now))
}

// publishedScope limits a query to publicly listed products.
func publishedScope(db *gorm.DB) *gorm.DB {
	return db.Where("products.status = ?", StatusPublished)
}

// featuredScope is the SQL form of IsFeatured.
func featuredScope(now time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("products.featured = ? AND (products.featured_until IS NULL OR products.featured_until > ?)", true, now)
	}
}

var sortOrders = map[string]string{
	SortUpvotes: "products.upvotes DESC",
	SortViews:   "products.views DESC",
	SortNewest:  "products.created_at DESC",
}

// listingOrder returns the ORDER BY for a listing sort, with created_at DESC
// as the tie breaker.
func listingOrder(sort string) string {
	order, ok := sortOrders[sort]
	if !ok {
		order = sortOrders[SortUpvotes]
	}
	if sort == SortNewest {
		return order + ", products.id DESC"
	}
	return order + ", products.created_at DESC"
}
