// File: internal/search/document.go
package search

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"launchpad_backend/internal/product"

	"github.com/microcosm-cc/bluemonday"
)

// Document is the indexed form of a published product.
type Document struct {
	ID               string     `json:"id"`
	Slug             string     `json:"slug"`
	Name             string     `json:"name"`
	ShortDescription string     `json:"short_description"`
	Description      string     `json:"description"`
	Category         string     `json:"category"`
	Tags             []string   `json:"tags"`
	Username         string     `json:"username"`
	Status           string     `json:"status"`
	Upvotes          int        `json:"upvotes"`
	Views            int64      `json:"views"`
	FeaturedUntil    *time.Time `json:"featured_until,omitempty"`
	PublishedAt      *time.Time `json:"published_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

var plainText = bluemonday.StrictPolicy()

// ToDocument converts a product to its search document. Descriptions are
// indexed as plain text.
func ToDocument(p *product.Product) (Document, error) {
	if p == nil {
		return Document{}, errors.New("product cannot be nil")
	}
	tags := []string(p.Tags)
	if tags == nil {
		tags = []string{}
	}
	doc := Document{
		ID:               p.ID.String(),
		Slug:             p.Slug,
		Name:             p.Name,
		ShortDescription: p.ShortDescription,
		Description:      strings.Join(strings.Fields(html.UnescapeString(plainText.Sanitize(p.Description))), " "),
		Category:         p.Category,
		Tags:             tags,
		Username:         p.Username,
		Status:           string(p.Status),
		Upvotes:          p.Upvotes,
		Views:            p.Views,
		PublishedAt:      p.PublishedAt,
		CreatedAt:        p.CreatedAt,
	}
	if p.Featured {
		doc.FeaturedUntil = p.FeaturedUntil
	}
	return doc, nil
}

func marshalDocument(p *product.Product) ([]byte, error) {
	doc, err := ToDocument(p)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("error marshalling product %s for the search index: %w", p.ID, err)
	}
	return b, nil
}
