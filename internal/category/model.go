// File: internal/category/model.go
package category

// Category is the closed set of product categories.
type Category string

const (
	DeveloperTools Category = "developer-tools"
	Productivity   Category = "productivity"
	Design         Category = "design"
	Marketing      Category = "marketing"
	AI             Category = "ai"
	Finance        Category = "finance"
	Education      Category = "education"
	Health         Category = "health"
	Social         Category = "social"
	Other          Category = "other"
)

// All lists the categories in display order.
var All = []Category{
	DeveloperTools,
	Productivity,
	Design,
	Marketing,
	AI,
	Finance,
	Education,
	Health,
	Social,
	Other,
}

var labels = map[Category]string{
	DeveloperTools: "Developer Tools",
	Productivity:   "Productivity",
	Design:         "Design",
	Marketing:      "Marketing",
	AI:             "Artificial Intelligence",
	Finance:        "Finance",
	Education:      "Education",
	Health:         "Health & Fitness",
	Social:         "Social",
	Other:          "Other",
}

func (c Category) IsValid() bool {
	_, ok := labels[c]
	return ok
}

// Label is the human-readable name.
func (c Category) Label() string {
	return labels[c]
}

// Parse validates a raw category slug.
func Parse(raw string) (Category, bool) {
	c := Category(raw)
	return c, c.IsValid()
}

// --- DTOs ---

// CategoryResponse defines the structure for category data sent in API responses.
type CategoryResponse struct {
	Slug         string `json:"slug"`
	Name         string `json:"name"`
	ProductCount int64  `json:"product_count"`
}
