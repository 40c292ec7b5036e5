package orders

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Category classifies an order and drives conditional validation and pricing.
type Category string

const (
	CategoryFiction    Category = "Fiction"
	CategoryNonFiction Category = "NonFiction"
	CategoryTechnical  Category = "Technical"
	CategoryChildren   Category = "Children"
)

// Categories lists every defined category in declaration order.
var Categories = []Category{CategoryFiction, CategoryNonFiction, CategoryTechnical, CategoryChildren}

// Valid reports whether c is one of the defined categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Order is a persisted book order.
type Order struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Author        string          `json:"author"`
	ISBN          string          `json:"isbn"`
	Category      Category        `json:"category"`
	Price         decimal.Decimal `json:"price"`
	PublishedDate time.Time       `json:"published_date"`
	CoverImageURL string          `json:"cover_image_url,omitempty"` // empty when absent
	StockQuantity int             `json:"stock_quantity"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     *time.Time      `json:"updated_at,omitempty"`
}

// IsAvailable reports whether at least one copy is in stock.
func (o Order) IsAvailable() bool {
	return o.StockQuantity > 0
}

// NormalizeISBN strips hyphens and spaces.
func NormalizeISBN(isbn string) string {
	return strings.NewReplacer("-", "", " ", "").Replace(isbn)
}

// titleAuthorKey is the case-insensitive identity of a (title, author) pair.
func titleAuthorKey(title, author string) string {
	return strings.ToLower(strings.TrimSpace(title)) + "#" + strings.ToLower(strings.TrimSpace(author))
}

// dayKey formats the UTC calendar day of t.
func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
