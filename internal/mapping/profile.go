package mapping

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/imrishuroy/go-bookorder-desk/internal/orders"
)

// Profile is the display view of an order returned to callers. Derived fields are computed on
// every conversion and never stored.
type Profile struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Author        string          `json:"author"`
	ISBN          string          `json:"isbn"`
	Category      orders.Category `json:"category"`
	Price         decimal.Decimal `json:"price"`
	PublishedDate time.Time       `json:"published_date"`
	CoverImageURL string          `json:"cover_image_url,omitempty"`
	StockQuantity int             `json:"stock_quantity"`
	IsAvailable   bool            `json:"is_available"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     *time.Time      `json:"updated_at,omitempty"`

	CategoryDisplayName string `json:"category_display_name"`
	FormattedPrice      string `json:"formatted_price"`
	PublishedAge        string `json:"published_age"`
	AuthorInitials      string `json:"author_initials"`
	AvailabilityStatus  string `json:"availability_status"`
}

// ToProfile derives the display profile of o relative to the mapper's clock.
func (m *Mapper) ToProfile(o orders.Order) Profile {
	return Profile{
		ID:            o.ID,
		Title:         o.Title,
		Author:        o.Author,
		ISBN:          o.ISBN,
		Category:      o.Category,
		Price:         o.Price,
		PublishedDate: o.PublishedDate,
		CoverImageURL: o.CoverImageURL,
		StockQuantity: o.StockQuantity,
		IsAvailable:   o.IsAvailable(),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,

		CategoryDisplayName: CategoryDisplayName(o.Category),
		FormattedPrice:      FormatPrice(o.Price),
		PublishedAge:        PublishedAge(o.PublishedDate, m.nowFunc()),
		AuthorInitials:      AuthorInitials(o.Author),
		AvailabilityStatus:  AvailabilityStatus(o.StockQuantity, o.IsAvailable()),
	}
}

// ToProfiles maps every order in list order.
func (m *Mapper) ToProfiles(list []orders.Order) []Profile {
	out := make([]Profile, 0, len(list))
	for _, o := range list {
		out = append(out, m.ToProfile(o))
	}
	return out
}

// CategoryDisplayName is the human readable name of c; unknown categories are "Uncategorized".
func CategoryDisplayName(c orders.Category) string {
	switch c {
	case orders.CategoryFiction:
		return "Fiction & Literature"
	case orders.CategoryNonFiction:
		return "Non-Fiction"
	case orders.CategoryTechnical:
		return "Technical & Professional"
	case orders.CategoryChildren:
		return "Children's Orders"
	default:
		return "Uncategorized"
	}
}

// FormatPrice renders p as US dollars with grouping and exactly two fraction digits.
func FormatPrice(p decimal.Decimal) string {
	return "$" + humanize.FormatFloat("#,###.##", p.Round(2).InexactFloat64())
}

const (
	daysPerMonth = 30
	daysPerYear  = 365
	classicDays  = 5 * daysPerYear
)

// PublishedAge buckets the whole days elapsed between published and now.
func PublishedAge(published, now time.Time) string {
	d := int(now.Sub(published).Hours() / 24)
	switch {
	case d < daysPerMonth:
		return "New Release"
	case d < daysPerYear:
		return fmt.Sprintf("%d months old", d/daysPerMonth)
	case d < classicDays:
		return fmt.Sprintf("%d years old", d/daysPerYear)
	default:
		return "Classic"
	}
}

// AuthorInitials returns the initials of the first and last name parts, or "?" with no parts.
func AuthorInitials(author string) string {
	parts := strings.Fields(author)
	switch len(parts) {
	case 0:
		return "?"
	case 1:
		return initial(parts[0])
	default:
		return initial(parts[0]) + initial(parts[len(parts)-1])
	}
}

func initial(s string) string {
	for _, r := range s {
		return string(unicode.ToUpper(r))
	}
	return ""
}

// AvailabilityStatus describes stock levels. An unavailable order is "Out of Stock" whatever its stock.
func AvailabilityStatus(stock int, available bool) string {
	switch {
	case !available || stock <= 0:
		return "Out of Stock"
	case stock == 1:
		return "Last Copy"
	case stock <= 5:
		return "Limited Stock"
	default:
		return "In Stock"
	}
}
