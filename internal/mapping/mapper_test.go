package mapping

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/go-bookorder-desk/internal/orders"
	"github.com/imrishuroy/go-bookorder-desk/internal/validation"
)

var fixedNow = time.Date(2026, time.March, 1, 9, 30, 0, 0, time.FixedZone("CET", 3600))

func newTestMapper() *Mapper {
	return &Mapper{
		newID:   func() string { return "order-1" },
		nowFunc: func() time.Time { return fixedNow },
	}
}

func request(category orders.Category, price string) validation.CreateOrderRequest {
	return validation.CreateOrderRequest{
		Title:         "Picture Book",
		Author:        "Ann Lee",
		ISBN:          "978-0-13-419044-0",
		Category:      category,
		Price:         decimal.RequireFromString(price),
		PublishedDate: time.Date(2024, time.May, 4, 0, 0, 0, 0, time.UTC),
		CoverImageURL: "https://img.example.com/cover.png",
		StockQuantity: 3,
	}
}

func TestToOrder_CopiesFields(t *testing.T) {
	m := newTestMapper()
	req := request(orders.CategoryFiction, "19.99")

	o := m.ToOrder(req)

	assert.Equal(t, "order-1", o.ID)
	assert.Equal(t, "9780134190440", o.ISBN)
	assert.True(t, o.Price.Equal(req.Price))
	assert.Equal(t, req.CoverImageURL, o.CoverImageURL)
	assert.Equal(t, fixedNow.UTC(), o.CreatedAt)
	assert.Equal(t, time.UTC, o.CreatedAt.Location())
	assert.Nil(t, o.UpdatedAt)
}

func TestToOrder_ChildrenDiscountAndNoCover(t *testing.T) {
	m := newTestMapper()
	cases := map[string]string{
		"10.00": "9.00",
		"19.99": "17.99", // 17.991
		"0.05":  "0.05",  // 0.045 rounds half away from zero
		"49.95": "44.96", // 44.955
		"33.33": "30.00", // 29.997
	}
	for in, want := range cases {
		o := m.ToOrder(request(orders.CategoryChildren, in))
		assert.True(t, o.Price.Equal(decimal.RequireFromString(want)), "%s -> %s, got %s", in, want, o.Price)
		assert.Empty(t, o.CoverImageURL)
	}
}

func TestToProfile_DerivedFields(t *testing.T) {
	m := newTestMapper()
	o := orders.Order{
		ID:            "x",
		Title:         "Advanced Programming Techniques",
		Author:        "Grace Brewster Hopper",
		Category:      orders.CategoryTechnical,
		Price:         decimal.RequireFromString("1234.5"),
		PublishedDate: fixedNow.AddDate(0, 0, -40),
		StockQuantity: 15,
	}

	p := m.ToProfile(o)

	assert.Equal(t, "Technical & Professional", p.CategoryDisplayName)
	assert.Equal(t, "$1,234.50", p.FormattedPrice)
	assert.Equal(t, "1 months old", p.PublishedAge)
	assert.Equal(t, "GH", p.AuthorInitials)
	assert.Equal(t, "In Stock", p.AvailabilityStatus)
	assert.True(t, p.IsAvailable)
}

func TestToProfile_Idempotent(t *testing.T) {
	m := newTestMapper()
	o := m.ToOrder(request(orders.CategoryNonFiction, "45.99"))

	first := m.ToProfile(o)
	second := m.ToProfile(o)
	require.Equal(t, first, second)
}

func TestCategoryDisplayName(t *testing.T) {
	assert.Equal(t, "Fiction & Literature", CategoryDisplayName(orders.CategoryFiction))
	assert.Equal(t, "Non-Fiction", CategoryDisplayName(orders.CategoryNonFiction))
	assert.Equal(t, "Children's Orders", CategoryDisplayName(orders.CategoryChildren))
	assert.Equal(t, "Uncategorized", CategoryDisplayName("Poetry"))
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "$45.99", FormatPrice(decimal.RequireFromString("45.99")))
	assert.Equal(t, "$9.00", FormatPrice(decimal.NewFromInt(9)))
	assert.Equal(t, "$9,999.99", FormatPrice(decimal.RequireFromString("9999.99")))
}

func TestPublishedAge(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	cases := map[int]string{
		0:    "New Release",
		10:   "New Release",
		29:   "New Release",
		40:   "1 months old",
		364:  "12 months old",
		400:  "1 years old",
		1824: "4 years old",
		1825: "Classic",
		2000: "Classic",
	}
	for days, want := range cases {
		assert.Equal(t, want, PublishedAge(now.AddDate(0, 0, -days), now), "%d days", days)
	}
}

func TestAuthorInitials(t *testing.T) {
	cases := map[string]string{
		"Cher":                  "C",
		"John Michael Smith Jr": "JJ",
		"":                      "?",
		"   ":                   "?",
		"ursula k. le guin":     "UG",
		"  émile   zola ":       "ÉZ",
	}
	for in, want := range cases {
		assert.Equal(t, want, AuthorInitials(in), in)
	}
}

func TestAvailabilityStatus(t *testing.T) {
	assert.Equal(t, "Out of Stock", AvailabilityStatus(0, false))
	assert.Equal(t, "Last Copy", AvailabilityStatus(1, true))
	assert.Equal(t, "Limited Stock", AvailabilityStatus(2, true))
	assert.Equal(t, "Limited Stock", AvailabilityStatus(5, true))
	assert.Equal(t, "In Stock", AvailabilityStatus(6, true))
	assert.Equal(t, "Out of Stock", AvailabilityStatus(8, false))
}
