// Package mapping converts creation requests into orders and orders into display profiles.
// Both directions are pure apart from the injected id and clock functions.
package mapping

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/imrishuroy/go-bookorder-desk/internal/orders"
	"github.com/imrishuroy/go-bookorder-desk/internal/validation"
)

var childrenDiscount = decimal.RequireFromString("0.9")

// Mapper holds the id and clock sources used when deriving values.
type Mapper struct {
	newID   func() string
	nowFunc func() time.Time
}

// NewMapper returns a Mapper using random UUIDs and the wall clock.
func NewMapper() *Mapper {
	return &Mapper{
		newID:   uuid.NewString,
		nowFunc: time.Now,
	}
}

// ToOrder builds the order to persist from a validated request.
func (m *Mapper) ToOrder(req validation.CreateOrderRequest) orders.Order {
	o := orders.Order{
		ID:            m.newID(),
		Title:         req.Title,
		Author:        req.Author,
		ISBN:          orders.NormalizeISBN(req.ISBN),
		Category:      req.Category,
		Price:         req.Price,
		PublishedDate: req.PublishedDate,
		CoverImageURL: req.CoverImageURL,
		StockQuantity: req.StockQuantity,
		CreatedAt:     m.nowFunc().UTC(),
	}
	if o.Category == orders.CategoryChildren {
		o.Price = req.Price.Mul(childrenDiscount).Round(2)
		o.CoverImageURL = ""
	}
	return o
}
