package validation

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/imrishuroy/go-bookorder-desk/internal/orders"
)

// DefaultStockQuantity applies when the caller omits stock_quantity.
const DefaultStockQuantity = 1

// CreateOrderRequest is the payload for POST /orders
type CreateOrderRequest struct {
	Title         string          `json:"title" validate:"required,notblank,max=200"`
	Author        string          `json:"author" validate:"required,notblank,min=2,max=100,authorname"`
	ISBN          string          `json:"isbn" validate:"required,isbn_digits"`
	Category      orders.Category `json:"category" validate:"required,oneof=Fiction NonFiction Technical Children"`
	Price         decimal.Decimal `json:"price"`
	PublishedDate time.Time       `json:"published_date"`
	CoverImageURL string          `json:"cover_image_url,omitempty" validate:"omitempty,cover_image"`
	StockQuantity int             `json:"stock_quantity" validate:"min=0,max=100000"`
}

// NewCreateOrderRequest returns a request with defaults applied; decode the body into it.
func NewCreateOrderRequest() CreateOrderRequest {
	return CreateOrderRequest{StockQuantity: DefaultStockQuantity}
}

// UnmarshalJSON accepts published_date either as a calendar date (2006-01-02) or RFC 3339.
func (r *CreateOrderRequest) UnmarshalJSON(data []byte) error {
	type plain CreateOrderRequest
	aux := struct {
		*plain
		PublishedDate string `json:"published_date"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.PublishedDate == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339Nano} {
		if t, err := time.Parse(layout, aux.PublishedDate); err == nil {
			r.PublishedDate = t
			return nil
		}
	}
	return fmt.Errorf("published_date: %q is neither YYYY-MM-DD nor RFC 3339", aux.PublishedDate)
}

// Failure is one (field, message) validation problem. Business-rule failures use the
// pseudo field "business_rules".
type Failure struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result is the outcome of Validate. It is valid when it carries no failures.
type Result struct {
	Failures []Failure
}

// Valid reports whether no rule failed.
func (r Result) Valid() bool {
	return len(r.Failures) == 0
}

// Err returns nil for a valid result and an *Error otherwise.
func (r Result) Err() error {
	if r.Valid() {
		return nil
	}
	return &Error{Failures: r.Failures}
}
