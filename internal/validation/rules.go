package validation

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/imrishuroy/go-bookorder-desk/internal/orders"
)

const (
	// MaxOrdersPerDay caps creations per UTC calendar day.
	MaxOrdersPerDay = 500

	technicalMaxAgeYears = 5
	fictionMinAuthorLen  = 5
	expensiveStockLimit  = 20
	premiumStockLimit    = 10
)

var (
	maxPrice          = decimal.NewFromInt(10000)
	technicalMinPrice = decimal.NewFromInt(20)
	childrenMaxPrice  = decimal.NewFromInt(50)
	expensivePrice    = decimal.NewFromInt(100)
	premiumPrice      = decimal.NewFromInt(500)

	earliestPublished = time.Date(1400, time.January, 1, 0, 0, 0, 0, time.UTC)
)

var (
	deniedWords     = []string{"violence", "adult", "mature", "explicit"}
	childrenDenied  = []string{"violence", "adult", "mature", "explicit", "horror", "scary"}
	technicalTopics = []string{
		"programming", "software", "computer", "technology", "technical",
		"engineering", "development", "code", "algorithm", "database",
	}
)

const (
	msgISBNExists        = "An order with this ISBN already exists"
	msgTitleAuthorExists = "An order with this title and author already exists"

	msgTitleDenied         = "Title contains inappropriate content"
	msgPricePositive       = "Price must be greater than 0"
	msgPriceMax            = "Price must be less than $10,000.00"
	msgDateRequired        = "Published date is required"
	msgDateFuture          = "Published date cannot be in the future"
	msgDateTooOld          = "Published date cannot be before the year 1400"
	msgTechnicalMinPrice   = "Technical orders must have a minimum price of $20.00"
	msgTechnicalKeyword    = "Technical orders must have a title related to a technical subject"
	msgTechnicalRecent     = "Technical orders must have been published within the last 5 years"
	msgChildrenMaxPrice    = "Children's orders must not exceed $50.00"
	msgChildrenContent     = "Children's orders must not contain restricted words in the title"
	msgFictionAuthor       = "Fiction orders require an author name of at least 5 characters"
	msgExpensiveStock      = "Orders priced above $100.00 must have a stock quantity of 20 or less"
	msgDailyLimit          = "Daily order limit of 500 has been reached"
	msgPremiumStock        = "Orders priced above $500.00 must have a stock quantity of 10 or less"
	msgBusinessTechnical   = "Technical orders must be priced at $20.00 or more"
	msgBusinessChildrenTxt = "Children's order title failed the content check"
)

func containsAny(s string, words []string) bool {
	s = strings.ToLower(s)
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func contentRules(_ context.Context, req *CreateOrderRequest, _ time.Time) ([]Failure, error) {
	if containsAny(req.Title, deniedWords) {
		return []Failure{{Field: "title", Message: msgTitleDenied}}, nil
	}
	return nil, nil
}

func priceRules(_ context.Context, req *CreateOrderRequest, _ time.Time) ([]Failure, error) {
	var failures []Failure
	if !req.Price.IsPositive() {
		failures = append(failures, Failure{Field: "price", Message: msgPricePositive})
	}
	if req.Price.GreaterThanOrEqual(maxPrice) {
		failures = append(failures, Failure{Field: "price", Message: msgPriceMax})
	}
	return failures, nil
}

func publishedDateRules(_ context.Context, req *CreateOrderRequest, now time.Time) ([]Failure, error) {
	switch {
	case req.PublishedDate.IsZero():
		return []Failure{{Field: "published_date", Message: msgDateRequired}}, nil
	case req.PublishedDate.After(now):
		return []Failure{{Field: "published_date", Message: msgDateFuture}}, nil
	case req.PublishedDate.Before(earliestPublished):
		return []Failure{{Field: "published_date", Message: msgDateTooOld}}, nil
	}
	return nil, nil
}

// uniquenessRules is a best-effort pre-check; the store enforces uniqueness on insert.
func (v *Validator) uniquenessRules(ctx context.Context, req *CreateOrderRequest, _ time.Time) ([]Failure, error) {
	var failures []Failure
	if ValidISBN(req.ISBN) {
		existing, err := v.lookup.FindByISBN(ctx, req.ISBN)
		if err != nil {
			return nil, fmt.Errorf("check isbn: %w", err)
		}
		if existing != nil {
			failures = append(failures, Failure{Field: "isbn", Message: msgISBNExists})
		}
	}
	if strings.TrimSpace(req.Title) != "" && strings.TrimSpace(req.Author) != "" {
		taken, err := v.lookup.ExistsByTitleAuthor(ctx, req.Title, req.Author)
		if err != nil {
			return nil, fmt.Errorf("check title/author: %w", err)
		}
		if taken {
			failures = append(failures, Failure{Field: "title", Message: msgTitleAuthorExists})
		}
	}
	return failures, nil
}

func categoryRules(_ context.Context, req *CreateOrderRequest, now time.Time) ([]Failure, error) {
	var failures []Failure
	switch req.Category {
	case orders.CategoryTechnical:
		if req.Price.LessThan(technicalMinPrice) {
			failures = append(failures, Failure{Field: "price", Message: msgTechnicalMinPrice})
		}
		if !containsAny(req.Title, technicalTopics) {
			failures = append(failures, Failure{Field: "title", Message: msgTechnicalKeyword})
		}
		if !req.PublishedDate.IsZero() && req.PublishedDate.Before(now.AddDate(-technicalMaxAgeYears, 0, 0)) {
			failures = append(failures, Failure{Field: "published_date", Message: msgTechnicalRecent})
		}
	case orders.CategoryChildren:
		if req.Price.GreaterThan(childrenMaxPrice) {
			failures = append(failures, Failure{Field: "price", Message: msgChildrenMaxPrice})
		}
		if containsAny(req.Title, childrenDenied) {
			failures = append(failures, Failure{Field: "title", Message: msgChildrenContent})
		}
	case orders.CategoryFiction:
		if utf8.RuneCountInString(req.Author) < fictionMinAuthorLen {
			failures = append(failures, Failure{Field: "author", Message: msgFictionAuthor})
		}
	}
	return failures, nil
}

func crossFieldRules(_ context.Context, req *CreateOrderRequest, _ time.Time) ([]Failure, error) {
	if req.Price.GreaterThan(expensivePrice) && req.StockQuantity > expensiveStockLimit {
		return []Failure{{Field: "stock_quantity", Message: msgExpensiveStock}}, nil
	}
	return nil, nil
}

// businessRules reports only the first aggregate rule that fails.
func (v *Validator) businessRules(ctx context.Context, req *CreateOrderRequest, now time.Time) ([]Failure, error) {
	count, err := v.lookup.CountCreatedOn(ctx, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("count daily orders: %w", err)
	}

	var msg string
	switch {
	case count >= MaxOrdersPerDay:
		msg = msgDailyLimit
	case req.Category == orders.CategoryTechnical && req.Price.LessThan(technicalMinPrice):
		msg = msgBusinessTechnical
	case req.Category == orders.CategoryChildren && containsAny(req.Title, childrenDenied):
		msg = msgBusinessChildrenTxt
	case req.Price.GreaterThan(premiumPrice) && req.StockQuantity > premiumStockLimit:
		msg = msgPremiumStock
	default:
		return nil, nil
	}
	return []Failure{{Field: FieldBusinessRules, Message: msg}}, nil
}
