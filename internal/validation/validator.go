package validation

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"reflect"
	"regexp"
	"strings"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/imrishuroy/go-bookorder-desk/internal/orders"
)

// Lookup is the part of the order repository the validator consults.
type Lookup interface {
	FindByISBN(ctx context.Context, isbn string) (*orders.Order, error)
	ExistsByTitleAuthor(ctx context.Context, title, author string) (bool, error)
	CountCreatedOn(ctx context.Context, day time.Time) (int, error)
}

// rule checks one family of constraints. A non-nil error aborts validation (store fault or
// cancellation); failures are accumulated.
type rule func(ctx context.Context, req *CreateOrderRequest, now time.Time) ([]Failure, error)

// Validator applies every rule to a creation request and collects all failures.
type Validator struct {
	fields  *validatorv10.Validate
	lookup  Lookup
	nowFunc func() time.Time
}

// New returns a Validator backed by lookup for uniqueness and volume checks.
func New(lookup Lookup) *Validator {
	return &Validator{
		fields:  NewFieldValidator(),
		lookup:  lookup,
		nowFunc: time.Now,
	}
}

// Validate evaluates every rule family in order. Only the aggregate business rules stop at
// their first failure.
func (v *Validator) Validate(ctx context.Context, req CreateOrderRequest) (Result, error) {
	now := v.nowFunc()
	rules := []rule{
		v.fieldRules,
		contentRules,
		priceRules,
		publishedDateRules,
		v.uniquenessRules,
		categoryRules,
		crossFieldRules,
		v.businessRules,
	}

	var res Result
	for _, r := range rules {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		failures, err := r(ctx, &req, now)
		if err != nil {
			return Result{}, err
		}
		res.Failures = append(res.Failures, failures...)
	}
	return res, nil
}

var (
	authorPattern   = regexp.MustCompile(`^[A-Za-z\s\-.']+$`)
	imageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}
)

// NewFieldValidator returns a validator/v10 instance with the custom tags used by
// CreateOrderRequest. Field names in errors are the JSON names.
func NewFieldValidator() *validatorv10.Validate {
	v := validatorv10.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	mustRegister(v, "notblank", func(fl validatorv10.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	mustRegister(v, "authorname", func(fl validatorv10.FieldLevel) bool {
		return authorPattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "isbn_digits", func(fl validatorv10.FieldLevel) bool {
		return ValidISBN(fl.Field().String())
	})
	mustRegister(v, "cover_image", func(fl validatorv10.FieldLevel) bool {
		return ValidCoverImageURL(fl.Field().String())
	})

	return v
}

func mustRegister(v *validatorv10.Validate, tag string, fn validatorv10.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %q: %v", tag, err))
	}
}

// ValidISBN reports whether isbn, once hyphens and spaces are removed, is 10 or 13 digits.
func ValidISBN(isbn string) bool {
	n := orders.NormalizeISBN(isbn)
	if len(n) != 10 && len(n) != 13 {
		return false
	}
	for _, r := range n {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ValidCoverImageURL reports whether raw is an absolute http(s) URL to a common image format.
func ValidCoverImageURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return imageExtensions[strings.ToLower(path.Ext(u.Path))]
}

var fieldMessages = map[string]string{
	"title.required":              "Title is required",
	"title.notblank":              "Title is required",
	"title.max":                   "Title must not exceed 200 characters",
	"author.required":             "Author is required",
	"author.notblank":             "Author is required",
	"author.min":                  "Author must be at least 2 characters",
	"author.max":                  "Author must not exceed 100 characters",
	"author.authorname":           "Author can only contain letters, spaces, hyphens, periods and apostrophes",
	"isbn.required":               "ISBN is required",
	"isbn.isbn_digits":            "ISBN must contain exactly 10 or 13 digits (hyphens and spaces are ignored)",
	"category.required":           "Category is required",
	"category.oneof":              "Category must be one of: Fiction, NonFiction, Technical, Children",
	"stock_quantity.min":          "Stock quantity must be between 0 and 100,000",
	"stock_quantity.max":          "Stock quantity must be between 0 and 100,000",
	"cover_image_url.cover_image": "Cover image URL must be an absolute http(s) URL ending in .jpg, .jpeg, .png, .gif or .webp",
}

func (v *Validator) fieldRules(_ context.Context, req *CreateOrderRequest, _ time.Time) ([]Failure, error) {
	err := v.fields.Struct(req)
	if err == nil {
		return nil, nil
	}
	ves, ok := err.(validatorv10.ValidationErrors)
	if !ok {
		return nil, fmt.Errorf("field validation: %w", err)
	}
	failures := make([]Failure, 0, len(ves))
	for _, fe := range ves {
		msg, ok := fieldMessages[fe.Field()+"."+fe.Tag()]
		if !ok {
			msg = fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag())
		}
		failures = append(failures, Failure{Field: fe.Field(), Message: msg})
	}
	return failures, nil
}
