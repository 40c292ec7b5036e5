package validation

import (
	"errors"
	"strings"

	"github.com/imrishuroy/go-bookorder-desk/internal/orders"
)

// FieldBusinessRules is the field reported by aggregate business-rule failures.
const FieldBusinessRules = "business_rules"

// Error is a validation failure: the caller must correct the input, retrying is pointless.
type Error struct {
	Failures []Failure
	cause    error
}

func (e *Error) Error() string {
	return "validation failed: " + e.Messages()
}

// Unwrap exposes the storage error behind a conflict, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Messages joins every failure message with "; ".
func (e *Error) Messages() string {
	msgs := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		msgs = append(msgs, f.Message)
	}
	return strings.Join(msgs, "; ")
}

// IsConflict reports whether the failure came from a storage uniqueness violation.
func (e *Error) IsConflict() bool {
	return orders.IsConflict(e.cause)
}

// NewConflictError turns a storage uniqueness violation into a validation failure that still
// unwraps to the storage error.
func NewConflictError(cause error) *Error {
	f := Failure{Field: "order", Message: "This order already exists"}
	switch {
	case errors.Is(cause, orders.ErrDuplicateISBN):
		f = Failure{Field: "isbn", Message: msgISBNExists}
	case errors.Is(cause, orders.ErrDuplicateTitleAuthor):
		f = Failure{Field: "title", Message: msgTitleAuthorExists}
	}
	return &Error{Failures: []Failure{f}, cause: cause}
}

// AsError extracts an *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var verr *Error
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
