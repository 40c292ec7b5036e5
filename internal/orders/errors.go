package orders

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrConflict signals a storage-level uniqueness violation.
	ErrConflict = errors.New("order already exists")
	// ErrDuplicateISBN is a conflict on the ISBN guard.
	ErrDuplicateISBN = fmt.Errorf("%w: isbn is already registered", ErrConflict)
	// ErrDuplicateTitleAuthor is a conflict on the (title, author) guard.
	ErrDuplicateTitleAuthor = fmt.Errorf("%w: title and author are already registered", ErrConflict)
)

// IsConflict reports whether err is a uniqueness violation.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
