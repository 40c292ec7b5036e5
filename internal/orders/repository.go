package orders

import (
	"context"
	"time"
)

// Repository is the order persistence port. Add must enforce ISBN and (title, author)
// uniqueness at the storage layer and report violations as ErrConflict.
type Repository interface {
	FindByISBN(ctx context.Context, isbn string) (*Order, error)
	ExistsByTitleAuthor(ctx context.Context, title, author string) (bool, error)
	CountCreatedOn(ctx context.Context, day time.Time) (int, error)
	Add(ctx context.Context, order Order) error
	ListAll(ctx context.Context) ([]Order, error)
	// Get returns (nil, nil) when the order does not exist.
	Get(ctx context.Context, id string) (*Order, error)
}

var (
	_ Repository = (*Store)(nil)
	_ Repository = (*MemoryStore)(nil)
)
