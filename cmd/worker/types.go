package main

import (
	"context"

	"github.com/imrishuroy/go-bookorder-desk/internal/orders"
)

// CacheRefresher rebuilds the cached order listing. *workflow.Workflow satisfies it.
type CacheRefresher interface {
	RefreshOrderCache(ctx context.Context) (int, error)
}

// OrderGetter confirms that an announced order exists.
type OrderGetter interface {
	Get(ctx context.Context, id string) (*orders.Order, error)
}
