// Package workflow sequences order creation: validate, map, persist, invalidate the listing
// cache, announce, and derive the profile returned to the caller.
package workflow

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/imrishuroy/go-bookorder-desk/internal/aws"
	"github.com/imrishuroy/go-bookorder-desk/internal/cache"
	"github.com/imrishuroy/go-bookorder-desk/internal/logging"
	"github.com/imrishuroy/go-bookorder-desk/internal/mapping"
	"github.com/imrishuroy/go-bookorder-desk/internal/metrics"
	"github.com/imrishuroy/go-bookorder-desk/internal/orders"
	"github.com/imrishuroy/go-bookorder-desk/internal/validation"
)

// DefaultListTTL is used when Deps.ListTTL is zero.
const DefaultListTTL = 10 * time.Minute

// Publisher announces created orders. *aws.Publisher satisfies it.
type Publisher interface {
	PublishOrderEvent(ctx context.Context, ev aws.OrderEvent) error
}

// Deps groups the collaborators of a Workflow. Publisher and Recorder are optional.
type Deps struct {
	Repository orders.Repository
	Cache      cache.Cache
	Publisher  Publisher
	Recorder   metrics.Recorder
	ListTTL    time.Duration
}

// Workflow is safe for concurrent use when its collaborators are.
type Workflow struct {
	validator *validation.Validator
	mapper    *mapping.Mapper
	repo      orders.Repository
	cache     cache.Cache
	publisher Publisher
	recorder  metrics.Recorder
	listTTL   time.Duration
	newOpID   func() string

	// invalidations counts listing cache removals made by this process
	invalidations atomic.Uint64
}

// New wires a Workflow from d.
func New(d Deps) *Workflow {
	w := &Workflow{
		validator: validation.New(d.Repository),
		mapper:    mapping.NewMapper(),
		repo:      d.Repository,
		cache:     d.Cache,
		publisher: d.Publisher,
		recorder:  d.Recorder,
		listTTL:   d.ListTTL,
		newOpID:   uuid.NewString,
	}
	if w.recorder == nil {
		w.recorder = metrics.Multi()
	}
	if w.listTTL <= 0 {
		w.listTTL = DefaultListTTL
	}
	return w
}

// CreateOrder validates req, persists the resulting order and returns its profile.
//
// Validation failures and storage uniqueness conflicts are returned as *validation.Error; a
// conflict additionally unwraps to orders.ErrConflict. Other errors, including cancellation,
// are returned unchanged. Every outcome is reported to the metrics recorder.
func (w *Workflow) CreateOrder(ctx context.Context, req validation.CreateOrderRequest) (mapping.Profile, error) {
	opID := w.newOpID()
	logger := zerolog.Ctx(ctx).With().Str("operation_id", opID).Logger()
	ctx = logger.WithContext(ctx)

	start := time.Now()
	rec := metrics.Record{
		OperationID: opID,
		Title:       req.Title,
		ISBN:        req.ISBN,
		Category:    string(req.Category),
	}
	fail := func(err error) (mapping.Profile, error) {
		rec.TotalDuration = time.Since(start)
		rec.ErrorReason = failureReason(err)
		w.recorder.RecordOrderCreation(ctx, rec)
		return mapping.Profile{}, err
	}

	logger.Debug().Str("isbn", req.ISBN).Str("category", string(req.Category)).Msg("creating order")

	res, err := w.validator.Validate(ctx, req)
	rec.ValidationDuration = time.Since(start)
	if err != nil {
		logger.Error().Err(err).Msg("validation aborted")
		return fail(err)
	}
	if verr := res.Err(); verr != nil {
		logger.Warn().Int("failures", len(res.Failures)).Msg("order rejected by validation")
		return fail(verr)
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	order := w.mapper.ToOrder(req)

	dbStart := time.Now()
	err = w.repo.Add(ctx, order)
	rec.DatabaseDuration = time.Since(dbStart)
	if err != nil {
		if orders.IsConflict(err) {
			logger.Warn().Err(err).Msg("order lost uniqueness race")
			return fail(validation.NewConflictError(err))
		}
		logger.Error().Err(err).Msg("persist order failed")
		return fail(err)
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	w.invalidations.Add(1)
	if err := w.cache.Remove(ctx, cache.KeyAllOrders); err != nil {
		logger.Error().Err(err).Str("key", cache.KeyAllOrders).Msg("cache invalidation failed")
	}

	if w.publisher != nil {
		ev := aws.OrderEvent{
			Type:          aws.EventOrderCreated,
			OrderID:       order.ID,
			ISBN:          order.ISBN,
			CorrelationID: logging.CorrelationID(ctx),
		}
		if err := w.publisher.PublishOrderEvent(ctx, ev); err != nil {
			logger.Error().Err(err).Str("order_id", order.ID).Msg("publish order event failed")
		}
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	profile := w.mapper.ToProfile(order)

	rec.Success = true
	rec.TotalDuration = time.Since(start)
	w.recorder.RecordOrderCreation(ctx, rec)

	logger.Info().Str("order_id", order.ID).Dur("elapsed", rec.TotalDuration).Msg("order created")
	return profile, nil
}

func failureReason(err error) string {
	if verr, ok := validation.AsError(err); ok {
		return verr.Messages()
	}
	return err.Error()
}

// GetOrder returns the profile of the order with the given id, or orders.ErrNotFound.
func (w *Workflow) GetOrder(ctx context.Context, id string) (mapping.Profile, error) {
	o, err := w.repo.Get(ctx, id)
	if err != nil {
		return mapping.Profile{}, fmt.Errorf("get order %s: %w", id, err)
	}
	if o == nil {
		return mapping.Profile{}, fmt.Errorf("order %s: %w", id, orders.ErrNotFound)
	}
	return w.mapper.ToProfile(*o), nil
}

// ListOrders serves the order listing from the cache, loading and caching it on a miss.
// Cache faults degrade to a store read.
//
// A load that overlaps an order creation in this process is returned but not cached. A creation
// in another process can still be hidden by a concurrent load for up to the list TTL, unless the
// worker refreshes the listing first.
func (w *Workflow) ListOrders(ctx context.Context) ([]mapping.Profile, error) {
	logger := zerolog.Ctx(ctx)

	var cached []mapping.Profile
	found, err := w.cache.Get(ctx, cache.KeyAllOrders, &cached)
	switch {
	case err != nil:
		logger.Warn().Err(err).Msg("order list cache read failed")
	case found:
		return cached, nil
	}

	gen := w.invalidations.Load()
	profiles, err := w.loadProfiles(ctx)
	if err != nil {
		return nil, err
	}
	if w.invalidations.Load() != gen {
		logger.Debug().Msg("order list changed during load, not caching")
		return profiles, nil
	}
	if err := w.cache.Set(ctx, cache.KeyAllOrders, profiles, w.listTTL); err != nil {
		logger.Warn().Err(err).Msg("order list cache write failed")
	}
	return profiles, nil
}

// RefreshOrderCache rebuilds the cached order listing from the store.
func (w *Workflow) RefreshOrderCache(ctx context.Context) (int, error) {
	profiles, err := w.loadProfiles(ctx)
	if err != nil {
		return 0, err
	}
	if err := w.cache.Set(ctx, cache.KeyAllOrders, profiles, w.listTTL); err != nil {
		return 0, fmt.Errorf("cache order list: %w", err)
	}
	return len(profiles), nil
}

func (w *Workflow) loadProfiles(ctx context.Context) ([]mapping.Profile, error) {
	list, err := w.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return w.mapper.ToProfiles(list), nil
}
