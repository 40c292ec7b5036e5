// Package app assembles the service components selected by config for cmd/api and cmd/worker.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/imrishuroy/go-bookorder-desk/internal/aws"
	"github.com/imrishuroy/go-bookorder-desk/internal/cache"
	"github.com/imrishuroy/go-bookorder-desk/internal/config"
	"github.com/imrishuroy/go-bookorder-desk/internal/idempotency"
	"github.com/imrishuroy/go-bookorder-desk/internal/metrics"
	"github.com/imrishuroy/go-bookorder-desk/internal/orders"
	"github.com/imrishuroy/go-bookorder-desk/internal/workflow"
)

// Components are the wired collaborators of the service.
type Components struct {
	Repository orders.Repository
	Cache      cache.Cache
	Workflow   *workflow.Workflow
	// Idempotency is nil when IDEMPOTENCY_TABLE is unset.
	Idempotency *idempotency.Store
	Registry    *prometheus.Registry

	redis *redis.Client
}

// Build wires components from cfg. AWS clients are created only when a component needs them;
// clients, when non-nil, replaces them (tests, local fakes).
func Build(ctx context.Context, cfg config.Config, clients *aws.AWSClients) (*Components, error) {
	logger := zerolog.Ctx(ctx)

	if clients == nil && cfg.NeedsAWS() {
		var err error
		clients, err = aws.NewAWSClients(ctx, cfg.AWSRegion, cfg.AWSEndpoint)
		if err != nil {
			return nil, fmt.Errorf("init aws clients: %w", err)
		}
	}

	c := &Components{Registry: prometheus.NewRegistry()}
	c.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	switch cfg.StoreBackend {
	case config.BackendMemory:
		c.Repository = orders.NewMemoryStore()
	default:
		c.Repository = orders.NewStore(clients.DynamoDB, cfg.OrdersTable)
	}

	switch cfg.CacheBackend {
	case config.BackendMemory:
		c.Cache = cache.NewMemoryCache()
	case config.BackendRedis:
		c.redis = cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		rc := cache.NewRedisCache(c.redis, "bookorders:")
		if err := rc.Ping(ctx); err != nil {
			// the workflow tolerates cache faults, so a down redis only degrades listings
			logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable at startup")
		}
		c.Cache = rc
	default:
		c.Cache = cache.NewDynamoCache(clients.DynamoDB, cfg.CacheTable)
	}

	if cfg.IdempotencyTable != "" {
		c.Idempotency = idempotency.NewStore(clients.DynamoDB, cfg.IdempotencyTable, cfg.IdempotencyTTL)
	}

	recorders := []metrics.Recorder{metrics.LogRecorder{}, metrics.NewPrometheusRecorder(c.Registry)}
	if cfg.CloudWatchMetrics {
		recorders = append(recorders, metrics.NewCloudWatchRecorder(clients.CloudWatch, cfg.MetricsNamespace))
	}

	deps := workflow.Deps{
		Repository: c.Repository,
		Cache:      c.Cache,
		Recorder:   metrics.Multi(recorders...),
		ListTTL:    cfg.OrdersCacheTTL,
	}
	if cfg.QueueURL != "" {
		deps.Publisher = aws.NewPublisher(clients.SQS, cfg.QueueURL)
	}
	c.Workflow = workflow.New(deps)

	logger.Info().
		Str("store", cfg.StoreBackend).
		Str("cache", cfg.CacheBackend).
		Bool("idempotency", c.Idempotency != nil).
		Bool("events", deps.Publisher != nil).
		Bool("cloudwatch", cfg.CloudWatchMetrics).
		Msg("components ready")
	return c, nil
}

// Close releases network clients owned by the components.
func (c *Components) Close() error {
	if c.redis != nil {
		return c.redis.Close()
	}
	return nil
}
