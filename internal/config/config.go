// Package config loads service settings from the environment, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backend names accepted by STORE_BACKEND and CACHE_BACKEND.
const (
	BackendDynamoDB = "dynamodb"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// Config holds every setting used by cmd/api and cmd/worker.
type Config struct {
	Env      string
	LogLevel string
	RunLocal bool
	HTTPAddr string

	AWSRegion   string
	AWSEndpoint string

	OrdersTable      string
	IdempotencyTable string
	CacheTable       string
	QueueURL         string

	StoreBackend string
	CacheBackend string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	OrdersCacheTTL time.Duration
	IdempotencyTTL time.Duration

	MetricsNamespace  string
	CloudWatchMetrics bool
}

// Load reads .env (if present) and then the process environment. Variables already set in the
// environment win over .env entries.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := Config{
		Env:              get("APP_ENV", "production"),
		LogLevel:         get("LOG_LEVEL", "info"),
		RunLocal:         get("RUN_LOCAL", "false") == "true",
		HTTPAddr:         get("HTTP_ADDR", ":8080"),
		AWSRegion:        get("AWS_REGION", "us-east-1"),
		AWSEndpoint:      get("AWS_ENDPOINT_OVERRIDE", ""),
		OrdersTable:      get("ORDERS_TABLE", "orders"),
		IdempotencyTable: get("IDEMPOTENCY_TABLE", ""),
		CacheTable:       get("CACHE_TABLE", "orders-cache"),
		QueueURL:         get("ORDERS_QUEUE_URL", ""),
		StoreBackend:     get("STORE_BACKEND", BackendDynamoDB),
		CacheBackend:     get("CACHE_BACKEND", BackendDynamoDB),
		RedisAddr:        get("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    get("REDIS_PASSWORD", ""),
		MetricsNamespace: get("METRICS_NAMESPACE", "BookOrders"),
	}

	var err error
	if cfg.RedisDB, err = strconv.Atoi(get("REDIS_DB", "0")); err != nil {
		return Config{}, fmt.Errorf("REDIS_DB: %w", err)
	}
	if cfg.OrdersCacheTTL, err = time.ParseDuration(get("ORDERS_CACHE_TTL", "10m")); err != nil {
		return Config{}, fmt.Errorf("ORDERS_CACHE_TTL: %w", err)
	}
	if cfg.IdempotencyTTL, err = time.ParseDuration(get("IDEMPOTENCY_TTL", "48h")); err != nil {
		return Config{}, fmt.Errorf("IDEMPOTENCY_TTL: %w", err)
	}
	if cfg.CloudWatchMetrics, err = strconv.ParseBool(get("CLOUDWATCH_METRICS", "false")); err != nil {
		return Config{}, fmt.Errorf("CLOUDWATCH_METRICS: %w", err)
	}

	switch cfg.StoreBackend {
	case BackendDynamoDB, BackendMemory:
	default:
		return Config{}, fmt.Errorf("STORE_BACKEND: unsupported backend %q", cfg.StoreBackend)
	}
	switch cfg.CacheBackend {
	case BackendDynamoDB, BackendRedis, BackendMemory:
	default:
		return Config{}, fmt.Errorf("CACHE_BACKEND: unsupported backend %q", cfg.CacheBackend)
	}

	return cfg, nil
}

// NeedsAWS reports whether any configured component talks to AWS.
func (c Config) NeedsAWS() bool {
	return c.StoreBackend == BackendDynamoDB ||
		c.CacheBackend == BackendDynamoDB ||
		c.IdempotencyTable != "" ||
		c.QueueURL != "" ||
		c.CloudWatchMetrics
}
