package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(envOf(nil))
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "us-east-1", cfg.AWSRegion)
	assert.Equal(t, BackendDynamoDB, cfg.StoreBackend)
	assert.Equal(t, 10*time.Minute, cfg.OrdersCacheTTL)
	assert.Equal(t, 48*time.Hour, cfg.IdempotencyTTL)
	assert.False(t, cfg.RunLocal)
	assert.True(t, cfg.NeedsAWS())
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{
		"RUN_LOCAL":        "true",
		"STORE_BACKEND":    "memory",
		"CACHE_BACKEND":    "redis",
		"REDIS_DB":         "3",
		"ORDERS_CACHE_TTL": "30s",
	}))
	require.NoError(t, err)

	assert.True(t, cfg.RunLocal)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 30*time.Second, cfg.OrdersCacheTTL)
	assert.False(t, cfg.NeedsAWS())
}

func TestFromEnv_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"bad store":    {"STORE_BACKEND": "postgres"},
		"bad cache":    {"CACHE_BACKEND": "memcached"},
		"bad ttl":      {"ORDERS_CACHE_TTL": "ten minutes"},
		"bad redis db": {"REDIS_DB": "x"},
		"bad bool":     {"CLOUDWATCH_METRICS": "maybe"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := FromEnv(envOf(env))
			assert.Error(t, err)
		})
	}
}
