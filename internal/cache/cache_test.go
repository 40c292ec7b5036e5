package cache

import (
	"context"
	"errors"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/go-bookorder-desk/internal/aws/awstest"
)

type payload struct {
	Names []string `json:"names"`
}

// exerciseCache runs the behaviour every backend must share.
func exerciseCache(t *testing.T, c Cache) {
	t.Helper()
	ctx := context.Background()

	var got payload
	found, err := c.Get(ctx, KeyAllOrders, &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, KeyAllOrders, payload{Names: []string{"a", "b"}}, time.Minute))
	found, err = c.Get(ctx, KeyAllOrders, &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []string{"a", "b"}, got.Names)

	require.NoError(t, c.Remove(ctx, KeyAllOrders))
	found, err = c.Get(ctx, KeyAllOrders, &got)
	require.NoError(t, err)
	assert.False(t, found)

	// removing a missing key is fine
	require.NoError(t, c.Remove(ctx, "missing"))
}

func TestMemoryCache(t *testing.T) {
	exerciseCache(t, NewMemoryCache())
}

func TestMemoryCache_Expiry(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	c := NewMemoryCache()
	c.nowFunc = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "short", 1, time.Second))
	require.NoError(t, c.Set(ctx, "forever", 2, 0))

	now = now.Add(2 * time.Second)
	var v int
	found, err := c.Get(ctx, "short", &v)
	require.NoError(t, err)
	assert.False(t, found)

	found, err = c.Get(ctx, "forever", &v)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 2, v)
}

func TestDynamoCache(t *testing.T) {
	mock := awstest.NewDynamo(map[string]string{"cache": "cache_key"})
	exerciseCache(t, NewDynamoCache(mock, "cache"))
}

func TestDynamoCache_ExpiredEntryIsAMiss(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	mock := awstest.NewDynamo(map[string]string{"cache": "cache_key"})
	c := NewDynamoCache(mock, "cache")
	c.nowFunc = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	require.NotNil(t, mock.Item("cache", "k")["expires_at"])

	now = now.Add(time.Hour)
	var v string
	found, err := c.Get(ctx, "k", &v)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDynamoCache_ClientErrors(t *testing.T) {
	mock := awstest.NewDynamo(map[string]string{"cache": "cache_key"})
	boom := errors.New("service unavailable")
	mock.FailOn("DeleteItem", boom)

	err := NewDynamoCache(mock, "cache").Remove(context.Background(), KeyAllOrders)
	assert.ErrorIs(t, err, boom)
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	db, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	client := NewRedisClient(addr, os.Getenv("REDIS_PASSWORD"), db)
	t.Cleanup(func() { _ = client.Close() })

	c := NewRedisCache(client, "test:"+strconv.FormatInt(time.Now().UnixNano(), 10)+":")
	require.NoError(t, c.Ping(context.Background()))
	exerciseCache(t, c)
}

func TestTTLString(t *testing.T) {
	assert.Equal(t, "none", ttlString(0))
	assert.Equal(t, "90s", ttlString(90*time.Second))
}
