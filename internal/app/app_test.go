package app

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/go-bookorder-desk/internal/aws"
	"github.com/imrishuroy/go-bookorder-desk/internal/aws/awstest"
	"github.com/imrishuroy/go-bookorder-desk/internal/cache"
	"github.com/imrishuroy/go-bookorder-desk/internal/config"
	"github.com/imrishuroy/go-bookorder-desk/internal/orders"
	"github.com/imrishuroy/go-bookorder-desk/internal/validation"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func fictionRequest() validation.CreateOrderRequest {
	return validation.CreateOrderRequest{
		Title:         "Kindred",
		Author:        "Octavia Butler",
		ISBN:          "0807083690",
		Category:      orders.CategoryFiction,
		Price:         decimal.RequireFromString("14.00"),
		PublishedDate: time.Date(1979, time.June, 1, 0, 0, 0, 0, time.UTC),
		StockQuantity: 2,
	}
}

func TestBuild_InMemory(t *testing.T) {
	cfg, err := config.FromEnv(env(map[string]string{
		"STORE_BACKEND": config.BackendMemory,
		"CACHE_BACKEND": config.BackendMemory,
	}))
	require.NoError(t, err)
	require.False(t, cfg.NeedsAWS())

	c, err := Build(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer c.Close()

	assert.IsType(t, &orders.MemoryStore{}, c.Repository)
	assert.IsType(t, &cache.MemoryCache{}, c.Cache)
	assert.Nil(t, c.Idempotency)

	_, err = c.Workflow.CreateOrder(context.Background(), fictionRequest())
	require.NoError(t, err)

	families, err := c.Registry.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "bookorders_order_creations_total")
}

func TestBuild_DynamoBackedWithEvents(t *testing.T) {
	cfg, err := config.FromEnv(env(map[string]string{
		"ORDERS_TABLE":       "orders",
		"CACHE_TABLE":        "cache",
		"IDEMPOTENCY_TABLE":  "idem",
		"ORDERS_QUEUE_URL":   "https://sqs.local/queue",
		"CLOUDWATCH_METRICS": "true",
	}))
	require.NoError(t, err)

	dynamo := awstest.NewDynamo(map[string]string{"orders": "pk", "cache": "cache_key", "idem": "idempotency_key"})
	queue := &awstest.SQS{}
	cw := &awstest.CloudWatch{}
	clients := &aws.AWSClients{DynamoDB: dynamo, SQS: queue, CloudWatch: cw}

	c, err := Build(context.Background(), cfg, clients)
	require.NoError(t, err)
	assert.IsType(t, &orders.Store{}, c.Repository)
	assert.IsType(t, &cache.DynamoCache{}, c.Cache)
	require.NotNil(t, c.Idempotency)

	p, err := c.Workflow.CreateOrder(context.Background(), fictionRequest())
	require.NoError(t, err)

	assert.NotNil(t, dynamo.Item("orders", "ORDER#"+p.ID))
	assert.Len(t, queue.Sent(), 1)
	assert.Len(t, cw.Inputs(), 1)

	list, err := c.Workflow.ListOrders(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.NotNil(t, dynamo.Item("cache", cache.KeyAllOrders))
}
