package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/go-bookorder-desk/internal/aws"
)

// entry is the shape persisted in the cache table. expires_at is the table's TTL attribute.
type entry struct {
	CacheKey  string `dynamodbav:"cache_key"` // PK
	Value     string `dynamodbav:"value"`
	ExpiresAt int64  `dynamodbav:"expires_at,omitempty"` // TTL epoch seconds; 0 = never
}

// DynamoCache stores entries in a DynamoDB table with TTL enabled on expires_at.
type DynamoCache struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewDynamoCache returns a cache bound to tableName.
func NewDynamoCache(client aws.DynamoDBAPI, tableName string) *DynamoCache {
	return &DynamoCache{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

func (c *DynamoCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	out, err := c.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &c.tableName,
		Key:       keyOf(key),
	})
	if err != nil {
		return false, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return false, nil
	}
	var e entry
	if err := attributevalue.UnmarshalMap(out.Item, &e); err != nil {
		return false, fmt.Errorf("unmarshal entry: %w", err)
	}
	// TTL deletion is lazy: an expired entry may still be returned
	if e.ExpiresAt > 0 && c.nowFunc().Unix() >= e.ExpiresAt {
		return false, nil
	}
	if err := json.Unmarshal([]byte(e.Value), dest); err != nil {
		return false, fmt.Errorf("decode cached value: %w", err)
	}
	return true, nil
}

func (c *DynamoCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode value: %w", err)
	}
	e := entry{CacheKey: key, Value: string(raw)}
	if ttl > 0 {
		e.ExpiresAt = c.nowFunc().Add(ttl).Unix()
	}
	item, err := attributevalue.MarshalMap(e)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	if _, err := c.client.PutItem(ctx, &dyn.PutItemInput{TableName: &c.tableName, Item: item}); err != nil {
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

func (c *DynamoCache) Remove(ctx context.Context, key string) error {
	if _, err := c.client.DeleteItem(ctx, &dyn.DeleteItemInput{TableName: &c.tableName, Key: keyOf(key)}); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

func keyOf(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"cache_key": &types.AttributeValueMemberS{Value: key}}
}
