// Package cache defines the key/value cache port and its DynamoDB, Redis and in-memory backends.
// Values are stored as JSON.
package cache

import (
	"context"
	"strconv"
	"time"
)

// KeyAllOrders caches the full order listing.
const KeyAllOrders = "all_orders"

// Cache is a key/value store with optional expiry.
type Cache interface {
	// Get unmarshals the cached value into dest. found=false on a miss; dest is left untouched.
	Get(ctx context.Context, key string, dest any) (found bool, err error)
	// Set stores value under key. A zero ttl means no expiry.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	// Remove deletes key; removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}

var (
	_ Cache = (*DynamoCache)(nil)
	_ Cache = (*RedisCache)(nil)
	_ Cache = (*MemoryCache)(nil)
)

// ttlString renders ttl for log fields.
func ttlString(ttl time.Duration) string {
	if ttl <= 0 {
		return "none"
	}
	return strconv.FormatFloat(ttl.Seconds(), 'f', -1, 64) + "s"
}
