package authz

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores computed permission sets keyed by (userID, tenantID).
// Entries expire by TTL and are deleted, never updated in place, when an
// assignment mutation touches the key. The cached value is a disposable
// derived view; dropping it at any time is always safe.
type Cache interface {
	Get(ctx context.Context, userID, tenantID string) ([]string, bool, error)
	Put(ctx context.Context, userID, tenantID string, perms []string, ttl time.Duration) error
	Invalidate(ctx context.Context, userID, tenantID string) error
}

// RedisCache implements Cache on Redis with native TTL eviction.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache constructs a RedisCache.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func cacheKey(userID, tenantID string) string {
	return "authz:perms:" + tenantID + ":" + userID
}

// Get fetches the cached permission set. A miss is (nil, false, nil).
func (c *RedisCache) Get(ctx context.Context, userID, tenantID string) ([]string, bool, error) {
	payload, err := c.client.Get(ctx, cacheKey(userID, tenantID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var perms []string
	if err := json.Unmarshal(payload, &perms); err != nil {
		return nil, false, err
	}
	return perms, true, nil
}

// Put stores a permission set with the given TTL. Last writer wins;
// concurrent recomputations write the same value.
func (c *RedisCache) Put(ctx context.Context, userID, tenantID string, perms []string, ttl time.Duration) error {
	payload, err := json.Marshal(perms)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKey(userID, tenantID), payload, ttl).Err()
}

// Invalidate deletes the cached entry for the key.
func (c *RedisCache) Invalidate(ctx context.Context, userID, tenantID string) error {
	return c.client.Del(ctx, cacheKey(userID, tenantID)).Err()
}

var _ Cache = (*RedisCache)(nil)
