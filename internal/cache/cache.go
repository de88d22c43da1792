package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// CacheKeyPrefix is the Redis key prefix for cached data
	CacheKeyPrefix = "cache:"
	// MaxCacheTTL caps how long anything stays cached.
	MaxCacheTTL = time.Hour
)

// Cache stores JSON values in Redis with a bounded TTL.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New returns a cache whose entries live for ttl (clamped to MaxCacheTTL). A
// zero ttl disables caching; Get always misses and Set is a no-op.
func New(client *redis.Client, ttl time.Duration) *Cache {
	if ttl > MaxCacheTTL {
		ttl = MaxCacheTTL
	}
	return &Cache{client: client, ttl: ttl}
}

// Get decodes the cached value into dest. Misses return false with a nil error.
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	if c == nil || c.ttl <= 0 {
		return false, nil
	}

	val, err := c.client.Get(ctx, CacheKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get: %w", err)
	}

	if err := json.Unmarshal(val, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value any) error {
	if c == nil || c.ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, CacheKeyPrefix+key, data, c.ttl).Err()
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	if c == nil {
		return nil
	}
	return c.client.Del(ctx, CacheKeyPrefix+key).Err()
}

// Key builds a cache key for a resource. The identifier is hashed so secrets
// such as access tokens never appear in Redis key names.
func Key(resource string, identifier string) string {
	sum := sha256.Sum256([]byte(identifier))
	return fmt.Sprintf("%s:%s", resource, hex.EncodeToString(sum[:16]))
}
