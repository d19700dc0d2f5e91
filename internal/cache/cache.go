package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"tastymeals/internal/logger"
)

// ErrMiss is returned when a key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Cache is a JSON read-through cache over Redis. Catalog reads go
// through it; admin writes invalidate the affected keys. A Redis
// failure is logged and treated as a miss so reads keep working.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, addr string, ttl time.Duration, log *logger.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	log.Info("cache_connected", "Connected to Redis", "", map[string]interface{}{
		"addr": addr,
		"ttl":  ttl.String(),
	})
	return &Cache{client: client, ttl: ttl, logger: log}, nil
}

// Get unmarshals the cached value at key into dest. Returns ErrMiss
// when no usable value is cached.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		c.logger.Error("cache_get_failed", "Redis read failed", "", err, map[string]interface{}{"key": key})
		return ErrMiss
	}
	if err := json.Unmarshal(data, dest); err != nil {
		// Stale encoding from an older build; drop it.
		c.client.Del(ctx, key)
		return ErrMiss
	}
	return nil
}

// Set stores value at key for the configured TTL. Failures are logged,
// not propagated.
func (c *Cache) Set(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Error("cache_set_failed", "Failed to marshal cache value", "", err, map[string]interface{}{"key": key})
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Error("cache_set_failed", "Redis write failed", "", err, map[string]interface{}{"key": key})
	}
}

// Invalidate removes keys matching each given pattern.
func (c *Cache) Invalidate(ctx context.Context, patterns ...string) {
	for _, pattern := range patterns {
		iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
		var keys []string
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			c.logger.Error("cache_invalidate_failed", "Redis scan failed", "", err, map[string]interface{}{"pattern": pattern})
			continue
		}
		if len(keys) > 0 {
			c.client.Del(ctx, keys...)
		}
	}
}

// Close releases the underlying client.
func (c *Cache) Close() error {
	return c.client.Close()
}
