// Package cache provides a Redis read-through cache for KPI lookups, so
// repeated metric questions in a chat session skip the database.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrCacheMiss means no cached value exists for the key.
var ErrCacheMiss = errors.New("cache miss")

// Cache wraps a Redis client for metric caching.
type Cache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// New connects to Redis and returns a Cache. Entries expire after ttl.
func New(redisURL string, ttl time.Duration, logger *zap.Logger) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{rdb: rdb, ttl: ttl, logger: logger}, nil
}

func metricKey(name, period string) string {
	return "pipewise:metric:" + name + ":" + period
}

// GetMetric returns the cached value for a metric/period pair, decoded into v.
func (c *Cache) GetMetric(ctx context.Context, name, period string, v any) error {
	data, err := c.rdb.Get(ctx, metricKey(name, period)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("cache get %s/%s: %w", name, period, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("cache decode %s/%s: %w", name, period, err)
	}
	return nil
}

// PutMetric stores a metric value under its name/period key.
func (c *Cache) PutMetric(ctx context.Context, name, period string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache encode %s/%s: %w", name, period, err)
	}
	if err := c.rdb.Set(ctx, metricKey(name, period), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache put %s/%s: %w", name, period, err)
	}
	c.logger.Debug("metric cached",
		zap.String("metric", name), zap.String("period", period))
	return nil
}

// Ping checks Redis connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Client exposes the underlying Redis client for shared use (telemetry).
func (c *Cache) Client() *redis.Client {
	return c.rdb
}

// Close shuts down the Redis connection.
func (c *Cache) Close() error {
	return c.rdb.Close()
}
