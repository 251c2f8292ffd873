// Package cache provides the shared Redis client.
// This is part of the platform layer and contains no business logic.
package cache

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"lead_router_backend/platform/config"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to the configured Redis URL. It returns nil when
// no URL is configured so callers can run without a cache.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, nil
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if cfg.GetRedisTLSInsecure() {
		if opt.TLSConfig != nil {
			opt.TLSConfig = opt.TLSConfig.Clone()
			opt.TLSConfig.InsecureSkipVerify = true
		} else {
			opt.TLSConfig = &tls.Config{InsecureSkipVerify: true}
		}
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// JSON stores one JSON document under a fixed key with a TTL.
type JSON[T any] struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
}

// NewJSON creates a typed JSON cache entry. A zero ttl keeps the value until
// it is overwritten or deleted.
func NewJSON[T any](client redis.Cmdable, key string, ttl time.Duration) *JSON[T] {
	return &JSON[T]{client: client, key: key, ttl: ttl}
}

// Get returns the cached value and whether it was present.
func (c *JSON[T]) Get(ctx context.Context) (T, bool, error) {
	var zero T
	raw, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("cache get %s: %w", c.key, err)
	}

	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		// A value we cannot decode is treated as a miss and dropped.
		_ = c.client.Del(ctx, c.key).Err()
		return zero, false, nil
	}
	return value, true, nil
}

func (c *JSON[T]) Set(ctx context.Context, value T) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", c.key, err)
	}
	if err := c.client.Set(ctx, c.key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", c.key, err)
	}
	return nil
}

// SetIfAbsent writes value only when the key is empty and reports whether it
// did. Read-through fills use it so they never replace a newer write.
func (c *JSON[T]) SetIfAbsent(ctx context.Context, value T) (bool, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("cache encode %s: %w", c.key, err)
	}
	ok, err := c.client.SetNX(ctx, c.key, raw, c.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("cache setnx %s: %w", c.key, err)
	}
	return ok, nil
}

func (c *JSON[T]) Delete(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("cache delete %s: %w", c.key, err)
	}
	return nil
}
