package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisOpTimeout = 2 * time.Second

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: redis ping: %w", err)
	}

	return client, nil
}

// Redis stores JSON-encoded values in Redis under a key prefix.
// Failures degrade to cache misses; they are logged, never returned.
type Redis[T any] struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedis creates a Redis-backed cache.
func NewRedis[T any](client *redis.Client, prefix string, ttl time.Duration, logger *zap.Logger) *Redis[T] {
	return &Redis[T]{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *Redis[T]) key(k string) string {
	return c.prefix + k
}

// Get retrieves and decodes a value. Returns false on miss or any error.
func (c *Redis[T]) Get(key string) (T, bool) {
	var zero T

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err == redis.Nil {
		return zero, false
	}
	if err != nil {
		c.logger.Warn("cache: redis get failed", zap.String("key", key), zap.Error(err))
		return zero, false
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		c.logger.Warn("cache: redis value undecodable", zap.String("key", key), zap.Error(err))
		return zero, false
	}
	return v, true
}

// Set encodes and stores a value with the configured TTL.
func (c *Redis[T]) Set(key string, value T) {
	if c.ttl <= 0 {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("cache: redis value unencodable", zap.String("key", key), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := c.client.Set(ctx, c.key(key), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("cache: redis set failed", zap.String("key", key), zap.Error(err))
	}
}

// Delete removes a value.
func (c *Redis[T]) Delete(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		c.logger.Warn("cache: redis delete failed", zap.String("key", key), zap.Error(err))
	}
}

// Ping reports whether Redis is reachable.
func (c *Redis[T]) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
