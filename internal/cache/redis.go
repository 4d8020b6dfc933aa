package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces every key this client writes.
const keyPrefix = "mlbv:"

// ErrMiss is returned by Get when the key is not cached.
var ErrMiss = errors.New("cache miss")

// RedisCache stores raw stats API responses for a short time.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to redisURL (redis://[:password@]host:port/db) and
// verifies the connection.
func NewRedisCache(ctx context.Context, redisURL string) (*RedisCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	client := redis.NewClient(opt)

	// Test connection
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Close closes the Redis connection
func (rc *RedisCache) Close() error {
	return rc.client.Close()
}

// Set stores value under key for ttl.
func (rc *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return rc.client.Set(ctx, keyPrefix+key, value, ttl).Err()
}

// Get returns the cached value of key, or ErrMiss.
func (rc *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := rc.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return b, err
}

// Delete removes keys.
func (rc *RedisCache) Delete(ctx context.Context, keys ...string) error {
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = keyPrefix + k
	}
	return rc.client.Del(ctx, prefixed...).Err()
}
