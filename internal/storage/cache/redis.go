package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redisapp "kansetsu/internal/storage/redis"

	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client *redisapp.Client
	prefix string
}

func NewRedisCache(client *redisapp.Client, prefix string) *RedisCache {
	return &RedisCache{
		client: client,
		prefix: prefix,
	}
}

func (c *RedisCache) key(k string) string {
	return c.prefix + k
}

func (c *RedisCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	const op = "cache.RedisCache.Get"

	b, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if err := json.Unmarshal(b, dst); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	const op = "cache.RedisCache.Set"

	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := c.client.Set(ctx, c.key(key), b, ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	const op = "cache.RedisCache.Delete"

	if len(keys) == 0 {
		return nil
	}

	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, c.key(k))
	}

	if err := c.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
