package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"hermannm.dev/wrap"
)

// RedisCache stores entries in Redis, under keys with a common prefix. Implements Cache.
type RedisCache struct {
	client    *redis.Client
	keyPrefix string
}

func NewRedisCache(redisURL string, keyPrefix string) (*RedisCache, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, wrap.Error(err, "invalid Redis URL")
	}

	return NewRedisCacheFromClient(redis.NewClient(options), keyPrefix), nil
}

func NewRedisCacheFromClient(client *redis.Client, keyPrefix string) *RedisCache {
	return &RedisCache{client: client, keyPrefix: keyPrefix}
}

func (cache *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := cache.client.Get(ctx, cache.keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, wrap.Error(err, "Redis GET failed")
	}

	return value, true, nil
}

func (cache *RedisCache) SetEx(
	ctx context.Context,
	key string,
	ttl time.Duration,
	value []byte,
) error {
	if err := cache.client.SetEx(ctx, cache.keyPrefix+key, value, ttl).Err(); err != nil {
		return wrap.Error(err, "Redis SETEX failed")
	}
	return nil
}

func (cache *RedisCache) Ping(ctx context.Context) error {
	return cache.client.Ping(ctx).Err()
}

func (cache *RedisCache) Close() error {
	return cache.client.Close()
}
