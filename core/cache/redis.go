package cache

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"
	"waitlist-service/core/logger"

	"github.com/redis/go-redis/v9"
)

var compareAndDeleteScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisCache struct {
	client *redis.Client
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisCache(cfg RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Cache:NewRedisCache:PingError", "addr", cfg.Addr, "error", err)
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	logger.Info("Redis initialized successfully", "addr", cfg.Addr, "db", cfg.DB)
	return &RedisCache{client: client}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, key).Result()
	if stderrors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	return val, err
}

func (c *RedisCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *RedisCache) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return c.client.Expire(ctx, key, ttl).Err()
}

func (c *RedisCache) SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, key, value, ttl).Result()
}

func (c *RedisCache) CompareAndDelete(ctx context.Context, key string, value string) (bool, error) {
	n, err := compareAndDeleteScript.Run(ctx, c.client, []string{key}, value).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
