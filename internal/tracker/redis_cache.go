package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/danmuck/milestonectl/internal/milestone"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "milestonectl:proposal:"

// RedisCache shares decoded proposals between tracker instances.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a cache backed by the Redis server at addr.
func NewRedisCache(addr, password string, db int, ttl time.Duration) *RedisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisCache{client: rdb, ttl: ttl}
}

func (c *RedisCache) Name() string { return "redis" }

// Ping checks the server is reachable.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) Get(ctx context.Context, hash string) ([]milestone.Milestone, bool, error) {
	data, err := c.client.Get(ctx, redisKeyPrefix+hash).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis proposal cache get: %w", err)
	}
	ms, err := unmarshalSnapshot(data)
	if err != nil {
		return nil, false, fmt.Errorf("redis proposal cache decode: %w", err)
	}
	return ms, true, nil
}

func (c *RedisCache) Put(ctx context.Context, hash string, ms []milestone.Milestone) error {
	data, err := marshalSnapshot(ms)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, redisKeyPrefix+hash, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis proposal cache set: %w", err)
	}
	return nil
}
