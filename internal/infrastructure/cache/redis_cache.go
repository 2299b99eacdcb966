package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"dealroom/internal/domain/service"
)

type RedisCache struct {
	client *redis.Client
}

var _ service.Cache = (*RedisCache)(nil)

// NewRedisClient creates a client and checks the connection.
func NewRedisClient(ctx context.Context, address, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, service.ErrCacheMiss
		}
		return nil, err
	}
	return value, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *RedisCache) ListRange(ctx context.Context, key string, start, stop int64) ([][]byte, error) {
	var (
		exists *redis.IntCmd
		values *redis.StringSliceCmd
	)

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		exists = pipe.Exists(ctx, key)
		values = pipe.LRange(ctx, key, start, stop)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if exists.Val() == 0 {
		return nil, service.ErrCacheMiss
	}

	out := make([][]byte, 0, len(values.Val()))
	for _, v := range values.Val() {
		out = append(out, []byte(v))
	}
	return out, nil
}

func (c *RedisCache) ListReplace(ctx context.Context, key string, values [][]byte, ttl time.Duration) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(values) == 0 {
			return nil
		}
		args := make([]interface{}, len(values))
		for i, v := range values {
			args[i] = v
		}
		pipe.RPush(ctx, key, args...)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	return err
}

func (c *RedisCache) ListAppend(ctx context.Context, key string, value []byte, window int64, ttl time.Duration) (bool, error) {
	var pushed *redis.IntCmd

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pushed = pipe.RPushX(ctx, key, value)
		pipe.LTrim(ctx, key, -window, -1)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return false, err
	}

	return pushed.Val() > 0, nil
}

func (c *RedisCache) SetAdd(ctx context.Context, key, member string, ttl time.Duration) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, key, member)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	return err
}

func (c *RedisCache) SetRemove(ctx context.Context, key, member string) error {
	return c.client.SRem(ctx, key, member).Err()
}

func (c *RedisCache) SetMembers(ctx context.Context, key string) ([]string, error) {
	return c.client.SMembers(ctx, key).Result()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
