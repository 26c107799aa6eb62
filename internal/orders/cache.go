package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-restaurant-orders/internal/redisx"
)

var ErrCacheMiss = errors.New("cache miss")

type StatusCache interface {
	Get(ctx context.Context, orderID string) (StatusView, error)
	Set(ctx context.Context, v StatusView) error
}

type RedisStatusCache struct {
	rdb *redis.Client
}

func NewRedisStatusCache(rdb *redis.Client) *RedisStatusCache {
	return &RedisStatusCache{rdb: rdb}
}

func (c *RedisStatusCache) Get(ctx context.Context, orderID string) (StatusView, error) {
	b, err := c.rdb.Get(ctx, fmt.Sprintf(redisx.KeyOrderStatus, orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return StatusView{}, ErrCacheMiss
	}
	if err != nil {
		return StatusView{}, fmt.Errorf("redis get failed: %w", err)
	}
	var v StatusView
	if err := json.Unmarshal(b, &v); err != nil {
		return StatusView{}, fmt.Errorf("unmarshal status failed: %w", err)
	}
	return v, nil
}

func (c *RedisStatusCache) Set(ctx context.Context, v StatusView) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal status failed: %w", err)
	}
	key := fmt.Sprintf(redisx.KeyOrderStatus, v.OrderID)
	if err := c.rdb.Set(ctx, key, b, redisx.TTLStatusCache).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}
