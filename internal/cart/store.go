package cart

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
)

type Store interface {
	Load(ctx context.Context, session string) (Cart, error)
	Save(ctx context.Context, session string, c Cart) error
	Delete(ctx context.Context, session string) error
}

type RedisStore struct {
	client  *redis.Client
	baseTTL time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, baseTTL: ttl}
}

// Load returns an empty cart when nothing is stored for the session.
func (r *RedisStore) Load(ctx context.Context, session string) (Cart, error) {
	data, err := r.client.Get(ctx, cartKey(session)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Cart{}, nil
	}
	if err != nil {
		return Cart{}, fmt.Errorf("redis get failed: %w", err)
	}
	return Unmarshal(data)
}

func (r *RedisStore) Save(ctx context.Context, session string, c Cart) error {
	if c.IsEmpty() {
		return r.Delete(ctx, session)
	}
	data, err := c.Marshal()
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	jitter := time.Duration(rand.Intn(5)) * time.Minute
	if err := r.client.Set(ctx, cartKey(session), data, r.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, session string) error {
	if err := r.client.Del(ctx, cartKey(session)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cartKey(session string) string {
	return fmt.Sprintf("cart:%s", session)
}
