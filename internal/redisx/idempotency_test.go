package redisx

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestIdempotencyStore_LockRememberRecall(t *testing.T) {
	client, mr := setupRedis(t)
	store := NewIdempotencyStore(client, time.Hour)
	ctx := context.Background()

	ok, err := store.TryLock(ctx, "orders", "k1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.TryLock(ctx, "orders", "k1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, found, err := store.Recall(ctx, "orders", "k1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Remember(ctx, "orders", "k1", "order-1"))
	val, found, err := store.Recall(ctx, "orders", "k1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "order-1", val)

	mr.FastForward(2 * time.Hour)
	_, found, err = store.Recall(ctx, "orders", "k1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestIdempotencyStore_Unlock(t *testing.T) {
	client, _ := setupRedis(t)
	store := NewIdempotencyStore(client, time.Hour)
	ctx := context.Background()

	ok, err := store.TryLock(ctx, "orders", "k2")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, store.Unlock(ctx, "orders", "k2"))

	ok, err = store.TryLock(ctx, "orders", "k2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMarkOnce(t *testing.T) {
	client, _ := setupRedis(t)
	ctx := context.Background()

	first, err := MarkOnce(ctx, client, "dedup:x:1", time.Minute)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := MarkOnce(ctx, client, "dedup:x:1", time.Minute)
	require.NoError(t, err)
	assert.False(t, again)

	exists, err := Exists(ctx, client, "dedup:x:1")
	require.NoError(t, err)
	assert.True(t, exists)
}
