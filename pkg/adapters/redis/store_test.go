package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/tendril/pkg/adapters/redis"
	"github.com/aretw0/tendril/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunKeyValueStoreContract(t, redis.NewFromClient(client))
}

func TestRedisStore_JSONValues(t *testing.T) {
	_, client := newClient(t)
	store := redis.NewFromClient(client)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "order", map[string]any{"total": 42, "items": []string{"a"}}))

	val, ok, err := store.Get(ctx, "order")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"total": float64(42), "items": []any{"a"}}, val)
}

func TestRedisStore_TTL(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithTTL(time.Hour))
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "ephemeral", "x"))
	assert.True(t, mr.Exists(redis.DefaultPrefix+"ephemeral"))

	mr.FastForward(2 * time.Hour)

	_, ok, err := store.Get(ctx, "ephemeral")
	require.NoError(t, err)
	assert.False(t, ok, "expired entries read as absent")

	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)
	a := redis.NewFromClient(client, redis.WithPrefix("a:"))
	b := redis.NewFromClient(client, redis.WithPrefix("b:"))
	ctx := context.Background()

	require.NoError(t, a.Put(ctx, "shared", 1))
	assert.True(t, mr.Exists("a:shared"))

	_, ok, err := b.Get(ctx, "shared")
	require.NoError(t, err)
	assert.False(t, ok, "prefixes isolate store areas")

	require.NoError(t, a.Delete(ctx, "shared"))
	keys, err := a.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}
