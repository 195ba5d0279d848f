package cache

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*RedisClient, *miniredis.Miniredis) {
	t.Helper()

	srv := miniredis.RunT(t)
	host, port, err := net.SplitHostPort(srv.Addr())
	require.NoError(t, err)

	client, err := NewRedisClient(RedisConfig{Host: host, Port: port, PoolSize: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client, srv
}

func TestRedisClient_SetGetDelete(t *testing.T) {
	client, _ := newTestRedis(t)
	ctx := context.Background()
	key := DefaultKeyBuilder.Short("abcd")

	_, err := client.Get(ctx, key)
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, client.Set(ctx, key, "https://example.com", time.Minute))

	value, err := client.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", value)

	require.NoError(t, client.Delete(ctx, key, ""))

	_, err = client.Get(ctx, key)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisClient_TTL(t *testing.T) {
	client, srv := newTestRedis(t)
	ctx := context.Background()
	key := DefaultKeyBuilder.Short("ttl1")

	require.NoError(t, client.Set(ctx, key, "https://example.com", 300*time.Second))

	assert.Equal(t, 300*time.Second, srv.TTL(key))

	srv.FastForward(301 * time.Second)

	_, err := client.Get(ctx, key)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisClient_Archive(t *testing.T) {
	client, srv := newTestRedis(t)
	ctx := context.Background()
	key := DefaultKeyBuilder.Archive("gone")

	err := client.Archive(ctx, key, map[string]string{"url": "https://example.com", "tag": "docs"})
	require.NoError(t, err)

	assert.Equal(t, "https://example.com", srv.HGet(key, "url"))
	assert.Equal(t, "docs", srv.HGet(key, "tag"))
}

func TestRedisClient_InvalidKey(t *testing.T) {
	client, _ := newTestRedis(t)

	_, err := client.Get(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidCacheKey)

	var cacheErr *CacheError
	require.True(t, errors.As(err, &cacheErr))
	assert.Equal(t, "get", cacheErr.Op)
}

func TestRedisClient_ServerDown(t *testing.T) {
	srv, err := miniredis.Run()
	require.NoError(t, err)
	host, port, err := net.SplitHostPort(srv.Addr())
	require.NoError(t, err)

	client, err := NewRedisClient(RedisConfig{Host: host, Port: port, PoolSize: 2})
	require.NoError(t, err)
	defer client.Close()

	srv.Close()

	_, err = client.Get(context.Background(), DefaultKeyBuilder.Short("abcd"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
	assert.Error(t, client.HealthCheck(context.Background()))
}
