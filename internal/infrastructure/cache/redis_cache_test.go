package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealroom/internal/domain/service"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCache(client), mr
}

func TestRedisCacheGetSet(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, service.ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))

	mr.FastForward(2 * time.Minute)
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, service.ErrCacheMiss)
}

func TestRedisCacheListAppendOnlyExtendsExistingList(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	ok, err := c.ListAppend(ctx, "l", []byte("x"), 3, time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = c.ListRange(ctx, "l", 0, -1)
	assert.ErrorIs(t, err, service.ErrCacheMiss)

	require.NoError(t, c.ListReplace(ctx, "l", [][]byte{[]byte("1"), []byte("2")}, time.Hour))
	for _, v := range []string{"3", "4"} {
		ok, err = c.ListAppend(ctx, "l", []byte(v), 3, time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	values, err := c.ListRange(ctx, "l", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("2"), []byte("3"), []byte("4")}, values)
}

func TestRedisCacheListReplaceSetsExpiry(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.ListReplace(ctx, "l", [][]byte{[]byte("a")}, time.Minute))
	assert.Equal(t, time.Minute, mr.TTL("l"))

	mr.FastForward(time.Minute + time.Second)
	_, err := c.ListRange(ctx, "l", 0, -1)
	assert.ErrorIs(t, err, service.ErrCacheMiss)
}

func TestRedisCacheSets(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetAdd(ctx, "s", "u1", time.Hour))
	require.NoError(t, c.SetAdd(ctx, "s", "u2", time.Hour))
	require.NoError(t, c.SetAdd(ctx, "s", "u1", time.Hour))

	members, err := c.SetMembers(ctx, "s")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u1", "u2"}, members)
	assert.Equal(t, time.Hour, mr.TTL("s"))

	require.NoError(t, c.SetRemove(ctx, "s", "u1"))
	members, err = c.SetMembers(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, members)
}

func TestRedisCacheReportsUnavailable(t *testing.T) {
	c, mr := newTestCache(t)
	mr.Close()

	_, err := c.Get(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, service.ErrCacheMiss)
}
