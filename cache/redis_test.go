package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	return mr, client
}

func TestRedisSetGetRemove(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)
	defer client.Close()
	c := NewRedis(client)
	defer c.Close()

	_, found, err := c.GetItem(ctx, "key")
	assert.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, c.SetItem(ctx, "key", "value"))
	val, found, err := c.GetItem(ctx, "key")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "value", val)

	assert.NoError(t, c.RemoveItem(ctx, "key"))
	_, found, err = c.GetItem(ctx, "key")
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestRedisPrefixAndNoTTL(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	defer client.Close()
	c := NewRedis(client, WithPrefix("scripts"))

	require.NoError(t, c.SetItem(ctx, "/js/a.js", "a"))
	assert.True(t, mr.Exists("scripts:/js/a.js"))
	assert.False(t, mr.Exists("/js/a.js"))
	assert.Equal(t, int64(0), int64(mr.TTL("scripts:/js/a.js")))

	// Close must not close a caller-owned client.
	assert.NoError(t, c.Close())
	assert.NoError(t, client.Ping(ctx).Err())
}

func TestRedisErrorPropagates(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	defer client.Close()
	c := NewRedis(client)
	mr.Close()

	_, _, err := c.GetItem(ctx, "key")
	assert.Error(t, err)
	assert.Error(t, c.SetItem(ctx, "key", "v"))
}

func TestOpenRedis(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	c, err := Open(ctx, "redis://"+mr.Addr())
	require.NoError(t, err)
	require.NoError(t, c.SetItem(ctx, "k", "v"))
	assert.True(t, mr.Exists("scriptcache:k"))
	assert.NoError(t, c.Close())
}
