package cache

import (
	"context"

	"github.com/redis/go-redis/v9"
)

type redisCache struct {
	client *redis.Client
	owned  bool
	cfg    config
}

var _ Cache = (*redisCache)(nil)

// NewRedis returns a new Cache backed by Redis.
// The caller owns the redis.Client; Close leaves it open.
func NewRedis(client *redis.Client, opts ...Option) Cache {
	return &redisCache{client: client, cfg: applyOptions(opts)}
}

func newOwnedRedis(client *redis.Client, opts ...Option) Cache {
	return &redisCache{client: client, owned: true, cfg: applyOptions(opts)}
}

func (c *redisCache) queryCtx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, c.cfg.queryTimeout)
}

func (c *redisCache) prefixKey(key string) string {
	if c.cfg.prefix == "" {
		return key
	}
	return c.cfg.prefix + ":" + key
}

func (c *redisCache) GetItem(ctx context.Context, key string) (string, bool, error) {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	val, err := c.client.Get(qctx, c.prefixKey(key)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// SetItem stores without a Redis TTL; expiry is decided from the entry's
// creation time by the reader.
func (c *redisCache) SetItem(ctx context.Context, key string, value string) error {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	return c.client.Set(qctx, c.prefixKey(key), value, 0).Err()
}

func (c *redisCache) RemoveItem(ctx context.Context, key string) error {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	return c.client.Del(qctx, c.prefixKey(key)).Err()
}

func (c *redisCache) Close() error {
	if c.owned {
		return c.client.Close()
	}
	return nil
}
