package cache

import (
	"context"
)

type compositeCache struct {
	caches []Cache
}

var _ Cache = (*compositeCache)(nil)

// NewComposite returns a Cache that chains multiple caches together.
// GetItem checks caches in order and returns the first hit; a failing
// layer is skipped.
// SetItem and RemoveItem apply to all caches.
// At least one cache must be provided; panics if empty.
func NewComposite(caches ...Cache) Cache {
	if len(caches) == 0 {
		panic("cache: NewComposite requires at least one cache")
	}
	return &compositeCache{caches: caches}
}

// GetItem skips a layer that fails and asks the next one. The error is
// reported only when no layer could answer.
func (c *compositeCache) GetItem(ctx context.Context, key string) (string, bool, error) {
	var firstErr error
	answered := false
	for _, cache := range c.caches {
		val, found, err := cache.GetItem(ctx, key)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if found {
			return val, true, nil
		}
		answered = true
	}
	if answered {
		return "", false, nil
	}
	return "", false, firstErr
}

func (c *compositeCache) SetItem(ctx context.Context, key string, value string) error {
	var firstErr error
	for _, cache := range c.caches {
		if err := cache.SetItem(ctx, key, value); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (c *compositeCache) RemoveItem(ctx context.Context, key string) error {
	var firstErr error
	for _, cache := range c.caches {
		if err := cache.RemoveItem(ctx, key); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (c *compositeCache) Close() error {
	var firstErr error
	for _, cache := range c.caches {
		if err := cache.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
