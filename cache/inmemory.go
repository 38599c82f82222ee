package cache

import (
	"context"
	"sync"
)

type inMemoryCache struct {
	items map[string]string
	mutex sync.RWMutex
}

var _ Cache = (*inMemoryCache)(nil)

func (c *inMemoryCache) GetItem(_ context.Context, key string) (string, bool, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	val, ok := c.items[key]
	return val, ok, nil
}

func (c *inMemoryCache) SetItem(_ context.Context, key string, value string) error {
	c.mutex.Lock()
	c.items[key] = value
	c.mutex.Unlock()
	return nil
}

func (c *inMemoryCache) RemoveItem(_ context.Context, key string) error {
	c.mutex.Lock()
	delete(c.items, key)
	c.mutex.Unlock()
	return nil
}

func (c *inMemoryCache) Close() error {
	return nil
}

// NewInMemory returns a new in-memory Cache implementation.
func NewInMemory() Cache {
	return &inMemoryCache{items: make(map[string]string)}
}
