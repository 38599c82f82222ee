package capability

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/agentuity/scriptcache/cache"
	"github.com/stretchr/testify/assert"
)

func TestGateMemoizes(t *testing.T) {
	var calls atomic.Int32
	g := NewGate(func() bool {
		calls.Add(1)
		return true
	})
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(t, g.Available())
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())
}

func TestGateNegativeIsMemoized(t *testing.T) {
	answer := false
	g := NewGate(func() bool { return answer })
	assert.False(t, g.Available())
	answer = true
	assert.False(t, g.Available())
}

func TestNilProbe(t *testing.T) {
	assert.False(t, NewGate(nil).Available())
	assert.True(t, Static(true).Available())
	assert.False(t, Static(false).Available())
}

type failingCache struct {
	cache.Cache
}

func (failingCache) SetItem(context.Context, string, string) error {
	return errors.New("quota exceeded")
}

func TestForCache(t *testing.T) {
	ctx := context.Background()
	assert.False(t, ForCache(ctx, nil).Available())
	assert.False(t, ForCache(ctx, failingCache{}).Available())

	c := cache.NewInMemory()
	assert.True(t, ForCache(ctx, c).Available())
}
