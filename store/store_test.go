package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/agentuity/scriptcache/cache"
	"github.com/agentuity/scriptcache/capability"
	"github.com/agentuity/scriptcache/config"
	"github.com/agentuity/scriptcache/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// spyCache records every call that reaches the medium.
type spyCache struct {
	cache.Cache
	mu    sync.Mutex
	calls []string
}

func newSpy() *spyCache {
	return &spyCache{Cache: cache.NewInMemory()}
}

func (s *spyCache) record(op string) {
	s.mu.Lock()
	s.calls = append(s.calls, op)
	s.mu.Unlock()
}

func (s *spyCache) GetItem(ctx context.Context, key string) (string, bool, error) {
	s.record("get " + key)
	return s.Cache.GetItem(ctx, key)
}

func (s *spyCache) SetItem(ctx context.Context, key, value string) error {
	s.record("set " + key)
	return s.Cache.SetItem(ctx, key, value)
}

func (s *spyCache) RemoveItem(ctx context.Context, key string) error {
	s.record("remove " + key)
	return s.Cache.RemoveItem(ctx, key)
}

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newStore(t *testing.T, medium cache.Cache, available bool, opts ...Option) (*Store, *config.Config, *time.Time) {
	t.Helper()
	cfg := config.New()
	now := epoch
	opts = append([]Option{WithClock(func() time.Time { return now })}, opts...)
	s := New(context.Background(), logger.NewTestLogger(), cfg, medium, capability.Static(available), opts...)
	return s, cfg, &now
}

func TestIsExpired(t *testing.T) {
	s, cfg, now := newStore(t, cache.NewInMemory(), true)
	require.NoError(t, cfg.SetOption(config.OptionCacheDuration, 1800))

	created := *now
	assert.False(t, s.IsExpired(Entry{Created: created}))

	*now = created.Add(1800 * time.Second)
	assert.False(t, s.IsExpired(Entry{Created: created}), "exactly ttl old is still fresh")

	*now = created.Add(1801 * time.Second)
	assert.True(t, s.IsExpired(Entry{Created: created}))

	assert.True(t, s.IsExpired(Entry{Data: "x"}), "unknown age is expired")
}

func TestWriteReadRoundTrip(t *testing.T) {
	for name, codec := range map[string]Codec{"json": JSONCodec, "msgpack": MsgpackCodec} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s, _, now := newStore(t, cache.NewInMemory(), true, WithCodec(codec))
			e := Entry{Data: "console.log('hi')", Created: now.Add(-time.Minute)}
			require.NoError(t, s.Write(ctx, "/js/a.js", e))

			assert.True(t, s.Exists(ctx, "/js/a.js"))
			got, ok := s.Read(ctx, "/js/a.js")
			require.True(t, ok)
			assert.Equal(t, e.Data, got.Data)
			assert.True(t, e.Created.Equal(got.Created))

			fresh, ok := s.Fresh(ctx, "/js/a.js")
			assert.True(t, ok)
			assert.Equal(t, e.Data, fresh.Data)
		})
	}
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	s, _, now := newStore(t, cache.NewInMemory(), true)
	require.NoError(t, s.Write(ctx, "k", Entry{Data: "x", Created: *now}))
	require.NoError(t, s.Remove(ctx, "k"))
	assert.False(t, s.Exists(ctx, "k"))
}

func TestRemoveMissingLeavesStorageUntouched(t *testing.T) {
	ctx := context.Background()
	spy := newSpy()
	s, _, _ := newStore(t, spy, true)
	assert.NoError(t, s.Remove(ctx, "missing"))
	assert.Equal(t, []string{"get missing"}, spy.calls)
}

func TestUnavailableIsNoop(t *testing.T) {
	ctx := context.Background()
	spy := newSpy()
	s, _, now := newStore(t, spy, false)

	assert.False(t, s.Available())
	assert.NoError(t, s.Write(ctx, "k", Entry{Data: "x", Created: *now}))
	assert.False(t, s.Exists(ctx, "k"))
	_, ok := s.Read(ctx, "k")
	assert.False(t, ok)
	assert.NoError(t, s.Remove(ctx, "k"))
	assert.Empty(t, spy.calls)
}

func TestMalformedEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	medium := cache.NewInMemory()
	s, _, _ := newStore(t, medium, true)

	for key, raw := range map[string]string{
		"garbage":  "not json",
		"no-data":  `{"created":"2024-05-01T12:00:00Z"}`,
		"bad-data": `{"data":42}`,
		"null":     "null",
	} {
		require.NoError(t, medium.SetItem(ctx, key, raw))
		_, ok := s.Read(ctx, key)
		assert.False(t, ok, key)
	}
}

func TestMissingCreatedIsExpired(t *testing.T) {
	ctx := context.Background()
	medium := cache.NewInMemory()
	s, _, _ := newStore(t, medium, true)

	require.NoError(t, medium.SetItem(ctx, "a", `{"data":"x"}`))
	require.NoError(t, medium.SetItem(ctx, "b", `{"data":"x","created":"yesterday"}`))
	for _, key := range []string{"a", "b"} {
		e, ok := s.Read(ctx, key)
		require.True(t, ok)
		assert.True(t, e.Created.IsZero())
		assert.True(t, s.IsExpired(e))
		_, ok = s.Fresh(ctx, key)
		assert.False(t, ok)
	}
}

func TestReadsBrowserEnvelope(t *testing.T) {
	ctx := context.Background()
	medium := cache.NewInMemory()
	s, _, _ := newStore(t, medium, true)
	require.NoError(t, medium.SetItem(ctx, "/js/a.js", `{"data":"var a=1;","created":"2024-05-01T11:45:00.000Z"}`))

	e, ok := s.Fresh(ctx, "/js/a.js")
	require.True(t, ok)
	assert.Equal(t, "var a=1;", e.Data)
	assert.True(t, epoch.Add(-15*time.Minute).Equal(e.Created))
}

func TestGateProbedWhenNil(t *testing.T) {
	s := New(context.Background(), logger.NewTestLogger(), config.New(), nil, nil)
	assert.False(t, s.Available())

	s = New(context.Background(), logger.NewTestLogger(), config.New(), cache.NewInMemory(), nil)
	assert.True(t, s.Available())
}
