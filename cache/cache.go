package cache

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

// Cache is a persistent string key-value medium. GetItem reports found=false
// for a missing key; it is not an error.
type Cache interface {
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key string, value string) error
	RemoveItem(ctx context.Context, key string) error
	Close() error
}

// DefaultQueryTimeout is the per-operation timeout for cache backends that
// perform I/O (SQLite, Redis).
const DefaultQueryTimeout = 5 * time.Second

// ErrUnsupportedDSN is returned by Open for an unrecognized scheme.
var ErrUnsupportedDSN = errors.New("cache: unsupported dsn")

type config struct {
	queryTimeout time.Duration
	prefix       string
}

// Option configures a Cache implementation.
type Option func(*config)

func applyOptions(opts []Option) config {
	cfg := config{queryTimeout: DefaultQueryTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithQueryTimeout sets the per-operation timeout for I/O-backed caches.
func WithQueryTimeout(d time.Duration) Option {
	return func(c *config) { c.queryTimeout = d }
}

// WithPrefix sets the key prefix for namespacing cache keys.
// Applies to the Redis backend.
func WithPrefix(p string) Option {
	return func(c *config) { c.prefix = p }
}

// Open builds a Cache from a dsn:
//
//	none | ""          storage unavailable (nil Cache)
//	memory:            in-process map
//	sqlite:<path>      SQLite file, or sqlite::memory:
//	redis://...        Redis, keys prefixed with "scriptcache"
//
// Several dsns separated by commas are layered with NewComposite, the first
// one consulted first. A nil Cache with a nil error means no storage is
// configured.
func Open(ctx context.Context, dsn string, opts ...Option) (Cache, error) {
	if strings.Contains(dsn, ",") {
		return openComposite(ctx, strings.Split(dsn, ","), opts)
	}
	switch {
	case dsn == "" || dsn == "none":
		return nil, nil
	case dsn == "memory:" || dsn == "memory":
		return NewInMemory(), nil
	case strings.HasPrefix(dsn, "sqlite:"):
		return NewSQLite(ctx, strings.TrimPrefix(dsn, "sqlite:"), opts...)
	case strings.HasPrefix(dsn, "redis://"), strings.HasPrefix(dsn, "rediss://"):
		ropts, err := redis.ParseURL(dsn)
		if err != nil {
			return nil, errors.Wrap(err, "cache: parse redis url")
		}
		return newOwnedRedis(redis.NewClient(ropts), append([]Option{WithPrefix("scriptcache")}, opts...)...), nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedDSN, "%q", dsn)
	}
}

func openComposite(ctx context.Context, dsns []string, opts []Option) (Cache, error) {
	var layers []Cache
	for _, dsn := range dsns {
		c, err := Open(ctx, strings.TrimSpace(dsn), opts...)
		if err != nil {
			for _, l := range layers {
				l.Close()
			}
			return nil, err
		}
		if c != nil {
			layers = append(layers, c)
		}
	}
	if len(layers) == 0 {
		return nil, nil
	}
	return NewComposite(layers...), nil
}
