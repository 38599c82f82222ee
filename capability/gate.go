// Package capability answers, once per process, whether persistent storage is
// usable.
package capability

import (
	"context"
	"sync"
	"time"

	"github.com/agentuity/scriptcache/cache"
	"github.com/google/uuid"
)

// Probe inspects the environment. It must not panic; "not available" is a
// valid answer.
type Probe func() bool

// Gate memoizes the result of its probe. The probe runs on the first call to
// Available and never again.
type Gate struct {
	probe     Probe
	once      sync.Once
	available bool
}

// NewGate returns a Gate backed by probe. A nil probe reports unavailable.
func NewGate(probe Probe) *Gate {
	return &Gate{probe: probe}
}

// Static returns a Gate with a fixed answer.
func Static(available bool) *Gate {
	return NewGate(func() bool { return available })
}

// Available reports whether storage is usable.
func (g *Gate) Available() bool {
	g.once.Do(func() {
		if g.probe != nil {
			g.available = g.probe()
		}
	})
	return g.available
}

const probeTimeout = 2 * time.Second

// ForCache probes a key-value medium by writing and removing a throwaway key.
// A nil medium is unavailable.
func ForCache(ctx context.Context, c cache.Cache) *Gate {
	return NewGate(func() bool {
		if c == nil {
			return false
		}
		pctx, cancel := context.WithTimeout(ctx, probeTimeout)
		defer cancel()
		key := "__scriptcache_probe_" + uuid.NewString()
		if err := c.SetItem(pctx, key, key); err != nil {
			return false
		}
		return c.RemoveItem(pctx, key) == nil
	})
}
