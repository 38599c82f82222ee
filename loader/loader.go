// Package loader is the public entry point: it decides for every requested
// script whether to serve stored text, fetch and store it, or load it by
// reference, and activates the results in request order.
package loader

import (
	"context"
	"sync"

	"github.com/agentuity/scriptcache/config"
	"github.com/agentuity/scriptcache/inject"
	"github.com/agentuity/scriptcache/logger"
	"github.com/agentuity/scriptcache/store"
	"golang.org/x/sync/errgroup"
)

// Fetcher retrieves script text.
type Fetcher interface {
	Fetch(ctx context.Context, path string) (string, error)
}

// Loader orchestrates the store, the fetcher and the injection queue.
type Loader struct {
	cfg     *config.Config
	store   *store.Store
	fetcher Fetcher
	queue   *inject.Queue
	logger  logger.Logger
	submit  sync.Mutex
}

// New returns a Loader. The queue is shared by every request.
func New(log logger.Logger, cfg *config.Config, st *store.Store, fetcher Fetcher, queue *inject.Queue) *Loader {
	return &Loader{
		cfg:     cfg,
		store:   st,
		fetcher: fetcher,
		queue:   queue,
		logger:  log.WithPrefix("[loader]"),
	}
}

// SetOption changes a configuration setting.
func (l *Loader) SetOption(name string, value any) error {
	return l.cfg.SetOption(name, value)
}

// Remove deletes the stored entry for path. A missing entry is not an error.
func (l *Loader) Remove(ctx context.Context, path string) error {
	return l.store.Remove(ctx, l.cfg.Resolve(path))
}

// RequireOne requests a single plain path.
func (l *Loader) RequireOne(ctx context.Context, path string, noCache bool, onComplete func([]Outcome)) {
	l.Require(ctx, []Item{Path(path)}, noCache, onComplete)
}

// Require loads items and returns once stored entries have been consulted;
// fetches never block the caller. noCache bypasses storage for plain items.
// Fetches run concurrently, but scripts are activated in the
// order of items. onComplete, if set, receives one Outcome per item once all
// of them have been activated or have failed.
func (l *Loader) Require(ctx context.Context, items []Item, noCache bool, onComplete func([]Outcome)) {
	outcomes := make([]Outcome, len(items))
	slots := make([]*inject.Task, len(items))
	available := l.store.Available()
	var fetches []func() error

	for i, it := range items {
		resolved := l.cfg.Resolve(it.File)
		outcomes[i].Path = resolved
		done := func(err error) {
			if err != nil {
				outcomes[i].Err = err
			}
		}

		switch {
		case !available, it.Structured:
			outcomes[i].Action = ActionReference
			slots[i] = ptr(inject.Reference(resolved, done))
		case noCache:
			outcomes[i].Action = ActionFetchNoStore
			fetches = append(fetches, func() error {
				if _, err := l.fetcher.Fetch(ctx, resolved); err != nil {
					outcomes[i].Err = err
					return nil
				}
				slots[i] = ptr(inject.Reference(resolved, done))
				return nil
			})
		default:
			if e, ok := l.store.Fresh(ctx, resolved); ok {
				outcomes[i].Action = ActionCached
				slots[i] = ptr(inject.Inline(e.Data, done))
				continue
			}
			outcomes[i].Action = ActionFetch
			fetches = append(fetches, func() error {
				body, err := l.fetcher.Fetch(ctx, resolved)
				if err != nil {
					outcomes[i].Err = err
					return nil
				}
				if err := l.store.Write(ctx, resolved, store.Entry{Data: body, Created: l.store.Now()}); err != nil {
					l.logger.Warn("caching %s: %s", resolved, err)
				}
				slots[i] = ptr(inject.Reference(resolved, done))
				return nil
			})
		}
	}

	go func() {
		var g errgroup.Group
		g.SetLimit(l.cfg.FetchConcurrency())
		for _, fetch := range fetches {
			g.Go(fetch)
		}
		g.Wait()
		tasks := make([]inject.Task, 0, len(slots))
		for _, t := range slots {
			if t != nil {
				tasks = append(tasks, *t)
			}
		}
		l.logger.Debug("dispatching %d of %d scripts", len(tasks), len(items))
		l.submit.Lock()
		defer l.submit.Unlock()
		l.queue.Enqueue(tasks...)
		l.queue.Drain(func() {
			if onComplete != nil {
				onComplete(outcomes)
			}
		})
	}()
}

// RequireWait is Require that blocks until every item has been activated or
// ctx is done.
func (l *Loader) RequireWait(ctx context.Context, items []Item, noCache bool) ([]Outcome, error) {
	ch := make(chan []Outcome, 1)
	l.Require(ctx, items, noCache, func(o []Outcome) { ch <- o })
	select {
	case o := <-ch:
		return o, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func ptr[T any](v T) *T {
	return &v
}
