// Package store keeps fetched script text in a key-value medium together with
// its creation time, and decides when a stored entry is too old to serve.
//
// Keys are composed by the caller; the store never inspects them.
package store

import (
	"context"
	"time"

	"github.com/agentuity/scriptcache/cache"
	"github.com/agentuity/scriptcache/capability"
	"github.com/agentuity/scriptcache/config"
	"github.com/agentuity/scriptcache/logger"
	"github.com/cockroachdb/errors"
)

// Entry is a stored script.
type Entry struct {
	Data    string
	Created time.Time
}

// Store is safe for concurrent use. Every operation is a silent no-op (or a
// miss) when the gate reports storage unavailable.
type Store struct {
	medium cache.Cache
	gate   *capability.Gate
	cfg    *config.Config
	codec  Codec
	now    func() time.Time
	logger logger.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithCodec replaces the default JSONCodec.
func WithCodec(c Codec) Option {
	return func(s *Store) { s.codec = c }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns a Store over medium. The gate decides whether the medium is
// used at all; when gate is nil it is probed with capability.ForCache.
func New(ctx context.Context, log logger.Logger, cfg *config.Config, medium cache.Cache, gate *capability.Gate, opts ...Option) *Store {
	if gate == nil {
		gate = capability.ForCache(ctx, medium)
	}
	s := &Store{
		medium: medium,
		gate:   gate,
		cfg:    cfg,
		codec:  JSONCodec,
		now:    time.Now,
		logger: log.WithPrefix("[store]"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Available reports whether the medium is usable.
func (s *Store) Available() bool {
	return s.gate.Available()
}

// Now is the store's clock.
func (s *Store) Now() time.Time {
	return s.now()
}

// Exists reports whether key holds a value. Medium errors count as absent.
func (s *Store) Exists(ctx context.Context, key string) bool {
	if !s.gate.Available() {
		return false
	}
	_, found, err := s.medium.GetItem(ctx, key)
	if err != nil {
		s.logger.Debug("exists %s: %s", key, err)
		return false
	}
	return found
}

// IsExpired reports whether e is older than the configured TTL. An entry of
// unknown age is expired; one exactly TTL old is not.
func (s *Store) IsExpired(e Entry) bool {
	if e.Created.IsZero() {
		return true
	}
	return s.now().After(e.Created.Add(s.cfg.TTL()))
}

// Read returns the entry at key. found is false for a missing key, a medium
// failure or a malformed payload.
func (s *Store) Read(ctx context.Context, key string) (Entry, bool) {
	if !s.gate.Available() {
		return Entry{}, false
	}
	raw, found, err := s.medium.GetItem(ctx, key)
	if err != nil {
		s.logger.Debug("read %s: %s", key, err)
		return Entry{}, false
	}
	if !found {
		return Entry{}, false
	}
	e, err := s.codec.Decode(raw)
	if err != nil {
		s.logger.Debug("read %s: %s", key, err)
		return Entry{}, false
	}
	return e, true
}

// Fresh returns the entry at key only when it exists and has not expired.
func (s *Store) Fresh(ctx context.Context, key string) (Entry, bool) {
	e, ok := s.Read(ctx, key)
	if !ok || s.IsExpired(e) {
		return Entry{}, false
	}
	return e, true
}

// Write stores e at key, replacing any previous entry.
func (s *Store) Write(ctx context.Context, key string, e Entry) error {
	if !s.gate.Available() {
		return nil
	}
	val, err := s.codec.Encode(e)
	if err != nil {
		return err
	}
	if err := s.medium.SetItem(ctx, key, val); err != nil {
		return errors.Wrapf(err, "store: write %s", key)
	}
	return nil
}

// Remove deletes key if it exists. Removing a missing key does nothing.
func (s *Store) Remove(ctx context.Context, key string) error {
	if !s.Exists(ctx, key) {
		return nil
	}
	if err := s.medium.RemoveItem(ctx, key); err != nil {
		return errors.Wrapf(err, "store: remove %s", key)
	}
	return nil
}
