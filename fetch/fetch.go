// Package fetch retrieves script text over HTTP.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/agentuity/scriptcache/config"
	"github.com/agentuity/scriptcache/logger"
	"github.com/agentuity/scriptcache/resilience"
	"github.com/cockroachdb/errors"
)

// ErrNotLoaded is matched by every fetch failure.
var ErrNotLoaded = errors.New("script not loaded")

// StatusError is returned when the server answers with anything but 200.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.Status)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrNotLoaded
}

// Retryable reports whether the status is a transient server condition.
func (e *StatusError) Retryable() bool {
	switch e.Status {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	}
	return e.Status >= 500
}

// Fetcher issues GET requests for script paths.
type Fetcher struct {
	client *http.Client
	cfg    *config.Config
	logger logger.Logger
	retry  resilience.RetryConfig
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient replaces http.DefaultClient.
func WithClient(client *http.Client) Option {
	return func(f *Fetcher) { f.client = client }
}

// WithRetryConfig replaces the backoff schedule. MaxRetries is always taken
// from the configuration.
func WithRetryConfig(rc resilience.RetryConfig) Option {
	return func(f *Fetcher) { f.retry = rc }
}

// New returns a Fetcher.
func New(log logger.Logger, cfg *config.Config, opts ...Option) *Fetcher {
	f := &Fetcher{
		client: http.DefaultClient,
		cfg:    cfg,
		logger: log.WithPrefix("[fetch]"),
		retry:  resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// URL resolves path against the configured origin. Absolute paths and an
// empty origin leave path unchanged.
func (f *Fetcher) URL(path string) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", errors.Wrapf(err, "parse %q", path)
	}
	origin := f.cfg.Origin()
	if ref.IsAbs() || origin == "" {
		return path, nil
	}
	base, err := url.Parse(origin)
	if err != nil {
		return "", errors.Wrapf(err, "parse origin %q", origin)
	}
	return base.ResolveReference(ref).String(), nil
}

// Fetch returns the body of path. Any status other than 200 or a transport
// failure is an error matching ErrNotLoaded. Failures are logged when debug
// is enabled.
func (f *Fetcher) Fetch(ctx context.Context, path string) (string, error) {
	body, err := f.fetch(ctx, path)
	if err != nil {
		if f.cfg.Debug() {
			f.logger.Warn("%q not loaded: %s", path, err)
		}
		return "", err
	}
	f.logger.Trace("fetched %s (%d bytes)", path, len(body))
	return body, nil
}

func (f *Fetcher) fetch(ctx context.Context, path string) (string, error) {
	u, err := f.URL(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNotLoaded, err)
	}
	rc := f.retry
	rc.MaxRetries = f.cfg.FetchRetries()
	var body string
	stats, err := resilience.RetryWithStats(ctx, rc, func() error {
		var err error
		body, err = f.get(ctx, u)
		return err
	})
	if stats.TotalRetries > 0 {
		f.logger.Debug("%s: %d attempts, %d retries, %s backoff", u, stats.TotalAttempts, stats.TotalRetries, stats.TotalBackoff)
	}
	if err != nil {
		return "", err
	}
	return body, nil
}

func (f *Fetcher) get(ctx context.Context, u string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", resilience.Permanent(fmt.Errorf("%w: %w", ErrNotLoaded, err))
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: GET %s: %w", ErrNotLoaded, u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		serr := &StatusError{URL: u, Status: resp.StatusCode}
		if serr.Retryable() {
			return "", serr
		}
		return "", resilience.Permanent(serr)
	}
	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %w", ErrNotLoaded, u, err)
	}
	return string(buf), nil
}
