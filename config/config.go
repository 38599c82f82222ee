// Package config holds the process-wide loader settings. A Config is created
// with defaults, optionally overlaid from the environment or a YAML file, and
// afterwards changed only through SetOption.
package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
	"github.com/xhit/go-str2duration/v2"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultTTL is how long a cached script stays fresh.
	DefaultTTL = 30 * time.Minute
	// DefaultFetchConcurrency bounds concurrent fetches within one request.
	DefaultFetchConcurrency = 6
)

var (
	ErrUnknownOption = errors.New("unknown option")
	ErrInvalidValue  = errors.New("invalid option value")
)

// Option names accepted by SetOption.
const (
	OptionDebug            = "debug"
	OptionCacheDuration    = "cacheDuration"
	OptionScriptsPath      = "scriptsPath"
	OptionOrigin           = "origin"
	OptionFetchRetries     = "fetchRetries"
	OptionFetchConcurrency = "fetchConcurrency"
)

var aliases = map[string]string{
	"cachettlseconds": OptionCacheDuration,
	"ttl":             OptionCacheDuration,
	"basepath":        OptionScriptsPath,
}

// Config is safe for concurrent use.
type Config struct {
	mu               sync.RWMutex
	debug            bool
	ttl              time.Duration
	basePath         string
	origin           string
	fetchRetries     int
	fetchConcurrency int
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		ttl:              DefaultTTL,
		fetchConcurrency: DefaultFetchConcurrency,
	}
}

func (c *Config) Debug() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.debug
}

// TTL is the expiry window of a cache entry.
func (c *Config) TTL() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ttl
}

// BasePath is prepended to every requested file to form its cache key and URL.
func (c *Config) BasePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.basePath
}

// Origin is the base URL relative script paths are fetched from.
func (c *Config) Origin() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.origin
}

func (c *Config) FetchRetries() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fetchRetries
}

func (c *Config) FetchConcurrency() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fetchConcurrency
}

// Resolve returns the cache key and location of file.
func (c *Config) Resolve(file string) string {
	return c.BasePath() + file
}

// SetOption changes a single setting by name. Names are case-insensitive and
// include the aliases cacheTtlSeconds, ttl and basePath.
func (c *Config) SetOption(name string, value any) error {
	key := canonical(name)
	switch key {
	case OptionDebug:
		v, err := toBool(value)
		if err != nil {
			return errors.Wrapf(err, "option %s", name)
		}
		c.mu.Lock()
		c.debug = v
		c.mu.Unlock()
	case OptionCacheDuration:
		v, err := toDuration(value)
		if err != nil {
			return errors.Wrapf(err, "option %s", name)
		}
		c.mu.Lock()
		c.ttl = v
		c.mu.Unlock()
	case OptionScriptsPath, OptionOrigin:
		v, ok := value.(string)
		if !ok {
			return errors.Wrapf(ErrInvalidValue, "option %s: expected string, got %T", name, value)
		}
		c.mu.Lock()
		if key == OptionOrigin {
			c.origin = v
		} else {
			c.basePath = v
		}
		c.mu.Unlock()
	case OptionFetchRetries, OptionFetchConcurrency:
		v, err := toInt(value)
		if err != nil {
			return errors.Wrapf(err, "option %s", name)
		}
		if v < 0 || (key == OptionFetchConcurrency && v == 0) {
			return errors.Wrapf(ErrInvalidValue, "option %s: %d out of range", name, v)
		}
		c.mu.Lock()
		if key == OptionFetchRetries {
			c.fetchRetries = v
		} else {
			c.fetchConcurrency = v
		}
		c.mu.Unlock()
	default:
		return errors.Wrapf(ErrUnknownOption, "%q", name)
	}
	return nil
}

func canonical(name string) string {
	lower := strings.ToLower(name)
	if alias, ok := aliases[lower]; ok {
		return alias
	}
	for _, opt := range []string{OptionDebug, OptionCacheDuration, OptionScriptsPath, OptionOrigin, OptionFetchRetries, OptionFetchConcurrency} {
		if strings.ToLower(opt) == lower {
			return opt
		}
	}
	return name
}

// Settings is the serializable form of a Config. A nil field is absent and
// leaves the setting alone; a present field overrides it, zero values
// included.
type Settings struct {
	Debug            *bool   `env:"SCRIPTCACHE_DEBUG" yaml:"debug"`
	CacheDuration    *string `env:"SCRIPTCACHE_CACHE_DURATION" yaml:"cacheDuration"`
	ScriptsPath      *string `env:"SCRIPTCACHE_SCRIPTS_PATH" yaml:"scriptsPath"`
	Origin           *string `env:"SCRIPTCACHE_ORIGIN" yaml:"origin"`
	FetchRetries     *int    `env:"SCRIPTCACHE_FETCH_RETRIES" yaml:"fetchRetries"`
	FetchConcurrency *int    `env:"SCRIPTCACHE_FETCH_CONCURRENCY" yaml:"fetchConcurrency"`
}

// Apply copies the present fields of s into c.
func (c *Config) Apply(s Settings) error {
	var overlay []func() error
	if s.Debug != nil {
		overlay = append(overlay, func() error { return c.SetOption(OptionDebug, *s.Debug) })
	}
	if s.CacheDuration != nil {
		overlay = append(overlay, func() error { return c.SetOption(OptionCacheDuration, *s.CacheDuration) })
	}
	if s.ScriptsPath != nil {
		overlay = append(overlay, func() error { return c.SetOption(OptionScriptsPath, *s.ScriptsPath) })
	}
	if s.Origin != nil {
		overlay = append(overlay, func() error { return c.SetOption(OptionOrigin, *s.Origin) })
	}
	if s.FetchRetries != nil {
		overlay = append(overlay, func() error { return c.SetOption(OptionFetchRetries, *s.FetchRetries) })
	}
	if s.FetchConcurrency != nil {
		overlay = append(overlay, func() error { return c.SetOption(OptionFetchConcurrency, *s.FetchConcurrency) })
	}
	for _, set := range overlay {
		if err := set(); err != nil {
			return err
		}
	}
	return nil
}

// LoadEnv overlays the SCRIPTCACHE_* environment variables onto c.
func (c *Config) LoadEnv() error {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return c.Apply(s)
}

// LoadFile overlays the YAML settings in filename onto c. A missing file is
// not an error.
func (c *Config) LoadFile(filename string) error {
	buf, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "read %s", filename)
	}
	var s Settings
	if err := yaml.Unmarshal(buf, &s); err != nil {
		return errors.Wrapf(err, "parse %s", filename)
	}
	return c.Apply(s)
}

// ParseDuration accepts a bare number of seconds or a duration string such as
// "30m" or "1d".
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return secondsToDuration(secs)
	}
	d, err := str2duration.ParseDuration(s)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidValue, "duration %q", s)
	}
	if d < 0 {
		return 0, errors.Wrapf(ErrInvalidValue, "negative duration %q", s)
	}
	return d, nil
}

func secondsToDuration(secs float64) (time.Duration, error) {
	if secs < 0 || math.IsNaN(secs) || secs > float64(math.MaxInt64)/float64(time.Second) {
		return 0, errors.Wrapf(ErrInvalidValue, "seconds %v out of range", secs)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

func toDuration(value any) (time.Duration, error) {
	switch v := value.(type) {
	case time.Duration:
		if v < 0 {
			return 0, errors.Wrapf(ErrInvalidValue, "negative duration %s", v)
		}
		return v, nil
	case int:
		return secondsToDuration(float64(v))
	case int64:
		return secondsToDuration(float64(v))
	case float64:
		return secondsToDuration(v)
	case string:
		return ParseDuration(v)
	default:
		return 0, errors.Wrapf(ErrInvalidValue, "expected duration, got %T", value)
	}
}

func toBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, errors.Wrapf(ErrInvalidValue, "bool %q", v)
		}
		return b, nil
	default:
		return false, errors.Wrapf(ErrInvalidValue, "expected bool, got %T", value)
	}
}

func toInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, errors.Wrapf(ErrInvalidValue, "expected integer, got %v", v)
		}
		return int(v), nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, errors.Wrapf(ErrInvalidValue, "integer %q", v)
		}
		return n, nil
	default:
		return 0, errors.Wrapf(ErrInvalidValue, "expected integer, got %T", value)
	}
}
