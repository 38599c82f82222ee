package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/agentuity/scriptcache/cache"
	"github.com/agentuity/scriptcache/config"
	"github.com/agentuity/scriptcache/env"
	"github.com/agentuity/scriptcache/logger"
	"github.com/agentuity/scriptcache/store"
	"github.com/spf13/cobra"
)

const defaultStore = "sqlite:.scriptcache.db"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "scriptcache",
		Short:         "Load scripts in order through a local cache",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.String("config", "", "YAML settings file")
	pf.String("env-file", "", "load variables from a .env file")
	pf.String("store", "", "storage DSN: none, memory:, sqlite:<path> or redis://...")
	pf.String("base-path", "", "prefix joined to every requested file")
	pf.String("origin", "", "URL that script paths are resolved against")
	pf.String("ttl", "", "how long a cached script stays fresh (seconds or 30m, 1d)")
	pf.String("store-codec", "", "entry encoding: json or msgpack")
	pf.Bool("debug", false, "log scripts that fail to load")
	pf.String("log-level", "", "log level: trace, debug, info, warn, error")
	pf.String("log-format", "", "log format: console or json")

	root.AddCommand(newRequireCmd(), newRemoveCmd())
	return root
}

// runtime is the wiring shared by the subcommands.
type runtime struct {
	log   logger.Logger
	cfg   *config.Config
	cache cache.Cache
	store *store.Store
}

func (r *runtime) Close() {
	if r.cache != nil {
		if err := r.cache.Close(); err != nil {
			r.log.Warn("closing store: %s", err)
		}
	}
}

func setup(ctx context.Context, cmd *cobra.Command) (*runtime, error) {
	if fn, _ := cmd.Flags().GetString("env-file"); fn != "" {
		if err := env.LoadEnvFile(fn); err != nil {
			return nil, err
		}
	}
	log := env.NewLogger(cmd)

	cfg := config.New()
	if fn := env.FlagOrEnv(cmd, "config", "SCRIPTCACHE_CONFIG", ""); fn != "" {
		if err := cfg.LoadFile(fn); err != nil {
			return nil, err
		}
	}
	if err := cfg.LoadEnv(); err != nil {
		return nil, err
	}
	overrides := []struct{ flag, option string }{
		{"base-path", config.OptionScriptsPath},
		{"origin", config.OptionOrigin},
		{"ttl", config.OptionCacheDuration},
	}
	for _, o := range overrides {
		if v, _ := cmd.Flags().GetString(o.flag); v != "" {
			if err := cfg.SetOption(o.option, v); err != nil {
				return nil, fmt.Errorf("--%s: %w", o.flag, err)
			}
		}
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		if err := cfg.SetOption(config.OptionDebug, true); err != nil {
			return nil, err
		}
	}

	var opts []store.Option
	switch codec := env.FlagOrEnv(cmd, "store-codec", "SCRIPTCACHE_STORE_CODEC", "json"); codec {
	case "json":
	case "msgpack":
		opts = append(opts, store.WithCodec(store.MsgpackCodec))
	default:
		return nil, fmt.Errorf("unknown store codec %q", codec)
	}

	dsn := env.FlagOrEnv(cmd, "store", "SCRIPTCACHE_STORE", defaultStore)
	medium, err := cache.Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	st := store.New(ctx, log, cfg, medium, nil, opts...)
	if !st.Available() {
		log.Warn("store %q unavailable, scripts load by reference", dsn)
	}
	return &runtime{log: log, cfg: cfg, cache: medium, store: st}, nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
