package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alvmarrod/actor-weaver/internal/cache"
	"github.com/alvmarrod/actor-weaver/internal/config"
	"github.com/alvmarrod/actor-weaver/internal/degrees"
	"github.com/alvmarrod/actor-weaver/internal/metrics"
	"github.com/alvmarrod/actor-weaver/internal/render"
	"github.com/alvmarrod/actor-weaver/internal/storage"
	"github.com/alvmarrod/actor-weaver/internal/tmdb"
	"github.com/alvmarrod/actor-weaver/internal/version"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type options struct {
	configPath   string
	logLevel     string
	depth        int
	cacheBackend string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:     `weaver [flags] "<actor one>" "<actor two>"`,
		Short:   "Find how two actors are connected through the movies they made",
		Args:    cobra.ExactArgs(2),
		Version: version.Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, args[0], args[1])
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "config.json", "config file (.json, .yaml or .toml)")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "override the configured log level")
	cmd.Flags().IntVarP(&opts.depth, "depth", "d", 0, "override the configured crawl depth")
	cmd.Flags().StringVar(&opts.cacheBackend, "cache", "", "override the cache backend (memory, sqlite, badger, none)")

	return cmd
}

func run(parent context.Context, opts *options, name1, name2 string) error {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logrus.SetLevel(level)

	logrus.Infof("Actor Weaver v%s starting...", version.Version)
	logrus.Infof("Configuration loaded: depth=%d, movies=%d, cast=%d, workers=%d, cache=%s",
		cfg.MaxDepth, cfg.MaxMoviesPerActor, cfg.MaxCastPerMovie, cfg.ConcurrentWorkers, cfg.CacheBackend)

	responses, err := openCache(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := responses.Close(); err != nil {
			logrus.Errorf("Failed to close cache: %v", err)
		}
	}()

	client, err := tmdb.NewClient(cfg, responses)
	if err != nil {
		return fmt.Errorf("failed to create provider client: %w", err)
	}

	tracker := metrics.NewTracker()

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if timeout := cfg.SearchTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	// Progress logger
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				logrus.Info(tracker.LogProgress())
			case <-done:
				return
			}
		}
	}()

	finder := degrees.NewFinder(cfg, client, tracker)
	res, searchErr := finder.Find(ctx, name1, name2)
	close(done)

	printer := render.NewPrinter(os.Stdout)
	reason := terminationReason(res, searchErr)

	switch {
	case res != nil:
		tracker.SetSession(res.Session)
		tracker.SetDegrees(res.Degrees())
		if searchErr != nil {
			logrus.Warnf("Search interrupted (%s), showing partial result", reason)
		}
		if err := printer.Result(res); err != nil {
			logrus.Errorf("Failed to print result: %v", err)
		}
	case searchErr != nil:
		if err := printer.Error(searchErr); err != nil {
			logrus.Errorf("Failed to print error: %v", err)
		}
	}

	tracker.SetCacheStats(responses.Stats())
	logrus.Info("Final stats: " + tracker.LogProgress())
	writeMetrics(cfg, tracker, reason)

	if res == nil {
		return searchErr
	}
	return nil
}

func loadConfig(opts *options) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)

	if _, statErr := os.Stat(opts.configPath); statErr == nil {
		cfg, err = config.LoadConfig(opts.configPath)
	} else {
		logrus.Debugf("No config file at %s, using defaults and environment", opts.configPath)
		cfg, err = config.Default()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.depth > 0 {
		cfg.MaxDepth = opts.depth
	}
	if opts.cacheBackend != "" {
		cfg.CacheBackend = opts.cacheBackend
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openCache builds the response cache for the configured backend.
// The none backend returns a nil cache, which fetches every time.
func openCache(cfg *config.Config) (*cache.Cache, error) {
	switch cfg.CacheBackend {
	case config.CacheNone:
		return nil, nil

	case config.CacheSQLite:
		store, err := storage.NewStorage(cfg.CachePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize sqlite cache: %w", err)
		}
		if purged, err := store.PurgeExpired(); err != nil {
			logrus.Warnf("Failed to purge expired responses: %v", err)
		} else if purged > 0 {
			logrus.Debugf("Purged %d expired responses", purged)
		}
		logrus.Infof("Response cache initialized: %s", cfg.CachePath)
		return cache.New(store, cfg.CacheTTL()), nil

	case config.CacheBadger:
		store, err := storage.NewBadgerStore(cfg.CachePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize badger cache: %w", err)
		}
		logrus.Infof("Response cache initialized: %s", cfg.CachePath)
		return cache.New(store, cfg.CacheTTL()), nil

	default:
		return cache.New(cache.NewMemoryStore(), cfg.CacheTTL()), nil
	}
}

func terminationReason(res *degrees.Result, err error) string {
	switch {
	case errors.Is(err, degrees.ErrActorNotFound):
		return "actor_not_found"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "signal"
	case err != nil:
		return "error"
	case res != nil && res.Found():
		return "path_found"
	default:
		return "no_path"
	}
}

func writeMetrics(cfg *config.Config, tracker *metrics.Tracker, reason string) {
	if cfg.MetricsPath != "" {
		if err := tracker.WriteToFile(cfg.MetricsPath, reason); err != nil {
			logrus.Errorf("Failed to write metrics: %v", err)
		} else {
			logrus.Infof("Metrics written to %s", cfg.MetricsPath)
		}
	}

	if cfg.PrometheusPath != "" {
		if err := tracker.WriteTextfile(cfg.PrometheusPath); err != nil {
			logrus.Errorf("Failed to write prometheus metrics: %v", err)
		} else {
			logrus.Infof("Prometheus metrics written to %s", cfg.PrometheusPath)
		}
	}
}
