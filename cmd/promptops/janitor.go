package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"promptops-hq/promptops/pkg/cache"
	"promptops-hq/promptops/pkg/config"
	"promptops-hq/promptops/pkg/pricing"
)

var janitorFlags struct {
	once        bool
	metricsAddr string
}

var janitorCmd = &cobra.Command{
	Use:   "janitor",
	Short: "Run scheduled cache maintenance",
	Long: `Run cache maintenance on the configured cron schedule: expired entries
are removed and, when the configured capacity is exceeded, the least
recently used entries are evicted.

The janitor runs in the foreground until interrupted. When pricing
hot-reload is enabled in the configuration, the pricing file is watched
for changes while the janitor runs.

Examples:
  # Run on the configured schedule (default: daily at 3 AM)
  promptops janitor

  # Run one maintenance pass and exit
  promptops janitor --once

  # Expose Prometheus metrics while running
  promptops janitor --metrics-addr :9090`,
	RunE: runJanitor,
}

func init() {
	rootCmd.AddCommand(janitorCmd)

	janitorCmd.Flags().BoolVar(&janitorFlags.once, "once", false, "run one pass and exit")
	janitorCmd.Flags().StringVar(&janitorFlags.metricsAddr, "metrics-addr", "", "address for the Prometheus /metrics endpoint (empty disables)")
}

func runJanitor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	dir, err := config.ResolveCacheDir(cfg.Cache.Dir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	var metrics *cache.Metrics
	if janitorFlags.metricsAddr != "" {
		metrics = cache.NewMetrics()
	}
	store, err := cache.NewStore(cache.StoreConfig{
		Path:        filepath.Join(dir, cacheDBName),
		BusyTimeout: cfg.Cache.BusyTimeout,
		Metrics:     metrics,
	})
	if err != nil {
		return fmt.Errorf("failed to open cache store: %w", err)
	}
	defer store.Close()

	janitor := cache.NewJanitor(store, cfg.Janitor.Schedule, cfg.Cache.MaxEntries)

	if janitorFlags.once {
		removed := janitor.RunOnce(context.Background())
		fmt.Printf("Removed %d entries\n", removed)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := janitor.Start(ctx); err != nil {
		return fmt.Errorf("failed to start janitor: %w", err)
	}
	defer janitor.Stop()

	if cfg.Pricing.Watch {
		path, err := pricingPath(cfg)
		if err != nil {
			return err
		}
		calc, err := newCalculator(cfg)
		if err != nil {
			return err
		}
		watcher := pricing.NewWatcher(path, calc, cfg.Pricing.DebounceInterval, nil)
		go func() {
			if err := watcher.Watch(ctx); err != nil {
				slog.Error("pricing watcher stopped", "error", err)
			}
		}()
	}

	if janitorFlags.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: janitorFlags.metricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("metrics server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			srv.Shutdown(shutdownCtx)
		}()
		fmt.Printf("Metrics endpoint: http://%s/metrics\n", janitorFlags.metricsAddr)
	}

	fmt.Printf("Janitor running on schedule %q, press Ctrl+C to stop\n", cfg.Janitor.Schedule)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	fmt.Printf("\nReceived signal %s, shutting down\n", sig)
	return nil
}
