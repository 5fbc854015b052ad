package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"promptops-hq/promptops/pkg/config"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "promptops",
	Short: "PromptOps - cost-aware LLM response cache and budget engine",
	Long: `PromptOps is a cost-aware response cache and budget enforcement engine
for LLM API usage.

It caches responses by content-addressed request keys, prices every call
from a hot-reloadable pricing table, records spend in an append-only
ledger, and enforces per-organization monthly budgets before calls are
made.

For more information, visit: https://github.com/promptops-hq/promptops`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "promptops.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig loads the configuration file named by --config. A missing
// file at the default path is not an error: PromptOps runs fine on
// defaults alone.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !rootCmd.PersistentFlags().Changed("config") {
			cfg = &config.Config{}
			config.ApplyDefaults(cfg)
			return cfg, nil
		}
		return nil, err
	}
	return cfg, nil
}

// setupLogging configures the process-wide slog default from the logging
// section. The --verbose flag forces debug level regardless of config.
func setupLogging(cfg *config.Config) {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
