package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cacheFlags struct {
	provider string
	model    string
	all      bool
	expired  bool
	format   string
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the response cache",
	Long: `Inspect and maintain the response cache.

Subcommands:
  stats   - Show cache statistics
  clear   - Remove cache entries by scope
  cleanup - Run an expiry sweep and capacity-bounded eviction now

Examples:
  # Show statistics
  promptops cache stats

  # Clear everything cached for one provider
  promptops cache clear --provider openai

  # Clear one model only
  promptops cache clear --provider openai --model gpt-4o

  # Clear only expired entries
  promptops cache clear --expired

  # Clear the whole cache
  promptops cache clear --all`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove cache entries",
	Long: `Remove cache entries by scope.

Exactly one scope is required: --all, --expired, or --provider
(optionally narrowed with --model).`,
	RunE: runCacheClear,
}

var cacheCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Run cache maintenance now",
	Long: `Run one maintenance pass immediately: expired entries are removed and,
when the configured capacity is exceeded, the least recently used entries
are evicted.`,
	RunE: runCacheCleanup,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd, cacheCleanupCmd)

	cacheStatsCmd.Flags().StringVar(&cacheFlags.format, "format", "text", "output format: text, json")

	cacheClearCmd.Flags().StringVar(&cacheFlags.provider, "provider", "", "clear entries for this provider")
	cacheClearCmd.Flags().StringVar(&cacheFlags.model, "model", "", "narrow --provider to one model")
	cacheClearCmd.Flags().BoolVar(&cacheFlags.all, "all", false, "clear the entire cache")
	cacheClearCmd.Flags().BoolVar(&cacheFlags.expired, "expired", false, "clear only expired entries")
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	store, err := openCacheStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.Stats(context.Background())
	if err != nil {
		return fmt.Errorf("failed to read cache stats: %w", err)
	}

	if cacheFlags.format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	fmt.Printf("Entries:      %d total, %d active, %d expired\n",
		stats.TotalEntries, stats.ActiveEntries, stats.ExpiredEntries)
	fmt.Printf("Hits:         %d (hit rate %.1f%%)\n", stats.TotalHits, stats.HitRate*100)
	fmt.Printf("Storage:      %d bytes\n", stats.StorageBytes)
	if len(stats.Providers) > 0 {
		fmt.Println("By provider:")
		for name, p := range stats.Providers {
			fmt.Printf("  %-12s %d entries, %d hits\n", name, p.Entries, p.Hits)
		}
	}
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	scopes := 0
	if cacheFlags.all {
		scopes++
	}
	if cacheFlags.expired {
		scopes++
	}
	if cacheFlags.provider != "" {
		scopes++
	}
	if scopes != 1 {
		return fmt.Errorf("exactly one of --all, --expired, or --provider is required")
	}
	if cacheFlags.model != "" && cacheFlags.provider == "" {
		return fmt.Errorf("--model requires --provider")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	store, err := openCacheStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	var removed int64
	switch {
	case cacheFlags.all:
		removed, err = store.ClearAll(ctx)
	case cacheFlags.expired:
		removed, err = store.ClearExpired(ctx)
	default:
		removed, err = store.ClearProvider(ctx, cacheFlags.provider, cacheFlags.model)
	}
	if err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}

	fmt.Printf("Removed %d entries\n", removed)
	return nil
}

func runCacheCleanup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	store, err := openCacheStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	expired, err := store.ClearExpired(ctx)
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}
	evicted, err := store.CleanupBySize(ctx, cfg.Cache.MaxEntries)
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}

	fmt.Printf("Removed %d expired entries, evicted %d over capacity\n", expired, evicted)
	return nil
}
