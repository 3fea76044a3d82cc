package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// cacheCmd groups cache maintenance commands.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the summary cache",
	Long: `Manage the two-tier summary cache (in-memory LRU plus on-disk JSON
entries).

Available commands:
  stats    - Show hit/miss/eviction counters and entry counts
  clear    - Remove every cached entry
  cleanup  - Remove entries older than the configured TTL`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached entry",
	RunE:  runCacheClear,
}

var cacheCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove expired cache entries",
	RunE:  runCacheCleanup,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheCleanupCmd)
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.close()
	if app.cache == nil {
		return fmt.Errorf("cache is disabled")
	}

	stats := app.cache.GetStats()
	if asJSON {
		return printJSON(stats)
	}
	fmt.Printf("Cache directory: %s\n", app.cfg.CacheDir(app.root))
	fmt.Printf("Hits: %d  Misses: %d  Evictions: %d\n", stats.Hits, stats.Misses, stats.Evictions)
	fmt.Printf("Memory entries: %d\n", stats.MemoryEntries)
	fmt.Printf("Disk entries: %d\n", stats.DiskEntries)
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.close()
	if app.cache == nil {
		return fmt.Errorf("cache is disabled")
	}

	if err := app.cache.Clear(); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	fmt.Println("Cache cleared")
	return nil
}

func runCacheCleanup(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.close()
	if app.cache == nil {
		return fmt.Errorf("cache is disabled")
	}

	removed, err := app.cache.CleanupExpired()
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}
	fmt.Printf("Removed %d expired entr(ies)\n", removed)
	return nil
}
