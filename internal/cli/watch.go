package cli

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/codetldr/tldr/internal/watch"
)

var watchWarm bool

// watchCmd runs the post-edit hook loop: invalidate changed files' cache
// entries and optionally re-analyze them.
var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Watch a directory and keep the cache current",
	Long: `Watch a directory tree for changes to supported source files. Each
changed file's cache entries are invalidated; with --warm the file is
re-analyzed immediately so the next read hits a fresh summary.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchWarm, "warm", false, "re-analyze changed files after invalidating")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.close()
	if app.cache == nil {
		return fmt.Errorf("cache is disabled; watching has nothing to maintain")
	}

	dir := app.root
	if len(args) == 1 {
		dir = app.resolve(args[0])
	}

	w, err := watch.New(dir, app.analyzer.Supported)
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer w.Stop()

	fmt.Printf("Watching %s (ctrl-c to stop)\n", dir)
	return w.Start(cmd.Context(), func(files []string) {
		for _, file := range files {
			normalized := filepath.ToSlash(filepath.Clean(file))
			removed, err := app.cache.InvalidateFile(normalized)
			if err != nil {
				log.Printf("invalidate %s: %v", normalized, err)
				continue
			}
			if verbose {
				log.Printf("%s: invalidated %d entr(ies)", normalized, removed)
			}
			if _, statErr := os.Stat(file); statErr != nil {
				continue // deleted, nothing to warm
			}
			if watchWarm {
				summary := app.analyzer.AnalyzeFile(file, app.cfg.LayerSet(), true)
				if verbose {
					log.Printf("%s: rewarmed (%d tokens)", normalized, summary.SummaryTokens)
				}
			}
		}
	})
}
