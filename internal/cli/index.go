package cli

import (
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/codetldr/tldr/internal/semindex"
)

var indexMaxFiles int

// indexCmd builds or refreshes the semantic search index.
var indexCmd = &cobra.Command{
	Use:   "index [dir]",
	Short: "Build the semantic search index",
	Long: `Analyze every supported file under a directory and index one searchable
entry per function, class, and file. Files whose content is unchanged
since the last build are skipped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().IntVar(&indexMaxFiles, "max-files", 0, "cap the number of files indexed (default from config)")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.close()

	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}

	idx, err := app.openIndex()
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}

	maxFiles := indexMaxFiles
	if maxFiles == 0 {
		maxFiles = app.cfg.Analysis.MaxFiles
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("Indexing"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionOnCompletion(func() { fmt.Println() }),
	)

	builder := semindex.NewBuilder(app.analyzer, idx)
	stats, err := builder.Build(cmd.Context(), dir, semindex.BuildOptions{
		Include:  app.cfg.Analysis.Include,
		Exclude:  app.cfg.Analysis.Exclude,
		MaxFiles: maxFiles,
		Progress: func(string) { bar.Add(1) },
	})
	bar.Finish()
	if err != nil {
		return err
	}

	if asJSON {
		return printJSON(stats)
	}
	fmt.Printf("Indexed %d file(s), skipped %d unchanged, %d entries",
		stats.FilesIndexed, stats.FilesSkipped, stats.Entries)
	if stats.Errors > 0 {
		fmt.Printf(", %d error(s)", stats.Errors)
	}
	fmt.Printf(" (%d total in index)\n", idx.Len())
	return nil
}
