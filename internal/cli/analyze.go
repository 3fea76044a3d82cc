package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/codetldr/tldr/internal/analyzer"
)

var analyzeLayers []int

// analyzeCmd analyzes one file or a directory tree.
var analyzeCmd = &cobra.Command{
	Use:   "analyze <path>",
	Short: "Analyze a file or directory and print compact summaries",
	Long: `Analyze a source file (or every supported file under a directory) at
the requested layers and print the compact summary rendering.

Layers:
  1  signatures (imports, functions, classes)
  2  call graph
  3  control flow
  4  data flow
  5  dependency slices

The default layer set is 1-3.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().IntSliceVarP(&analyzeLayers, "layers", "l", nil, "layers to extract (e.g. -l 1,2,4)")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.close()

	layers, err := parseLayers(analyzeLayers)
	if err != nil {
		return err
	}
	if len(layers) == 0 {
		layers = app.cfg.LayerSet()
	}

	target := args[0]
	info, err := os.Stat(app.resolve(target))
	if err != nil {
		return fmt.Errorf("cannot stat %s: %w", target, err)
	}

	if info.IsDir() {
		summaries, err := app.analyzer.AnalyzeDirectory(cmd.Context(), target, app.directoryOptions(layers))
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(summaries)
		}
		for i, s := range summaries {
			if i > 0 {
				fmt.Println()
			}
			fmt.Print(analyzer.Render(s))
		}
		return nil
	}

	summary := app.analyzer.AnalyzeFile(target, layers, app.cache != nil)
	if asJSON {
		return printJSON(summary)
	}
	fmt.Print(analyzer.Render(summary))
	if verbose {
		fmt.Printf("\n(%d -> %d tokens, %.0f%% saved, %dms)\n",
			summary.OriginalTokens, summary.SummaryTokens,
			summary.TokenSavingsPercent(), summary.AnalysisTimeMs)
	}
	return nil
}
