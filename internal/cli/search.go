package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/codetldr/tldr/internal/semindex"
)

var (
	searchLimit    int
	searchKind     string
	searchPath     string
	searchMinScore float64
)

// searchCmd queries the semantic index.
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the semantic index",
	Long: `Embed a natural-language query and rank indexed functions, classes, and
files by cosine similarity. Run 'tldr index' first.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

// similarCmd finds entries similar to an existing one.
var similarCmd = &cobra.Command{
	Use:   "similar <entry-id>",
	Short: "Find code similar to an indexed entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runSimilar,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum results")
	searchCmd.Flags().StringVar(&searchKind, "kind", "", "filter by kind (function, class, file)")
	searchCmd.Flags().StringVar(&searchPath, "path", "", "filter by file path substring")
	searchCmd.Flags().Float64Var(&searchMinScore, "min-score", 0, "minimum similarity score")
	similarCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum results")
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(similarCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.close()

	idx, err := app.openIndex()
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	if idx.Len() == 0 {
		return fmt.Errorf("index is empty; run 'tldr index' first")
	}

	query := strings.Join(args, " ")
	results, err := idx.Search(cmd.Context(), query, semindex.SearchOptions{
		Limit:      searchLimit,
		KindFilter: searchKind,
		PathFilter: searchPath,
		MinScore:   searchMinScore,
	})
	if err != nil {
		return err
	}
	return printResults(results)
}

func runSimilar(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.close()

	idx, err := app.openIndex()
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}

	results, err := idx.SearchSimilar(args[0], searchLimit)
	if err != nil {
		return err
	}
	return printResults(results)
}

func printResults(results []semindex.Result) error {
	if asJSON {
		return printJSON(results)
	}
	if len(results) == 0 {
		fmt.Println("No matches")
		return nil
	}
	for _, r := range results {
		line := r.Entry.Metadata["line"]
		loc := r.Entry.FilePath
		if line != "" {
			loc += ":" + line
		}
		fmt.Printf("%.3f  %-8s %-40s %s\n", r.Score, r.Entry.Kind, r.Entry.Name, loc)
		if verbose {
			fmt.Printf("       id=%s\n", r.Entry.ID)
		}
	}
	return nil
}
