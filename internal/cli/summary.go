package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// summaryCmd aggregates analysis over a whole project.
var summaryCmd = &cobra.Command{
	Use:   "summary [dir]",
	Short: "Print aggregate project statistics",
	Long: `Analyze a directory at layers 1 and 2 and print aggregate statistics:
totals, token savings, entry points, the files with the most external
call references, detected languages, files with errors, and any import
cycles among the analyzed files.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.close()

	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}

	ps, err := app.analyzer.ProjectSummary(cmd.Context(), dir, app.directoryOptions(nil))
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(ps)
	}

	fmt.Printf("Project: %s\n", ps.Root)
	fmt.Printf("Files: %d  Lines: %d  Functions: %d  Classes: %d\n",
		ps.TotalFiles, ps.TotalLines, ps.TotalFunctions, ps.TotalClasses)
	fmt.Printf("Token savings: %.0f%%\n", ps.TokenSavingsPct)
	if len(ps.Languages) > 0 {
		fmt.Printf("Languages: %s\n", strings.Join(ps.Languages, ", "))
	}
	if len(ps.EntryPoints) > 0 {
		fmt.Println("\nEntry points:")
		for _, ep := range ps.EntryPoints {
			fmt.Printf("  %s\n", ep)
		}
	}
	if len(ps.TopExternalDeps) > 0 {
		fmt.Println("\nMost external call references:")
		for _, fe := range ps.TopExternalDeps {
			fmt.Printf("  %4d  %s\n", fe.Count, fe.FilePath)
		}
	}
	if len(ps.ImportCycles) > 0 {
		fmt.Println("\nImport cycles:")
		for _, cycle := range ps.ImportCycles {
			fmt.Printf("  %s\n", strings.Join(cycle, " <-> "))
		}
	}
	if len(ps.ErrorFiles) > 0 {
		fmt.Println("\nFiles with analysis errors:")
		for _, f := range ps.ErrorFiles {
			fmt.Printf("  %s\n", f)
		}
	}
	return nil
}
