// Package cli implements the tldr command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	rootDir string
	verbose bool
	noCache bool
	asJSON  bool
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "tldr",
	Short: "Token-efficient code analysis for LLM agents",
	Long: `tldr analyzes source files in layers (signatures, call graph, control
flow, data flow, dependency slices) and produces compact summaries that
substitute for full file reads. It also maintains an embedding-based
semantic index for natural-language code search.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called once by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "project root (default is the working directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false, "bypass the summary cache")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "emit structured JSON instead of text")
}
