package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// shouldUseCmd is the pre-read hook entry point: exit 0 when a summary
// should substitute for reading the file, 1 otherwise.
var shouldUseCmd = &cobra.Command{
	Use:   "should-use <file>",
	Short: "Decide whether a summary should replace a full file read",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app, err := newApp()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer app.close()
		if !app.analyzer.ShouldUseTLDR(args[0]) {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(shouldUseCmd)
}
