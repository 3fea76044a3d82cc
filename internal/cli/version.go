package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Version information, set via ldflags at build time.
	Version   = "dev"
	GitCommit = "none"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of tldr",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tldr %s\n", Version)
		fmt.Printf("Git commit: %s\n", GitCommit)
		fmt.Printf("Build date: %s\n", BuildDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
