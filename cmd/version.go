package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "development"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Lantern %s\n", AppVersion)
		fmt.Fprintf(out, "Build Time: %s\n", BuildTime)
		fmt.Fprintf(out, "Git Commit: %s\n", GitCommit)

		// Presence only, never the key itself.
		if os.Getenv("GEMINI_API_KEY") != "" {
			fmt.Fprintln(out, "GEMINI_API_KEY: configured")
		} else {
			fmt.Fprintln(out, "GEMINI_API_KEY: not set (required for the googleai provider)")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
