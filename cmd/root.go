// Package cmd contains the lantern CLI. Running lantern without a
// subcommand starts the server.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "lantern",
	Short: "Lantern - multi-tenant RAG chat backend",
	Long: `Lantern serves embeddable AI chat widgets backed by per-project
knowledge bases. Each project gets its own API key, vector namespace,
system prompt, and conversation history.

Running lantern without arguments starts the HTTP server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd, args)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
