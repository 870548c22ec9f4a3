package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lanternai/lantern/db"
	"github.com/lanternai/lantern/internal/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	Long: `Applies all pending schema migrations to the configured PostgreSQL
database. The server runs migrations on startup as well; this command
exists for deploy pipelines that migrate before rolling instances.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if err := db.Migrate(cfg.PostgresURL()); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
