package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/spherical-ai/doc-converter/cmd/converter/ui"
	"github.com/spherical-ai/doc-converter/internal/credstore"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply credential store schema migrations",
	Long: `Open the configured SQL credential store, apply any pending migrations
and list the applied ones. The file credential store has no schema.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := credstore.Open(cmd.Context(), cfg.Credentials)
	if err != nil {
		return err
	}
	defer store.Close()

	sqlStore, ok := store.(*credstore.SQLStore)
	if !ok {
		ui.Warn("Credential driver %q has no schema to migrate", cfg.Credentials.Driver)
		return nil
	}

	status, err := sqlStore.MigrationStatus(cmd.Context())
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(status.Applied)+len(status.Pending))
	for _, name := range status.Applied {
		rows = append(rows, []string{name, "applied"})
	}
	for _, name := range status.Pending {
		rows = append(rows, []string{name, "pending"})
	}
	ui.Table(os.Stdout, []string{"MIGRATION", "STATUS"}, rows)

	if status.UpToDate {
		ui.Success("Schema is up to date (%s)", cfg.Credentials.Driver)
	} else {
		ui.Warn("%d migrations pending", len(status.Pending))
	}
	return nil
}
