package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"food-console/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded SQL migrations to the configured database",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Backend.Driver != "postgres" {
			return fmt.Errorf("migrate needs backend.driver postgres, got %q", cfg.Backend.Driver)
		}
		pool, err := db.Connect(cmd.Context(), cfg.DB)
		if err != nil {
			return err
		}
		defer pool.Close()
		return runMigrate(cmd.Context(), pool, cmd.OutOrStdout())
	},
}

func runMigrate(ctx context.Context, exec db.Execer, out io.Writer) error {
	names, err := db.Migrations()
	if err != nil {
		return err
	}
	if err := db.Migrate(ctx, exec, log); err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%d migrations applied.\n", len(names))
	return err
}
