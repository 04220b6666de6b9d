package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/pdf-qa-gateway/pkg/postgres"
)

// MigrateCmd returns the migrate command with its up and down subcommands.
func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the pdf_files schema",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDatabase(cmd, (*postgres.Client).MigrateUp)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDatabase(cmd, (*postgres.Client).MigrateDown)
		},
	})
	return cmd
}

func withDatabase(cmd *cobra.Command, fn func(*postgres.Client) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	db, err := postgres.New(cmd.Context(), cfg.Postgres)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer db.Close()
	return fn(db)
}
