package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/vdjaccounts/pkg/accounts"
	"github.com/platinummonkey/vdjaccounts/pkg/storage/postgres"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	var databaseURL string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long:  `Apply all pending account schema migrations to the PostgreSQL database.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if databaseURL == "" {
				databaseURL = os.Getenv("VDJ_DATABASE_URL")
			}
			return runMigrate(cmd, databaseURL)
		},
	}

	cmd.Flags().StringVar(&databaseURL, "database-url", "", "PostgreSQL URL (VDJ_DATABASE_URL)")
	return cmd
}

func runMigrate(cmd *cobra.Command, databaseURL string) error {
	if databaseURL == "" {
		return errors.New("database URL is required: set --database-url or VDJ_DATABASE_URL")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cmd.Println("Connecting to database...")
	db, err := postgres.NewConnectionManager(postgres.ConnectionConfig{PrimaryURL: databaseURL, MaxConns: 2}, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	cmd.Println("Running migrations...")
	if err := postgres.Migrate(ctx, db.Primary(), accounts.Migrations, accounts.MigrationsDir); err != nil {
		return err
	}

	version, err := postgres.MigrationVersion(ctx, db.Primary())
	if err != nil {
		return err
	}
	cmd.Printf("Migrations completed successfully (schema version %d)\n", version)
	return nil
}
