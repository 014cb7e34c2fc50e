package main

import (
	"github.com/spf13/cobra"

	"profile-backend/internal/shared/config"
	"profile-backend/internal/shared/storage/db"
)

var (
	migrateDown   bool
	migrateStatus bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations to DATABASE_URL",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateDown, "down", false, "Roll back the most recent migration")
	migrateCmd.Flags().BoolVar(&migrateStatus, "status", false, "Print the applied schema version and exit")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := cmd.Context()

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultMigrateOptions()))
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	stderr := cmd.ErrOrStderr()
	switch {
	case migrateStatus:
	case migrateDown:
		if err := db.RollbackMigration(ctx, sqlDB); err != nil {
			return err
		}
		warning(stderr, "rolled back one migration")
	default:
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			return err
		}
		success(stderr, "migrations applied")
	}

	version, err := db.MigrationVersion(ctx, sqlDB)
	if err != nil {
		return err
	}
	field(stderr, "schema version", version)
	return nil
}
