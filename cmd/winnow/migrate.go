package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Veraticus/winnow/internal/cli"
	"github.com/Veraticus/winnow/internal/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

Every command migrates on startup, so this is rarely needed by hand; it
exists for checking a database's state and for bringing one current without
running anything else.`,
		RunE: runMigrate,
	}

	cmd.Flags().Bool("status", false, "Show the schema version without applying changes")

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	statusOnly, _ := cmd.Flags().GetBool("status")

	dbPath := databasePath()

	// Open directly rather than through initStorage: status must not
	// migrate as a side effect.
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("Failed to close database", "error", closeErr)
		}
	}()

	if statusOnly {
		version, versionErr := store.SchemaVersion(ctx)
		if versionErr != nil {
			return fmt.Errorf("failed to read schema version: %w", versionErr)
		}

		fmt.Println(cli.StyleTitle("Database migration status"))
		fmt.Println("  Database:        " + dbPath)
		fmt.Printf("  Current version: %d\n", version)
		fmt.Printf("  Latest version:  %d\n", storage.ExpectedSchemaVersion)
		if version == storage.ExpectedSchemaVersion {
			fmt.Println(cli.FormatSuccess("Schema is current"))
		} else {
			fmt.Println(cli.FormatWarning("Schema is behind. Run winnow migrate to update."))
		}
		return nil
	}

	slog.Info("Running database migrations", "database", dbPath)

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Println(cli.FormatSuccess("Database migrations completed"))
	return nil
}
