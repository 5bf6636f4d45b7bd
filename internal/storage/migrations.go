package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS subjects (
					id INTEGER PRIMARY KEY,
					ra REAL NOT NULL,
					dec REAL NOT NULL,
					fov REAL NOT NULL DEFAULT 120,
					subject_type INTEGER NOT NULL DEFAULT 0,
					metadata TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_subjects_type ON subjects(subject_type)`,

				`CREATE TABLE IF NOT EXISTS classifications (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					subject_id INTEGER NOT NULL,
					user_id TEXT NOT NULL,
					answer INTEGER NOT NULL,
					created_at DATETIME NOT NULL,
					FOREIGN KEY (subject_id) REFERENCES subjects(id)
				)`,
				`CREATE INDEX idx_classifications_subject ON classifications(subject_id)`,
				`CREATE INDEX idx_classifications_user ON classifications(user_id)`,

				`CREATE TABLE IF NOT EXISTS imported_tallies (
					subject_id INTEGER PRIMARY KEY,
					workflow_id INTEGER,
					workflow_version TEXT,
					yes_count INTEGER NOT NULL DEFAULT 0,
					no_count INTEGER NOT NULL DEFAULT 0,
					FOREIGN KEY (subject_id) REFERENCES subjects(id)
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Add runs and catalog results for resumable vetting",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS runs (
					id TEXT PRIMARY KEY,
					run_key TEXT NOT NULL,
					params TEXT NOT NULL,
					started_at DATETIME NOT NULL,
					finished_at DATETIME
				)`,
				`CREATE INDEX idx_runs_key ON runs(run_key)`,

				`CREATE TABLE IF NOT EXISTS catalog_results (
					run_key TEXT NOT NULL,
					subject_id INTEGER NOT NULL,
					catalog TEXT NOT NULL,
					status TEXT NOT NULL,
					source_id TEXT,
					radius_arcsec REAL NOT NULL DEFAULT 0,
					queried_at DATETIME NOT NULL,
					PRIMARY KEY (run_key, subject_id, catalog)
				)`,
				`CREATE INDEX idx_catalog_results_status ON catalog_results(run_key, status)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Deduplicate classifications for idempotent re-imports",
		Up: func(tx *sql.Tx) error {
			// Collapse exact duplicates before the unique index lands.
			if _, err := tx.Exec(`
				DELETE FROM classifications
				WHERE id NOT IN (
					SELECT MIN(id) FROM classifications
					GROUP BY subject_id, user_id, created_at
				)
			`); err != nil {
				return fmt.Errorf("failed to collapse duplicate classifications: %w", err)
			}

			if _, err := tx.Exec(`
				CREATE UNIQUE INDEX idx_classifications_unique
				ON classifications(subject_id, user_id, created_at)
			`); err != nil {
				return fmt.Errorf("failed to create unique classification index: %w", err)
			}
			return nil
		},
	},
}

// SchemaVersion reports the database's current migration version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	// Get current version
	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	// Apply migrations
	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		// Update version
		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	// Verify we're at the expected schema version
	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
