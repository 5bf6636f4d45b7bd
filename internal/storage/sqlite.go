package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Veraticus/winnow/internal/model"
	"github.com/Veraticus/winnow/internal/service"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	// Validate input
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite doesn't benefit from multiple connections
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new database transaction.
func (s *SQLiteStorage) BeginTx(ctx context.Context) (service.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &sqliteTransaction{
		tx:      tx,
		storage: s,
	}, nil
}

// sqliteTransaction wraps sql.Tx to implement service.Transaction.
type sqliteTransaction struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTransaction) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTransaction) Rollback() error {
	return t.tx.Rollback()
}

// Transaction methods delegate to the main storage with the transaction.
func (t *sqliteTransaction) SaveSubjects(ctx context.Context, subjects []model.Subject) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSubjects(subjects); err != nil {
		return err
	}
	return t.storage.saveSubjectsTx(ctx, t.tx, subjects)
}

func (t *sqliteTransaction) GetSubject(ctx context.Context, id int64) (*model.Subject, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getSubjectTx(ctx, t.tx, id)
}

func (t *sqliteTransaction) ListSubjects(ctx context.Context) ([]model.Subject, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.listSubjectsTx(ctx, t.tx)
}

func (t *sqliteTransaction) SaveClassifications(ctx context.Context, classifications []model.Classification) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateClassifications(classifications); err != nil {
		return err
	}
	return t.storage.saveClassificationsTx(ctx, t.tx, classifications)
}

func (t *sqliteTransaction) ListClassifications(ctx context.Context) ([]model.Classification, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.listClassificationsTx(ctx, t.tx)
}

func (t *sqliteTransaction) CountClassifications(ctx context.Context) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	return t.storage.countClassificationsTx(ctx, t.tx)
}

func (t *sqliteTransaction) SaveTallies(ctx context.Context, tallies []model.ImportedTally) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return t.storage.saveTalliesTx(ctx, t.tx, tallies)
}

func (t *sqliteTransaction) GetImportedTally(ctx context.Context, subjectID int64) (*model.ImportedTally, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getImportedTallyTx(ctx, t.tx, subjectID)
}

func (t *sqliteTransaction) SaveCatalogResult(ctx context.Context, runKey string, match model.CatalogMatch) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(runKey, "runKey"); err != nil {
		return err
	}
	if err := validateMatch(&match); err != nil {
		return err
	}
	return t.storage.saveCatalogResultTx(ctx, t.tx, runKey, match)
}

func (t *sqliteTransaction) GetCatalogResults(ctx context.Context, runKey string, subjectID int64) ([]model.CatalogMatch, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(runKey, "runKey"); err != nil {
		return nil, err
	}
	return t.storage.getCatalogResultsTx(ctx, t.tx, runKey, subjectID)
}

func (t *sqliteTransaction) ListCatalogResults(ctx context.Context, runKey string) (map[int64][]model.CatalogMatch, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(runKey, "runKey"); err != nil {
		return nil, err
	}
	return t.storage.listCatalogResultsTx(ctx, t.tx, runKey)
}

func (t *sqliteTransaction) ResolveCatalogResult(ctx context.Context, runKey string, subjectID int64, catalog string, status model.MatchStatus, sourceID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return t.storage.resolveCatalogResultTx(ctx, t.tx, runKey, subjectID, catalog, status, sourceID)
}

func (t *sqliteTransaction) SaveRun(ctx context.Context, run *model.Run) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRun(run); err != nil {
		return err
	}
	return t.storage.saveRunTx(ctx, t.tx, run)
}

func (t *sqliteTransaction) GetRunByKey(ctx context.Context, key string) (*model.Run, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(key, "key"); err != nil {
		return nil, err
	}
	return t.storage.getRunByKeyTx(ctx, t.tx, key)
}

func (t *sqliteTransaction) ListRuns(ctx context.Context) ([]model.Run, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.listRunsTx(ctx, t.tx)
}

func (t *sqliteTransaction) FinishRun(ctx context.Context, id string, finishedAt time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	return t.storage.finishRunTx(ctx, t.tx, id, finishedAt)
}

func (t *sqliteTransaction) Migrate(_ context.Context) error {
	// Migrations should not be run within a transaction
	return fmt.Errorf("migrations cannot be run within a transaction")
}

func (t *sqliteTransaction) BeginTx(_ context.Context) (service.Transaction, error) {
	// Nested transactions not supported
	return nil, fmt.Errorf("nested transactions not supported")
}

func (t *sqliteTransaction) Close() error {
	// Transactions should be committed or rolled back, not closed
	return fmt.Errorf("transactions must be committed or rolled back, not closed")
}
