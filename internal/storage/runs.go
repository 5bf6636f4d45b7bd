package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/winnow/internal/common"
	"github.com/Veraticus/winnow/internal/model"
)

// SaveRun records a vetting run invocation.
func (s *SQLiteStorage) SaveRun(ctx context.Context, run *model.Run) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRun(run); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.saveRunTx(ctx, tx, run); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStorage) saveRunTx(ctx context.Context, tx *sql.Tx, run *model.Run) error {
	paramsJSON, err := json.Marshal(run.Params)
	if err != nil {
		return fmt.Errorf("failed to marshal run params: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, run_key, params, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			finished_at = excluded.finished_at
	`,
		run.ID,
		run.Key,
		string(paramsJSON),
		run.StartedAt,
		run.FinishedAt,
	); err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}

	return nil
}

// GetRunByKey retrieves the most recent run with the given parameter key.
func (s *SQLiteStorage) GetRunByKey(ctx context.Context, key string) (*model.Run, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(key, "key"); err != nil {
		return nil, err
	}
	return s.getRunByKeyTx(ctx, s.db, key)
}

func (s *SQLiteStorage) getRunByKeyTx(ctx context.Context, q queryable, key string) (*model.Run, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, run_key, params, started_at, finished_at
		FROM runs
		WHERE run_key = ?
		ORDER BY started_at DESC
		LIMIT 1
	`, key)

	run, err := scanRun(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewNotFoundError("run", key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run for key %s: %w", key, err)
	}
	return run, nil
}

// ListRuns retrieves all runs, newest first.
func (s *SQLiteStorage) ListRuns(ctx context.Context) ([]model.Run, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.listRunsTx(ctx, s.db)
}

func (s *SQLiteStorage) listRunsTx(ctx context.Context, q queryable) ([]model.Run, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, run_key, params, started_at, finished_at
		FROM runs
		ORDER BY started_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []model.Run
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

// FinishRun stamps a run's completion time.
func (s *SQLiteStorage) FinishRun(ctx context.Context, id string, finishedAt time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.finishRunTx(ctx, tx, id, finishedAt); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStorage) finishRunTx(ctx context.Context, tx *sql.Tx, id string, finishedAt time.Time) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE runs SET finished_at = ? WHERE id = ?
	`, finishedAt, id)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return common.NewNotFoundError("run", id)
	}
	return nil
}

// scanRun reads one run row via the given scan function.
func scanRun(scan func(...any) error) (*model.Run, error) {
	var run model.Run
	var paramsJSON string
	var finishedAt sql.NullTime

	if err := scan(
		&run.ID,
		&run.Key,
		&paramsJSON,
		&run.StartedAt,
		&finishedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(paramsJSON), &run.Params); err != nil {
		return nil, fmt.Errorf("failed to parse run params: %w", err)
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		run.FinishedAt = &t
	}
	return &run, nil
}
