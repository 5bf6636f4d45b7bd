package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Veraticus/winnow/internal/common"
	"github.com/Veraticus/winnow/internal/model"
)

// SaveCatalogResult persists one catalog lookup for one subject under a run
// key. Saving an existing (run, subject, catalog) row overwrites it, so a
// resumed sweep can replace an UNKNOWN with a definite answer.
func (s *SQLiteStorage) SaveCatalogResult(ctx context.Context, runKey string, match model.CatalogMatch) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(runKey, "runKey"); err != nil {
		return err
	}
	if err := validateMatch(&match); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.saveCatalogResultTx(ctx, tx, runKey, match); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStorage) saveCatalogResultTx(ctx context.Context, tx *sql.Tx, runKey string, match model.CatalogMatch) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO catalog_results (run_key, subject_id, catalog, status, source_id, radius_arcsec, queried_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_key, subject_id, catalog) DO UPDATE SET
			status = excluded.status,
			source_id = excluded.source_id,
			radius_arcsec = excluded.radius_arcsec,
			queried_at = excluded.queried_at
	`,
		runKey,
		match.SubjectID,
		match.Catalog,
		string(match.Status),
		match.SourceID,
		match.RadiusArcsec,
		match.QueriedAt,
	); err != nil {
		return fmt.Errorf("failed to save catalog result for subject %d: %w", match.SubjectID, err)
	}

	return nil
}

// GetCatalogResults retrieves the stored lookups for one subject under a
// run key, ordered by catalog name.
func (s *SQLiteStorage) GetCatalogResults(ctx context.Context, runKey string, subjectID int64) ([]model.CatalogMatch, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(runKey, "runKey"); err != nil {
		return nil, err
	}
	return s.getCatalogResultsTx(ctx, s.db, runKey, subjectID)
}

func (s *SQLiteStorage) getCatalogResultsTx(ctx context.Context, q queryable, runKey string, subjectID int64) ([]model.CatalogMatch, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT subject_id, catalog, status, source_id, radius_arcsec, queried_at
		FROM catalog_results
		WHERE run_key = ? AND subject_id = ?
		ORDER BY catalog ASC
	`, runKey, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var matches []model.CatalogMatch
	for rows.Next() {
		match, err := scanCatalogMatch(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan catalog result: %w", err)
		}
		matches = append(matches, *match)
	}

	return matches, rows.Err()
}

// ListCatalogResults retrieves every stored lookup under a run key, grouped
// by subject.
func (s *SQLiteStorage) ListCatalogResults(ctx context.Context, runKey string) (map[int64][]model.CatalogMatch, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(runKey, "runKey"); err != nil {
		return nil, err
	}
	return s.listCatalogResultsTx(ctx, s.db, runKey)
}

func (s *SQLiteStorage) listCatalogResultsTx(ctx context.Context, q queryable, runKey string) (map[int64][]model.CatalogMatch, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT subject_id, catalog, status, source_id, radius_arcsec, queried_at
		FROM catalog_results
		WHERE run_key = ?
		ORDER BY subject_id ASC, catalog ASC
	`, runKey)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make(map[int64][]model.CatalogMatch)
	for rows.Next() {
		match, err := scanCatalogMatch(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan catalog result: %w", err)
		}
		results[match.SubjectID] = append(results[match.SubjectID], *match)
	}

	return results, rows.Err()
}

// ResolveCatalogResult overwrites an UNKNOWN lookup with a manually decided
// status. Only unresolved rows can be resolved this way; automated results
// are replaced through SaveCatalogResult instead.
func (s *SQLiteStorage) ResolveCatalogResult(ctx context.Context, runKey string, subjectID int64, catalog string, status model.MatchStatus, sourceID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(runKey, "runKey"); err != nil {
		return err
	}
	if err := validateString(catalog, "catalog"); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.resolveCatalogResultTx(ctx, tx, runKey, subjectID, catalog, status, sourceID); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStorage) resolveCatalogResultTx(ctx context.Context, tx *sql.Tx, runKey string, subjectID int64, catalog string, status model.MatchStatus, sourceID string) error {
	if status != model.MatchFound && status != model.MatchNone {
		return fmt.Errorf("%w: cannot resolve to status %q", ErrInvalidMatch, status)
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE catalog_results
		SET status = ?, source_id = ?
		WHERE run_key = ? AND subject_id = ? AND catalog = ? AND status = ?
	`,
		string(status),
		sourceID,
		runKey,
		subjectID,
		catalog,
		string(model.MatchUnknown),
	)
	if err != nil {
		return fmt.Errorf("failed to resolve catalog result: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx, `
			SELECT EXISTS(
				SELECT 1 FROM catalog_results
				WHERE run_key = ? AND subject_id = ? AND catalog = ?
			)
		`, runKey, subjectID, catalog).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check catalog result existence: %w", err)
		}
		if exists {
			return fmt.Errorf("%w: result for subject %d in %s is already resolved", ErrInvalidMatch, subjectID, catalog)
		}
		return common.NewNotFoundError("catalog result", fmt.Sprintf("%d/%s", subjectID, catalog))
	}

	return nil
}

// scanCatalogMatch reads one catalog result row via the given scan function.
func scanCatalogMatch(scan func(...any) error) (*model.CatalogMatch, error) {
	var match model.CatalogMatch
	var status string
	var sourceID sql.NullString

	if err := scan(
		&match.SubjectID,
		&match.Catalog,
		&status,
		&sourceID,
		&match.RadiusArcsec,
		&match.QueriedAt,
	); err != nil {
		return nil, err
	}

	match.Status = model.MatchStatus(status)
	if sourceID.Valid {
		match.SourceID = sourceID.String
	}
	return &match, nil
}
