package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/Veraticus/winnow/internal/common"
	"github.com/Veraticus/winnow/internal/model"
)

// SaveSubjects saves multiple subjects to the database. Subjects already
// present are refreshed in place, so re-importing a newer export is safe.
func (s *SQLiteStorage) SaveSubjects(ctx context.Context, subjects []model.Subject) error {
	// Validate inputs
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSubjects(subjects); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.saveSubjectsTx(ctx, tx, subjects); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStorage) saveSubjectsTx(ctx context.Context, tx *sql.Tx, subjects []model.Subject) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO subjects (id, ra, dec, fov, subject_type, metadata)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			ra = excluded.ra,
			dec = excluded.dec,
			fov = excluded.fov,
			subject_type = excluded.subject_type,
			metadata = excluded.metadata
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, subject := range subjects {
		metadataJSON := ""
		if len(subject.Metadata) > 0 {
			metadataBytes, marshalErr := json.Marshal(subject.Metadata)
			if marshalErr != nil {
				return fmt.Errorf("failed to marshal metadata for subject %d: %w", subject.ID, marshalErr)
			}
			metadataJSON = string(metadataBytes)
		}

		fov := subject.FOV
		if fov == 0 {
			fov = model.DefaultFOV
		}

		if _, err := stmt.ExecContext(ctx,
			subject.ID,
			subject.RA,
			subject.Dec,
			fov,
			int64(subject.Type),
			metadataJSON,
		); err != nil {
			return fmt.Errorf("failed to insert subject %d: %w", subject.ID, err)
		}
	}

	return nil
}

// GetSubject retrieves a single subject by ID.
func (s *SQLiteStorage) GetSubject(ctx context.Context, id int64) (*model.Subject, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getSubjectTx(ctx, s.db, id)
}

func (s *SQLiteStorage) getSubjectTx(ctx context.Context, q queryable, id int64) (*model.Subject, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, ra, dec, fov, subject_type, metadata
		FROM subjects
		WHERE id = ?
	`, id)

	subject, err := scanSubject(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewNotFoundError("subject", strconv.FormatInt(id, 10))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subject %d: %w", id, err)
	}
	return subject, nil
}

// ListSubjects retrieves all subjects ordered by ID.
func (s *SQLiteStorage) ListSubjects(ctx context.Context) ([]model.Subject, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.listSubjectsTx(ctx, s.db)
}

func (s *SQLiteStorage) listSubjectsTx(ctx context.Context, q queryable) ([]model.Subject, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, ra, dec, fov, subject_type, metadata
		FROM subjects
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query subjects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var subjects []model.Subject
	for rows.Next() {
		subject, err := scanSubject(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subject: %w", err)
		}
		subjects = append(subjects, *subject)
	}

	return subjects, rows.Err()
}

// scanSubject reads one subject row via the given scan function.
func scanSubject(scan func(...any) error) (*model.Subject, error) {
	var subject model.Subject
	var subjectType int64
	var metadataJSON sql.NullString

	if err := scan(
		&subject.ID,
		&subject.RA,
		&subject.Dec,
		&subject.FOV,
		&subjectType,
		&metadataJSON,
	); err != nil {
		return nil, err
	}

	subject.Type = model.SubjectType(subjectType)
	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &subject.Metadata); err != nil {
			return nil, fmt.Errorf("failed to parse metadata: %w", err)
		}
	}
	return &subject, nil
}

// SaveClassifications saves raw volunteer classifications. Exact duplicates
// of rows already stored are ignored, which makes re-importing an export
// that overlaps a previous one idempotent.
func (s *SQLiteStorage) SaveClassifications(ctx context.Context, classifications []model.Classification) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateClassifications(classifications); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.saveClassificationsTx(ctx, tx, classifications); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStorage) saveClassificationsTx(ctx context.Context, tx *sql.Tx, classifications []model.Classification) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO classifications (subject_id, user_id, answer, created_at)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, c := range classifications {
		answer := 0
		if c.Answer {
			answer = 1
		}
		if _, err := stmt.ExecContext(ctx,
			c.SubjectID,
			c.UserID,
			answer,
			c.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert classification for subject %d: %w", c.SubjectID, err)
		}
	}

	return nil
}

// ListClassifications retrieves all classifications in chronological order.
func (s *SQLiteStorage) ListClassifications(ctx context.Context) ([]model.Classification, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.listClassificationsTx(ctx, s.db)
}

func (s *SQLiteStorage) listClassificationsTx(ctx context.Context, q queryable) ([]model.Classification, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT subject_id, user_id, answer, created_at
		FROM classifications
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query classifications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var classifications []model.Classification
	for rows.Next() {
		var c model.Classification
		var answer int64

		if err := rows.Scan(
			&c.SubjectID,
			&c.UserID,
			&answer,
			&c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan classification: %w", err)
		}

		c.Answer = answer != 0
		classifications = append(classifications, c)
	}

	return classifications, rows.Err()
}

// CountClassifications returns the number of stored classifications.
func (s *SQLiteStorage) CountClassifications(ctx context.Context) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	return s.countClassificationsTx(ctx, s.db)
}

func (s *SQLiteStorage) countClassificationsTx(ctx context.Context, q queryable) (int64, error) {
	var count int64
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM classifications`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count classifications: %w", err)
	}
	return count, nil
}

// SaveTallies saves platform-produced vote tallies for auditing against
// recomputed ones.
func (s *SQLiteStorage) SaveTallies(ctx context.Context, tallies []model.ImportedTally) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if tallies == nil {
		return fmt.Errorf("%w: tallies", ErrNilParameter)
	}
	if len(tallies) == 0 {
		return fmt.Errorf("%w: tallies", ErrEmptySlice)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.saveTalliesTx(ctx, tx, tallies); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStorage) saveTalliesTx(ctx context.Context, tx *sql.Tx, tallies []model.ImportedTally) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO imported_tallies (subject_id, workflow_id, workflow_version, yes_count, no_count)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(subject_id) DO UPDATE SET
			workflow_id = excluded.workflow_id,
			workflow_version = excluded.workflow_version,
			yes_count = excluded.yes_count,
			no_count = excluded.no_count
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, tally := range tallies {
		if _, err := stmt.ExecContext(ctx,
			tally.SubjectID,
			tally.WorkflowID,
			tally.WorkflowVersion,
			tally.Yes,
			tally.No,
		); err != nil {
			return fmt.Errorf("failed to insert tally for subject %d: %w", tally.SubjectID, err)
		}
	}

	return nil
}

// GetImportedTally retrieves the platform tally for one subject.
func (s *SQLiteStorage) GetImportedTally(ctx context.Context, subjectID int64) (*model.ImportedTally, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getImportedTallyTx(ctx, s.db, subjectID)
}

func (s *SQLiteStorage) getImportedTallyTx(ctx context.Context, q queryable, subjectID int64) (*model.ImportedTally, error) {
	var tally model.ImportedTally
	err := q.QueryRowContext(ctx, `
		SELECT subject_id, workflow_id, workflow_version, yes_count, no_count
		FROM imported_tallies
		WHERE subject_id = ?
	`, subjectID).Scan(
		&tally.SubjectID,
		&tally.WorkflowID,
		&tally.WorkflowVersion,
		&tally.Yes,
		&tally.No,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewNotFoundError("tally", strconv.FormatInt(subjectID, 10))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tally for subject %d: %w", subjectID, err)
	}
	return &tally, nil
}

// queryable abstracts over *sql.DB and *sql.Tx.
type queryable interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}
