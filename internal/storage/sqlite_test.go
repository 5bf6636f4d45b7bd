package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/winnow/internal/common"
	"github.com/Veraticus/winnow/internal/model"
)

// Helper function to create test storage.
func createTestStorage(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		t.Fatalf("Failed to migrate: %v", err)
	}

	return store, func() { _ = store.Close() }
}

// Helper function to create test subjects.
func createTestSubjects(count int) []model.Subject {
	subjects := make([]model.Subject, count)
	for i := 0; i < count; i++ {
		subjects[i] = model.Subject{
			ID:   int64(i + 1),
			RA:   float64(10 * (i + 1)),
			Dec:  float64(-5 * (i + 1)),
			FOV:  model.DefaultFOV,
			Type: model.TypeCandidate,
			Metadata: []model.MetadataField{
				{Key: "!RA", Value: "10.0"},
				{Key: "WISEVIEW", Value: "[WiseView](+tab+https://example.org/wv)"},
			},
		}
	}
	return subjects
}

// Helper function to create test classifications for a subject.
func createTestClassifications(subjectID int64, yes, no int) []model.Classification {
	base := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	classifications := make([]model.Classification, 0, yes+no)
	for i := 0; i < yes; i++ {
		classifications = append(classifications, model.Classification{
			SubjectID: subjectID,
			UserID:    "voter-yes",
			Answer:    true,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	for i := 0; i < no; i++ {
		classifications = append(classifications, model.Classification{
			SubjectID: subjectID,
			UserID:    "voter-no",
			Answer:    false,
			CreatedAt: base.Add(time.Duration(yes+i) * time.Minute),
		})
	}
	return classifications
}

func TestSQLiteStorage_SaveSubjects(t *testing.T) {
	tests := []struct {
		name     string
		subjects []model.Subject
		wantErr  bool
		wantLen  int
	}{
		{
			name:     "save new subjects",
			subjects: createTestSubjects(3),
			wantErr:  false,
			wantLen:  3,
		},
		{
			name:     "nil subjects rejected",
			subjects: nil,
			wantErr:  true,
		},
		{
			name:     "empty subjects rejected",
			subjects: []model.Subject{},
			wantErr:  true,
		},
		{
			name: "out of range declination rejected",
			subjects: []model.Subject{
				{ID: 1, RA: 10, Dec: 95},
			},
			wantErr: true,
		},
		{
			name: "missing ID rejected",
			subjects: []model.Subject{
				{RA: 10, Dec: 5},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, cleanup := createTestStorage(t)
			defer cleanup()
			ctx := context.Background()

			err := store.SaveSubjects(ctx, tt.subjects)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SaveSubjects() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			subjects, err := store.ListSubjects(ctx)
			if err != nil {
				t.Fatalf("ListSubjects() error = %v", err)
			}
			if len(subjects) != tt.wantLen {
				t.Errorf("Expected %d subjects, got %d", tt.wantLen, len(subjects))
			}
		})
	}
}

func TestSQLiteStorage_SaveSubjects_Upsert(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	subjects := createTestSubjects(2)
	if err := store.SaveSubjects(ctx, subjects); err != nil {
		t.Fatalf("Failed to save subjects: %v", err)
	}

	// Re-import with revised coordinates.
	subjects[0].RA = 99.5
	subjects[0].Type = model.TypeKnownBrownDwarf
	if err := store.SaveSubjects(ctx, subjects); err != nil {
		t.Fatalf("Failed to re-save subjects: %v", err)
	}

	all, err := store.ListSubjects(ctx)
	if err != nil {
		t.Fatalf("ListSubjects() error = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("Expected 2 subjects after re-import, got %d", len(all))
	}
	if all[0].RA != 99.5 {
		t.Errorf("Expected updated RA 99.5, got %v", all[0].RA)
	}
	if all[0].Type != model.TypeKnownBrownDwarf {
		t.Errorf("Expected updated type, got %v", all[0].Type)
	}
}

func TestSQLiteStorage_GetSubject(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	subjects := createTestSubjects(1)
	if err := store.SaveSubjects(ctx, subjects); err != nil {
		t.Fatalf("Failed to save subjects: %v", err)
	}

	got, err := store.GetSubject(ctx, 1)
	if err != nil {
		t.Fatalf("GetSubject() error = %v", err)
	}
	if got.ID != 1 || got.RA != 10 || got.Dec != -5 {
		t.Errorf("Unexpected subject: %+v", got)
	}
	if len(got.Metadata) != 2 || got.Metadata[0].Key != "!RA" {
		t.Errorf("Metadata did not round-trip: %+v", got.Metadata)
	}
	if url, ok := got.WiseViewURL(); !ok || url != "https://example.org/wv" {
		t.Errorf("WiseViewURL() = %q, %v", url, ok)
	}

	_, err = store.GetSubject(ctx, 999)
	if !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing subject, got %v", err)
	}
}

func TestSQLiteStorage_SaveClassifications(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	if err := store.SaveSubjects(ctx, createTestSubjects(1)); err != nil {
		t.Fatalf("Failed to save subjects: %v", err)
	}

	classifications := createTestClassifications(1, 3, 2)
	if err := store.SaveClassifications(ctx, classifications); err != nil {
		t.Fatalf("Failed to save classifications: %v", err)
	}

	count, err := store.CountClassifications(ctx)
	if err != nil {
		t.Fatalf("CountClassifications() error = %v", err)
	}
	if count != 5 {
		t.Errorf("Expected 5 classifications, got %d", count)
	}

	// Re-importing the same export must not duplicate rows.
	if err := store.SaveClassifications(ctx, classifications); err != nil {
		t.Fatalf("Failed to re-save classifications: %v", err)
	}
	count, err = store.CountClassifications(ctx)
	if err != nil {
		t.Fatalf("CountClassifications() error = %v", err)
	}
	if count != 5 {
		t.Errorf("Expected 5 classifications after re-import, got %d", count)
	}

	listed, err := store.ListClassifications(ctx)
	if err != nil {
		t.Fatalf("ListClassifications() error = %v", err)
	}
	if len(listed) != 5 {
		t.Fatalf("Expected 5 listed classifications, got %d", len(listed))
	}
	for i := 1; i < len(listed); i++ {
		if listed[i].CreatedAt.Before(listed[i-1].CreatedAt) {
			t.Errorf("Classifications not in chronological order at index %d", i)
		}
	}
	if !listed[0].Answer {
		t.Error("Expected first classification to be a yes vote")
	}
}

func TestSQLiteStorage_SaveClassifications_Invalid(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	tests := []struct {
		name            string
		classifications []model.Classification
	}{
		{"nil slice", nil},
		{"empty slice", []model.Classification{}},
		{"missing subject", []model.Classification{{UserID: "u", CreatedAt: time.Now()}}},
		{"missing user", []model.Classification{{SubjectID: 1, CreatedAt: time.Now()}}},
		{"missing timestamp", []model.Classification{{SubjectID: 1, UserID: "u"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := store.SaveClassifications(ctx, tt.classifications); err == nil {
				t.Error("Expected validation error, got nil")
			}
		})
	}
}

func TestSQLiteStorage_ImportedTallies(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	if err := store.SaveSubjects(ctx, createTestSubjects(1)); err != nil {
		t.Fatalf("Failed to save subjects: %v", err)
	}

	tallies := []model.ImportedTally{
		{SubjectID: 1, WorkflowID: 777, WorkflowVersion: "23.40", Yes: 8, No: 2},
	}
	if err := store.SaveTallies(ctx, tallies); err != nil {
		t.Fatalf("Failed to save tallies: %v", err)
	}

	got, err := store.GetImportedTally(ctx, 1)
	if err != nil {
		t.Fatalf("GetImportedTally() error = %v", err)
	}
	if got.Yes != 8 || got.No != 2 || got.WorkflowVersion != "23.40" {
		t.Errorf("Unexpected tally: %+v", got)
	}

	// Re-import replaces the stored counts.
	tallies[0].Yes = 9
	if err := store.SaveTallies(ctx, tallies); err != nil {
		t.Fatalf("Failed to re-save tallies: %v", err)
	}
	got, err = store.GetImportedTally(ctx, 1)
	if err != nil {
		t.Fatalf("GetImportedTally() error = %v", err)
	}
	if got.Yes != 9 {
		t.Errorf("Expected updated yes count 9, got %d", got.Yes)
	}

	_, err = store.GetImportedTally(ctx, 404)
	if !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing tally, got %v", err)
	}
}

func TestSQLiteStorage_Transactions(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	t.Run("rollback discards writes", func(t *testing.T) {
		tx, err := store.BeginTx(ctx)
		if err != nil {
			t.Fatalf("BeginTx() error = %v", err)
		}
		if err := tx.SaveSubjects(ctx, createTestSubjects(1)); err != nil {
			t.Fatalf("SaveSubjects() in tx error = %v", err)
		}
		if err := tx.Rollback(); err != nil {
			t.Fatalf("Rollback() error = %v", err)
		}

		if _, err := store.GetSubject(ctx, 1); !errors.Is(err, common.ErrNotFound) {
			t.Errorf("Expected rolled-back subject to be absent, got %v", err)
		}
	})

	t.Run("commit persists writes", func(t *testing.T) {
		tx, err := store.BeginTx(ctx)
		if err != nil {
			t.Fatalf("BeginTx() error = %v", err)
		}
		if err := tx.SaveSubjects(ctx, createTestSubjects(1)); err != nil {
			t.Fatalf("SaveSubjects() in tx error = %v", err)
		}
		if err := tx.Commit(); err != nil {
			t.Fatalf("Commit() error = %v", err)
		}

		if _, err := store.GetSubject(ctx, 1); err != nil {
			t.Errorf("Expected committed subject to be present, got %v", err)
		}
	})

	t.Run("nested transactions rejected", func(t *testing.T) {
		tx, err := store.BeginTx(ctx)
		if err != nil {
			t.Fatalf("BeginTx() error = %v", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.BeginTx(ctx); err == nil {
			t.Error("Expected nested BeginTx to fail")
		}
		if err := tx.Migrate(ctx); err == nil {
			t.Error("Expected Migrate within transaction to fail")
		}
		if err := tx.Close(); err == nil {
			t.Error("Expected Close within transaction to fail")
		}
	})
}
