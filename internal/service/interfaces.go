// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/winnow/internal/model"
)

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Subject operations
	SaveSubjects(ctx context.Context, subjects []model.Subject) error
	GetSubject(ctx context.Context, id int64) (*model.Subject, error)
	ListSubjects(ctx context.Context) ([]model.Subject, error)

	// Classification operations
	SaveClassifications(ctx context.Context, classifications []model.Classification) error
	ListClassifications(ctx context.Context) ([]model.Classification, error)
	CountClassifications(ctx context.Context) (int64, error)

	// Imported tally operations
	SaveTallies(ctx context.Context, tallies []model.ImportedTally) error
	GetImportedTally(ctx context.Context, subjectID int64) (*model.ImportedTally, error)

	// Catalog result operations. Results are keyed by run key and double as
	// the resume record for interrupted sweeps.
	SaveCatalogResult(ctx context.Context, runKey string, match model.CatalogMatch) error
	GetCatalogResults(ctx context.Context, runKey string, subjectID int64) ([]model.CatalogMatch, error)
	ListCatalogResults(ctx context.Context, runKey string) (map[int64][]model.CatalogMatch, error)
	ResolveCatalogResult(ctx context.Context, runKey string, subjectID int64, catalog string, status model.MatchStatus, sourceID string) error

	// Run bookkeeping
	SaveRun(ctx context.Context, run *model.Run) error
	GetRunByKey(ctx context.Context, key string) (*model.Run, error)
	ListRuns(ctx context.Context) ([]model.Run, error)
	FinishRun(ctx context.Context, id string, finishedAt time.Time) error

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit() error
	Rollback() error
	// Include all Storage methods for use within transaction
	Storage
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// SweepStats shows the results of a vetting run.
type SweepStats struct {
	Candidates int
	Resolved   int
	Unresolved int
	Skipped    int // already resolved by a prior pass
	Duration   time.Duration
}
