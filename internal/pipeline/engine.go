// Package pipeline orchestrates vetting runs end to end: acceptable
// candidates are selected from the loaded votes, cross-matched against the
// reference catalogs, and partitioned into exclusion buckets.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/Veraticus/winnow/internal/accuracy"
	"github.com/Veraticus/winnow/internal/catalog"
	"github.com/Veraticus/winnow/internal/model"
	"github.com/Veraticus/winnow/internal/selector"
	"github.com/Veraticus/winnow/internal/service"
	"github.com/Veraticus/winnow/internal/votes"
)

// ErrSweepInProgress is returned when another process already holds the
// sweep lock for this database.
var ErrSweepInProgress = errors.New("another vetting run is already in progress")

// Engine runs the vetting pipeline.
type Engine struct {
	storage service.Storage
	matcher Matcher
	config  Config
}

// Config holds configuration options for the vetting engine.
type Config struct {
	// OnProgress, when set, is invoked after each candidate completes,
	// including candidates skipped on resume.
	OnProgress func(completed, total int)
	// LockPath guards against concurrent sweeps over the same database.
	// Empty disables locking.
	LockPath string
	// Accuracy configures the reliability model used by weighted runs.
	Accuracy accuracy.Options
	// Workers bounds the catalog sweep fan-out. The per-service rate
	// limiters are shared, so extra workers never exceed a service's
	// query rate.
	Workers int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Workers: 1,
	}
}

// New creates a vetting engine with the default configuration.
func New(storage service.Storage, matcher Matcher) *Engine {
	return NewWithConfig(storage, matcher, DefaultConfig())
}

// NewWithConfig creates a vetting engine with custom configuration.
func NewWithConfig(storage service.Storage, matcher Matcher, config Config) *Engine {
	if config.Workers < 1 {
		config.Workers = 1
	}
	return &Engine{
		storage: storage,
		matcher: matcher,
		config:  config,
	}
}

// RunResult reports the outcome of a vetting run.
type RunResult struct {
	Run *model.Run
	// Buckets partition the resolved candidates. Every bucket is present,
	// empty or not.
	Buckets map[model.Bucket][]int64
	// Unresolved lists candidates with at least one unresolved catalog
	// lookup, ascending. They need manual review and are never treated
	// as novel.
	Unresolved []int64
	Stats      service.SweepStats
}

// Vet runs the full pipeline: load votes, select acceptable candidates,
// sweep every catalog for each, and partition the outcomes. Results are
// persisted per subject and catalog under the run key as the sweep goes,
// so an interrupted run resumes where it left off; cancellation surfaces
// as ctx.Err() with all completed lookups already saved.
func (e *Engine) Vet(ctx context.Context, params model.RunParams) (*RunResult, error) {
	start := time.Now()

	if e.config.LockPath != "" {
		lock := flock.New(e.config.LockPath)
		locked, err := lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquiring sweep lock: %w", err)
		}
		if !locked {
			return nil, ErrSweepInProgress
		}
		defer func() {
			if unlockErr := lock.Unlock(); unlockErr != nil {
				slog.Warn("Failed to release sweep lock",
					"path", e.config.LockPath,
					"error", unlockErr)
			}
		}()
	}

	store, candidates, err := e.selectCandidates(ctx, params)
	if err != nil {
		return nil, err
	}

	slog.Info("Selected acceptable candidates",
		"candidates", len(candidates),
		"ratio", params.AcceptanceRatio,
		"threshold", params.AcceptanceThreshold,
		"weighted", params.Weighted)

	run := &model.Run{
		ID:        uuid.New().String(),
		Key:       params.Key(),
		Params:    params,
		StartedAt: time.Now().UTC(),
	}
	if err := e.storage.SaveRun(ctx, run); err != nil {
		return nil, fmt.Errorf("recording run: %w", err)
	}

	prior, err := e.storage.ListCatalogResults(ctx, run.Key)
	if err != nil {
		return nil, fmt.Errorf("loading prior catalog results: %w", err)
	}
	if len(prior) > 0 {
		slog.Info("Resuming prior sweep", "run_key", run.Key, "subjects_with_results", len(prior))
	}

	results, stats, err := e.sweep(ctx, store, run.Key, candidates, prior)
	if err != nil {
		return nil, err
	}

	buckets, unresolved := partition(candidates, results)

	stats.Candidates = len(candidates)
	for _, ids := range buckets {
		stats.Resolved += len(ids)
	}
	stats.Unresolved = len(unresolved)
	stats.Duration = time.Since(start)

	finishedAt := time.Now().UTC()
	if err := e.storage.FinishRun(ctx, run.ID, finishedAt); err != nil {
		return nil, fmt.Errorf("finishing run: %w", err)
	}
	run.FinishedAt = &finishedAt

	slog.Info("Vetting run complete",
		"run_id", run.ID,
		"candidates", stats.Candidates,
		"resolved", stats.Resolved,
		"unresolved", stats.Unresolved,
		"skipped", stats.Skipped,
		"duration", stats.Duration)

	return &RunResult{
		Run:        run,
		Buckets:    buckets,
		Unresolved: unresolved,
		Stats:      stats,
	}, nil
}

// selectCandidates loads the vote store and applies the acceptance rules.
func (e *Engine) selectCandidates(ctx context.Context, params model.RunParams) (*votes.Store, []int64, error) {
	store, err := votes.Load(ctx, e.storage)
	if err != nil {
		return nil, nil, fmt.Errorf("loading votes: %w", err)
	}

	opts := selector.Options{
		ThresholdMode: selector.ThresholdMode(params.ThresholdMode),
	}
	if params.Weighted {
		verified := accuracy.VerifiedFromSubjects(store.Subjects())
		opts.Weights = accuracy.New(store, verified, e.config.Accuracy).Weights()
	}

	candidates, err := selector.New(store, opts).FindAcceptableCandidates(
		params.AcceptanceRatio, params.AcceptanceThreshold, params.Weighted)
	if err != nil {
		return nil, nil, fmt.Errorf("selecting candidates: %w", err)
	}
	return store, candidates, nil
}

// partition places every candidate into exactly one bucket or the
// unresolved list. A candidate missing a catalog result is unresolved.
func partition(candidates []int64, results map[int64][]model.CatalogMatch) (map[model.Bucket][]int64, []int64) {
	buckets := make(map[model.Bucket][]int64, 4)
	for _, b := range model.Buckets() {
		buckets[b] = []int64{}
	}

	var unresolved []int64
	for _, id := range candidates {
		statuses := make(map[string]model.MatchStatus, 2)
		for _, match := range results[id] {
			statuses[match.Catalog] = match.Status
		}

		simbad, ok := statuses[catalog.CatalogSimbad]
		if !ok {
			simbad = model.MatchUnknown
		}
		gaia, ok := statuses[catalog.CatalogGaia]
		if !ok {
			gaia = model.MatchUnknown
		}

		bucket, ok := model.BucketFor(simbad, gaia)
		if !ok {
			unresolved = append(unresolved, id)
			continue
		}
		buckets[bucket] = append(buckets[bucket], id)
	}
	return buckets, unresolved
}
