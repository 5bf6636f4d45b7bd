package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/winnow/internal/model"
	"github.com/Veraticus/winnow/internal/service"
	"github.com/Veraticus/winnow/internal/votes"
)

// subjectResult carries one candidate's catalog outcomes out of a worker.
type subjectResult struct {
	Err       error
	Matches   []model.CatalogMatch
	SubjectID int64
	Skipped   bool
}

// sweep cross-matches every candidate against every catalog, fanning out
// across workers. Each lookup is persisted as soon as it completes, so a
// canceled sweep loses at most the in-flight queries. Results already
// resolved under this run key are reused without a query.
func (e *Engine) sweep(
	ctx context.Context,
	store *votes.Store,
	runKey string,
	candidates []int64,
	prior map[int64][]model.CatalogMatch,
) (map[int64][]model.CatalogMatch, service.SweepStats, error) {
	var stats service.SweepStats

	catalogs := e.matcher.Catalogs()

	workChan := make(chan int64, len(candidates))
	for _, id := range candidates {
		workChan <- id
	}
	close(workChan)

	resultsChan := make(chan subjectResult, len(candidates))

	var wg sync.WaitGroup
	wg.Add(e.config.Workers)
	for i := 0; i < e.config.Workers; i++ {
		go func() {
			defer wg.Done()
			e.sweepWorker(ctx, store, runKey, catalogs, prior, workChan, resultsChan)
		}()
	}

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	results := make(map[int64][]model.CatalogMatch, len(candidates))
	completed := 0
	var firstErr error
	for result := range resultsChan {
		completed++
		if e.config.OnProgress != nil {
			e.config.OnProgress(completed, len(candidates))
		}

		if result.Err != nil {
			if firstErr == nil {
				firstErr = result.Err
			}
			continue
		}
		if result.Skipped {
			stats.Skipped++
		}
		results[result.SubjectID] = result.Matches
	}

	// Cancellation wins over any save failures it caused downstream.
	if ctx.Err() != nil {
		return nil, stats, ctx.Err()
	}
	if firstErr != nil {
		return nil, stats, firstErr
	}
	return results, stats, nil
}

// sweepWorker drains the work channel, checking for cancellation between
// subjects, never mid-query.
func (e *Engine) sweepWorker(
	ctx context.Context,
	store *votes.Store,
	runKey string,
	catalogs []string,
	prior map[int64][]model.CatalogMatch,
	workChan <-chan int64,
	resultsChan chan<- subjectResult,
) {
	for subjectID := range workChan {
		select {
		case <-ctx.Done():
			return
		default:
		}

		resultsChan <- e.sweepSubject(ctx, store, runKey, catalogs, subjectID, prior[subjectID])
	}
}

// sweepSubject evaluates one candidate against each catalog. Resolved prior
// results are reused; everything else is queried and persisted. A lookup
// the remote could not answer is recorded as unresolved rather than
// failing the subject.
func (e *Engine) sweepSubject(
	ctx context.Context,
	store *votes.Store,
	runKey string,
	catalogs []string,
	subjectID int64,
	prior []model.CatalogMatch,
) subjectResult {
	result := subjectResult{SubjectID: subjectID}

	resolved := make(map[string]model.CatalogMatch, len(prior))
	for _, match := range prior {
		if match.Resolved() {
			resolved[match.Catalog] = match
		}
	}

	subject, subjErr := store.Subject(subjectID)

	queried := false
	for _, cat := range catalogs {
		if match, ok := resolved[cat]; ok {
			result.Matches = append(result.Matches, match)
			continue
		}

		var match model.CatalogMatch
		if subjErr != nil {
			// Votes without an imported subject record leave nothing to
			// query with; flag for review.
			match = model.CatalogMatch{
				SubjectID: subjectID,
				Catalog:   cat,
				Status:    model.MatchUnknown,
				QueriedAt: time.Now().UTC(),
			}
			slog.Warn("Candidate has no imported coordinates",
				"subject", subjectID,
				"catalog", cat)
		} else {
			var matchErr error
			match, matchErr = e.matcher.Match(ctx, subject, cat)
			if matchErr != nil {
				if ctx.Err() != nil {
					return result
				}
				slog.Warn("Catalog lookup unresolved",
					"subject", subjectID,
					"catalog", cat,
					"error", matchErr)
			}
		}
		queried = true

		if err := e.storage.SaveCatalogResult(ctx, runKey, match); err != nil {
			result.Err = fmt.Errorf("saving catalog result for subject %d: %w", subjectID, err)
			return result
		}
		result.Matches = append(result.Matches, match)
	}

	result.Skipped = !queried
	return result
}
