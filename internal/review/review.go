// Package review implements the interactive resolution screen for catalog
// lookups the sweep could not decide. Each unresolved (subject, catalog)
// pair is presented with its coordinates and viewer links; the reviewer
// marks it matched or clear, and the verdict is persisted immediately so a
// quit mid-session loses nothing.
package review

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Veraticus/winnow/internal/common"
	"github.com/Veraticus/winnow/internal/model"
	"github.com/Veraticus/winnow/internal/service"
)

// Item is one unresolved catalog lookup awaiting a verdict.
type Item struct {
	QueriedAt time.Time
	Catalog   string
	WiseView  string
	Simbad    string
	SubjectID int64
	RA        float64
	Dec       float64
	HasCoords bool
}

// Decision is the reviewer's verdict on one item.
type Decision int

// Verdicts.
const (
	DecisionPending Decision = iota
	DecisionMatched
	DecisionNoMatch
	DecisionSkipped
)

// Summary counts the outcomes of a review session. Remaining covers items
// skipped or never reached; they stay unresolved in storage.
type Summary struct {
	Matched   int
	NoMatch   int
	Remaining int
}

// LoadItems gathers the unresolved lookups persisted under a run key,
// ascending by subject then catalog, with coordinates and viewer links
// attached where the subject was imported.
func LoadItems(ctx context.Context, storage service.Storage, runKey string) ([]Item, error) {
	results, err := storage.ListCatalogResults(ctx, runKey)
	if err != nil {
		return nil, fmt.Errorf("loading catalog results: %w", err)
	}

	ids := make([]int64, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var items []Item
	for _, id := range ids {
		var subject *model.Subject
		loaded := false

		for _, match := range results[id] {
			if match.Status != model.MatchUnknown {
				continue
			}

			if !loaded {
				loaded = true
				s, subjErr := storage.GetSubject(ctx, id)
				switch {
				case subjErr == nil:
					subject = s
				case errors.Is(subjErr, common.ErrNotFound):
					// Votes without an imported subject record; review
					// proceeds on the ID alone.
				default:
					return nil, fmt.Errorf("loading subject %d: %w", id, subjErr)
				}
			}

			item := Item{
				SubjectID: id,
				Catalog:   match.Catalog,
				QueriedAt: match.QueriedAt,
			}
			if subject != nil {
				item.HasCoords = true
				item.RA = subject.RA
				item.Dec = subject.Dec
				item.WiseView, _ = subject.WiseViewURL()
				item.Simbad, _ = subject.SimbadURL()
			}
			items = append(items, item)
		}
	}
	return items, nil
}
