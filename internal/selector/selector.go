// Package selector applies the acceptance rules that decide, per subject,
// whether the volunteer votes make it a viable candidate.
package selector

import (
	"github.com/Veraticus/winnow/internal/model"
	"github.com/Veraticus/winnow/internal/votes"
)

// ThresholdMode controls what the acceptance threshold compares against in
// weighted mode. The weighted "yes" sum and the raw "yes" count are
// different scales, so the choice is explicit configuration rather than
// inferred intent.
type ThresholdMode string

// Threshold modes.
const (
	// ThresholdWeightedSum compares the threshold against the weighted
	// "yes" sum. The default.
	ThresholdWeightedSum ThresholdMode = "sum"
	// ThresholdRawCount compares the threshold against the raw "yes" vote
	// count even when the ratio is weighted.
	ThresholdRawCount ThresholdMode = "count"
)

// Options configures a Selector.
type Options struct {
	// Weights supplies per-user vote weights for weighted mode. Nil means
	// every vote counts 1, making weighted selection identical to
	// unweighted.
	Weights model.WeightFunc
	// ThresholdMode defaults to ThresholdWeightedSum.
	ThresholdMode ThresholdMode
}

// Selector decides candidate acceptability over a loaded vote store.
type Selector struct {
	store *votes.Store
	opts  Options
}

// New creates a Selector over the store.
func New(store *votes.Store, opts Options) *Selector {
	if opts.ThresholdMode == "" {
		opts.ThresholdMode = ThresholdWeightedSum
	}
	return &Selector{store: store, opts: opts}
}

// IsAcceptable reports whether the subject's votes clear both acceptance
// rules: yes/total at or above ratio AND the yes sum at or above threshold.
// Both must hold; the conjunction is the core business rule. A subject with
// zero classifications is never accepted. In weighted mode the threshold is
// not directly comparable to an unweighted one: it measures summed user
// weights, not votes, unless ThresholdRawCount is configured.
func (s *Selector) IsAcceptable(subjectID int64, ratio, threshold float64, weighted bool) (model.CandidateDecision, error) {
	var weights model.WeightFunc
	if weighted {
		weights = s.opts.Weights
		if weights == nil {
			weights = model.UnitWeight
		}
	}

	tally, err := s.store.TallyFor(subjectID, weights)
	if err != nil {
		return model.CandidateDecision{}, err
	}

	yes := tally.Yes
	if weighted && s.opts.ThresholdMode == ThresholdRawCount {
		raw, rawErr := s.store.TallyFor(subjectID, nil)
		if rawErr != nil {
			return model.CandidateDecision{}, rawErr
		}
		yes = raw.Yes
	}

	accepted := !tally.Empty() &&
		tally.Ratio() >= ratio &&
		yes >= threshold

	return model.CandidateDecision{
		SubjectID:           subjectID,
		Accepted:            accepted,
		Weighted:            weighted,
		Tally:               tally,
		Ratio:               tally.Ratio(),
		AcceptanceRatio:     ratio,
		AcceptanceThreshold: threshold,
	}, nil
}

// FindAcceptableCandidates visits every subject exactly once, in ascending
// subject-ID order, and returns the IDs that pass IsAcceptable. Re-running
// on an unchanged store yields an identical ordered result.
func (s *Selector) FindAcceptableCandidates(ratio, threshold float64, weighted bool) ([]int64, error) {
	var accepted []int64
	for _, id := range s.store.SubjectIDs() {
		decision, err := s.IsAcceptable(id, ratio, threshold, weighted)
		if err != nil {
			return nil, err
		}
		if decision.Accepted {
			accepted = append(accepted, id)
		}
	}
	return accepted, nil
}

// Decisions returns the full decision record for every subject, in
// ascending subject-ID order.
func (s *Selector) Decisions(ratio, threshold float64, weighted bool) ([]model.CandidateDecision, error) {
	ids := s.store.SubjectIDs()
	decisions := make([]model.CandidateDecision, 0, len(ids))
	for _, id := range ids {
		decision, err := s.IsAcceptable(id, ratio, threshold, weighted)
		if err != nil {
			return nil, err
		}
		decisions = append(decisions, decision)
	}
	return decisions, nil
}
