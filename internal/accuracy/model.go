// Package accuracy estimates per-user classification reliability from the
// verified ground-truth subset and derives the vote weights used by
// weighted candidate selection.
package accuracy

import (
	"sort"

	"github.com/Veraticus/winnow/internal/common"
	"github.com/Veraticus/winnow/internal/model"
	"github.com/Veraticus/winnow/internal/votes"
)

// Options configures the accuracy model.
type Options struct {
	// MinVerified is the minimum number of verified classifications a user
	// needs before their accuracy is defined. Zero means 1.
	MinVerified int
	// DefaultAccuracy is the weight assigned when a user's accuracy is
	// undefined and the caller opted into defaulting. Zero means 0.5.
	DefaultAccuracy float64
}

// Model holds per-user accuracy records computed against the verified
// subset. Read-only after construction.
type Model struct {
	records map[string]model.UserAccuracyRecord
	opts    Options
	store   *votes.Store
}

// VerifiedFromSubjects builds the verified ground-truth map from subject
// metadata: subject ID to known correct answer, covering only subjects whose
// type carries ground truth.
func VerifiedFromSubjects(subjects []model.Subject) map[int64]bool {
	verified := make(map[int64]bool)
	for _, sub := range subjects {
		if answer, ok := sub.Type.VerifiedAnswer(); ok {
			verified[sub.ID] = answer
		}
	}
	return verified
}

// New computes accuracy records for every user in the store. verified maps
// subject ID to the known correct answer for that subject.
func New(store *votes.Store, verified map[int64]bool, opts Options) *Model {
	if opts.MinVerified <= 0 {
		opts.MinVerified = 1
	}
	if opts.DefaultAccuracy == 0 {
		opts.DefaultAccuracy = 0.5
	}

	m := &Model{
		records: make(map[string]model.UserAccuracyRecord),
		opts:    opts,
		store:   store,
	}

	for _, userID := range store.Users() {
		cls, err := store.ClassificationsByUser(userID, false)
		if err != nil {
			continue
		}

		rec := model.UserAccuracyRecord{UserID: userID, Total: len(cls)}
		for _, c := range cls {
			answer, ok := verified[c.SubjectID]
			if !ok {
				continue
			}
			rec.Verified++
			if c.Answer == answer {
				rec.Correct++
			}
		}

		if rec.Verified >= opts.MinVerified {
			rec.Accuracy = float64(rec.Correct) / float64(rec.Verified)
			rec.HasAccuracy = true
		}
		m.records[userID] = rec
	}

	return m
}

// AccuracyFor returns the user's accuracy in [0,1]. When the user has fewer
// than MinVerified verified classifications, useDefault selects between
// returning the configured default and failing with insufficient data; an
// arbitrary number is never returned silently.
func (m *Model) AccuracyFor(userID string, useDefault bool) (float64, error) {
	rec, ok := m.records[userID]
	if !ok {
		return 0, common.NewNotFoundError("user", userID)
	}
	if !rec.HasAccuracy {
		if useDefault {
			return m.opts.DefaultAccuracy, nil
		}
		return 0, &common.InsufficientDataError{
			What: "accuracy of user " + userID,
			Need: m.opts.MinVerified,
			Have: rec.Verified,
		}
	}
	return rec.Accuracy, nil
}

// Weights returns the weight-lookup function for weighted tallying. Users
// without a defined accuracy, and user identifiers absent from the dataset,
// weigh in at the configured default.
func (m *Model) Weights() model.WeightFunc {
	return func(userID string) float64 {
		rec, ok := m.records[userID]
		if !ok || !rec.HasAccuracy {
			return m.opts.DefaultAccuracy
		}
		return rec.Accuracy
	}
}

// Records returns every user's accuracy record, sorted by user ID.
func (m *Model) Records() []model.UserAccuracyRecord {
	records := make([]model.UserAccuracyRecord, 0, len(m.records))
	for _, rec := range m.records {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].UserID < records[j].UserID })
	return records
}

// DefaultAccuracy exposes the configured default weight.
func (m *Model) DefaultAccuracy() float64 {
	return m.opts.DefaultAccuracy
}
