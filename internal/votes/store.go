// Package votes provides the in-memory tabular view over loaded
// classification data. A Store is built once per analysis session and is
// read-only afterwards, so concurrent readers need no locking.
package votes

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/Veraticus/winnow/internal/common"
	"github.com/Veraticus/winnow/internal/model"
	"github.com/Veraticus/winnow/internal/service"
)

// Store answers per-subject and per-user lookups over the loaded dataset.
type Store struct {
	subjects   map[int64]model.Subject
	bySubject  map[int64][]model.Classification
	byUser     map[string][]model.Classification
	subjectIDs []int64
}

// New builds a Store from already-loaded rows. Classifications are indexed
// by subject and by user, each index sorted chronologically for
// reproducible iteration.
func New(subjects []model.Subject, classifications []model.Classification) *Store {
	s := &Store{
		subjects:  make(map[int64]model.Subject, len(subjects)),
		bySubject: make(map[int64][]model.Classification),
		byUser:    make(map[string][]model.Classification),
	}

	for _, sub := range subjects {
		s.subjects[sub.ID] = sub
	}

	for _, c := range classifications {
		s.bySubject[c.SubjectID] = append(s.bySubject[c.SubjectID], c)
		s.byUser[c.UserID] = append(s.byUser[c.UserID], c)
	}

	for id, list := range s.bySubject {
		sortChronological(list)
		s.bySubject[id] = list
	}
	for user, list := range s.byUser {
		sortChronological(list)
		s.byUser[user] = list
	}

	ids := make(map[int64]struct{}, len(s.subjects)+len(s.bySubject))
	for id := range s.subjects {
		ids[id] = struct{}{}
	}
	for id := range s.bySubject {
		ids[id] = struct{}{}
	}
	s.subjectIDs = make([]int64, 0, len(ids))
	for id := range ids {
		s.subjectIDs = append(s.subjectIDs, id)
	}
	sort.Slice(s.subjectIDs, func(i, j int) bool { return s.subjectIDs[i] < s.subjectIDs[j] })

	return s
}

// Load reads the imported dataset out of storage. Missing classification
// data is fatal: nothing downstream can run without votes.
func Load(ctx context.Context, storage service.Storage) (*Store, error) {
	subjects, err := storage.ListSubjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading subjects: %w", err)
	}

	classifications, err := storage.ListClassifications(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading classifications: %w", err)
	}
	if len(classifications) == 0 {
		return nil, common.ErrNoClassifications
	}

	return New(subjects, classifications), nil
}

// TallyFor computes the subject's vote tally under the given weighting. A
// nil weight function counts every vote as 1; supplying one that returns 1.0
// for every user yields exactly the same tally. Unknown subject IDs are
// surfaced as not-found, never defaulted to an empty tally.
func (s *Store) TallyFor(subjectID int64, weights model.WeightFunc) (model.VoteTally, error) {
	if weights == nil {
		weights = model.UnitWeight
	}

	cls, ok := s.bySubject[subjectID]
	if !ok {
		if _, known := s.subjects[subjectID]; !known {
			return model.VoteTally{}, common.NewNotFoundError("subject", strconv.FormatInt(subjectID, 10))
		}
		return model.VoteTally{}, nil
	}

	var tally model.VoteTally
	for _, c := range cls {
		tally = tally.Add(c.Answer, weights(c.UserID))
	}
	return tally, nil
}

// ClassificationsFor returns the subject's classifications in chronological
// order. With strict set, zero classifications is surfaced as not-found;
// otherwise an empty slice is returned. Callers must not mutate the result.
func (s *Store) ClassificationsFor(subjectID int64, strict bool) ([]model.Classification, error) {
	cls := s.bySubject[subjectID]
	if len(cls) == 0 && strict {
		return nil, common.NewNotFoundError("subject", strconv.FormatInt(subjectID, 10))
	}
	return cls, nil
}

// ClassificationsByUser returns the user's classifications in chronological
// order, with the same strictness contract as ClassificationsFor.
func (s *Store) ClassificationsByUser(userID string, strict bool) ([]model.Classification, error) {
	cls := s.byUser[userID]
	if len(cls) == 0 && strict {
		return nil, common.NewNotFoundError("user", userID)
	}
	return cls, nil
}

// Subject returns the metadata record for a subject ID.
func (s *Store) Subject(subjectID int64) (model.Subject, error) {
	sub, ok := s.subjects[subjectID]
	if !ok {
		return model.Subject{}, common.NewNotFoundError("subject", strconv.FormatInt(subjectID, 10))
	}
	return sub, nil
}

// SubjectIDs returns every subject ID seen in the dataset, ascending. The
// result is stable across calls on an unchanged store.
func (s *Store) SubjectIDs() []int64 {
	return s.subjectIDs
}

// Subjects returns the metadata record of every imported subject, ascending
// by ID. Subjects referenced only by classifications, with no imported
// metadata row, are omitted.
func (s *Store) Subjects() []model.Subject {
	subjects := make([]model.Subject, 0, len(s.subjects))
	for _, id := range s.subjectIDs {
		if sub, ok := s.subjects[id]; ok {
			subjects = append(subjects, sub)
		}
	}
	return subjects
}

// Users returns every user identifier seen in the dataset, sorted.
func (s *Store) Users() []string {
	users := make([]string, 0, len(s.byUser))
	for u := range s.byUser {
		users = append(users, u)
	}
	sort.Strings(users)
	return users
}

func sortChronological(list []model.Classification) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].UserID < list[j].UserID
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
}
