package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Veraticus/winnow/internal/model"
	"github.com/Veraticus/winnow/internal/service"
)

// Dataset builds a coherent set of subjects and classifications for
// seeding a test database. Votes are timestamped in submission order so
// chronological assertions hold.
type Dataset struct {
	t               *testing.T
	subjects        []model.Subject
	classifications []model.Classification
	clock           time.Time
}

// NewDataset starts an empty dataset builder.
func NewDataset(t *testing.T) *Dataset {
	t.Helper()
	return &Dataset{
		t:     t,
		clock: time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC),
	}
}

// WithSubject adds a candidate subject at the given position.
func (d *Dataset) WithSubject(id int64, ra, dec float64) *Dataset {
	return d.WithTypedSubject(id, ra, dec, model.TypeCandidate)
}

// WithTypedSubject adds a subject with an explicit type bitmask, for
// seeding the verified ground-truth subset.
func (d *Dataset) WithTypedSubject(id int64, ra, dec float64, typ model.SubjectType) *Dataset {
	d.subjects = append(d.subjects, model.Subject{
		ID:   id,
		RA:   ra,
		Dec:  dec,
		FOV:  model.DefaultFOV,
		Type: typ,
	})
	return d
}

// WithMetadata attaches a named metadata field to an already-added subject.
func (d *Dataset) WithMetadata(subjectID int64, key, value string) *Dataset {
	d.t.Helper()
	for i := range d.subjects {
		if d.subjects[i].ID == subjectID {
			d.subjects[i].Metadata = append(d.subjects[i].Metadata, model.MetadataField{Key: key, Value: value})
			return d
		}
	}
	d.t.Fatalf("WithMetadata: subject %d not in dataset", subjectID)
	return d
}

// WithVotes adds yes and then no classifications for the subject, each
// from a distinct generated user.
func (d *Dataset) WithVotes(subjectID int64, yes, no int) *Dataset {
	for i := 0; i < yes; i++ {
		d.addVote(subjectID, fmt.Sprintf("approver-%d", i), true)
	}
	for i := 0; i < no; i++ {
		d.addVote(subjectID, fmt.Sprintf("objector-%d", i), false)
	}
	return d
}

// WithVote adds one classification from a named user.
func (d *Dataset) WithVote(subjectID int64, userID string, answer bool) *Dataset {
	d.addVote(subjectID, userID, answer)
	return d
}

func (d *Dataset) addVote(subjectID int64, userID string, answer bool) {
	d.classifications = append(d.classifications, model.Classification{
		SubjectID: subjectID,
		UserID:    userID,
		Answer:    answer,
		CreatedAt: d.clock,
	})
	d.clock = d.clock.Add(time.Minute)
}

// Subjects returns the subjects built so far.
func (d *Dataset) Subjects() []model.Subject {
	return d.subjects
}

// Classifications returns the classifications built so far.
func (d *Dataset) Classifications() []model.Classification {
	return d.classifications
}

// Seed writes the dataset into the given store.
func (d *Dataset) Seed(store service.Storage) {
	d.t.Helper()
	ctx := context.Background()

	if len(d.subjects) > 0 {
		if err := store.SaveSubjects(ctx, d.subjects); err != nil {
			d.t.Fatalf("failed to seed subjects: %v", err)
		}
	}
	if len(d.classifications) > 0 {
		if err := store.SaveClassifications(ctx, d.classifications); err != nil {
			d.t.Fatalf("failed to seed classifications: %v", err)
		}
	}
}
