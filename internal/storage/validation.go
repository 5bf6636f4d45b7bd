// Package storage provides the data persistence layer for the winnow
// application.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/winnow/internal/model"
)

// Validation errors.
var (
	ErrNilContext            = errors.New("context cannot be nil")
	ErrEmptyString           = errors.New("string parameter cannot be empty")
	ErrNilParameter          = errors.New("parameter cannot be nil")
	ErrEmptySlice            = errors.New("slice cannot be empty")
	ErrInvalidSubject        = errors.New("invalid subject")
	ErrInvalidClassification = errors.New("invalid classification")
	ErrInvalidMatch          = errors.New("invalid catalog match")
	ErrInvalidRun            = errors.New("invalid run")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateSubjects validates a slice of subjects.
func validateSubjects(subjects []model.Subject) error {
	if subjects == nil {
		return fmt.Errorf("%w: subjects", ErrNilParameter)
	}
	if len(subjects) == 0 {
		return fmt.Errorf("%w: subjects", ErrEmptySlice)
	}

	for i, subject := range subjects {
		if err := validateSubject(&subject); err != nil {
			return fmt.Errorf("subject at index %d: %w", i, err)
		}
	}
	return nil
}

// validateSubject validates a single subject.
func validateSubject(subject *model.Subject) error {
	if subject == nil {
		return fmt.Errorf("%w: subject", ErrNilParameter)
	}
	if subject.ID <= 0 {
		return fmt.Errorf("%w: missing ID", ErrInvalidSubject)
	}
	if subject.RA < 0 || subject.RA >= 360 {
		return fmt.Errorf("%w: right ascension %v out of range", ErrInvalidSubject, subject.RA)
	}
	if subject.Dec < -90 || subject.Dec > 90 {
		return fmt.Errorf("%w: declination %v out of range", ErrInvalidSubject, subject.Dec)
	}
	if subject.FOV < 0 {
		return fmt.Errorf("%w: negative field of view", ErrInvalidSubject)
	}
	return nil
}

// validateClassifications validates a slice of classifications.
func validateClassifications(classifications []model.Classification) error {
	if classifications == nil {
		return fmt.Errorf("%w: classifications", ErrNilParameter)
	}
	if len(classifications) == 0 {
		return fmt.Errorf("%w: classifications", ErrEmptySlice)
	}

	for i, c := range classifications {
		if err := validateClassification(&c); err != nil {
			return fmt.Errorf("classification at index %d: %w", i, err)
		}
	}
	return nil
}

// validateClassification validates a single classification.
func validateClassification(c *model.Classification) error {
	if c == nil {
		return fmt.Errorf("%w: classification", ErrNilParameter)
	}
	if c.SubjectID <= 0 {
		return fmt.Errorf("%w: missing subject ID", ErrInvalidClassification)
	}
	if strings.TrimSpace(c.UserID) == "" {
		return fmt.Errorf("%w: missing user ID", ErrInvalidClassification)
	}
	if c.CreatedAt.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidClassification)
	}
	return nil
}

// validateMatch validates a catalog match before persisting.
func validateMatch(match *model.CatalogMatch) error {
	if match == nil {
		return fmt.Errorf("%w: match", ErrNilParameter)
	}
	if match.SubjectID <= 0 {
		return fmt.Errorf("%w: missing subject ID", ErrInvalidMatch)
	}
	if strings.TrimSpace(match.Catalog) == "" {
		return fmt.Errorf("%w: missing catalog", ErrInvalidMatch)
	}
	switch match.Status {
	case model.MatchFound, model.MatchNone, model.MatchUnknown:
		// Valid status
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidMatch, match.Status)
	}
	return nil
}

// validateRun validates a run record.
func validateRun(run *model.Run) error {
	if run == nil {
		return fmt.Errorf("%w: run", ErrNilParameter)
	}
	if strings.TrimSpace(run.ID) == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidRun)
	}
	if strings.TrimSpace(run.Key) == "" {
		return fmt.Errorf("%w: missing key", ErrInvalidRun)
	}
	if run.StartedAt.IsZero() {
		return fmt.Errorf("%w: missing start time", ErrInvalidRun)
	}
	return nil
}
