// Package model defines the core domain models used throughout the application.
package model

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultFOV is the angular extent, in arcseconds, of a subject cutout when
// the imported metadata does not carry one.
const DefaultFOV = 120.0

// SubjectType is a bitmask describing what a subject is known to contain,
// carried in the platform export's type field.
type SubjectType uint8

// Subject type flags.
const (
	TypeCandidate SubjectType = 1 << iota
	TypeBlank
	TypeKnownBrownDwarf
	TypeQuasar
	TypeRandomSky
	TypeWhiteDwarf
)

var subjectTypeNames = []struct {
	flag SubjectType
	name string
}{
	{TypeCandidate, "Candidate"},
	{TypeBlank, "Blank"},
	{TypeKnownBrownDwarf, "Known Brown Dwarf"},
	{TypeQuasar, "Quasar"},
	{TypeRandomSky, "Random Sky Location"},
	{TypeWhiteDwarf, "White Dwarf"},
}

// Has reports whether the given flag is set.
func (t SubjectType) Has(flag SubjectType) bool {
	return t&flag != 0
}

// VerifiedAnswer returns the known-correct classification answer for
// subjects whose type makes them part of the verified ground-truth subset.
// Known brown dwarfs should be answered "yes"; quasars and random sky
// locations should be answered "no". For all other types ok is false and the
// subject carries no ground truth.
func (t SubjectType) VerifiedAnswer() (answer, ok bool) {
	switch {
	case t.Has(TypeKnownBrownDwarf):
		return true, true
	case t.Has(TypeQuasar), t.Has(TypeRandomSky):
		return false, true
	default:
		return false, false
	}
}

func (t SubjectType) String() string {
	if t == 0 {
		return "unknown"
	}
	names := make([]string, 0, len(subjectTypeNames))
	for _, st := range subjectTypeNames {
		if t.Has(st.flag) {
			names = append(names, st.name)
		}
	}
	return strings.Join(names, "|")
}

// ParseSubjectType parses the numeric bitmask used in platform exports.
func ParseSubjectType(s string) (SubjectType, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("parsing subject type %q: %w", s, err)
	}
	return SubjectType(v), nil
}

// MetadataField is one named metadata value from the platform export.
// Field order is preserved from the source; keys are unique per subject.
type MetadataField struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Subject represents a single classifiable imaging unit shown to volunteers.
// Subjects are immutable once loaded.
type Subject struct {
	Metadata []MetadataField
	ID       int64
	RA       float64 // degrees
	Dec      float64 // degrees
	FOV      float64 // arcseconds
	Type     SubjectType
}

// Field returns the metadata value for key.
func (s *Subject) Field(key string) (string, bool) {
	for _, f := range s.Metadata {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// WiseViewURL extracts the WiseView viewer link embedded in the subject's
// metadata, when present.
func (s *Subject) WiseViewURL() (string, bool) {
	return s.linkField("WISEVIEW")
}

// SimbadURL extracts the SIMBAD portal link embedded in the subject's
// metadata, when present.
func (s *Subject) SimbadURL() (string, bool) {
	return s.linkField("SIMBAD")
}

// linkField unwraps the export's markdown-style link values, which arrive as
// "[Label](+tab+https://...)".
func (s *Subject) linkField(key string) (string, bool) {
	raw, ok := s.Field(key)
	if !ok || raw == "" {
		return "", false
	}
	if open := strings.Index(raw, "(+tab+"); open >= 0 {
		raw = raw[open+len("(+tab+"):]
		raw = strings.TrimSuffix(raw, ")")
	}
	return raw, true
}
