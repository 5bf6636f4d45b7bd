package model

import "time"

// MatchStatus indicates the outcome of one catalog lookup for one subject.
type MatchStatus string

// Match status constants.
const (
	MatchFound   MatchStatus = "MATCHED"
	MatchNone    MatchStatus = "NO_MATCH"
	MatchUnknown MatchStatus = "UNKNOWN"
)

// CatalogMatch is the result of checking one subject against one reference
// catalog. MatchUnknown is reserved for exhausted-retry remote failures and
// is distinct from MatchNone: an unknown subject is flagged for manual
// review, never treated as novel.
type CatalogMatch struct {
	QueriedAt    time.Time
	Catalog      string
	SourceID     string
	Status       MatchStatus
	SubjectID    int64
	RadiusArcsec float64
}

// Resolved reports whether the lookup produced a definite answer.
func (m *CatalogMatch) Resolved() bool {
	return m.Status == MatchFound || m.Status == MatchNone
}

// Bucket names one of the mutually exclusive exclusion buckets candidates
// are sorted into after catalog cross-matching.
type Bucket string

// Exclusion buckets. Only BucketNeither holds genuinely novel candidates;
// the others are retained for audit.
const (
	BucketBoth       Bucket = "matched-in-both"
	BucketSimbadOnly Bucket = "matched-in-simbad-only"
	BucketGaiaOnly   Bucket = "matched-in-gaia-only"
	BucketNeither    Bucket = "matched-in-neither"
)

// Buckets returns the fixed bucket order used in reports and exports.
func Buckets() []Bucket {
	return []Bucket{BucketBoth, BucketSimbadOnly, BucketGaiaOnly, BucketNeither}
}

// BucketFor places a subject given its two catalog results. ok is false when
// either result is unresolved; the subject then belongs on the unresolved
// list instead of in a bucket.
func BucketFor(simbad, gaia MatchStatus) (Bucket, bool) {
	if simbad == MatchUnknown || gaia == MatchUnknown {
		return "", false
	}
	switch {
	case simbad == MatchFound && gaia == MatchFound:
		return BucketBoth, true
	case simbad == MatchFound:
		return BucketSimbadOnly, true
	case gaia == MatchFound:
		return BucketGaiaOnly, true
	default:
		return BucketNeither, true
	}
}
