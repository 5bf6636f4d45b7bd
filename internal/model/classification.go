package model

import (
	"strings"
	"time"
)

// Classification is one volunteer's yes/no judgment on one subject.
// Classifications are append-only within a loaded dataset.
type Classification struct {
	CreatedAt time.Time
	UserID    string
	SubjectID int64
	Answer    bool
}

// Anonymous reports whether the classification was made by a logged-out
// session. The platform exports those under a "not-logged-in" token; such
// identities are never merged into named user records.
func (c *Classification) Anonymous() bool {
	return strings.Contains(c.UserID, "not-logged-in")
}

// ImportedTally is a per-subject vote count produced by the platform's
// reduction step. It is consumed read-only, as an audit reference against
// tallies recomputed from raw classifications.
type ImportedTally struct {
	SubjectID       int64
	WorkflowID      int64
	WorkflowVersion string
	Yes             int
	No              int
}
