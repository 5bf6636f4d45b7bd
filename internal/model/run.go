package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// RunParams captures every parameter that shapes a vetting run's catalog
// results. Runs with identical params share a key and therefore share
// persisted results, which is what makes interrupted sweeps resumable.
type RunParams struct {
	AcceptanceRatio     float64 `json:"acceptance_ratio"`
	AcceptanceThreshold float64 `json:"acceptance_threshold"`
	Weighted            bool    `json:"weighted"`
	ThresholdMode       string  `json:"threshold_mode"`
	MaxProperMotion     float64 `json:"max_proper_motion"`
	MinProperMotion     float64 `json:"min_proper_motion"`
}

// Key derives the run's fingerprint from its parameters.
func (p RunParams) Key() string {
	data := fmt.Sprintf("%.6f:%.6f:%t:%s:%.3f:%.3f",
		p.AcceptanceRatio,
		p.AcceptanceThreshold,
		p.Weighted,
		p.ThresholdMode,
		p.MaxProperMotion,
		p.MinProperMotion)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// Run is one invocation of the vetting pipeline.
type Run struct {
	StartedAt  time.Time
	FinishedAt *time.Time
	ID         string // UUID
	Key        string
	Params     RunParams
}
