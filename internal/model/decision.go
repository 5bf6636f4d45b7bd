package model

// CandidateDecision records one acceptance decision for one subject. It is a
// report computed fresh each run, never persisted as canonical state.
type CandidateDecision struct {
	SubjectID           int64
	Accepted            bool
	Weighted            bool
	Tally               VoteTally
	Ratio               float64 // yes/total achieved; 0 for an empty tally
	AcceptanceRatio     float64
	AcceptanceThreshold float64
}
