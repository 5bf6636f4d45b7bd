package model

// WeightFunc returns the vote weight for a user identifier. A nil WeightFunc
// means every vote counts 1, which makes weighted tallying identical to raw
// counting.
type WeightFunc func(userID string) float64

// UnitWeight weights every user's vote as 1.
func UnitWeight(string) float64 { return 1 }

// VoteTally holds the per-subject vote sums for one weighting mode. Values
// are float64 because weighted tallies sum fractional user weights; in
// unweighted mode they are whole counts. Tallies are derived on demand and
// never mutated in place.
type VoteTally struct {
	Yes   float64
	No    float64
	Total float64
}

// Ratio returns yes/total, or 0 for an empty tally. An empty tally never
// divides; it simply fails any acceptance ratio above zero.
func (t VoteTally) Ratio() float64 {
	if t.Total == 0 {
		return 0
	}
	return t.Yes / t.Total
}

// Empty reports whether the tally covers zero classifications.
func (t VoteTally) Empty() bool {
	return t.Total == 0
}

// Add accumulates one vote with the given weight and returns the new tally.
func (t VoteTally) Add(answer bool, weight float64) VoteTally {
	if answer {
		t.Yes += weight
	} else {
		t.No += weight
	}
	t.Total += weight
	return t
}
