package selector

import (
	"testing"
	"time"

	"github.com/Veraticus/winnow/internal/model"
	"github.com/Veraticus/winnow/internal/votes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tallyStore builds a store with fixed yes/no counts per subject, each vote
// from a distinct user.
func tallyStore(counts map[int64][2]int) *votes.Store {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	var cls []model.Classification
	var subjects []model.Subject
	user := 0
	for id, yn := range counts {
		subjects = append(subjects, model.Subject{ID: id, FOV: model.DefaultFOV})
		for i := 0; i < yn[0]; i++ {
			user++
			cls = append(cls, model.Classification{
				SubjectID: id, UserID: userName(user), Answer: true,
				CreatedAt: base.Add(time.Duration(user) * time.Second),
			})
		}
		for i := 0; i < yn[1]; i++ {
			user++
			cls = append(cls, model.Classification{
				SubjectID: id, UserID: userName(user), Answer: false,
				CreatedAt: base.Add(time.Duration(user) * time.Second),
			})
		}
	}
	return votes.New(subjects, cls)
}

func userName(n int) string {
	return "volunteer-" + string(rune('a'+n%26)) + string(rune('a'+(n/26)%26))
}

func TestSelector_IsAcceptable(t *testing.T) {
	store := tallyStore(map[int64][2]int{
		1: {8, 2},
		2: {1, 9},
		3: {0, 0},
		4: {2, 0},
		5: {5, 5},
	})
	s := New(store, Options{})

	tests := []struct {
		name      string
		subjectID int64
		ratio     float64
		threshold float64
		accepted  bool
		tally     model.VoteTally
	}{
		{
			name:      "strong yes majority",
			subjectID: 1,
			ratio:     0.5,
			threshold: 1,
			accepted:  true,
			tally:     model.VoteTally{Yes: 8, No: 2, Total: 10},
		},
		{
			name:      "strong no majority",
			subjectID: 2,
			ratio:     0.5,
			threshold: 1,
			accepted:  false,
			tally:     model.VoteTally{Yes: 1, No: 9, Total: 10},
		},
		{
			name:      "zero classifications never accepted",
			subjectID: 3,
			ratio:     0,
			threshold: 0,
			accepted:  false,
			tally:     model.VoteTally{},
		},
		{
			name:      "zero thresholds accept any classified subject",
			subjectID: 2,
			ratio:     0,
			threshold: 0,
			accepted:  true,
			tally:     model.VoteTally{Yes: 1, No: 9, Total: 10},
		},
		{
			name:      "ratio passes but threshold fails",
			subjectID: 4,
			ratio:     0.5,
			threshold: 3,
			accepted:  false,
			tally:     model.VoteTally{Yes: 2, No: 0, Total: 2},
		},
		{
			name:      "threshold passes but ratio fails",
			subjectID: 5,
			ratio:     0.9,
			threshold: 1,
			accepted:  false,
			tally:     model.VoteTally{Yes: 5, No: 5, Total: 10},
		},
		{
			name:      "boundary ratio is inclusive",
			subjectID: 5,
			ratio:     0.5,
			threshold: 5,
			accepted:  true,
			tally:     model.VoteTally{Yes: 5, No: 5, Total: 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision, err := s.IsAcceptable(tt.subjectID, tt.ratio, tt.threshold, false)
			require.NoError(t, err)
			assert.Equal(t, tt.accepted, decision.Accepted)
			assert.Equal(t, tt.tally, decision.Tally)
			assert.False(t, decision.Weighted)
		})
	}
}

func TestSelector_Monotonicity(t *testing.T) {
	store := tallyStore(map[int64][2]int{
		1: {8, 2},
		2: {1, 9},
		3: {4, 4},
		4: {0, 0},
	})
	s := New(store, Options{})

	ratios := []float64{0, 0.25, 0.5, 0.75, 1.0}
	thresholds := []float64{0, 1, 2, 5, 10}

	for _, id := range store.SubjectIDs() {
		for i, ratio := range ratios {
			for j, threshold := range thresholds {
				lower, err := s.IsAcceptable(id, ratio, threshold, false)
				require.NoError(t, err)

				// Tightening either parameter can only remove acceptance.
				for _, r2 := range ratios[i:] {
					for _, t2 := range thresholds[j:] {
						tighter, err := s.IsAcceptable(id, r2, t2, false)
						require.NoError(t, err)
						if tighter.Accepted {
							assert.True(t, lower.Accepted,
								"subject %d accepted at (%v,%v) but not (%v,%v)",
								id, r2, t2, ratio, threshold)
						}
					}
				}
			}
		}
	}
}

func TestSelector_FindAcceptableCandidates(t *testing.T) {
	store := tallyStore(map[int64][2]int{
		30: {9, 1},
		10: {8, 2},
		20: {1, 9},
		40: {0, 0},
	})
	s := New(store, Options{})

	first, err := s.FindAcceptableCandidates(0.5, 1, false)
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 30}, first, "ascending subject order")

	second, err := s.FindAcceptableCandidates(0.5, 1, false)
	require.NoError(t, err)
	assert.Equal(t, first, second, "idempotent on unchanged data")
}

func TestSelector_WeightedMode(t *testing.T) {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	cls := []model.Classification{
		{SubjectID: 1, UserID: "a", Answer: true, CreatedAt: base},
		{SubjectID: 1, UserID: "b", Answer: true, CreatedAt: base},
		{SubjectID: 1, UserID: "c", Answer: true, CreatedAt: base},
		{SubjectID: 1, UserID: "d", Answer: true, CreatedAt: base},
	}
	store := votes.New(nil, cls)
	half := func(string) float64 { return 0.5 }

	// Weighted yes sum is 2; raw yes count is 4.
	sum := New(store, Options{Weights: half})
	decision, err := sum.IsAcceptable(1, 0.5, 3, true)
	require.NoError(t, err)
	assert.False(t, decision.Accepted, "weighted sum 2 misses threshold 3")
	assert.InDelta(t, 2.0, decision.Tally.Yes, 1e-9)

	count := New(store, Options{Weights: half, ThresholdMode: ThresholdRawCount})
	decision, err = count.IsAcceptable(1, 0.5, 3, true)
	require.NoError(t, err)
	assert.True(t, decision.Accepted, "raw count 4 clears threshold 3")
	assert.InDelta(t, 2.0, decision.Tally.Yes, 1e-9, "tally itself stays weighted")
}

func TestSelector_UnitWeightsMatchUnweighted(t *testing.T) {
	store := tallyStore(map[int64][2]int{
		1: {8, 2},
		2: {1, 9},
		3: {3, 3},
	})
	weighted := New(store, Options{Weights: model.UnitWeight})
	unweighted := New(store, Options{})

	for _, id := range store.SubjectIDs() {
		w, err := weighted.IsAcceptable(id, 0.5, 2, true)
		require.NoError(t, err)
		u, err := unweighted.IsAcceptable(id, 0.5, 2, false)
		require.NoError(t, err)

		assert.Equal(t, u.Accepted, w.Accepted, "subject %d", id)
		assert.Equal(t, u.Tally, w.Tally, "subject %d", id)
	}
}

func TestSelector_Decisions(t *testing.T) {
	store := tallyStore(map[int64][2]int{
		2: {1, 0},
		1: {0, 1},
	})
	s := New(store, Options{})

	decisions, err := s.Decisions(0.5, 1, false)
	require.NoError(t, err)
	require.Len(t, decisions, 2)
	assert.Equal(t, int64(1), decisions[0].SubjectID)
	assert.False(t, decisions[0].Accepted)
	assert.Equal(t, int64(2), decisions[1].SubjectID)
	assert.True(t, decisions[1].Accepted)
}
