package accuracy

import (
	"sort"
	"time"

	"github.com/Veraticus/winnow/internal/common"
	"gonum.org/v1/gonum/stat"
)

// sessionGapLimit bounds the gap between consecutive classifications that
// still counts as active classifying. Longer gaps are session boundaries
// and are excluded from timing statistics.
const sessionGapLimit = 5 * time.Minute

// TimeStats summarizes how quickly a user classifies within a session.
type TimeStats struct {
	Mean   time.Duration
	StdDev time.Duration
	Median time.Duration
	Count  int // gaps measured
}

// TimeStats computes classification timing statistics for one user from the
// gaps between their consecutive classifications.
func (m *Model) TimeStats(userID string) (TimeStats, error) {
	cls, err := m.store.ClassificationsByUser(userID, true)
	if err != nil {
		return TimeStats{}, err
	}

	gaps := make([]float64, 0, len(cls))
	for i := 1; i < len(cls); i++ {
		gap := cls[i].CreatedAt.Sub(cls[i-1].CreatedAt)
		if gap >= 0 && gap < sessionGapLimit {
			gaps = append(gaps, gap.Seconds())
		}
	}
	if len(gaps) == 0 {
		return TimeStats{}, &common.InsufficientDataError{
			What: "classification timing for user " + userID,
			Need: 2,
			Have: len(cls),
		}
	}

	return summarize(gaps), nil
}

// AllTimeStats computes timing statistics pooled across every user in the
// dataset. Users without consecutive in-session classifications contribute
// nothing.
func (m *Model) AllTimeStats() (TimeStats, error) {
	var gaps []float64
	for _, userID := range m.store.Users() {
		cls, err := m.store.ClassificationsByUser(userID, false)
		if err != nil {
			continue
		}
		for i := 1; i < len(cls); i++ {
			gap := cls[i].CreatedAt.Sub(cls[i-1].CreatedAt)
			if gap >= 0 && gap < sessionGapLimit {
				gaps = append(gaps, gap.Seconds())
			}
		}
	}
	if len(gaps) == 0 {
		return TimeStats{}, &common.InsufficientDataError{
			What: "classification timing",
			Need: 1,
			Have: 0,
		}
	}

	return summarize(gaps), nil
}

func summarize(gaps []float64) TimeStats {
	sorted := make([]float64, len(gaps))
	copy(sorted, gaps)
	sort.Float64s(sorted)

	return TimeStats{
		Mean:   secondsToDuration(stat.Mean(gaps, nil)),
		StdDev: secondsToDuration(stat.PopStdDev(gaps, nil)),
		Median: secondsToDuration(stat.Quantile(0.5, stat.LinInterp, sorted, nil)),
		Count:  len(gaps),
	}
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
