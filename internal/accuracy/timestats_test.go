package accuracy

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/Veraticus/winnow/internal/common"
	"github.com/Veraticus/winnow/internal/model"
	"github.com/Veraticus/winnow/internal/votes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func classifyAt(userID string, offsets ...time.Duration) []model.Classification {
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	cls := make([]model.Classification, len(offsets))
	for i, off := range offsets {
		cls[i] = model.Classification{
			SubjectID: int64(i + 1),
			UserID:    userID,
			Answer:    true,
			CreatedAt: base.Add(off),
		}
	}
	return cls
}

func TestModel_TimeStats(t *testing.T) {
	cls := classifyAt("vera", 0, 10*time.Second, 30*time.Second, 60*time.Second)
	m := New(votes.New(nil, cls), nil, Options{})

	stats, err := m.TimeStats("vera")
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Count)
	assert.Equal(t, 20*time.Second, stats.Mean)
	assert.Equal(t, 20*time.Second, stats.Median)

	wantStd := math.Sqrt(200.0 / 3.0) // population std of {10,20,30}
	assert.InDelta(t, wantStd, stats.StdDev.Seconds(), 1e-6)
}

func TestModel_TimeStats_SessionBoundary(t *testing.T) {
	// The 40 minute break between sessions must not count as a gap, and a
	// gap of exactly five minutes is already a boundary.
	cls := classifyAt("vera",
		0, 30*time.Second,
		30*time.Second+5*time.Minute,
		71*time.Minute, 71*time.Minute+50*time.Second,
	)
	m := New(votes.New(nil, cls), nil, Options{})

	stats, err := m.TimeStats("vera")
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Count)
	assert.Equal(t, 40*time.Second, stats.Mean)
}

func TestModel_TimeStats_Insufficient(t *testing.T) {
	m := New(votes.New(nil, classifyAt("lone", 0)), nil, Options{})

	_, err := m.TimeStats("lone")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInsufficientData))

	_, err = m.TimeStats("nobody")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestModel_AllTimeStats(t *testing.T) {
	var cls []model.Classification
	cls = append(cls, classifyAt("vera", 0, 10*time.Second)...)
	cls = append(cls, classifyAt("ada", 0, 30*time.Second)...)
	m := New(votes.New(nil, cls), nil, Options{})

	stats, err := m.AllTimeStats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Count)
	assert.Equal(t, 20*time.Second, stats.Mean)
}
