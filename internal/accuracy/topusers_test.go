package accuracy

import (
	"errors"
	"testing"
	"time"

	"github.com/Veraticus/winnow/internal/common"
	"github.com/Veraticus/winnow/internal/model"
	"github.com/Veraticus/winnow/internal/votes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

// volumeStore gives four users classification volumes 1, 4, 4 and 10.
func volumeStore(t *testing.T) *votes.Store {
	t.Helper()

	counts := map[string]int{
		"casual": 1,
		"steady": 4,
		"ties":   4,
		"power":  10,
	}
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	var cls []model.Classification
	var subject int64
	for user, n := range counts {
		for i := 0; i < n; i++ {
			subject++
			cls = append(cls, model.Classification{
				SubjectID: subject,
				UserID:    user,
				Answer:    true,
				CreatedAt: base.Add(time.Duration(subject) * time.Minute),
			})
		}
	}
	return votes.New(nil, cls)
}

func TestTopUsers_ModeValidation(t *testing.T) {
	m := New(volumeStore(t), nil, Options{})

	tests := []struct {
		name string
		opts TopUsersOptions
	}{
		{name: "neither mode", opts: TopUsersOptions{Metric: MetricVolume}},
		{
			name: "both modes",
			opts: TopUsersOptions{Metric: MetricVolume, Percentile: ptr(90), Threshold: ptr(5)},
		},
		{
			name: "percentile out of range",
			opts: TopUsersOptions{Metric: MetricVolume, Percentile: ptr(150)},
		},
		{
			name: "unknown metric",
			opts: TopUsersOptions{Metric: "karma", Threshold: ptr(1)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.TopUsers(tt.opts)
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrInvalidConfig))
		})
	}
}

func TestTopUsers_Threshold(t *testing.T) {
	m := New(volumeStore(t), nil, Options{})

	users, err := m.TopUsers(TopUsersOptions{Metric: MetricVolume, Threshold: ptr(4)})
	require.NoError(t, err)
	assert.Equal(t, []string{"power", "steady", "ties"}, users, "inclusive cutoff, volume desc then name")
}

func TestTopUsers_PercentileIncludesTies(t *testing.T) {
	m := New(volumeStore(t), nil, Options{})

	users, err := m.TopUsers(TopUsersOptions{Metric: MetricVolume, Percentile: ptr(50)})
	require.NoError(t, err)
	// The 50th percentile of {1,4,4,10} lands at 4; both users at the
	// cutoff value stay in.
	assert.Equal(t, []string{"power", "steady", "ties"}, users)
}

func TestTopUsers_AccuracyMetric(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	verified := map[int64]bool{1: true, 2: false}
	cls := []model.Classification{
		{SubjectID: 1, UserID: "sharp", Answer: true, CreatedAt: base},
		{SubjectID: 2, UserID: "sharp", Answer: false, CreatedAt: base.Add(time.Minute)},
		{SubjectID: 1, UserID: "noisy", Answer: false, CreatedAt: base},
		{SubjectID: 2, UserID: "noisy", Answer: false, CreatedAt: base.Add(time.Minute)},
		{SubjectID: 99, UserID: "ungraded", Answer: true, CreatedAt: base},
	}
	m := New(votes.New(nil, cls), verified, Options{})

	users, err := m.TopUsers(TopUsersOptions{Metric: MetricAccuracy, Threshold: ptr(0.75)})
	require.NoError(t, err)
	assert.Equal(t, []string{"sharp"}, users, "undefined accuracies never rank")
}
