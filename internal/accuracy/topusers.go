package accuracy

import (
	"sort"

	"github.com/Veraticus/winnow/internal/common"
	"gonum.org/v1/gonum/stat"
)

// Metric selects what TopUsers ranks on.
type Metric string

// Ranking metrics.
const (
	MetricVolume   Metric = "volume"   // total classifications made
	MetricAccuracy Metric = "accuracy" // accuracy against the verified subset
)

// TopUsersOptions configures a TopUsers query. Exactly one of Percentile and
// Threshold must be set; supplying both or neither is a configuration error.
type TopUsersOptions struct {
	Metric Metric
	// Percentile selects users at or above the given rank-based percentile
	// of the population, in [0,100]. Ties at the cutoff value are included.
	Percentile *float64
	// Threshold selects users whose metric value is at or above this
	// absolute cutoff.
	Threshold *float64
}

// TopUsers returns the identifiers of users at or above the configured
// cutoff on the chosen metric, ordered by metric descending then user ID.
// Ranking on accuracy considers only users with a defined accuracy.
func (m *Model) TopUsers(opts TopUsersOptions) ([]string, error) {
	if (opts.Percentile == nil) == (opts.Threshold == nil) {
		return nil, &common.ConfigurationError{
			Field:  "top users",
			Reason: "exactly one of percentile and threshold must be set",
		}
	}
	if opts.Metric == "" {
		opts.Metric = MetricVolume
	}

	type ranked struct {
		userID string
		value  float64
	}
	population := make([]ranked, 0, len(m.records))
	for userID, rec := range m.records {
		switch opts.Metric {
		case MetricVolume:
			population = append(population, ranked{userID, float64(rec.Total)})
		case MetricAccuracy:
			if rec.HasAccuracy {
				population = append(population, ranked{userID, rec.Accuracy})
			}
		default:
			return nil, &common.ConfigurationError{
				Field:  "top users",
				Reason: "unknown metric " + string(opts.Metric),
			}
		}
	}
	if len(population) == 0 {
		return nil, nil
	}

	var cutoff float64
	switch {
	case opts.Percentile != nil:
		p := *opts.Percentile
		if p < 0 || p > 100 {
			return nil, &common.ConfigurationError{
				Field:  "top users",
				Reason: "percentile must be within [0,100]",
			}
		}
		values := make([]float64, len(population))
		for i, r := range population {
			values[i] = r.value
		}
		sort.Float64s(values)
		cutoff = stat.Quantile(p/100, stat.LinInterp, values, nil)
	default:
		cutoff = *opts.Threshold
	}

	selected := population[:0]
	for _, r := range population {
		if r.value >= cutoff {
			selected = append(selected, r)
		}
	}
	sort.Slice(selected, func(i, j int) bool {
		if selected[i].value == selected[j].value {
			return selected[i].userID < selected[j].userID
		}
		return selected[i].value > selected[j].value
	})

	users := make([]string, len(selected))
	for i, r := range selected {
		users[i] = r.userID
	}
	return users, nil
}
