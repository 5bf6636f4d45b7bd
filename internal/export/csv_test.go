package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/winnow/internal/model"
	"github.com/Veraticus/winnow/internal/service"
	"github.com/Veraticus/winnow/internal/testutil"
)

// testReport builds a small finished run with one subject per interesting
// case: full metadata with viewer links, bare coordinates, and an
// unresolved ID that was never imported.
func testReport(t *testing.T) Report {
	t.Helper()

	subjects := testutil.NewDataset(t).
		WithSubject(10, 133.70005, 22.10001).
		WithMetadata(10, "WISEVIEW", "[WiseView](+tab+http://byw.tools/wiseview#ra=133.70005&dec=22.10001)").
		WithMetadata(10, "SIMBAD", "[SIMBAD](+tab+http://simbad.u-strasbg.fr/simbad/sim-coo?Coord=133.70005d22.10001)").
		WithSubject(11, 210.4, -5.2).
		WithSubject(12, 9.25, 44).
		Subjects()

	started := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	finished := started.Add(42 * time.Minute)
	run := &model.Run{
		ID:         "d3f1a8f2-5c3b-4c7a-9e3e-2b7f3f1a8f25",
		Key:        "abc123",
		Params:     model.RunParams{AcceptanceRatio: 0.7, AcceptanceThreshold: 3},
		StartedAt:  started,
		FinishedAt: &finished,
	}

	return Report{
		Run:      run,
		Subjects: SubjectIndex(subjects),
		Buckets: map[model.Bucket][]int64{
			model.BucketBoth:       {},
			model.BucketSimbadOnly: {12},
			model.BucketGaiaOnly:   {},
			model.BucketNeither:    {10, 11},
		},
		Unresolved: []int64{99},
		Stats:      service.SweepStats{Candidates: 4, Resolved: 3, Unresolved: 1},
	}
}

func TestWriteBucketFiles(t *testing.T) {
	report := testReport(t)
	dir := filepath.Join(t.TempDir(), "out")

	paths, err := WriteBucketFiles(dir, report)
	require.NoError(t, err)

	wantFiles := []string{
		"matched-in-both.csv",
		"matched-in-simbad-only.csv",
		"matched-in-gaia-only.csv",
		"matched-in-neither.csv",
		"unresolved.csv",
	}
	require.Len(t, paths, len(wantFiles))
	for i, name := range wantFiles {
		assert.Equal(t, filepath.Join(dir, name), paths[i])
	}

	// An empty bucket still gets a header-only file.
	both, err := os.ReadFile(filepath.Join(dir, "matched-in-both.csv"))
	require.NoError(t, err)
	assert.Equal(t, "subject_id,ra,dec,fov,wiseview_url,simbad_url\n", string(both))

	neither, err := os.ReadFile(filepath.Join(dir, "matched-in-neither.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(neither)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t,
		"10,133.70005,22.10001,120,http://byw.tools/wiseview#ra=133.70005&dec=22.10001,http://simbad.u-strasbg.fr/simbad/sim-coo?Coord=133.70005d22.10001",
		lines[1])
	assert.Equal(t, "11,210.4,-5.2,120,,", lines[2])
}

func TestWriteSubjects_MissingSubjectRecord(t *testing.T) {
	report := testReport(t)

	var buf bytes.Buffer
	require.NoError(t, WriteSubjects(&buf, report, []int64{99}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "99,,,,,", lines[1])
}

func TestWriteDecisions(t *testing.T) {
	decisions := []model.CandidateDecision{
		{
			SubjectID: 10,
			Accepted:  true,
			Tally:     model.VoteTally{Yes: 8, No: 2, Total: 10},
			Ratio:     0.8,
		},
		{
			SubjectID: 11,
			Tally:     model.VoteTally{Yes: 1, No: 9, Total: 10},
			Ratio:     0.1,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteDecisions(&buf, decisions))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "subject_id,accepted,yes,no,total,ratio", lines[0])
	assert.Equal(t, "10,true,8,2,10,0.8000", lines[1])
	assert.Equal(t, "11,false,1,9,10,0.1000", lines[2])
}
