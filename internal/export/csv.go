package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Veraticus/winnow/internal/model"
)

// subjectHeader is the canonical column set for subject list files.
var subjectHeader = []string{"subject_id", "ra", "dec", "fov", "wiseview_url", "simbad_url"}

// WriteBucketFiles writes one CSV per bucket plus the unresolved list under
// dir, creating the directory if needed. Empty sections still produce a
// file with a header row, so downstream tooling can rely on the full set
// existing after every run.
func WriteBucketFiles(dir string, report Report) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	paths := make([]string, 0, len(model.Buckets())+1)
	for _, sec := range report.sections() {
		path := filepath.Join(dir, sec.Name+".csv")
		if err := writeSubjectFile(path, report, sec.IDs); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeSubjectFile(path string, report Report, ids []int64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := WriteSubjects(f, report, ids); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}

// WriteSubjects writes the canonical subject columns for ids to w. A
// candidate that was voted on but never imported produces a row with only
// the ID set, leaving the coordinate columns empty rather than inventing
// them.
func WriteSubjects(w io.Writer, report Report, ids []int64) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(subjectHeader); err != nil {
		return err
	}
	for _, id := range ids {
		if err := cw.Write(subjectRow(report.Subjects, id)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func subjectRow(subjects map[int64]model.Subject, id int64) []string {
	row := []string{strconv.FormatInt(id, 10), "", "", "", "", ""}
	subject, ok := subjects[id]
	if !ok {
		return row
	}
	row[1] = strconv.FormatFloat(subject.RA, 'f', -1, 64)
	row[2] = strconv.FormatFloat(subject.Dec, 'f', -1, 64)
	row[3] = strconv.FormatFloat(subject.FOV, 'f', -1, 64)
	if url, ok := subject.WiseViewURL(); ok {
		row[4] = url
	}
	if url, ok := subject.SimbadURL(); ok {
		row[5] = url
	}
	return row
}

// WriteDecisions writes one row per acceptance decision to w: the tally,
// the achieved ratio, and the verdict.
func WriteDecisions(w io.Writer, decisions []model.CandidateDecision) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"subject_id", "accepted", "yes", "no", "total", "ratio"}); err != nil {
		return err
	}
	for _, d := range decisions {
		row := []string{
			strconv.FormatInt(d.SubjectID, 10),
			strconv.FormatBool(d.Accepted),
			strconv.FormatFloat(d.Tally.Yes, 'f', -1, 64),
			strconv.FormatFloat(d.Tally.No, 'f', -1, 64),
			strconv.FormatFloat(d.Tally.Total, 'f', -1, 64),
			strconv.FormatFloat(d.Ratio, 'f', 4, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
