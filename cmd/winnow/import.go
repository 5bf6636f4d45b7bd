package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/winnow/internal/cli"
	"github.com/Veraticus/winnow/internal/common"
	"github.com/Veraticus/winnow/internal/model"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import platform CSV exports",
		Long: `Ingest the platform's export tables into the local database.

Three tables are understood, each optional per invocation:
  --subjects         subject_id, ra, dec, fov, plus metadata columns
                     (#BITMASK sets the subject type)
  --classifications  subject_id, user_id, answer, created_at
  --tallies          subject_id, workflow_id, workflow_version, yes, no

Examples:
  winnow import --subjects subjects.csv --classifications cls.csv
  winnow import --tallies tallies.csv --workflow 24299 --version 2.10`,
		RunE: runImport,
	}

	cmd.Flags().String("subjects", "", "subject metadata CSV")
	cmd.Flags().String("classifications", "", "per-classification CSV")
	cmd.Flags().String("tallies", "", "per-subject vote tally CSV")
	cmd.Flags().Int64("workflow", 0, "restrict tally import to one workflow ID (0 = all)")
	cmd.Flags().String("version", "", "restrict tally import to one workflow version")

	return cmd
}

func runImport(cmd *cobra.Command, _ []string) error {
	subjectsPath, _ := cmd.Flags().GetString("subjects")
	classificationsPath, _ := cmd.Flags().GetString("classifications")
	talliesPath, _ := cmd.Flags().GetString("tallies")
	workflowID, _ := cmd.Flags().GetInt64("workflow")
	workflowVersion, _ := cmd.Flags().GetString("version")

	if subjectsPath == "" && classificationsPath == "" && talliesPath == "" {
		return fmt.Errorf("nothing to import: provide --subjects, --classifications, or --tallies")
	}

	ctx := cmd.Context()
	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("Failed to close database", "error", closeErr)
		}
	}()

	if subjectsPath != "" {
		subjects, readErr := readSubjectsCSV(subjectsPath)
		if readErr != nil {
			return readErr
		}
		if err := store.SaveSubjects(ctx, subjects); err != nil {
			return fmt.Errorf("saving subjects: %w", err)
		}
		slog.Info("Imported subjects",
			"file", filepath.Base(subjectsPath),
			"subjects", len(subjects))
	}

	if classificationsPath != "" {
		classifications, readErr := readClassificationsCSV(classificationsPath)
		if readErr != nil {
			return readErr
		}
		if err := store.SaveClassifications(ctx, classifications); err != nil {
			return fmt.Errorf("saving classifications: %w", err)
		}
		slog.Info("Imported classifications",
			"file", filepath.Base(classificationsPath),
			"classifications", len(classifications))
	}

	if talliesPath != "" {
		tallies, skipped, readErr := readTalliesCSV(talliesPath, workflowID, workflowVersion)
		if readErr != nil {
			return readErr
		}
		if err := store.SaveTallies(ctx, tallies); err != nil {
			return fmt.Errorf("saving tallies: %w", err)
		}
		slog.Info("Imported tallies",
			"file", filepath.Base(talliesPath),
			"tallies", len(tallies),
			"filtered_out", skipped)
	}

	fmt.Println(cli.FormatSuccess("Import complete"))
	return nil
}

// subjectColumns are consumed into typed Subject fields; every other column
// becomes an ordered metadata entry.
var subjectColumns = map[string]bool{
	"subject_id": true,
	"ra":         true,
	"dec":        true,
	"fov":        true,
}

func readSubjectsCSV(path string) ([]model.Subject, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening subjects file: %w", err)
	}
	defer func() { _ = f.Close() }()

	subjects, err := parseSubjects(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return subjects, nil
}

func parseSubjects(r io.Reader) ([]model.Subject, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, cols, err := readHeader(cr, "subjects", "subject_id", "ra", "dec")
	if err != nil {
		return nil, err
	}

	var subjects []model.Subject
	line := 1
	for {
		record, readErr := cr.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("reading row: %w", readErr)
		}
		line++

		subject, rowErr := parseSubjectRow(header, cols, record)
		if rowErr != nil {
			return nil, fmt.Errorf("line %d: %w", line, rowErr)
		}
		subjects = append(subjects, subject)
	}
	return subjects, nil
}

func parseSubjectRow(header []string, cols map[string]int, record []string) (model.Subject, error) {
	id, err := strconv.ParseInt(record[cols["subject_id"]], 10, 64)
	if err != nil {
		return model.Subject{}, fmt.Errorf("parsing subject_id: %w", err)
	}
	ra, err := strconv.ParseFloat(record[cols["ra"]], 64)
	if err != nil {
		return model.Subject{}, fmt.Errorf("parsing ra: %w", err)
	}
	dec, err := strconv.ParseFloat(record[cols["dec"]], 64)
	if err != nil {
		return model.Subject{}, fmt.Errorf("parsing dec: %w", err)
	}

	fov := model.DefaultFOV
	if idx, ok := cols["fov"]; ok && strings.TrimSpace(record[idx]) != "" {
		fov, err = strconv.ParseFloat(record[idx], 64)
		if err != nil {
			return model.Subject{}, fmt.Errorf("parsing fov: %w", err)
		}
	}

	subject := model.Subject{ID: id, RA: ra, Dec: dec, FOV: fov}
	for i, key := range header {
		if subjectColumns[strings.ToLower(key)] {
			continue
		}
		subject.Metadata = append(subject.Metadata, model.MetadataField{Key: key, Value: record[i]})
		if key == "#BITMASK" {
			subjectType, typeErr := model.ParseSubjectType(record[i])
			if typeErr != nil {
				return model.Subject{}, typeErr
			}
			subject.Type = subjectType
		}
	}
	return subject, nil
}

func readClassificationsCSV(path string) ([]model.Classification, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening classifications file: %w", err)
	}
	defer func() { _ = f.Close() }()

	classifications, err := parseClassifications(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return classifications, nil
}

func parseClassifications(r io.Reader) ([]model.Classification, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	_, cols, err := readHeader(cr, "classifications", "subject_id", "user_id", "answer", "created_at")
	if err != nil {
		return nil, err
	}

	var classifications []model.Classification
	line := 1
	for {
		record, readErr := cr.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("reading row: %w", readErr)
		}
		line++

		subjectID, idErr := strconv.ParseInt(record[cols["subject_id"]], 10, 64)
		if idErr != nil {
			return nil, fmt.Errorf("line %d: parsing subject_id: %w", line, idErr)
		}
		answer, answerErr := parseAnswer(record[cols["answer"]])
		if answerErr != nil {
			return nil, fmt.Errorf("line %d: %w", line, answerErr)
		}
		createdAt, timeErr := parseTimestamp(record[cols["created_at"]])
		if timeErr != nil {
			return nil, fmt.Errorf("line %d: %w", line, timeErr)
		}

		classifications = append(classifications, model.Classification{
			SubjectID: subjectID,
			UserID:    record[cols["user_id"]],
			Answer:    answer,
			CreatedAt: createdAt,
		})
	}
	return classifications, nil
}

func readTalliesCSV(path string, workflowID int64, workflowVersion string) ([]model.ImportedTally, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("opening tallies file: %w", err)
	}
	defer func() { _ = f.Close() }()

	tallies, skipped, err := parseTallies(f, workflowID, workflowVersion)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return tallies, skipped, nil
}

func parseTallies(r io.Reader, workflowID int64, workflowVersion string) ([]model.ImportedTally, int, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	_, cols, err := readHeader(cr, "tallies", "subject_id", "workflow_id", "workflow_version", "yes", "no")
	if err != nil {
		return nil, 0, err
	}

	var tallies []model.ImportedTally
	skipped := 0
	line := 1
	for {
		record, readErr := cr.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return nil, 0, fmt.Errorf("reading row: %w", readErr)
		}
		line++

		tally, rowErr := parseTallyRow(cols, record)
		if rowErr != nil {
			return nil, 0, fmt.Errorf("line %d: %w", line, rowErr)
		}

		if workflowID != 0 && tally.WorkflowID != workflowID {
			skipped++
			continue
		}
		if workflowVersion != "" && tally.WorkflowVersion != workflowVersion {
			skipped++
			continue
		}
		tallies = append(tallies, tally)
	}
	return tallies, skipped, nil
}

func parseTallyRow(cols map[string]int, record []string) (model.ImportedTally, error) {
	subjectID, err := strconv.ParseInt(record[cols["subject_id"]], 10, 64)
	if err != nil {
		return model.ImportedTally{}, fmt.Errorf("parsing subject_id: %w", err)
	}
	workflow, err := strconv.ParseInt(record[cols["workflow_id"]], 10, 64)
	if err != nil {
		return model.ImportedTally{}, fmt.Errorf("parsing workflow_id: %w", err)
	}
	yes, err := strconv.Atoi(record[cols["yes"]])
	if err != nil {
		return model.ImportedTally{}, fmt.Errorf("parsing yes count: %w", err)
	}
	no, err := strconv.Atoi(record[cols["no"]])
	if err != nil {
		return model.ImportedTally{}, fmt.Errorf("parsing no count: %w", err)
	}

	return model.ImportedTally{
		SubjectID:       subjectID,
		WorkflowID:      workflow,
		WorkflowVersion: record[cols["workflow_version"]],
		Yes:             yes,
		No:              no,
	}, nil
}

// readHeader reads the header row and verifies the required columns are
// present. Column lookup is case-insensitive; the returned header preserves
// the source spelling for metadata keys.
func readHeader(cr *csv.Reader, table string, required ...string) ([]string, map[string]int, error) {
	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, nil, &common.ConfigurationError{
				Field:  table,
				Reason: "missing required column " + name,
			}
		}
	}
	return header, cols, nil
}

func parseAnswer(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "t", "yes":
		return true, nil
	case "0", "false", "f", "no":
		return false, nil
	default:
		return false, fmt.Errorf("unrecognized answer %q", s)
	}
}

// timestampLayouts covers RFC 3339 plus the space-separated form the
// platform's export writes.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05",
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
