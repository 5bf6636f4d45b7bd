package export

import (
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/winnow/internal/common"
)

func TestSheetsConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		errMsg  string
		config  SheetsConfig
		wantErr bool
	}{
		{
			name: "service account",
			config: SheetsConfig{
				ServiceAccountPath: "/path/to/key.json",
				BatchSize:          100,
				RetryAttempts:      3,
				RetryDelay:         time.Second,
			},
			wantErr: false,
		},
		{
			name: "oauth credentials",
			config: SheetsConfig{
				ClientID:      "test-client",
				ClientSecret:  "test-secret",
				RefreshToken:  "test-token",
				BatchSize:     100,
				RetryAttempts: 3,
				RetryDelay:    time.Second,
			},
			wantErr: false,
		},
		{
			name: "partial oauth credentials",
			config: SheetsConfig{
				ClientID:      "test-client",
				RefreshToken:  "test-token",
				BatchSize:     100,
				RetryAttempts: 3,
				RetryDelay:    time.Second,
			},
			wantErr: true,
			errMsg:  "no authentication method configured",
		},
		{
			name: "both auth methods",
			config: SheetsConfig{
				ClientID:           "test-client",
				ClientSecret:       "test-secret",
				RefreshToken:       "test-token",
				ServiceAccountPath: "/path/to/key.json",
				BatchSize:          100,
				RetryAttempts:      3,
				RetryDelay:         time.Second,
			},
			wantErr: true,
			errMsg:  "both OAuth2 and service account configured",
		},
		{
			name: "zero batch size",
			config: SheetsConfig{
				ServiceAccountPath: "/path/to/key.json",
				RetryAttempts:      3,
				RetryDelay:         time.Second,
			},
			wantErr: true,
			errMsg:  "must be positive",
		},
		{
			name: "zero retries and delay are valid",
			config: SheetsConfig{
				ServiceAccountPath: "/path/to/key.json",
				BatchSize:          100,
			},
			wantErr: false,
		},
		{
			name: "negative retry delay",
			config: SheetsConfig{
				ServiceAccountPath: "/path/to/key.json",
				BatchSize:          100,
				RetryAttempts:      3,
				RetryDelay:         -1 * time.Second,
			},
			wantErr: true,
			errMsg:  "cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.True(t, errors.Is(err, common.ErrInvalidConfig))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDefaultSheetsConfig(t *testing.T) {
	config := DefaultSheetsConfig()

	assert.True(t, config.EnableFormatting)
	assert.Equal(t, "Etc/UTC", config.TimeZone)
	assert.Equal(t, "Candidate Vetting Report", config.SpreadsheetName)
	assert.Equal(t, 500, config.BatchSize)
	assert.Equal(t, 3, config.RetryAttempts)
	assert.Equal(t, time.Second, config.RetryDelay)
}

func TestSheetsWriter_prepareRunData(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	writer := &SheetsWriter{
		config: DefaultSheetsConfig(),
		logger: logger,
	}

	report := testReport(t)
	values := writer.prepareRunData(report)

	require.Greater(t, len(values), 15, "should have title, summary, breakdown, and details")

	assert.Equal(t, "Candidate Vetting Report", values[0][0])
	assert.Contains(t, values[0][1], "Jun 1, 2024")

	rowIndex := func(label string) int {
		for i, row := range values {
			if len(row) > 0 && row[0] == label {
				return i
			}
		}
		return -1
	}

	summaryStart := rowIndex("Summary")
	require.NotEqual(t, -1, summaryStart, "should have summary section")
	assert.Equal(t, []any{"Acceptance Ratio", 0.7}, values[summaryStart+1])
	assert.Equal(t, []any{"Candidates", 4}, values[summaryStart+4])

	breakdownStart := rowIndex("Bucket Breakdown")
	require.NotEqual(t, -1, breakdownStart, "should have bucket breakdown")
	assert.Equal(t, []any{"Bucket", "Subjects"}, values[breakdownStart+1])
	assert.Equal(t, []any{"matched-in-both", 0}, values[breakdownStart+2])
	assert.Equal(t, []any{"matched-in-neither", 2}, values[breakdownStart+5])
	assert.Equal(t, []any{"unresolved", 1}, values[breakdownStart+6])

	detailsStart := rowIndex("Subject Details")
	require.NotEqual(t, -1, detailsStart, "should have subject details")
	assert.Equal(t,
		[]any{"Bucket", "Subject ID", "RA", "Dec", "FOV", "WiseView", "SIMBAD"},
		values[detailsStart+1])

	// Sections are emitted in bucket order: simbad-only first here, then
	// the two neither subjects, then the unimported unresolved one.
	assert.Equal(t, "matched-in-simbad-only", values[detailsStart+2][0])
	assert.Equal(t, int64(12), values[detailsStart+2][1])

	neitherRow := values[detailsStart+3]
	assert.Equal(t, "matched-in-neither", neitherRow[0])
	assert.Equal(t, int64(10), neitherRow[1])
	assert.Equal(t, 133.70005, neitherRow[2])
	assert.Equal(t, 22.10001, neitherRow[3])
	assert.Equal(t, "http://byw.tools/wiseview#ra=133.70005&dec=22.10001", neitherRow[5])

	unresolvedRow := values[len(values)-1]
	assert.Equal(t, []any{"unresolved", int64(99), "", "", "", "", ""}, unresolvedRow)
}

func TestSheetsWriter_prepareRunData_UnfinishedRun(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	writer := &SheetsWriter{
		config: DefaultSheetsConfig(),
		logger: logger,
	}

	report := testReport(t)
	report.Run.FinishedAt = nil

	values := writer.prepareRunData(report)
	assert.Equal(t, "Jun 1, 2024 10:00 UTC", values[0][1])
}
