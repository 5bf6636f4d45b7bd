package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/Veraticus/winnow/internal/common"
	"github.com/Veraticus/winnow/internal/model"
	"github.com/Veraticus/winnow/internal/service"
)

// SheetsWriter publishes vetting run reports to a Google Sheets
// spreadsheet.
type SheetsWriter struct {
	service *sheets.Service
	logger  *slog.Logger
	config  SheetsConfig
}

// NewSheetsWriter creates a Google Sheets report writer.
func NewSheetsWriter(ctx context.Context, config SheetsConfig, logger *slog.Logger) (*SheetsWriter, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	srv, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}

	return &SheetsWriter{
		config:  config,
		service: srv,
		logger:  logger,
	}, nil
}

// Write replaces the spreadsheet's contents with the given run report. The
// target spreadsheet is created on first use when no ID is configured.
func (w *SheetsWriter) Write(ctx context.Context, report Report) error {
	w.logger.Info("Starting sheets export",
		"candidates", report.Stats.Candidates,
		"unresolved", len(report.Unresolved))

	spreadsheetID, err := w.getOrCreateSpreadsheet(ctx)
	if err != nil {
		return fmt.Errorf("resolving spreadsheet: %w", err)
	}

	if clearErr := w.clearSheet(ctx, spreadsheetID); clearErr != nil {
		return fmt.Errorf("clearing sheet: %w", clearErr)
	}

	values := w.prepareRunData(report)

	retryOpts := service.RetryOptions{
		MaxAttempts:  w.config.RetryAttempts,
		InitialDelay: w.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	err = common.WithRetry(ctx, func() error {
		return w.writeData(ctx, spreadsheetID, values)
	}, retryOpts)
	if err != nil {
		return fmt.Errorf("writing report data: %w", err)
	}

	if w.config.EnableFormatting {
		err = common.WithRetry(ctx, func() error {
			return w.applyFormatting(ctx, spreadsheetID, len(values))
		}, retryOpts)
		if err != nil {
			// Formatting is cosmetic; the data is already in place.
			w.logger.Warn("Failed to apply formatting", "error", err)
		}
	}

	w.logger.Info("Sheets export complete",
		"spreadsheet_id", spreadsheetID,
		"rows_written", len(values))

	return nil
}

// createSheetsService builds the API client from whichever authentication
// method the config carries.
func createSheetsService(ctx context.Context, config SheetsConfig) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("reading service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("parsing service account key: %w", err)
		}

		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		oauthConfig := &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{sheets.SpreadsheetsScope},
		}

		token := &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		}

		tokenSource = oauthConfig.TokenSource(ctx, token)
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("creating sheets client: %w", err)
	}

	return srv, nil
}

// getOrCreateSpreadsheet returns the configured spreadsheet's ID, creating
// a fresh spreadsheet when none is configured.
func (w *SheetsWriter) getOrCreateSpreadsheet(ctx context.Context) (string, error) {
	if w.config.SpreadsheetID != "" {
		_, err := w.service.Spreadsheets.Get(w.config.SpreadsheetID).Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("accessing spreadsheet %s: %w", w.config.SpreadsheetID, err)
		}
		return w.config.SpreadsheetID, nil
	}

	spreadsheet := &sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{
			Title:    w.config.SpreadsheetName,
			TimeZone: w.config.TimeZone,
		},
		Sheets: []*sheets.Sheet{
			{
				Properties: &sheets.SheetProperties{
					Title: "Candidates",
				},
			},
		},
	}

	created, err := w.service.Spreadsheets.Create(spreadsheet).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("creating spreadsheet: %w", err)
	}

	w.logger.Info("Created new spreadsheet",
		"id", created.SpreadsheetId,
		"url", created.SpreadsheetUrl)

	return created.SpreadsheetId, nil
}

// clearSheet clears all data from the sheet.
func (w *SheetsWriter) clearSheet(ctx context.Context, spreadsheetID string) error {
	_, err := w.service.Spreadsheets.Values.Clear(spreadsheetID, "A:Z", &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

// prepareRunData flattens the report into spreadsheet rows: title, run
// summary, bucket breakdown, then one detail row per subject.
func (w *SheetsWriter) prepareRunData(report Report) [][]any {
	sections := report.sections()

	subjectRows := 0
	for _, sec := range sections {
		subjectRows += len(sec.IDs)
	}
	// Title(2) + summary(8) + breakdown(2+sections) + details header(3).
	values := make([][]any, 0, 15+len(sections)+subjectRows)

	values = append(values,
		[]any{w.config.SpreadsheetName, w.runWindow(report.Run)},
		[]any{},
		[]any{"Summary"},
		[]any{"Acceptance Ratio", report.Run.Params.AcceptanceRatio},
		[]any{"Acceptance Threshold", report.Run.Params.AcceptanceThreshold},
		[]any{"Weighted", report.Run.Params.Weighted},
		[]any{"Candidates", report.Stats.Candidates},
		[]any{"Resolved", report.Stats.Resolved},
		[]any{"Unresolved", report.Stats.Unresolved},
		[]any{},
		[]any{"Bucket Breakdown"},
		[]any{"Bucket", "Subjects"},
	)

	for _, sec := range sections {
		values = append(values, []any{sec.Name, len(sec.IDs)})
	}

	values = append(values,
		[]any{},
		[]any{"Subject Details"},
		[]any{"Bucket", "Subject ID", "RA", "Dec", "FOV", "WiseView", "SIMBAD"},
	)

	for _, sec := range sections {
		for _, id := range sec.IDs {
			values = append(values, w.subjectDetailRow(report, sec.Name, id))
		}
	}

	return values
}

func (w *SheetsWriter) subjectDetailRow(report Report, section string, id int64) []any {
	subject, ok := report.Subjects[id]
	if !ok {
		return []any{section, id, "", "", "", "", ""}
	}

	wiseview, _ := subject.WiseViewURL()
	simbad, _ := subject.SimbadURL()
	return []any{section, id, subject.RA, subject.Dec, subject.FOV, wiseview, simbad}
}

// runWindow renders the run's start and finish for the title row.
func (w *SheetsWriter) runWindow(run *model.Run) string {
	const layout = "Jan 2, 2006 15:04 MST"
	if run.FinishedAt == nil {
		return run.StartedAt.Format(layout)
	}
	return fmt.Sprintf("%s - %s", run.StartedAt.Format(layout), run.FinishedAt.Format(layout))
}

// writeData writes the rows in batches to stay under API limits.
func (w *SheetsWriter) writeData(ctx context.Context, spreadsheetID string, values [][]any) error {
	for i := 0; i < len(values); i += w.config.BatchSize {
		end := i + w.config.BatchSize
		if end > len(values) {
			end = len(values)
		}

		batch := values[i:end]
		valueRange := &sheets.ValueRange{
			Values: batch,
		}

		rangeStr := fmt.Sprintf("A%d", i+1)
		_, err := w.service.Spreadsheets.Values.Update(spreadsheetID, rangeStr, valueRange).
			ValueInputOption("USER_ENTERED").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("writing batch starting at row %d: %w", i+1, err)
		}

		w.logger.Debug("Wrote batch", "start_row", i+1, "rows", len(batch))
	}

	return nil
}

// applyFormatting styles the report: bold title and section labels,
// fixed-precision coordinates, frozen header rows.
func (w *SheetsWriter) applyFormatting(ctx context.Context, spreadsheetID string, totalRows int) error {
	requests := []*sheets.Request{
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          0,
					StartRowIndex:    0,
					EndRowIndex:      1,
					StartColumnIndex: 0,
					EndColumnIndex:   2,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat: &sheets.TextFormat{
							Bold:     true,
							FontSize: 16,
						},
					},
				},
				Fields: "userEnteredFormat.textFormat",
			},
		},
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          0,
					StartRowIndex:    2,
					EndRowIndex:      int64(totalRows),
					StartColumnIndex: 0,
					EndColumnIndex:   1,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat: &sheets.TextFormat{
							Bold: true,
						},
					},
				},
				Fields: "userEnteredFormat.textFormat",
			},
		},
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          0,
					StartRowIndex:    0,
					EndRowIndex:      int64(totalRows),
					StartColumnIndex: 2,
					EndColumnIndex:   4,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						NumberFormat: &sheets.NumberFormat{
							Type:    "NUMBER",
							Pattern: "0.000000",
						},
					},
				},
				Fields: "userEnteredFormat.numberFormat",
			},
		},
		{
			AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
				Dimensions: &sheets.DimensionRange{
					SheetId:    0,
					Dimension:  "COLUMNS",
					StartIndex: 0,
					EndIndex:   7,
				},
			},
		},
		{
			UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
				Properties: &sheets.SheetProperties{
					SheetId: 0,
					GridProperties: &sheets.GridProperties{
						FrozenRowCount: 2,
					},
				},
				Fields: "gridProperties.frozenRowCount",
			},
		},
	}

	batchUpdate := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}

	_, err := w.service.Spreadsheets.BatchUpdate(spreadsheetID, batchUpdate).Context(ctx).Do()
	return err
}
