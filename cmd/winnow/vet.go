package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/winnow/internal/catalog"
	"github.com/Veraticus/winnow/internal/cli"
	"github.com/Veraticus/winnow/internal/common"
	"github.com/Veraticus/winnow/internal/config"
	"github.com/Veraticus/winnow/internal/export"
	"github.com/Veraticus/winnow/internal/model"
	"github.com/Veraticus/winnow/internal/pipeline"
)

func vetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vet",
		Short: "Run the full vetting pipeline",
		Long: `Select acceptable candidates and cross-match them against the catalogs.

Candidates that clear the acceptance parameters are checked against SIMBAD
and Gaia, then sorted into exclusion buckets. Lookups are persisted as the
sweep goes, so an interrupted run resumes where it left off when invoked
with the same parameters. One CSV per bucket lands in the output directory.

Examples:
  winnow vet                             # Defaults: ratio 0.5, threshold 1
  winnow vet --ratio 0.8 --weighted      # Weighted votes, stricter ratio
  winnow vet --workers 4                 # Fan out catalog lookups
  winnow vet --sheets                    # Also export to Google Sheets`,
		RunE: runVet,
	}

	addSelectionFlags(cmd)
	cmd.Flags().Int("workers", 1, "Concurrent catalog lookups")
	cmd.Flags().String("out", "", "Directory for bucket files (default ./results)")
	cmd.Flags().Bool("sheets", false, "Also export buckets to Google Sheets")

	// Bind to viper (errors are rare and can be ignored in practice)
	_ = viper.BindPFlag("vetting.workers", cmd.Flags().Lookup("workers"))
	_ = viper.BindPFlag("output.dir", cmd.Flags().Lookup("out"))
	_ = viper.BindPFlag("sheets.enabled", cmd.Flags().Lookup("sheets"))

	return cmd
}

func runVet(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	bindSelectionFlags(cmd)

	mode, err := thresholdMode()
	if err != nil {
		return err
	}
	params := vetParams(string(mode))

	outDir := viper.GetString("output.dir")
	if outDir == "" {
		outDir = "./results"
	}
	outDir = config.ExpandPath(outDir)

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("Failed to close database", "error", closeErr)
		}
	}()

	matcher, err := buildMatcher()
	if err != nil {
		return err
	}
	defer matcher.Close()

	interrupt := cli.NewInterruptHandler(os.Stdout)
	ctx = interrupt.HandleInterrupts(ctx, true)

	var bar *progressbar.ProgressBar
	engineConfig := pipeline.Config{
		LockPath: databasePath() + ".lock",
		Accuracy: accuracyOptions(),
		Workers:  viper.GetInt("vetting.workers"),
		OnProgress: func(completed, total int) {
			if bar == nil {
				bar = cli.NewSweepBar(os.Stdout, total, "Sweeping catalogs")
			}
			_ = bar.Set(completed)
		},
	}

	slog.Info("Starting vetting run",
		"run_key", shortKey(params.Key()),
		"ratio", params.AcceptanceRatio,
		"threshold", params.AcceptanceThreshold,
		"weighted", params.Weighted,
		"workers", engineConfig.Workers)

	result, err := pipeline.NewWithConfig(store, matcher, engineConfig).Vet(ctx, params)
	if err != nil {
		if errors.Is(err, context.Canceled) && interrupt.WasInterrupted() {
			// The interrupt handler already told the operator how to resume.
			return nil
		}
		if errors.Is(err, pipeline.ErrSweepInProgress) {
			return common.NewUserError("database is locked by another winnow vet", err)
		}
		return fmt.Errorf("vetting run failed: %w", err)
	}

	subjects, err := store.ListSubjects(ctx)
	if err != nil {
		return fmt.Errorf("failed to load subjects for export: %w", err)
	}
	report := export.Report{
		Run:        result.Run,
		Subjects:   export.SubjectIndex(subjects),
		Buckets:    result.Buckets,
		Unresolved: result.Unresolved,
		Stats:      result.Stats,
	}

	files, err := export.WriteBucketFiles(outDir, report)
	if err != nil {
		return fmt.Errorf("failed to write bucket files: %w", err)
	}
	slog.Info("Wrote bucket files", "dir", outDir, "files", len(files))

	fmt.Println()
	fmt.Println(cli.StyleTitle(fmt.Sprintf("%s Vetting run %s", cli.TelescopeIcon, shortKey(result.Run.Key))))
	fmt.Println(renderBucketTable(result))
	fmt.Println(cli.StyleSubtle(fmt.Sprintf("%d candidates · %d resolved · %d unresolved · %d reused · %s",
		result.Stats.Candidates,
		result.Stats.Resolved,
		result.Stats.Unresolved,
		result.Stats.Skipped,
		result.Stats.Duration.Round(time.Millisecond))))

	if viper.GetBool("sheets.enabled") {
		if err := exportToSheets(ctx, report); err != nil {
			return err
		}
	}

	fmt.Println(cli.FormatSuccess("Vetting run complete"))
	if len(result.Unresolved) > 0 {
		fmt.Println(cli.FormatWarning(fmt.Sprintf(
			"%d subjects have unresolved lookups. Run winnow review to work through them.",
			len(result.Unresolved))))
	}

	return nil
}

// vetParams assembles the run parameters, normalizing unset proper-motion
// settings to the matcher defaults so the run fingerprint reflects the
// sweep's effective behavior.
func vetParams(mode string) model.RunParams {
	maxPM := viper.GetFloat64("catalogs.max_proper_motion")
	if maxPM <= 0 {
		maxPM = catalog.DefaultMaxProperMotion
	}
	minPM := viper.GetFloat64("catalogs.gaia.min_proper_motion")
	if minPM <= 0 {
		minPM = catalog.DefaultMinProperMotion
	}

	return model.RunParams{
		AcceptanceRatio:     viper.GetFloat64("vetting.acceptance_ratio"),
		AcceptanceThreshold: viper.GetFloat64("vetting.acceptance_threshold"),
		Weighted:            viper.GetBool("vetting.weighted"),
		ThresholdMode:       mode,
		MaxProperMotion:     maxPM,
		MinProperMotion:     minPM,
	}
}

func renderBucketTable(result *pipeline.RunResult) string {
	headers := []string{"Bucket", "Subjects"}
	aligns := []cli.Alignment{cli.AlignLeft, cli.AlignRight}

	rows := make([][]string, 0, len(model.Buckets())+1)
	for _, bucket := range model.Buckets() {
		rows = append(rows, []string{string(bucket), strconv.Itoa(len(result.Buckets[bucket]))})
	}
	rows = append(rows, []string{"unresolved", strconv.Itoa(len(result.Unresolved))})
	return cli.RenderTable(headers, rows, aligns)
}

func exportToSheets(ctx context.Context, report export.Report) error {
	sheetsConfig, err := config.LoadSheetsConfig()
	if err != nil {
		return fmt.Errorf("failed to load sheets config: %w", err)
	}
	writer, err := export.NewSheetsWriter(ctx, *sheetsConfig, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to create sheets writer: %w", err)
	}
	if err := writer.Write(ctx, report); err != nil {
		return fmt.Errorf("failed to export to sheets: %w", err)
	}
	fmt.Println(cli.FormatSuccess("Exported buckets to Google Sheets"))
	return nil
}
