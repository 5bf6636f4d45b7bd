package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/winnow/internal/accuracy"
	"github.com/Veraticus/winnow/internal/cli"
	"github.com/Veraticus/winnow/internal/export"
	"github.com/Veraticus/winnow/internal/model"
	"github.com/Veraticus/winnow/internal/selector"
	"github.com/Veraticus/winnow/internal/votes"
)

func candidatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "candidates",
		Short: "List acceptable candidates",
		Long: `List the subjects whose votes clear the acceptance parameters.

This is the selection pass alone: no catalog queries, no persisted run. Use
it to preview what a vet run would sweep, or to export the full decision
table for offline analysis.

Examples:
  winnow candidates                            # Defaults: ratio 0.5, threshold 1
  winnow candidates --ratio 0.8 --threshold 5
  winnow candidates --weighted                 # Weight votes by user accuracy
  winnow candidates --out decisions.csv        # Write every decision, accepted or not`,
		RunE: runCandidates,
	}

	addSelectionFlags(cmd)
	cmd.Flags().String("out", "", "Write the full decision table to a CSV file")

	return cmd
}

func runCandidates(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	bindSelectionFlags(cmd)

	ratio := viper.GetFloat64("vetting.acceptance_ratio")
	threshold := viper.GetFloat64("vetting.acceptance_threshold")
	weighted := viper.GetBool("vetting.weighted")
	outPath, _ := cmd.Flags().GetString("out")

	mode, err := thresholdMode()
	if err != nil {
		return err
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("Failed to close database", "error", closeErr)
		}
	}()

	voteStore, err := votes.Load(ctx, store)
	if err != nil {
		return fmt.Errorf("failed to load votes: %w", err)
	}

	var weightFn model.WeightFunc
	if weighted {
		verified := accuracy.VerifiedFromSubjects(voteStore.Subjects())
		weightFn = accuracy.New(voteStore, verified, accuracyOptions()).Weights()
	}

	slog.Info("Evaluating candidates",
		"subjects", len(voteStore.SubjectIDs()),
		"ratio", ratio,
		"threshold", threshold,
		"weighted", weighted)

	sel := selector.New(voteStore, selector.Options{Weights: weightFn, ThresholdMode: mode})
	decisions, err := sel.Decisions(ratio, threshold, weighted)
	if err != nil {
		return fmt.Errorf("failed to evaluate candidates: %w", err)
	}

	accepted := make([]model.CandidateDecision, 0, len(decisions))
	for _, d := range decisions {
		if d.Accepted {
			accepted = append(accepted, d)
		}
	}

	if len(accepted) == 0 {
		fmt.Println(cli.FormatWarning("No subjects meet the acceptance parameters"))
	} else {
		fmt.Println(cli.StyleTitle(fmt.Sprintf("%s Acceptable candidates (%d of %d subjects)",
			cli.StarIcon, len(accepted), len(decisions))))
		fmt.Println(renderDecisionTable(accepted))
		fmt.Println(cli.StyleSubtle("Run winnow vet to cross-match these against the catalogs."))
	}

	if outPath != "" {
		if err := writeDecisionFile(outPath, decisions); err != nil {
			return err
		}
		slog.Info("Wrote decision table", "path", outPath, "decisions", len(decisions))
	}

	return nil
}

func renderDecisionTable(decisions []model.CandidateDecision) string {
	headers := []string{"Subject", "Yes", "No", "Total", "Ratio"}
	aligns := []cli.Alignment{cli.AlignLeft, cli.AlignRight, cli.AlignRight, cli.AlignRight, cli.AlignRight}

	rows := make([][]string, 0, len(decisions))
	for _, d := range decisions {
		rows = append(rows, []string{
			strconv.FormatInt(d.SubjectID, 10),
			strconv.FormatFloat(d.Tally.Yes, 'f', -1, 64),
			strconv.FormatFloat(d.Tally.No, 'f', -1, 64),
			strconv.FormatFloat(d.Tally.Total, 'f', -1, 64),
			strconv.FormatFloat(d.Ratio, 'f', 3, 64),
		})
	}
	return cli.RenderTable(headers, rows, aligns)
}

func writeDecisionFile(path string, decisions []model.CandidateDecision) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := export.WriteDecisions(f, decisions); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write decisions: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}
