package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Veraticus/winnow/internal/accuracy"
	"github.com/Veraticus/winnow/internal/cli"
	"github.com/Veraticus/winnow/internal/common"
	"github.com/Veraticus/winnow/internal/votes"
)

func accuracyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accuracy",
		Short: "Report per-user accuracy",
		Long: `Report each user's accuracy against the verified ground-truth subjects.

Accuracy is correct/verified over a user's classifications of subjects with
a known answer. Users below the verified minimum have no defined accuracy
and are shown without one.

With --top, list the users at or above a cutoff instead: either a
rank-based percentile of the population or an absolute threshold, ranked by
classification volume or by accuracy.

Examples:
  winnow accuracy                               # Full per-user table
  winnow accuracy --top --percentile 95         # Top 5% by volume
  winnow accuracy --top --threshold 0.8 --metric accuracy`,
		RunE: runAccuracy,
	}

	cmd.Flags().Bool("top", false, "List top users instead of the full table")
	cmd.Flags().Float64("percentile", 0, "Rank-based percentile cutoff in [0,100]")
	cmd.Flags().Float64("threshold", 0, "Absolute metric cutoff")
	cmd.Flags().String("metric", "volume", "Ranking metric: volume or accuracy")

	return cmd
}

func runAccuracy(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

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

	verified := accuracy.VerifiedFromSubjects(voteStore.Subjects())
	acc := accuracy.New(voteStore, verified, accuracyOptions())

	top, _ := cmd.Flags().GetBool("top")
	if top {
		return renderTopUsers(cmd, acc)
	}

	records := acc.Records()
	if len(records) == 0 {
		fmt.Println(cli.FormatWarning("No classifications imported yet"))
		return nil
	}

	headers := []string{"User", "Total", "Verified", "Correct", "Accuracy"}
	aligns := []cli.Alignment{cli.AlignLeft, cli.AlignRight, cli.AlignRight, cli.AlignRight, cli.AlignRight}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		accCell := "-"
		if rec.HasAccuracy {
			accCell = strconv.FormatFloat(rec.Accuracy, 'f', 3, 64)
		}
		rows = append(rows, []string{
			rec.UserID,
			strconv.Itoa(rec.Total),
			strconv.Itoa(rec.Verified),
			strconv.Itoa(rec.Correct),
			accCell,
		})
	}

	fmt.Println(cli.StyleTitle(fmt.Sprintf("%s User accuracy (%d users, verified subjects: %d)",
		cli.ChartIcon, len(records), len(verified))))
	fmt.Println(cli.RenderTable(headers, rows, aligns))
	fmt.Println(cli.StyleSubtle(fmt.Sprintf(
		"Users without enough verified classifications default to %.2f in weighted runs.",
		acc.DefaultAccuracy())))

	return nil
}

func renderTopUsers(cmd *cobra.Command, acc *accuracy.Model) error {
	opts := accuracy.TopUsersOptions{}

	metricName, _ := cmd.Flags().GetString("metric")
	switch metricName {
	case string(accuracy.MetricVolume):
		opts.Metric = accuracy.MetricVolume
	case string(accuracy.MetricAccuracy):
		opts.Metric = accuracy.MetricAccuracy
	default:
		return &common.ConfigurationError{
			Field:  "metric",
			Reason: fmt.Sprintf("unknown metric %q (use volume or accuracy)", metricName),
		}
	}

	// Only flags the user actually set participate; TopUsers enforces the
	// exactly-one rule.
	if cmd.Flags().Changed("percentile") {
		p, _ := cmd.Flags().GetFloat64("percentile")
		opts.Percentile = &p
	}
	if cmd.Flags().Changed("threshold") {
		t, _ := cmd.Flags().GetFloat64("threshold")
		opts.Threshold = &t
	}

	users, err := acc.TopUsers(opts)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		fmt.Println(cli.FormatWarning("No users meet the cutoff"))
		return nil
	}

	fmt.Println(cli.StyleTitle(fmt.Sprintf("%s Top users by %s (%d selected)",
		cli.ChartIcon, opts.Metric, len(users))))
	for _, user := range users {
		fmt.Println("  " + user)
	}
	return nil
}
