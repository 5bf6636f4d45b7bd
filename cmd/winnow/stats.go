package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/winnow/internal/accuracy"
	"github.com/Veraticus/winnow/internal/cli"
	"github.com/Veraticus/winnow/internal/common"
	"github.com/Veraticus/winnow/internal/votes"
)

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Report classification timing statistics",
		Long: `Report how quickly volunteers classify, from the gaps between each
user's consecutive classifications. Gaps of five minutes or more are session
boundaries and do not count.

Examples:
  winnow stats                  # Pooled across every user
  winnow stats --user alice     # One user`,
		RunE: runStats,
	}

	cmd.Flags().String("user", "", "Report a single user instead of the pool")

	return cmd
}

func runStats(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	userID, _ := cmd.Flags().GetString("user")

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

	var stats accuracy.TimeStats
	title := "all users"
	if userID != "" {
		stats, err = acc.TimeStats(userID)
		title = "user " + userID
	} else {
		stats, err = acc.AllTimeStats()
	}
	if err != nil {
		var insufficient *common.InsufficientDataError
		if errors.As(err, &insufficient) {
			fmt.Println(cli.FormatWarning("Not enough classifications to measure timing: " + insufficient.Error()))
			return nil
		}
		return err
	}

	headers := []string{"Metric", "Value"}
	aligns := []cli.Alignment{cli.AlignLeft, cli.AlignRight}
	rows := [][]string{
		{"Mean", formatGap(stats.Mean)},
		{"Median", formatGap(stats.Median)},
		{"Std dev", formatGap(stats.StdDev)},
		{"Gaps measured", strconv.Itoa(stats.Count)},
	}

	fmt.Println(cli.StyleTitle(fmt.Sprintf("%s Classification timing · %s", cli.ChartIcon, title)))
	fmt.Println(cli.RenderTable(headers, rows, aligns))

	return nil
}

// formatGap rounds to a readable precision; sub-minute gaps keep tenths of
// a second.
func formatGap(d time.Duration) string {
	if d < time.Minute {
		return d.Round(100 * time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}
