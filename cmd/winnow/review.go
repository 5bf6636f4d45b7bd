package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/winnow/internal/cli"
	"github.com/Veraticus/winnow/internal/review"
	"github.com/Veraticus/winnow/internal/service"
)

func reviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Resolve unresolved catalog lookups",
		Long: `Work through the catalog lookups a vet run could not resolve.

Remote failures that survive every retry leave subjects flagged for manual
review. This opens each one in turn so you can check the catalogs yourself
and record the verdict: matched (with the source designation), clear, or
skip for later. Verdicts are persisted immediately.

Examples:
  winnow review                  # Latest run
  winnow review --run 3f2a91c4   # A specific run key (or its prefix)`,
		RunE: runReview,
	}

	cmd.Flags().String("run", "", "Run key to review (default: the latest run)")

	return cmd
}

func runReview(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	runKey, _ := cmd.Flags().GetString("run")

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("Failed to close database", "error", closeErr)
		}
	}()

	if runKey == "" {
		runs, listErr := store.ListRuns(ctx)
		if listErr != nil {
			return fmt.Errorf("failed to list runs: %w", listErr)
		}
		if len(runs) == 0 {
			fmt.Println(cli.FormatInfo("No vetting runs yet. Run winnow vet first."))
			return nil
		}
		runKey = runs[0].Key
	} else {
		runKey, err = resolveRunKey(ctx, store, runKey)
		if err != nil {
			return err
		}
	}

	items, err := review.LoadItems(ctx, store, runKey)
	if err != nil {
		return fmt.Errorf("failed to load unresolved lookups: %w", err)
	}
	if len(items) == 0 {
		fmt.Println(cli.FormatInfo(fmt.Sprintf("Run %s has no unresolved lookups. Clear skies!", shortKey(runKey))))
		return nil
	}

	slog.Info("Starting review session", "run_key", shortKey(runKey), "unresolved", len(items))

	summary, err := review.Run(ctx, store, runKey, items)
	if err != nil {
		return fmt.Errorf("review session failed: %w", err)
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Review done: %d matched, %d clear, %d left for next time",
		summary.Matched, summary.NoMatch, summary.Remaining)))

	return nil
}

// resolveRunKey expands an abbreviated run key to the full one. Operators
// usually paste the short key the vet summary printed.
func resolveRunKey(ctx context.Context, store service.Storage, prefix string) (string, error) {
	runs, err := store.ListRuns(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list runs: %w", err)
	}

	// Reruns with the same parameters share a key, so dedupe.
	seen := make(map[string]bool)
	var matches []string
	for _, run := range runs {
		if !strings.HasPrefix(run.Key, prefix) || seen[run.Key] {
			continue
		}
		seen[run.Key] = true
		matches = append(matches, run.Key)
	}

	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return "", fmt.Errorf("no run with key %s", prefix)
	default:
		return "", fmt.Errorf("run key %s is ambiguous: %d runs match", prefix, len(matches))
	}
}
