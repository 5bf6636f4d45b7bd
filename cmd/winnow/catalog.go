package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Veraticus/winnow/internal/catalog"
	"github.com/Veraticus/winnow/internal/cli"
	"github.com/Veraticus/winnow/internal/common"
	"github.com/Veraticus/winnow/internal/model"
)

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Look up one subject in the reference catalogs",
		Long: `Query the reference catalogs for a single imported subject.

A one-off version of the lookup a vet run performs for every candidate: a
cone search around the subject's coordinates with the proper-motion-padded
radius, then the catalog's matching rule. Nothing is persisted.

Examples:
  winnow catalog --subject 88412917
  winnow catalog --subject 88412917 --catalog gaia`,
		RunE: runCatalog,
	}

	cmd.Flags().Int64("subject", 0, "Subject ID to look up")
	cmd.Flags().String("catalog", "both", "Catalog to query: simbad, gaia, or both")
	_ = cmd.MarkFlagRequired("subject")

	return cmd
}

func runCatalog(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	subjectID, _ := cmd.Flags().GetInt64("subject")
	catalogName, _ := cmd.Flags().GetString("catalog")

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("Failed to close database", "error", closeErr)
		}
	}()

	subject, err := store.GetSubject(ctx, subjectID)
	if err != nil {
		return fmt.Errorf("failed to load subject %d: %w", subjectID, err)
	}

	matcher, err := buildMatcher()
	if err != nil {
		return err
	}
	defer matcher.Close()

	var catalogs []string
	switch catalogName {
	case "both":
		catalogs = matcher.Catalogs()
	case catalog.CatalogSimbad, catalog.CatalogGaia:
		catalogs = []string{catalogName}
	default:
		return &common.ConfigurationError{
			Field:  "catalog",
			Reason: fmt.Sprintf("unknown catalog %q (use simbad, gaia, or both)", catalogName),
		}
	}

	fmt.Println(cli.StyleTitle(fmt.Sprintf("%s Subject %d · RA %.5f° Dec %.5f° · FOV %.0f″",
		cli.StarIcon, subject.ID, subject.RA, subject.Dec, subject.FOV)))

	headers := []string{"Catalog", "Status", "Source", "Radius"}
	aligns := []cli.Alignment{cli.AlignLeft, cli.AlignLeft, cli.AlignLeft, cli.AlignRight}

	rows := make([][]string, 0, len(catalogs))
	for _, cat := range catalogs {
		match, matchErr := matcher.Match(ctx, *subject, cat)
		if matchErr != nil {
			slog.Warn("Catalog lookup failed", "catalog", cat, "error", matchErr)
		}
		rows = append(rows, []string{
			cat,
			styleStatus(match.Status),
			match.SourceID,
			fmt.Sprintf("%.1f″", match.RadiusArcsec),
		})
	}
	fmt.Println(cli.RenderTable(headers, rows, aligns))

	return nil
}

func styleStatus(status model.MatchStatus) string {
	switch status {
	case model.MatchFound:
		return cli.StyleSuccess("✓ matched")
	case model.MatchNone:
		return cli.StyleInfo("○ clear")
	default:
		return cli.StyleWarning("? unknown")
	}
}
