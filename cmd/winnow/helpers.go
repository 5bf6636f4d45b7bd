package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/winnow/internal/accuracy"
	"github.com/Veraticus/winnow/internal/catalog"
	"github.com/Veraticus/winnow/internal/common"
	"github.com/Veraticus/winnow/internal/config"
	"github.com/Veraticus/winnow/internal/selector"
	"github.com/Veraticus/winnow/internal/service"
	"github.com/Veraticus/winnow/internal/storage"
)

// databasePath resolves the configured database location with tilde and
// environment expansion applied.
func databasePath() string {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/winnow/winnow.db"
	}
	return config.ExpandPath(dbPath)
}

// initStorage opens the configured database and brings the schema current.
func initStorage(ctx context.Context) (service.Storage, error) {
	store, err := storage.NewSQLiteStorage(databasePath())
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// shortKey abbreviates a run key for display.
func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}

// addSelectionFlags registers the acceptance parameters shared by candidates
// and vet.
func addSelectionFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("ratio", 0.5, "Minimum yes/total ratio for acceptance")
	cmd.Flags().Float64("threshold", 1, "Minimum yes votes for acceptance")
	cmd.Flags().Bool("weighted", false, "Weight votes by user accuracy")
}

// bindSelectionFlags points the shared vetting keys at the executing
// command's flags. candidates and vet declare the same selection flags, so
// binding happens at execution time rather than construction; whichever
// command is running wins.
func bindSelectionFlags(cmd *cobra.Command) {
	_ = viper.BindPFlag("vetting.acceptance_ratio", cmd.Flags().Lookup("ratio"))
	_ = viper.BindPFlag("vetting.acceptance_threshold", cmd.Flags().Lookup("threshold"))
	_ = viper.BindPFlag("vetting.weighted", cmd.Flags().Lookup("weighted"))
}

// thresholdMode reads the configured weighted-threshold comparison mode.
func thresholdMode() (selector.ThresholdMode, error) {
	switch mode := viper.GetString("vetting.weighted_threshold_mode"); mode {
	case "", string(selector.ThresholdWeightedSum):
		return selector.ThresholdWeightedSum, nil
	case string(selector.ThresholdRawCount):
		return selector.ThresholdRawCount, nil
	default:
		return "", &common.ConfigurationError{
			Field:  "vetting.weighted_threshold_mode",
			Reason: fmt.Sprintf("unknown mode %q (use sum or count)", mode),
		}
	}
}

// accuracyOptions reads the reliability-model settings. Zero values fall
// through to the model's defaults.
func accuracyOptions() accuracy.Options {
	return accuracy.Options{
		MinVerified:     viper.GetInt("accuracy.min_verified"),
		DefaultAccuracy: viper.GetFloat64("accuracy.default_accuracy"),
	}
}

// buildMatcher constructs the catalog matcher from configuration. Unset
// values fall through to each client's defaults.
func buildMatcher() (*catalog.Matcher, error) {
	simbad, err := catalog.NewSimbadClient(catalog.Config{
		BaseURL:       viper.GetString("catalogs.simbad.url"),
		Epoch:         viper.GetFloat64("catalogs.simbad.epoch"),
		Timeout:       viper.GetDuration("catalogs.simbad.timeout"),
		AcceptedTypes: viper.GetStringSlice("catalogs.simbad.accepted_types"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create SIMBAD client: %w", err)
	}

	gaia, err := catalog.NewGaiaClient(catalog.Config{
		BaseURL:         viper.GetString("catalogs.gaia.url"),
		Epoch:           viper.GetFloat64("catalogs.gaia.epoch"),
		Timeout:         viper.GetDuration("catalogs.gaia.timeout"),
		MinProperMotion: viper.GetFloat64("catalogs.gaia.min_proper_motion"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gaia client: %w", err)
	}

	// SIMBAD blocks clients that sustain more than a handful of queries per
	// minute, so its fallback rate sits far below Gaia's.
	simbadRate := viper.GetInt("catalogs.simbad.rate_limit")
	if simbadRate <= 0 {
		simbadRate = 5
	}

	return catalog.NewMatcher([]catalog.Querier{simbad, gaia}, catalog.Options{
		RateLimits: map[string]int{
			catalog.CatalogSimbad: simbadRate,
			catalog.CatalogGaia:   viper.GetInt("catalogs.gaia.rate_limit"),
		},
		Retry: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
		MaxProperMotion: viper.GetFloat64("catalogs.max_proper_motion"),
	}), nil
}
