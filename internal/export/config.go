package export

import (
	"time"

	"github.com/Veraticus/winnow/internal/common"
)

// SheetsConfig holds the Google Sheets exporter settings. Exactly one
// authentication method must be configured: a service account key file or
// an OAuth2 client with a refresh token.
type SheetsConfig struct {
	ClientID           string
	ClientSecret       string
	RefreshToken       string
	ServiceAccountPath string
	SpreadsheetID      string
	SpreadsheetName    string
	TimeZone           string
	BatchSize          int
	RetryAttempts      int
	RetryDelay         time.Duration
	EnableFormatting   bool
}

// DefaultSheetsConfig returns a SheetsConfig with workable defaults.
// Authentication is left for the caller to fill in.
func DefaultSheetsConfig() SheetsConfig {
	return SheetsConfig{
		SpreadsheetName:  "Candidate Vetting Report",
		TimeZone:         "Etc/UTC",
		BatchSize:        500,
		RetryAttempts:    3,
		RetryDelay:       time.Second,
		EnableFormatting: true,
	}
}

// Validate checks that the configuration is usable.
func (c *SheetsConfig) Validate() error {
	hasOAuth := c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
	hasServiceAccount := c.ServiceAccountPath != ""

	if !hasOAuth && !hasServiceAccount {
		return &common.ConfigurationError{Field: "sheets", Reason: "no authentication method configured"}
	}
	if hasOAuth && hasServiceAccount {
		return &common.ConfigurationError{Field: "sheets", Reason: "both OAuth2 and service account configured; use one"}
	}
	if c.BatchSize <= 0 {
		return &common.ConfigurationError{Field: "sheets.batch_size", Reason: "must be positive"}
	}
	if c.RetryAttempts < 0 {
		return &common.ConfigurationError{Field: "sheets.retry_attempts", Reason: "cannot be negative"}
	}
	if c.RetryDelay < 0 {
		return &common.ConfigurationError{Field: "sheets.retry_delay", Reason: "cannot be negative"}
	}
	return nil
}
