// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Data errors.
	ErrNotFound          = errors.New("not found")
	ErrNoClassifications = errors.New("no classifications loaded")
	ErrInsufficientData  = errors.New("insufficient data")

	// Catalog errors.
	ErrRemoteQuery = errors.New("remote catalog query failed")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// NotFoundError reports a subject or user absent from the loaded data.
// Lookups that require non-empty results surface it instead of defaulting.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// NewNotFoundError creates a NotFoundError for the given kind and identifier.
func NewNotFoundError(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// InsufficientDataError reports a statistic requested with too little
// underlying data. Callers choose between recovering with a default and
// propagating via the explicit flag on the requesting call.
type InsufficientDataError struct {
	What string
	Need int
	Have int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s: need %d, have %d", e.What, e.Need, e.Have)
}

func (e *InsufficientDataError) Unwrap() error {
	return ErrInsufficientData
}

// ConfigurationError reports an invalid or contradictory option set, such as
// mutually exclusive options supplied together.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration for %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrInvalidConfig
}

// RemoteQueryError reports a failed catalog service query. Retryable
// failures (timeouts, rate limits, server errors) are retried with bounded
// backoff before being escalated to an unknown match result.
type RemoteQueryError struct {
	Err       error
	Catalog   string
	Retryable bool
}

func (e *RemoteQueryError) Error() string {
	return fmt.Sprintf("%s query failed: %v", e.Catalog, e.Err)
}

func (e *RemoteQueryError) Unwrap() error {
	return e.Err
}

func (e *RemoteQueryError) Is(target error) bool {
	return target == ErrRemoteQuery
}

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimit) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var remoteErr *RemoteQueryError
	if errors.As(err, &remoteErr) {
		return remoteErr.Retryable
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
