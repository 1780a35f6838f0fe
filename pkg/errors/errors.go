// Package errors provides custom error types for the spreadscan system.
// These errors enable programmatic error checking so callers can tell
// "nothing found" apart from "the source is broken" and from "your
// credentials are bad", the three outcomes the fan-out and the price
// resolution chain treat differently.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Common sentinel errors for the spreadscan system
var (
	// ErrNoData indicates an upstream returned nothing usable (404, empty
	// or unparseable payload). Treated as "nothing found", not a failure.
	ErrNoData = errors.New("no data")

	// ErrRateLimited indicates the API rate limit has been exceeded
	ErrRateLimited = errors.New("rate limited")

	// ErrSourceUnavailable indicates a source is temporarily unavailable (5xx)
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrAPIKeyRequired indicates that an API key is required but not provided
	ErrAPIKeyRequired = errors.New("API key required")

	// ErrAPIKeyInvalid indicates that the provided API key is invalid
	ErrAPIKeyInvalid = errors.New("API key invalid")

	// ErrQuotaExceeded indicates a source's call quota has been used up
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")
)

// AuthenticationError represents bad or expired credentials for a source.
// It is the only error surfaced to the caller as a hard failure: it is
// never retried and requires a configuration fix.
type AuthenticationError struct {
	Source  string
	Method  string // "api_key", "oauth", "header", etc.
	Message string
	Err     error
}

// Error implements the error interface
func (e *AuthenticationError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("authentication error for %s (%s): %s", e.Source, e.Method, e.Message)
	}
	return fmt.Sprintf("authentication error (%s): %s", e.Method, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *AuthenticationError) Is(target error) bool {
	return target == ErrAPIKeyRequired || target == ErrAPIKeyInvalid
}

// NewAuthenticationError creates a new AuthenticationError
func NewAuthenticationError(source, method, message string, err error) *AuthenticationError {
	return &AuthenticationError{
		Source:  source,
		Method:  method,
		Message: message,
		Err:     err,
	}
}

// RateLimitError represents an exhausted retry budget against a 429.
type RateLimitError struct {
	Source   string
	Endpoint string
	Attempts int
	Err      error
}

// Error implements the error interface
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited by %s after %d attempts", e.Source, e.Attempts)
}

// Unwrap implements errors.Unwrap
func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// APIError represents an error from a source API.
type APIError struct {
	Source     string
	StatusCode int
	Message    string
	Endpoint   string
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("API error from %s (status %d): %s", e.Source, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error from %s: %s", e.Source, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *APIError) Is(target error) bool {
	switch {
	case e.StatusCode == 429:
		return target == ErrRateLimited
	case e.StatusCode == 401 || e.StatusCode == 403:
		return target == ErrAPIKeyInvalid
	case e.StatusCode >= 500:
		return target == ErrSourceUnavailable
	case e.StatusCode >= 400:
		return target == ErrNoData
	}
	return false
}

// NewAPIError creates a new APIError
func NewAPIError(source string, statusCode int, message string) *APIError {
	return &APIError{
		Source:     source,
		StatusCode: statusCode,
		Message:    message,
	}
}

// ParseError represents a malformed field in an upstream payload.
// Parse errors are logged and the field defaults to its zero value;
// processing continues.
type ParseError struct {
	Source  string
	Field   string
	Value   string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("parse error in %s field %s: %s", e.Source, e.Field, e.Message)
	}
	return fmt.Sprintf("parse error in %s: %s", e.Source, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(source, field, message string, err error) *ParseError {
	return &ParseError{
		Source:  source,
		Field:   field,
		Message: message,
		Err:     err,
	}
}

// QuotaError represents an advisory quota warning or overage for a
// metered source. The guard never blocks calls in the current design,
// so this error is informational unless a hard-block policy is installed.
type QuotaError struct {
	Source    string
	Count     int
	Limit     int
	Remaining int
}

// Error implements the error interface
func (e *QuotaError) Error() string {
	return fmt.Sprintf("quota for %s: %d/%d used, %d remaining", e.Source, e.Count, e.Limit, e.Remaining)
}

// Is implements errors.Is support
func (e *QuotaError) Is(target error) bool {
	return target == ErrQuotaExceeded
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Helper functions for error checking

// IsNoData checks if an error means "nothing found" rather than a failure
func IsNoData(err error) bool {
	return errors.Is(err, ErrNoData)
}

// IsRateLimited checks if an error is a rate limit error
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsAuth checks if an error is related to credentials
func IsAuth(err error) bool {
	return errors.Is(err, ErrAPIKeyRequired) || errors.Is(err, ErrAPIKeyInvalid)
}

// IsSourceUnavailable checks if an error indicates source unavailability
func IsSourceUnavailable(err error) bool {
	return errors.Is(err, ErrSourceUnavailable)
}

// IsQuotaExceeded checks if an error is a quota warning or overage
func IsQuotaExceeded(err error) bool {
	return errors.Is(err, ErrQuotaExceeded)
}

// IsCanceled checks if an error is a cancellation error
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

// Helper wrapping functions for common patterns

// WrapAPI wraps an error as an APIError
func WrapAPI(source string, statusCode int, err error) error {
	if err == nil {
		return nil
	}
	return &APIError{
		Source:     source,
		StatusCode: statusCode,
		Message:    err.Error(),
		Err:        err,
	}
}

// WrapParse wraps an error as a ParseError
func WrapParse(source, field string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(source, field, err.Error(), err)
}
