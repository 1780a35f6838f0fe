// Package constants provides shared constants used throughout the spreadscan
// codebase. This includes timeouts, retry policy, quota defaults, and other
// configuration values that should be consistent across the application.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultHTTPTimeout is the standard timeout for HTTP requests to source APIs
	DefaultHTTPTimeout = 30 * time.Second

	// ScanTimeout is the deadline the CLI applies to a full multi-source scan
	ScanTimeout = 5 * time.Minute
)

// Retry constants define the resilient call policy
const (
	// MaxRetries is the number of retry attempts after the initial call
	// for retryable statuses (429 and transient 5xx).
	MaxRetries = 2

	// RetryBackoffBase is the base for the 2^attempt exponential backoff
	RetryBackoffBase = 1 * time.Second

	// RetryJitterMax bounds the random jitter added to each backoff sleep
	RetryJitterMax = 500 * time.Millisecond
)

// Quota constants define defaults for metered sources
const (
	// DefaultQuotaLimit is the monthly request allowance for free-tier
	// metered sources (RapidAPI free tier).
	DefaultQuotaLimit = 30

	// DefaultQuotaWarnThreshold is how many remaining calls trigger a warning
	DefaultQuotaWarnThreshold = 5

	// QuotaWindow approximates a calendar month for quota resets
	QuotaWindow = 31 * 24 * time.Hour

	// QuotaLogKeep is how many recent requests the quota log retains
	QuotaLogKeep = 50
)

// Limit constants define various limits and capacities
const (
	// DefaultMaxResultsPerSource caps listings fetched per source per query
	DefaultMaxResultsPerSource = 20

	// MaxConcurrentSources is the number of sources fetched in parallel
	MaxConcurrentSources = 5

	// DefaultSourceRateLimit is the requests-per-second ceiling applied to
	// a source that does not declare its own rate limit.
	DefaultSourceRateLimit = 5.0

	// MaxConcurrentResolutions is the number of identities whose reference
	// prices resolve concurrently.
	MaxConcurrentResolutions = 4
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Tunable defaults mirrored by the CLI flags
const (
	// DefaultTaxRate is the estimated sales tax applied to listing prices
	DefaultTaxRate = 0.09

	// DefaultMinSpreadPct is the minimum spread percentage an opportunity
	// must clear to count as arbitrage, the scan command's flag default.
	DefaultMinSpreadPct = 10.0
)
