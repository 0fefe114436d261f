package source

import (
	"errors"
	"time"
)

// Error taxonomy shared by all adapters. Callers classify with errors.Is.
var (
	// ErrUpstreamUnavailable covers network failures and non-success
	// HTTP statuses from any provider.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrRenderTimeout means the scraped page did not render its table
	// within the bounded wait.
	ErrRenderTimeout = errors.New("page render timed out")

	// ErrElementNotFound means the rendered page lacked the expected
	// table element.
	ErrElementNotFound = errors.New("expected element not found")

	// ErrContractNotFound means no table row matched the configured
	// front-month contract label.
	ErrContractNotFound = errors.New("target contract not found")

	// ErrParse covers payload-shape and numeric coercion failures.
	ErrParse = errors.New("payload parse failure")
)

// Partial marks a segmented fetch that stopped early. It is not an
// error: the rows accumulated before the failure are valid but the
// series is truncated at FailedAt.
type Partial struct {
	FailedAt time.Time
	Cause    error
}
