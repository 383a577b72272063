package scanner

import "errors"

// Sentinel error kinds for scan failures, checkable via errors.Is.
var (
	// ErrTimeout means the scan exceeded its deadline. The PnP source
	// retries once silently before surfacing it.
	ErrTimeout = errors.New("device scan timed out")

	// ErrUnavailable means the OS tooling backing the scan is missing.
	// Fatal immediately; retrying cannot help.
	ErrUnavailable = errors.New("device scan tooling unavailable")
)
