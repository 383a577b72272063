package store

import "errors"

// Sentinel error kinds for the calibration store, checkable via errors.Is.
var (
	// ErrSchema means the document parsed but failed validation. The
	// operator can recover by resetting the calibration.
	ErrSchema = errors.New("calibration document failed validation")

	// ErrCorrupt means the persisted payload is structurally unparseable.
	// Distinct from ErrSchema so callers can tell the operator the file,
	// not the schema, is the problem.
	ErrCorrupt = errors.New("calibration document unreadable")

	// ErrPersistence means a filesystem permission failure on save/clear.
	ErrPersistence = errors.New("calibration store access denied")
)
