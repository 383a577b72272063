package mapping

import "errors"

// Sentinel error kinds for mapper mutations, checkable via errors.Is.
var (
	// ErrNormalization means the raw strings were insufficient to derive an
	// identity key. Callers treat the device as unknown; it is not fatal.
	ErrNormalization = errors.New("cannot derive identity key")

	// ErrInvalidPort means the physical port number is not an integer in
	// [1,7]. Always fatal to the operation that supplied it.
	ErrInvalidPort = errors.New("physical port out of range")
)
