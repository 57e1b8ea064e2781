// Package errors defines all exported error sentinels for the peelhash library.
//
// This is the single source of truth for error values. Both the top-level
// peelhash package and internal packages import from here, ensuring
// errors.Is checks work across package boundaries.
package errors

import (
	"errors"
	"fmt"
)

// Construction errors
var (
	ErrDuplicateKey     = errors.New("peelhash: duplicate key detected")
	ErrResidualCore     = errors.New("peelhash: peeling left a non-empty residual core")
	ErrCapacityOverflow = errors.New("peelhash: key or slot count exceeds rank encoding capacity")
	ErrInvalidGamma     = errors.New("peelhash: gamma must be a finite value greater than 1.0")
	ErrInvalidArity     = errors.New("peelhash: unsupported number of hash arms")
)

// Index errors
var (
	ErrInvalidMagic   = errors.New("peelhash: invalid magic number")
	ErrInvalidVersion = errors.New("peelhash: unsupported version")
	ErrChecksumFailed = errors.New("peelhash: file checksum verification failed")
	ErrTruncatedFile  = errors.New("peelhash: index file is truncated")
	ErrCorruptedIndex = errors.New("peelhash: index data is corrupted")
	ErrIndexClosed    = errors.New("peelhash: index is closed")
)

// Internal errors
var (
	ErrBuilderFinished = errors.New("peelhash: builder already finished")
)

// ResidualCoreError reports a construction that exhausted its retry budget.
// Unpeeled is the number of keys left in the core of the final attempt;
// callers typically retry with a larger gamma.
type ResidualCoreError struct {
	Unpeeled int
	Attempts int
	Gamma    float64
}

func (e *ResidualCoreError) Error() string {
	return fmt.Sprintf("%v: %d keys unpeeled after %d attempts at gamma %.3f",
		ErrResidualCore, e.Unpeeled, e.Attempts, e.Gamma)
}

// Is reports ErrResidualCore as the sentinel for this error type.
func (e *ResidualCoreError) Is(target error) bool {
	return target == ErrResidualCore
}
