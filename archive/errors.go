package archive

import (
	"errors"
	"fmt"

	"github.com/egonelbre/exp-entropy-archive/freqtable"
	"github.com/egonelbre/exp-entropy-archive/prefix"
)

var (
	// ErrSignatureMismatch is returned when no known layout matches the
	// leading bytes of the input.
	ErrSignatureMismatch = errors.New("archive: signature mismatch")
	// ErrUnsupported is returned for versions, algorithms or layout and
	// algorithm combinations that are recognized but not implemented.
	ErrUnsupported = errors.New("archive: unsupported version or algorithm")
	// ErrUnsupportedBitWidth is returned for frequency table widths outside
	// the supported set.
	ErrUnsupportedBitWidth = freqtable.ErrUnsupportedBitWidth
	// ErrTruncatedInput is returned when the archive holds less data than
	// its header declares. The concrete error is a *TruncatedError.
	ErrTruncatedInput = errors.New("archive: truncated input")
	// ErrInvalidCode is returned when the payload or the stored tree is
	// corrupted.
	ErrInvalidCode = prefix.ErrInvalidCode
)

// TruncatedError describes how much of a section was missing.
type TruncatedError struct {
	What     string // section name, e.g. "header" or "payload"
	Expected uint64
	Actual   uint64
	Unit     string // bytes, bits or symbols
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("archive: truncated %s: expected %d %s, got %d", e.What, e.Expected, e.Unit, e.Actual)
}

func (e *TruncatedError) Unwrap() error { return ErrTruncatedInput }

func truncated(what string, expected, actual uint64, unit string) error {
	return &TruncatedError{What: what, Expected: expected, Actual: actual, Unit: unit}
}
