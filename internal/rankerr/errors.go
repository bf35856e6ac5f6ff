// Package rankerr defines the error taxonomy shared by the dataset, judgment and evaluator packages.
package rankerr

import (
	"errors"
	"fmt"
)

var (
	// ErrShapeMismatch is returned when array lengths disagree with declared dimensions.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrInvalidValue is returned for NaN scores/gains and unparsable numbers.
	ErrInvalidValue = errors.New("invalid value")
	// ErrNotFound is returned when a feature, query or document lookup misses.
	ErrNotFound = errors.New("not found")
	// ErrIOFailure is returned when a source file cannot be read.
	ErrIOFailure = errors.New("io failure")
)

// ShapeError describes a single violated length invariant.
type ShapeError struct {
	Field    string
	Expected int
	Actual   int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: bad %s length: expected %d, got %d", ErrShapeMismatch, e.Field, e.Expected, e.Actual)
}

func (e *ShapeError) Unwrap() error { return ErrShapeMismatch }

// LineError attaches a source path and 1-based line number to a parse failure.
//
// The original underlying error can be accessed via errors.Unwrap.
type LineError struct {
	Path  string
	Line  int
	cause error
}

// NewLineError wraps cause with a file position.
func NewLineError(path string, line int, cause error) *LineError {
	return &LineError{Path: path, Line: line, cause: cause}
}

func (e *LineError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.cause)
}

func (e *LineError) Unwrap() error { return e.cause }

// Invalid builds an ErrInvalidValue with context.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidValue, fmt.Sprintf(format, args...))
}

// NotFound builds an ErrNotFound with context.
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}
