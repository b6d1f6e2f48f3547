package core

import (
	"errors"
	"fmt"
)

// Error kinds. Use errors.Is to classify an error returned by this package.
var (
	// ErrInputRejected means the upload was refused before parsing: missing
	// file, empty filename, disallowed content type or oversize body.
	ErrInputRejected = errors.New("input rejected")

	// ErrParseFailure means the document is not well-formed XML.
	ErrParseFailure = errors.New("xml parse failure")

	// ErrFileTooLarge and ErrUnsupportedType refine ErrInputRejected.
	ErrFileTooLarge    = errors.New("file too large")
	ErrUnsupportedType = errors.New("invalid file type")
)

var errEmptyDocument = errors.New("empty document")

// ParseError wraps the underlying XML parser error.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return "failed to parse XML: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrParseFailure) match any *ParseError.
func (e *ParseError) Is(target error) bool {
	return target == ErrParseFailure
}

// reject builds an ErrInputRejected error with a reason.
func reject(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInputRejected, fmt.Sprintf(format, args...))
}

// rejectAs builds an ErrInputRejected error that also matches kind.
func rejectAs(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %w: %s", ErrInputRejected, kind, fmt.Sprintf(format, args...))
}
