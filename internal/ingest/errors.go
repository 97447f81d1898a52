package ingest

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports every problem the file validator found. The
// pipeline stops before parsing when it is returned.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "file validation failed: " + strings.Join(e.Errors, "; ")
}

// ParseError reports a file that passed validation but could not be read as
// its declared format.
type ParseError struct {
	Format Format
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid %s format: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var (
	errUnsupportedJSON = errors.New("unsupported JSON structure")
	errNoHeader        = errors.New("no header row")
	errNoDelimiter     = errors.New("could not determine delimiter")
	errInvalidUTF8     = errors.New("invalid utf-8 encoding")
)

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsParse reports whether err is a *ParseError.
func IsParse(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
