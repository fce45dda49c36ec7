package dataprocessing

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInsufficientDataForClustering is returned by the segmenter when the
	// run has fewer customers than clusters. It is a warning, not a failure.
	ErrInsufficientDataForClustering = errors.New("insufficient data for clustering")

	// ErrEmptyInput is returned when the uploaded table has no header row.
	ErrEmptyInput = errors.New("input contains no rows")

	// ErrUnsupportedFormat is returned for uploads that are neither xlsx nor csv.
	ErrUnsupportedFormat = errors.New("unsupported input format")
)

// MissingColumnsError reports required columns absent from the input header.
type MissingColumnsError struct {
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

// DateParseError reports an InvoiceDate value that could not be parsed.
// Row is the 1-based spreadsheet row, header included.
type DateParseError struct {
	Row   int
	Value string
	Err   error
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("row %d: cannot parse InvoiceDate %q", e.Row, e.Value)
}

func (e *DateParseError) Unwrap() error {
	return e.Err
}

// ParseError reports a numeric cell holding non-numeric text.
type ParseError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("row %d: cannot parse %s value %q as a number", e.Row, e.Column, e.Value)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsInputError reports whether err was caused by the content of the uploaded
// file rather than by the pipeline itself.
func IsInputError(err error) bool {
	var (
		missing *MissingColumnsError
		date    *DateParseError
		parse   *ParseError
	)
	return errors.As(err, &missing) ||
		errors.As(err, &date) ||
		errors.As(err, &parse) ||
		errors.Is(err, ErrEmptyInput) ||
		errors.Is(err, ErrUnsupportedFormat)
}
