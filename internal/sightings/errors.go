package sightings

import (
	"errors"
	"fmt"
)

var (
	ErrFetch           = errors.New("fetch failure")
	ErrParse           = errors.New("parse failure")
	ErrEmptyDataset    = errors.New("empty dataset")
	ErrInvalidRowLimit = errors.New("row limit must be a positive integer")
)

// FetchError reports an unreachable or malformed spreadsheet. URL is empty
// when the failure was detected after download (e.g. a missing column).
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("malformed spreadsheet: %v", e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == ErrFetch }

// ParseError reports a cell that could not be converted to its typed field.
// Row is the 1-based spreadsheet row number.
type ParseError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("row %d, column %q: cannot parse %q: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

func malformed(format string, args ...any) error {
	return &FetchError{Err: fmt.Errorf(format, args...)}
}
