package cashflow

import (
	"errors"
	"fmt"
)

// ErrEmptyResult is matched by EmptyResultError via errors.Is.
var ErrEmptyResult = errors.New("no data available")

// ParseError reports a numeric token that could not be converted after
// normalization. Row is -1 and Field empty when the token did not come from
// a table row.
type ParseError struct {
	Row   int
	Field string
	Token string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("parse amount %q: %v", e.Token, e.Err)
	}
	return fmt.Sprintf("row %d: parse %s %q: %v", e.Row, e.Field, e.Token, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// EmptyResultError is returned when extraction yields no usable records.
type EmptyResultError struct {
	Rows    int // rows received
	Dropped int // rows discarded as malformed
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("%v: %d rows received, %d malformed", ErrEmptyResult, e.Rows, e.Dropped)
}

func (e *EmptyResultError) Is(target error) bool { return target == ErrEmptyResult }

// MalformedRowError describes a row dropped because its cell count is not
// len(FieldNames).
type MalformedRowError struct {
	Row   int
	Cells int
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("row %d: got %d cells, want %d", e.Row, e.Cells, len(FieldNames))
}
