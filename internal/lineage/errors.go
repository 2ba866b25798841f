package lineage

import (
	"errors"
	"fmt"
)

var (
	// ErrParse indicates a malformed or unreadable export.
	ErrParse = errors.New("parse error")

	// ErrInvalidPattern indicates a seed pattern that is not a valid regular expression.
	ErrInvalidPattern = errors.New("invalid seed pattern")
)

// ParseError reports why an export could not be parsed. No partial result
// accompanies it. It matches ErrParse with errors.Is, and the underlying
// decoder error when there is one.
type ParseError struct {
	Msg string
	Err error
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return ErrParse.Error()
	}
	return fmt.Sprintf("%s: %s", ErrParse.Error(), e.Msg)
}

func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrParse}
	}
	return []error{ErrParse, e.Err}
}

// IsParseError reports whether err is or wraps a parse failure.
func IsParseError(err error) bool {
	return errors.Is(err, ErrParse)
}
