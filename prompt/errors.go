package prompt

import (
	"fmt"

	"github.com/pterm/pterm"

	"github.com/prompteng/ape/errors"
)

// FormatError reports a malformed or inconsistent template. It names the
// offending field so callers can point at the exact problem. Format
// errors are deterministic and never retried.
type FormatError struct {
	Field string // header key, placeholder or section the problem is in
	Msg   string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("template format: %s: %s", e.Field, e.Msg)
}

// Pretty renders the error for terminal display with the field highlighted
func (e *FormatError) Pretty() string {
	return fmt.Sprintf("%s %s: %s",
		pterm.Red("template format error"),
		pterm.Bold.Sprint(e.Field),
		e.Msg)
}

// newFormatError builds a stack-carrying FormatError
func newFormatError(field, format string, args ...interface{}) error {
	return errors.WithStack(&FormatError{
		Field: field,
		Msg:   fmt.Sprintf(format, args...),
	})
}

// IsFormatError checks if an error is or wraps a *FormatError
func IsFormatError(err error) bool {
	if err == nil {
		return false
	}
	var fe *FormatError
	return errors.As(err, &fe)
}

// AsFormatError extracts the *FormatError from an error chain, if present
func AsFormatError(err error) (*FormatError, bool) {
	var fe *FormatError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
