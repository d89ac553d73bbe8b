package syntax

import (
	"fmt"

	"tessera/internal/diag"
	"tessera/internal/source"
)

// Error is a recognition failure inside a statement. The recognizer that
// produced it has not reported anything; callers turn it into a diagnostic.
type Error struct {
	At   source.CodeString
	Code diag.Code
	Args []any
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s at %q", e.Code, e.At.String())
}

// NewError builds an Error for code at the given text.
func NewError(at source.CodeString, code diag.Code, args ...any) *Error {
	return &Error{At: at, Code: code, Args: args}
}

// Report sends the error to r.
func (e *Error) Report(r diag.Reporter) {
	diag.Report(r, e.Code, e.At.Span(), e.Args...)
}
