package diag

import "fmt"

// InternalError is a broken compiler invariant. It is raised with panic and
// never converted into a diagnostic.
type InternalError struct {
	Msg string
	Err error
}

func (e *InternalError) Error() string {
	return "internal compiler error: " + e.Msg
}

func (e *InternalError) Unwrap() error { return e.Err }

// Fatalf panics with an *InternalError.
func Fatalf(format string, args ...any) {
	err := fmt.Errorf(format, args...)
	panic(&InternalError{Msg: err.Error(), Err: err})
}

// Unreachable marks a branch a closed enum switch can never take.
func Unreachable(what string, v any) {
	Fatalf("unexpected %s %v", what, v)
}
