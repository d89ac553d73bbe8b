package layout

import (
	"fmt"
	"strings"

	"tessera/internal/ids"
)

// ErrorKind enumerates layout failures.
type ErrorKind uint8

const (
	// ErrRecursive marks a value type that contains itself.
	ErrRecursive ErrorKind = iota + 1
	// ErrUnresolved marks a type whose element or member types are missing.
	ErrUnresolved
)

// Error is returned when a layout cannot be computed.
type Error struct {
	Kind  ErrorKind
	Type  ids.ID
	Name  string
	Cycle []string // for ErrRecursive
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case ErrRecursive:
		if len(e.Cycle) == 0 {
			return fmt.Sprintf("recursive value type %s has infinite size", e.Name)
		}
		return fmt.Sprintf("recursive value type has infinite size (cycle: %s)", strings.Join(e.Cycle, " -> "))
	case ErrUnresolved:
		return fmt.Sprintf("layout of %s refers to an unresolved type", e.Name)
	default:
		return fmt.Sprintf("layout error kind=%d type %s", e.Kind, e.Name)
	}
}
