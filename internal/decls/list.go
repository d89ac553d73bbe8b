// Package decls turns recognized declarations into identifiers. Each kind
// of declaration lives in a list that is resolved to a fixed point: an
// entry whose dependencies are not known yet stays in its list until a
// later pass, and the lists give up once a pass makes no progress.
package decls

import (
	"errors"

	"tessera/internal/diag"
	"tessera/internal/ids"
	"tessera/internal/syntax"
)

// Result is the outcome of one declaration attempt.
type Result uint8

const (
	// Unknown keeps the entry for the next pass.
	Unknown Result = iota
	Succeeded
	// Failed drops the entry; the failure was reported.
	Failed
)

func (r Result) String() string {
	switch r {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Entry is one pending declaration.
type Entry struct {
	Decl      *Declaration
	Container ids.ContainerID
	// ID is the identifier registered for the declaration, if any.
	ID ids.ID
	// Missing is the last dependency that is not declared anywhere.
	Missing *syntax.UnknownError
	// Waiting is the last dependency that is declared but not resolved yet.
	// At most one of Missing and Waiting is set.
	Waiting *syntax.PendingError
	// Owner and Prev are the enum and the preceding member of enum members.
	Owner ids.ID
	Prev  ids.ID
}

// DeclareFunc attempts to declare an entry.
type DeclareFunc func(*Entry) Result

// List is a worklist of entries sharing one declare function.
type List struct {
	Name    string
	Declare DeclareFunc
	entries []*Entry
}

// Add queues e.
func (l *List) Add(e *Entry) { l.entries = append(l.entries, e) }

// Len returns the number of pending entries.
func (l *List) Len() int { return len(l.entries) }

// Pending returns the entries that are still unresolved.
func (l *List) Pending() []*Entry { return l.entries }

// pass runs Declare once over the current entries. Entries added while the
// pass runs are kept for the next one.
func (l *List) pass() (progress bool) {
	current := l.entries
	l.entries = nil
	var keep []*Entry
	for _, e := range current {
		if l.Declare(e) == Unknown {
			keep = append(keep, e)
		} else {
			progress = true
		}
	}
	added := l.entries
	l.entries = append(keep, added...)
	return progress || len(added) > 0
}

// ResolveAll runs the lists jointly until a pass over all of them makes no
// progress. It returns the number of passes.
func ResolveAll(lists ...*List) int {
	passes := 0
	for {
		pending := 0
		for _, l := range lists {
			pending += l.Len()
		}
		if pending == 0 {
			return passes
		}
		passes++
		progress := false
		for _, l := range lists {
			if l.pass() {
				progress = true
			}
		}
		if !progress {
			return passes
		}
	}
}

// status maps an evaluation or lookup error to a declaration result.
// Errors not reported yet are reported as code at the entry.
func status(e *Entry, err error) Result {
	if err == nil {
		return Succeeded
	}
	var pending *syntax.PendingError
	if errors.As(err, &pending) {
		e.wait(pending)
		return Unknown
	}
	var unknown *syntax.UnknownError
	if errors.As(err, &unknown) {
		e.Missing, e.Waiting = unknown, nil
		return Unknown
	}
	return Failed
}

func (e *Entry) wait(p *syntax.PendingError) {
	e.Missing, e.Waiting = nil, p
}

// errReported marks failures that already produced a diagnostic.
var errReported = errors.New("reported")

// reportLeftover reports an entry that never resolved. A constant still
// waiting for a declared dependency is part of a dependency cycle and
// cannot be calculated; every other leftover names what it was missing.
func reportLeftover(g *ids.Graph, e *Entry) {
	name := e.Decl.Name
	switch {
	case e.Waiting != nil && e.Decl.Kind == DeclConst:
		diag.Report(g.Reporter, diag.CannotCalcConst, name.Span(), name.String())
	case e.Waiting != nil:
		diag.Report(g.Reporter, diag.UnknownId, e.Waiting.Span(), e.Waiting.Name())
	case e.Missing != nil:
		diag.Report(g.Reporter, diag.UnknownId, e.Missing.Span(), e.Missing.Name())
	default:
		diag.Report(g.Reporter, diag.UnknownId, name.Span(), name.String())
	}
}
