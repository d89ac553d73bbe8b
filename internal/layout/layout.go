// Package layout computes sizes, alignments, member offsets and virtual
// tables of the types in an identifier graph.
package layout

import (
	"errors"

	"tessera/internal/diag"
	"tessera/internal/ids"
)

// Engine computes layouts lazily and stores them on the identifiers.
// Results are memoised through Layout.Calculated, so calling Calculate
// twice yields identical offsets and sizes.
type Engine struct {
	Target   Target
	Graph    *ids.Graph
	Reporter diag.Reporter

	// stack holds the types whose layout is being computed, innermost last.
	stack []ids.ID
	// building marks classes whose instance layout is in progress.
	building map[ids.ID]bool
}

// New creates an engine for target over g. Diagnostics go to g.Reporter.
func New(target Target, g *ids.Graph) *Engine {
	return &Engine{
		Target:   target,
		Graph:    g,
		Reporter: g.Reporter,
	}
}

// Calculate computes the layout of id, which may be a type, an alias or a
// variable. A recursive value type is reported once as RecursiveLayout and
// returned as *Error.
func (e *Engine) Calculate(id ids.ID) error {
	g := e.Graph
	real := g.Real(id)
	ident := g.Id(real)
	if ident == nil {
		return &Error{Kind: ErrUnresolved, Type: id, Name: g.Name(id)}
	}
	if ident.Layout.Calculated {
		return nil
	}
	if ident.Layout.InProgress {
		return e.recursive(ident)
	}

	ident.Layout.InProgress = true
	e.stack = append(e.stack, real)
	err := e.compute(ident)
	e.stack = e.stack[:len(e.stack)-1]
	ident.Layout.InProgress = false

	var lerr *Error
	if err != nil && errors.As(err, &lerr) && lerr.Kind == ErrRecursive && ident.Kind != ids.KindClass {
		// keep a usable placeholder so dependants do not cascade
		ident.Layout.Size, ident.Layout.Align = 0, 1
	}
	ident.Layout.Calculated = true
	return err
}

func (e *Engine) recursive(ident *ids.Identifier) error {
	g := e.Graph
	start := 0
	for i, id := range e.stack {
		if id == ident.ID {
			start = i
			break
		}
	}
	cycle := make([]string, 0, len(e.stack)-start+1)
	for _, id := range e.stack[start:] {
		cycle = append(cycle, g.Name(id))
	}
	cycle = append(cycle, g.Name(ident.ID))
	diag.Report(e.Reporter, diag.RecursiveLayout, ident.Name.Span(), g.Name(ident.ID))
	return &Error{Kind: ErrRecursive, Type: ident.ID, Name: g.Name(ident.ID), Cycle: cycle}
}

// SizeOf returns the stored size of a value of type id.
func (e *Engine) SizeOf(id ids.ID) (int, error) {
	if err := e.Calculate(id); err != nil {
		return 0, err
	}
	return e.Graph.Id(e.Graph.Real(id)).Layout.Size, nil
}

// AlignOf returns the alignment of a value of type id.
func (e *Engine) AlignOf(id ids.ID) (int, error) {
	if err := e.Calculate(id); err != nil {
		return 1, err
	}
	return e.Graph.Id(e.Graph.Real(id)).Layout.Align, nil
}

// CalculateAll computes the layout of every type and variable of the
// assembly being compiled. It returns the first error and keeps going
// after it so that every problem is reported.
func (e *Engine) CalculateAll() error {
	g := e.Graph
	var first error
	for _, id := range g.All() {
		ident := g.Id(id)
		if ident.Assembly != g.Current || ident.Kind == ids.KindAlias {
			continue
		}
		if !ident.Kind.IsType() && !ident.Kind.IsVariable() {
			continue
		}
		if err := e.Calculate(id); err != nil && first == nil {
			first = err
		}
		if ident.Kind == ids.KindClass {
			e.CalcVirtuals(id)
		}
	}
	return first
}
