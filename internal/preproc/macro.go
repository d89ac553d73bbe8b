package preproc

import (
	"go/constant"
	"strconv"

	"tessera/internal/diag"
	"tessera/internal/source"
	"tessera/internal/syntax"
)

// maxExpansionDepth bounds nested macro expansion so that self-referencing
// macros fail instead of recursing forever.
const maxExpansionDepth = 64

// Macro is one #define.
type Macro struct {
	Name string
	// Decl is the macro name inside its #define.
	Decl   source.CodeString
	Params []string
	// Body is the raw replacement text; Expr is its parse, nil when the
	// body is empty or not an expression.
	Body source.CodeString
	Expr *syntax.Expr
}

// Table is the flat macro table of one translation unit. Lookups scan it
// linearly; it holds few entries.
type Table struct {
	macros []*Macro
}

// NewTable returns an empty table.
func NewTable() *Table { return &Table{} }

// Clone returns a copy that can be changed independently.
func (t *Table) Clone() *Table {
	return &Table{macros: append([]*Macro(nil), t.macros...)}
}

// Len returns the number of defined macros.
func (t *Table) Len() int { return len(t.macros) }

// Macros returns the macros in definition order.
func (t *Table) Macros() []*Macro { return t.macros }

// Lookup returns the macro called name, or nil.
func (t *Table) Lookup(name string) *Macro {
	if t == nil {
		return nil
	}
	for _, m := range t.macros {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Define adds m, or replaces a macro of the same name. It reports whether
// a macro was replaced.
func (t *Table) Define(m *Macro) (replaced bool) {
	for i, old := range t.macros {
		if old.Name == m.Name {
			t.macros[i] = m
			return true
		}
	}
	t.macros = append(t.macros, m)
	return false
}

// Undef removes the macro called name and reports whether it existed.
func (t *Table) Undef(name string) bool {
	for i, m := range t.macros {
		if m.Name == name {
			t.macros = append(t.macros[:i], t.macros[i+1:]...)
			return true
		}
	}
	return false
}

// Value makes the table a syntax.Env: parameterless macros with an
// expression body evaluate to their folded value.
func (t *Table) Value(path []source.CodeString) (constant.Value, error) {
	if len(path) != 1 {
		return nil, &syntax.UnknownError{Path: path}
	}
	m := t.Lookup(path[0].String())
	if m == nil || len(m.Params) > 0 {
		return nil, &syntax.UnknownError{Path: path}
	}
	if m.Expr == nil {
		return nil, syntax.ErrNotConst
	}
	e, err := t.instantiate(m, nil, path[0], 1, false)
	if err != nil {
		return nil, err
	}
	return syntax.Eval(e, nil)
}

// ExpandAll replaces every macro use in e with its expansion. Arguments
// that are not trivial are shared through links so that each is evaluated
// once however often the body mentions it.
func (t *Table) ExpandAll(e *syntax.Expr) (*syntax.Expr, error) {
	return t.expand(e, nil, 0, false)
}

// expandCondition is ExpandAll plus defined(NAME) folding for #if.
func (t *Table) expandCondition(e *syntax.Expr) (*syntax.Expr, error) {
	return t.expand(e, nil, 0, true)
}

func (t *Table) expand(e *syntax.Expr, params map[string]*syntax.Expr, depth int, cond bool) (*syntax.Expr, error) {
	if e == nil {
		return nil, nil
	}
	switch e.Kind {
	case syntax.ExprIdent:
		name := e.Name.String()
		if r, ok := params[name]; ok {
			return r, nil
		}
		if m := t.Lookup(name); m != nil && len(m.Params) == 0 && m.Expr != nil {
			return t.instantiate(m, nil, e.Text, depth+1, cond)
		}
		return e, nil
	case syntax.ExprCall:
		if callee := e.X; callee != nil && callee.Kind == syntax.ExprIdent {
			name := callee.Name.String()
			if _, shadowed := params[name]; !shadowed {
				if cond && name == "defined" && len(e.Args) == 1 && e.Args[0].Kind == syntax.ExprIdent {
					defined := t.Lookup(e.Args[0].Name.String()) != nil
					return syntax.Lit(e.Text, constant.MakeBool(defined)), nil
				}
				if m := t.Lookup(name); m != nil && len(m.Params) > 0 {
					args, err := t.expandList(e.Args, params, depth, cond)
					if err != nil {
						return nil, err
					}
					return t.instantiate(m, args, e.Text, depth+1, cond)
				}
			}
		}
		out := *e
		var err error
		if out.X, err = t.expand(e.X, params, depth, cond); err != nil {
			return nil, err
		}
		if out.Args, err = t.expandList(e.Args, params, depth, cond); err != nil {
			return nil, err
		}
		return &out, nil
	case syntax.ExprUnary, syntax.ExprBinary, syntax.ExprMember:
		out := *e
		var err error
		if out.X, err = t.expand(e.X, params, depth, cond); err != nil {
			return nil, err
		}
		if out.Y, err = t.expand(e.Y, params, depth, cond); err != nil {
			return nil, err
		}
		return &out, nil
	}
	return e, nil
}

func (t *Table) expandList(list []*syntax.Expr, params map[string]*syntax.Expr, depth int, cond bool) ([]*syntax.Expr, error) {
	if list == nil {
		return nil, nil
	}
	out := make([]*syntax.Expr, len(list))
	for i, a := range list {
		x, err := t.expand(a, params, depth, cond)
		if err != nil {
			return nil, err
		}
		out[i] = x
	}
	return out, nil
}

// instantiate builds the expansion of m applied to already expanded args.
func (t *Table) instantiate(m *Macro, args []*syntax.Expr, at source.CodeString, depth int, cond bool) (*syntax.Expr, error) {
	if depth > maxExpansionDepth {
		return nil, syntax.NewError(at, diag.InvalidExpression, m.Name)
	}
	if len(args) != len(m.Params) {
		return nil, syntax.NewError(at, diag.ParamCountMismatch, m.Name, strconv.Itoa(len(m.Params)))
	}
	if m.Expr == nil {
		return nil, syntax.NewError(at, diag.NotConstValue, m.Name)
	}
	params := make(map[string]*syntax.Expr, len(args))
	var links []*syntax.Link
	for i, a := range args {
		name := m.Params[i]
		switch a.Kind {
		case syntax.ExprLit, syntax.ExprIdent, syntax.ExprLinked:
			params[name] = a
		default:
			l := &syntax.Link{Name: name, Node: a}
			links = append(links, l)
			params[name] = syntax.Linked(a.Text, l)
		}
	}
	body, err := t.expand(m.Expr, params, depth, cond)
	if err != nil {
		return nil, err
	}
	return &syntax.Expr{Kind: syntax.ExprExpansion, Text: at, Name: source.FreeString(m.Name), X: body, Links: links}, nil
}

// Union looks names up in several tables, first match wins.
type Union []*Table

func (u Union) Value(path []source.CodeString) (constant.Value, error) {
	for _, t := range u {
		if len(path) == 1 && t.Lookup(path[0].String()) != nil {
			return t.Value(path)
		}
	}
	return nil, &syntax.UnknownError{Path: path}
}

// Merged returns a single table holding the macros of every table in u.
// When several tables define a name the earliest one wins.
func (u Union) Merged() *Table {
	out := NewTable()
	for i := len(u) - 1; i >= 0; i-- {
		for _, m := range u[i].Macros() {
			out.Define(m)
		}
	}
	return out
}
