// Package syntax holds the small trees recognizers build for declarations:
// type expressions and constant expressions. Expressions produced by macro
// expansion share their argument subtrees through links.
package syntax

import (
	"go/constant"

	"tessera/internal/source"
	"tessera/internal/types"
)

type TypeExprKind uint8

const (
	TypeNamed TypeExprKind = iota
	TypePointer
	TypeReference
	TypeRefArray
	TypeArray
	TypePointerAndLength
	TypeTuple
	TypeFunction
)

var typeExprKindNames = [...]string{
	TypeNamed:            "named",
	TypePointer:          "pointer",
	TypeReference:        "reference",
	TypeRefArray:         "ref array",
	TypeArray:            "array",
	TypePointerAndLength: "pointer and length",
	TypeTuple:            "tuple",
	TypeFunction:         "function",
}

func (k TypeExprKind) String() string {
	if int(k) < len(typeExprKindNames) {
		return typeExprKindNames[k]
	}
	return "invalid"
}

// TypeExpr is a parsed type name.
type TypeExpr struct {
	Kind TypeExprKind
	Text source.CodeString

	// Path is the dotted name of named types.
	Path []source.CodeString
	// Elem is the element of pointers, references and arrays.
	Elem *TypeExpr
	// Length is the element count of fixed arrays.
	Length *Expr
	// Dims is the rank of reference arrays.
	Dims int
	// Members are the members of tuples.
	Members []Field
	// Ret, Params and CallConv describe function types.
	Ret      *TypeExpr
	Params   []Param
	CallConv string
}

// Field is one named or unnamed tuple member.
type Field struct {
	Name source.CodeString
	Type *TypeExpr
}

// Param is one parameter of a function declaration or function type.
type Param struct {
	Name       source.CodeString
	Type       *TypeExpr
	Default    *Expr
	ParamArray bool
	Modifiers  []source.CodeString
}

type ExprKind uint8

const (
	ExprLit ExprKind = iota
	ExprIdent
	ExprMember
	ExprUnary
	ExprBinary
	ExprCall
	// ExprLinked stands for a subtree shared with other nodes.
	ExprLinked
	// ExprExpansion is the root of a macro expansion.
	ExprExpansion
)

var exprKindNames = [...]string{
	ExprLit:       "literal",
	ExprIdent:     "identifier",
	ExprMember:    "member",
	ExprUnary:     "unary",
	ExprBinary:    "binary",
	ExprCall:      "call",
	ExprLinked:    "linked",
	ExprExpansion: "expansion",
}

func (k ExprKind) String() string {
	if int(k) < len(exprKindNames) {
		return exprKindNames[k]
	}
	return "invalid"
}

// Expr is a node of a constant expression.
type Expr struct {
	Kind ExprKind
	Text source.CodeString

	// Value is the value of literals.
	Value constant.Value
	// Name is the identifier of ExprIdent and the member of ExprMember.
	Name source.CodeString
	Op   types.Operator
	// X is the operand of unary and member nodes, the left side of binary
	// nodes, the callee of calls and the body of expansions.
	X    *Expr
	Y    *Expr
	Args []*Expr
	// Link is the shared subtree of ExprLinked nodes.
	Link *Link
	// Links are every link owned by an expansion.
	Links []*Link
}

// Link is a subtree referenced from several places, such as a macro
// argument used more than once in the macro body.
type Link struct {
	Name string
	Node *Expr
}

// Lit builds a literal node.
func Lit(text source.CodeString, v constant.Value) *Expr {
	return &Expr{Kind: ExprLit, Text: text, Value: v}
}

// Ident builds an identifier node.
func Ident(name source.CodeString) *Expr {
	return &Expr{Kind: ExprIdent, Text: name, Name: name}
}

// Unary builds a unary node.
func Unary(text source.CodeString, op types.Operator, x *Expr) *Expr {
	return &Expr{Kind: ExprUnary, Text: text, Op: op, X: x}
}

// Binary builds a binary node.
func Binary(text source.CodeString, op types.Operator, x, y *Expr) *Expr {
	return &Expr{Kind: ExprBinary, Text: text, Op: op, X: x, Y: y}
}

// Member builds x.name.
func Member(text source.CodeString, x *Expr, name source.CodeString) *Expr {
	return &Expr{Kind: ExprMember, Text: text, X: x, Name: name}
}

// Linked builds a node standing for l.
func Linked(text source.CodeString, l *Link) *Expr {
	return &Expr{Kind: ExprLinked, Text: text, Link: l}
}

// Path returns the dotted name of an identifier or member chain, or nil
// for any other expression.
func (e *Expr) Path() []source.CodeString {
	switch e.Kind {
	case ExprIdent:
		return []source.CodeString{e.Name}
	case ExprMember:
		head := e.X.Path()
		if head == nil {
			return nil
		}
		return append(head, e.Name)
	case ExprLinked:
		if e.Link != nil && e.Link.Node != nil {
			return e.Link.Node.Path()
		}
	case ExprExpansion:
		if e.X != nil {
			return e.X.Path()
		}
	}
	return nil
}

// Walk calls fn for e and its descendants in depth-first order. Shared
// links are visited once per walk.
func Walk(e *Expr, fn func(*Expr) bool) {
	walk(e, fn, make(map[*Link]bool))
}

func walk(e *Expr, fn func(*Expr) bool, seen map[*Link]bool) {
	if e == nil || !fn(e) {
		return
	}
	if e.Kind == ExprLinked && e.Link != nil {
		if seen[e.Link] {
			return
		}
		seen[e.Link] = true
		walk(e.Link.Node, fn, seen)
		return
	}
	walk(e.X, fn, seen)
	walk(e.Y, fn, seen)
	for _, a := range e.Args {
		walk(a, fn, seen)
	}
}
