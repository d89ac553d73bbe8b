// Package tess is the reference source language: a compact C-like syntax
// with namespaces, classes, structs, enums, flags, properties and
// functions. It is the language the command line and the end-to-end tests
// compile.
//
//	namespace Geometry {
//	    const int Dimensions = 2;
//	    public struct Point { public var int x, y; }
//	    public func int Area(Point a, Point b) { return (b.x - a.x) * (b.y - a.y); }
//	}
package tess

import (
	"maps"

	"tessera/internal/decls"
	"tessera/internal/lang"
	"tessera/internal/source"
	"tessera/internal/syntax"
)

// Name is the name tess is registered under.
const Name = "tess"

var predeclared = map[string]string{
	"sbyte":  "int8",
	"short":  "int16",
	"int":    "int32",
	"long":   "int64",
	"byte":   "uint8",
	"ushort": "uint16",
	"uint":   "uint32",
	"ulong":  "uint64",
	"float":  "float32",
	"double": "float64",
}

func init() {
	lang.Register(Language{})
}

// Language implements lang.Language.
type Language struct{}

func (Language) Name() string      { return Name }
func (Language) Flags() lang.Flags { return lang.ConvertParametersToTuple }
func (Language) SelfName() string  { return "self" }
func (Language) BaseName() string  { return "base" }

// Predeclared returns a copy of the predeclared type names.
func (Language) Predeclared() map[string]string { return maps.Clone(predeclared) }

func (Language) Grammar() *lang.Grammar { return grammar }

func (Language) Recognizer(macros lang.Expander) decls.Recognizer {
	return &recognizer{macros: macros}
}

// ParseExpr parses a whole code string as one expression.
func (Language) ParseExpr(code source.CodeString) (*syntax.Expr, error) {
	p, err := newParser(code)
	if err != nil {
		return nil, err
	}
	e, err := p.expr()
	if err != nil {
		return nil, err
	}
	return e, p.done()
}

// ParseType parses a whole code string as one type name.
func (Language) ParseType(code source.CodeString) (*syntax.TypeExpr, error) {
	p, err := newParser(code)
	if err != nil {
		return nil, err
	}
	te, err := p.typeExpr()
	if err != nil {
		return nil, err
	}
	return te, p.done()
}
