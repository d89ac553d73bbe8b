// Package lang defines what a source language supplies to the compiler:
// the statement splitter and declaration recognizers, expression and type
// parsers for the preprocessor and constant folding, the predeclared type
// names and a grammar tree describing its operators.
package lang

import (
	"fmt"
	"sort"
	"sync"

	"tessera/internal/decls"
	"tessera/internal/source"
	"tessera/internal/syntax"
)

// Flags are language-wide switches.
type Flags uint8

const (
	// ConvertParametersToTuple lets several unnamed arguments match a single
	// tuple parameter.
	ConvertParametersToTuple Flags = 1 << iota
)

// Expander rewrites macro uses in an expression.
type Expander interface {
	ExpandAll(e *syntax.Expr) (*syntax.Expr, error)
}

// Language is one source language.
type Language interface {
	Name() string
	Flags() Flags
	// Predeclared maps language type names to builtin core names.
	Predeclared() map[string]string
	// SelfName and BaseName name the implicit variables of member functions.
	SelfName() string
	BaseName() string
	// Recognizer returns the declaration recognizer. Expressions inside
	// declarations are expanded with macros; nil leaves them as written.
	Recognizer(macros Expander) decls.Recognizer
	ParseExpr(code source.CodeString) (*syntax.Expr, error)
	ParseType(code source.CodeString) (*syntax.TypeExpr, error)
	Grammar() *Grammar
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Language{}
)

// Register makes l available by name. Registering a name twice panics.
func Register(l Language) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[l.Name()]; dup {
		panic(fmt.Sprintf("lang: %s registered twice", l.Name()))
	}
	registry[l.Name()] = l
}

// Lookup returns the language called name.
func Lookup(name string) (Language, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	l, ok := registry[name]
	return l, ok
}

// Names lists the registered languages in order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
