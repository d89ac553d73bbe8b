package decls

import (
	"tessera/internal/ids"
	"tessera/internal/modifiers"
	"tessera/internal/source"
	"tessera/internal/syntax"
)

// DeclKind classifies recognized declarations.
type DeclKind uint8

const (
	DeclNamespace DeclKind = iota
	DeclConst
	// DeclType covers classes, structs, enums and flags; TypeKind tells them apart.
	DeclType
	DeclAlias
	DeclVar
	// DeclFunction covers functions, constructors and destructors.
	DeclFunction
	DeclProperty
	// DeclBlock is a nested code block of a function body.
	DeclBlock
)

var declKindNames = [...]string{
	DeclNamespace: "namespace",
	DeclConst:     "const",
	DeclType:      "type",
	DeclAlias:     "alias",
	DeclVar:       "var",
	DeclFunction:  "function",
	DeclProperty:  "property",
	DeclBlock:     "block",
}

func (k DeclKind) String() string {
	if int(k) < len(declKindNames) {
		return declKindNames[k]
	}
	return "invalid"
}

// Declaration is what a recognizer extracts from one statement.
type Declaration struct {
	Kind DeclKind
	Stmt source.CodeString
	Name source.CodeString
	// Path holds every segment of dotted namespace names.
	Path []source.CodeString
	// TypeKind is class, struct, enum or flag for DeclType and function,
	// constructor or destructor for DeclFunction.
	TypeKind  ids.Kind
	Modifiers []modifiers.Modifier
	// Type is the declared type of variables, constants and properties, the
	// return type of functions, the target of aliases and the underlying
	// type of enums. Nil means inferred.
	Type  *syntax.TypeExpr
	Value *syntax.Expr
	Bases []*syntax.TypeExpr
	// Params are function or indexer parameters.
	Params  []syntax.Param
	Members []EnumMember
	Body    source.CodeString
	HasBody bool
	Getter  *Accessor
	Setter  *Accessor
}

// EnumMember is one named value of an enum or flag.
type EnumMember struct {
	Name  source.CodeString
	Value *syntax.Expr
}

// Accessor is the getter or setter of a property.
type Accessor struct {
	Modifiers []modifiers.Modifier
	Body      source.CodeString
	HasBody   bool
}

// Recognizer turns raw container code into declarations.
type Recognizer interface {
	// Split breaks code into top-level statements.
	Split(code source.CodeString) []source.CodeString
	// Recognize extracts the declarations of one statement found in a
	// container of the given kind. Statements that declare nothing return
	// no declarations and no error.
	Recognize(stmt source.CodeString, in ids.ContainerKind) ([]*Declaration, error)
}
