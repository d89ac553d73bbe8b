package ids

import (
	"go/constant"

	"tessera/internal/source"
)

// ID identifies an identifier inside the graph arena.
type ID uint32

// NoID marks the absence of an identifier reference.
const NoID ID = 0

// IsValid reports whether the ID refers to an allocated identifier.
func (id ID) IsValid() bool { return id != NoID }

// ContainerID identifies a container inside the graph arena.
type ContainerID uint32

// NoContainer marks the absence of a container reference.
const NoContainer ContainerID = 0

// IsValid reports whether the ID refers to an allocated container.
func (id ContainerID) IsValid() bool { return id != NoContainer }

// Layout is the lazily computed storage shape of a type or variable.
type Layout struct {
	Size       int
	Align      int
	Calculated bool
	// InProgress guards against types whose layout contains themselves.
	InProgress bool
	// ExplicitAlign comes from an align(N) modifier; 0 when absent.
	ExplicitAlign int
}

// StructureBase is one base-type edge of a structured type.
type StructureBase struct {
	Base    ID
	Offset  int
	Virtual bool
	// Unreal marks implicit bases such as the value type base of a struct.
	Unreal bool
}

// StructInfo is the payload of classes, structs, tuples and the other
// anonymous structured shapes.
type StructInfo struct {
	Bases []StructureBase
	GUID  string
	// InstanceSize and InstanceAlign describe the object itself; for classes
	// Layout describes the reference to it.
	InstanceSize  int
	InstanceAlign int
	// FunctionTable holds the virtual slots in slot order.
	FunctionTable []ID
	// FunctionTableIndex is the global index of the materialised table, -1 when none.
	FunctionTableIndex int
	VirtualsCalculated bool
	BasesResolved      bool
}

// FuncInfo is the payload of functions.
type FuncInfo struct {
	OverloadIndex      int
	VirtualIndex       int
	Overridden         ID
	GlobalPointerIndex int
	AsmName            string
	// Property links accessors to the property that owns them.
	Property ID
}

// VarInfo is the payload of variables, constants and parameters.
type VarInfo struct {
	Offset     int
	LocalIndex int
	// Const holds the value of constants and default values of parameters.
	Const        constant.Value
	HasDefault   bool
	GlobalIndex  int
	AsmName      string
	PropertyPart bool
}

// PropInfo is the payload of properties.
type PropInfo struct {
	Getter ID
	Setter ID
	// Params lists indexer parameters.
	Params []ID
}

// TypeInfo carries the shape parameters of builtin and structural types.
type TypeInfo struct {
	// Size is the byte size of numeric, bool and char types.
	Size int
	// Length is the element count of fixed arrays.
	Length int
	// Dimensions is the rank of reference arrays.
	Dimensions int
	CallConv   CallConv
	// Underlying is the structured representation builtin types inherit
	// operators from.
	Underlying ID
	// Generated marks structural types built by the factories.
	Generated bool
}

// Identifier is the universal node of the scope graph.
//
// Children depends on the kind:
//   - pointer, reference, arrays, pointer-and-length: [element]
//   - tuple: member variables in order
//   - function type: [return, param...]; nonstatic function type: [function type]
//   - variables, constants, parameters, properties: [type]
//   - functions: [function type]
//   - enums: [underlying integer type]
//   - alias: [target]
type Identifier struct {
	ID        ID
	Kind      Kind
	Container ContainerID
	Name      source.CodeString
	Access    Access
	Flags     Flags
	Children  []ID
	// Real is the identifier itself, or the target of an alias once known.
	Real ID
	// Scope is the container this identifier opens, if any.
	Scope    ContainerID
	Assembly int
	Layout   Layout
	Type     TypeInfo

	Struct *StructInfo
	Func   *FuncInfo
	Var    *VarInfo
	Prop   *PropInfo

	// Declared is true once the identifier was admitted by DeclareIdentifier.
	Declared bool
}

func (id *Identifier) Has(f Flags) bool { return id.Flags&f != 0 }

// NameString returns the declared name.
func (id *Identifier) NameString() string { return id.Name.String() }

// TypeOfSelf returns the type a value of this identifier has: the declared
// type of variables, properties and functions, or NoID for anything else.
func (id *Identifier) TypeOfSelf() ID {
	switch {
	case id.Kind.IsVariable(), id.Kind == KindProperty, id.Kind.IsFunction():
		if len(id.Children) > 0 {
			return id.Children[0]
		}
	}
	return NoID
}

// Child returns Children[i] or NoID.
func (id *Identifier) Child(i int) ID {
	if i < 0 || i >= len(id.Children) {
		return NoID
	}
	return id.Children[i]
}
