package ids

// Kind is the closed set of identifier variants.
type Kind uint8

const (
	KindInvalid Kind = iota

	// builtin types
	KindVoid
	KindAuto
	KindBool
	KindChar
	KindString
	KindObject
	KindValueTypeBase
	KindEnumBase
	KindTupleBase
	KindSigned
	KindUnsigned
	KindFloat

	// structural types
	KindPointer
	KindReference
	KindRefArray
	KindNonrefArray
	KindPointerAndLength
	KindTuple
	KindFunctionType
	KindNonstaticFunctionType

	// named types
	KindClass
	KindStruct
	KindEnum
	KindFlag

	// variables
	KindGlobalVar
	KindLocalVar
	KindParamVar
	KindSelfVar
	KindBaseVar
	KindMemberVar
	KindConstVar
	KindFuncParam

	// functions
	KindFunction
	KindMemberFunction
	KindConstructor
	KindDestructor

	KindProperty
	KindNamespace
	KindAlias

	kindCount
)

var kindNames = [kindCount]string{
	KindInvalid:               "invalid",
	KindVoid:                  "void",
	KindAuto:                  "auto",
	KindBool:                  "bool",
	KindChar:                  "char",
	KindString:                "string",
	KindObject:                "object",
	KindValueTypeBase:         "value type base",
	KindEnumBase:              "enum base",
	KindTupleBase:             "tuple base",
	KindSigned:                "signed",
	KindUnsigned:              "unsigned",
	KindFloat:                 "float",
	KindPointer:               "pointer",
	KindReference:             "reference",
	KindRefArray:              "reference array",
	KindNonrefArray:           "array",
	KindPointerAndLength:      "pointer and length",
	KindTuple:                 "tuple",
	KindFunctionType:          "function type",
	KindNonstaticFunctionType: "nonstatic function type",
	KindClass:                 "class",
	KindStruct:                "struct",
	KindEnum:                  "enum",
	KindFlag:                  "flag",
	KindGlobalVar:             "global variable",
	KindLocalVar:              "local variable",
	KindParamVar:              "parameter variable",
	KindSelfVar:               "self",
	KindBaseVar:               "base",
	KindMemberVar:             "member variable",
	KindConstVar:              "constant",
	KindFuncParam:             "function parameter",
	KindFunction:              "function",
	KindMemberFunction:        "member function",
	KindConstructor:           "constructor",
	KindDestructor:            "destructor",
	KindProperty:              "property",
	KindNamespace:             "namespace",
	KindAlias:                 "alias",
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return "invalid"
}

// IsType reports whether identifiers of this kind denote types.
func (k Kind) IsType() bool { return k >= KindVoid && k <= KindFlag }

// IsBuiltin reports builtin types that have no declaration syntax.
func (k Kind) IsBuiltin() bool { return k >= KindVoid && k <= KindFloat }

// IsStructural reports types compared by structure instead of identity.
func (k Kind) IsStructural() bool { return k >= KindPointer && k <= KindNonstaticFunctionType }

// IsStructured reports classes and structs.
func (k Kind) IsStructured() bool { return k == KindClass || k == KindStruct }

// IsEnum reports enums and flags.
func (k Kind) IsEnum() bool { return k == KindEnum || k == KindFlag }

// IsNumeric reports integer and floating point types.
func (k Kind) IsNumeric() bool { return k == KindSigned || k == KindUnsigned || k == KindFloat }

// IsInteger reports signed and unsigned integer types.
func (k Kind) IsInteger() bool { return k == KindSigned || k == KindUnsigned }

// IsArray reports both array kinds.
func (k Kind) IsArray() bool { return k == KindRefArray || k == KindNonrefArray }

// IsVariable reports every variable kind, constants and parameters included.
func (k Kind) IsVariable() bool { return k >= KindGlobalVar && k <= KindFuncParam }

// IsLocal reports variables owned by a function body.
func (k Kind) IsLocal() bool {
	return k == KindLocalVar || k == KindParamVar || k == KindSelfVar || k == KindBaseVar
}

// IsFunction reports every function kind.
func (k Kind) IsFunction() bool { return k >= KindFunction && k <= KindDestructor }

// IsFunctionType reports both function type kinds.
func (k Kind) IsFunctionType() bool { return k == KindFunctionType || k == KindNonstaticFunctionType }

// IsReferenceType reports types whose values are stored as a pointer to a heap object.
func (k Kind) IsReferenceType() bool {
	switch k {
	case KindClass, KindString, KindObject, KindRefArray, KindValueTypeBase, KindEnumBase, KindTupleBase:
		return true
	}
	return false
}

// Access is the declared visibility of an identifier. Higher is more visible.
type Access uint8

const (
	AccessUnknown Access = iota
	AccessPrivate
	AccessProtected
	AccessInternal
	AccessPublic
)

func (a Access) String() string {
	switch a {
	case AccessPrivate:
		return "private"
	case AccessProtected:
		return "protected"
	case AccessInternal:
		return "internal"
	case AccessPublic:
		return "public"
	default:
		return "unknown"
	}
}

// Flags are the boolean attributes of an identifier. Bits 14 and 15 are
// reserved by the assembly format and never set here.
type Flags uint16

const (
	FlagVirtual Flags = 1 << iota
	FlagOverride
	FlagAbstract
	FlagSealed
	FlagStatic
	FlagExtern
	FlagReadOnly
	FlagSpecialName
	FlagHideBase
	FlagNoDefaultBase
	FlagParamArray
	FlagBuiltin
	FlagUnnamed

	// FlagMask covers every bit an identifier may carry.
	FlagMask Flags = 1<<14 - 1
)

var flagNames = []struct {
	f    Flags
	name string
}{
	{FlagVirtual, "virtual"},
	{FlagOverride, "override"},
	{FlagAbstract, "abstract"},
	{FlagSealed, "sealed"},
	{FlagStatic, "static"},
	{FlagExtern, "extern"},
	{FlagReadOnly, "readonly"},
	{FlagSpecialName, "specialname"},
	{FlagHideBase, "new"},
	{FlagNoDefaultBase, "nobase"},
	{FlagParamArray, "params"},
	{FlagBuiltin, "builtin"},
	{FlagUnnamed, "unnamed"},
}

// Strings returns a slice of textual flag labels.
func (f Flags) Strings() []string {
	if f == 0 {
		return nil
	}
	labels := make([]string, 0, 4)
	for _, fn := range flagNames {
		if f&fn.f != 0 {
			labels = append(labels, fn.name)
		}
	}
	return labels
}

// CallConv is a function calling convention.
type CallConv uint8

const (
	CallDefault CallConv = iota
	CallStdCall
	CallCDecl
	CallFastCall
)

func (c CallConv) String() string {
	switch c {
	case CallStdCall:
		return "stdcall"
	case CallCDecl:
		return "cdecl"
	case CallFastCall:
		return "fastcall"
	default:
		return "default"
	}
}

// ParseCallConv maps a convention name to its value.
func ParseCallConv(s string) (CallConv, bool) {
	switch s {
	case "default":
		return CallDefault, true
	case "stdcall":
		return CallStdCall, true
	case "cdecl":
		return CallCDecl, true
	case "fastcall":
		return CallFastCall, true
	}
	return CallDefault, false
}

// DeclaredKind is the 4-bit tag of a declared identifier in the assembly
// content stream. Tag 0 introduces an inline structural type or a reference.
type DeclaredKind uint8

const (
	DeclNone DeclaredKind = iota
	DeclNamespace
	DeclConst
	DeclAlias
	DeclClass
	DeclStruct
	DeclEnum
	DeclFlag
	DeclGlobalVar
	DeclMemberVar
	DeclFunction
	DeclConstructor
	DeclDestructor
	DeclProperty
	DeclBuiltin
	DeclEnd
)

// UndeclaredKind tags structural types written inline.
type UndeclaredKind uint8

const (
	UndeclReference UndeclaredKind = iota
	UndeclPointer
	UndeclRefType
	UndeclRefArray
	UndeclNonrefArray
	UndeclPointerAndLength
	UndeclTuple
	UndeclFunctionType
	UndeclNonstaticFunctionType
	// UndeclBuiltin refers to a builtin type by its ordinal.
	UndeclBuiltin
	UndeclNone
)

// DeclaredKindOf maps an identifier kind to its on-disk tag.
func DeclaredKindOf(k Kind) (DeclaredKind, bool) {
	switch k {
	case KindNamespace:
		return DeclNamespace, true
	case KindConstVar:
		return DeclConst, true
	case KindAlias:
		return DeclAlias, true
	case KindClass:
		return DeclClass, true
	case KindStruct:
		return DeclStruct, true
	case KindEnum:
		return DeclEnum, true
	case KindFlag:
		return DeclFlag, true
	case KindGlobalVar:
		return DeclGlobalVar, true
	case KindMemberVar:
		return DeclMemberVar, true
	case KindFunction, KindMemberFunction:
		return DeclFunction, true
	case KindConstructor:
		return DeclConstructor, true
	case KindDestructor:
		return DeclDestructor, true
	case KindProperty:
		return DeclProperty, true
	}
	if k.IsBuiltin() {
		return DeclBuiltin, true
	}
	return DeclNone, false
}

// UndeclaredKindOf maps a structural kind to its inline tag.
func UndeclaredKindOf(k Kind) (UndeclaredKind, bool) {
	switch k {
	case KindPointer:
		return UndeclPointer, true
	case KindReference:
		return UndeclRefType, true
	case KindRefArray:
		return UndeclRefArray, true
	case KindNonrefArray:
		return UndeclNonrefArray, true
	case KindPointerAndLength:
		return UndeclPointerAndLength, true
	case KindTuple:
		return UndeclTuple, true
	case KindFunctionType:
		return UndeclFunctionType, true
	case KindNonstaticFunctionType:
		return UndeclNonstaticFunctionType, true
	}
	return UndeclNone, false
}
