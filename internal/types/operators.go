package types

import (
	"tessera/internal/ids"
)

// Operator enumerates the operators a type may support.
type Operator uint8

const (
	OpInvalid Operator = iota
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpModulo
	OpBitAnd
	OpBitOr
	OpBitXor
	OpShiftLeft
	OpShiftRight
	OpAnd
	OpOr
	OpEqual
	OpNotEqual
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual
	OpAssign
	OpNegate
	OpUnaryPlus
	OpNot
	OpComplement
	OpAddressOf
	OpDereference
	OpIncrement
	OpDecrement
	OpIndex
	OpCall
	OpMember
	OpCast
	opCount
)

var operatorNames = [opCount]string{
	OpInvalid:      "Invalid",
	OpAdd:          "Add",
	OpSubtract:     "Subtract",
	OpMultiply:     "Multiply",
	OpDivide:       "Divide",
	OpModulo:       "Modulo",
	OpBitAnd:       "BitAnd",
	OpBitOr:        "BitOr",
	OpBitXor:       "BitXor",
	OpShiftLeft:    "ShiftLeft",
	OpShiftRight:   "ShiftRight",
	OpAnd:          "And",
	OpOr:           "Or",
	OpEqual:        "Equal",
	OpNotEqual:     "NotEqual",
	OpLess:         "Less",
	OpLessEqual:    "LessEqual",
	OpGreater:      "Greater",
	OpGreaterEqual: "GreaterEqual",
	OpAssign:       "Assign",
	OpNegate:       "Negate",
	OpUnaryPlus:    "UnaryPlus",
	OpNot:          "Not",
	OpComplement:   "Complement",
	OpAddressOf:    "AddressOf",
	OpDereference:  "Dereference",
	OpIncrement:    "Increment",
	OpDecrement:    "Decrement",
	OpIndex:        "Index",
	OpCall:         "Call",
	OpMember:       "Member",
	OpCast:         "Cast",
}

func (op Operator) String() string {
	if op < opCount {
		return operatorNames[op]
	}
	return "Invalid"
}

// OperatorByName maps a name such as "Add" back to its operator.
func OperatorByName(name string) (Operator, bool) {
	for op := OpAdd; op < opCount; op++ {
		if operatorNames[op] == name {
			return op, true
		}
	}
	return OpInvalid, false
}

// FunctionName is the special name of the user function implementing op.
func (op Operator) FunctionName() string {
	return ids.OperatorPrefix + op.String()
}

// IsUnary reports operators taking a single operand.
func (op Operator) IsUnary() bool {
	switch op {
	case OpNegate, OpUnaryPlus, OpNot, OpComplement, OpAddressOf, OpDereference, OpIncrement, OpDecrement:
		return true
	}
	return false
}

// FamilyMask describes broad categories of types an operator accepts.
type FamilyMask uint32

const (
	FamilyNone FamilyMask = 0
	FamilyAny  FamilyMask = 1 << iota
	FamilyBool
	FamilySignedInt
	FamilyUnsignedInt
	FamilyFloat
	FamilyChar
	FamilyString
	FamilyArray
	FamilyPointer
	FamilyReference
	FamilyEnum
	FamilyFlag
	FamilyFunction
	FamilyStructured
	FamilyObject
)

const (
	FamilyIntegral = FamilySignedInt | FamilyUnsignedInt
	FamilyNumeric  = FamilyIntegral | FamilyFloat
	FamilyOrdered  = FamilyNumeric | FamilyChar | FamilyEnum
)

// BinarySpec lists operand families accepted by a binary operator.
type BinarySpec struct {
	Left  FamilyMask
	Right FamilyMask
	// SameFamily requires both operands to be of one family.
	SameFamily bool
}

var binarySpecTable = map[Operator][]BinarySpec{
	OpAdd: {
		{Left: FamilyNumeric, Right: FamilyNumeric},
		{Left: FamilyString, Right: FamilyString | FamilyChar},
		{Left: FamilyPointer, Right: FamilyIntegral},
		{Left: FamilyChar, Right: FamilyIntegral},
	},
	OpSubtract: {
		{Left: FamilyNumeric, Right: FamilyNumeric},
		{Left: FamilyPointer, Right: FamilyIntegral | FamilyPointer},
		{Left: FamilyChar, Right: FamilyIntegral | FamilyChar},
	},
	OpMultiply:     {{Left: FamilyNumeric, Right: FamilyNumeric}},
	OpDivide:       {{Left: FamilyNumeric, Right: FamilyNumeric}},
	OpModulo:       {{Left: FamilyNumeric, Right: FamilyNumeric}},
	OpBitAnd:       {{Left: FamilyIntegral | FamilyBool | FamilyFlag, Right: FamilyIntegral | FamilyBool | FamilyFlag, SameFamily: true}},
	OpBitOr:        {{Left: FamilyIntegral | FamilyBool | FamilyFlag, Right: FamilyIntegral | FamilyBool | FamilyFlag, SameFamily: true}},
	OpBitXor:       {{Left: FamilyIntegral | FamilyBool | FamilyFlag, Right: FamilyIntegral | FamilyBool | FamilyFlag, SameFamily: true}},
	OpShiftLeft:    {{Left: FamilyIntegral, Right: FamilyIntegral}},
	OpShiftRight:   {{Left: FamilyIntegral, Right: FamilyIntegral}},
	OpAnd:          {{Left: FamilyBool, Right: FamilyBool}},
	OpOr:           {{Left: FamilyBool, Right: FamilyBool}},
	OpEqual:        {{Left: FamilyAny, Right: FamilyAny}},
	OpNotEqual:     {{Left: FamilyAny, Right: FamilyAny}},
	OpLess:         {{Left: FamilyOrdered | FamilyPointer | FamilyString, Right: FamilyOrdered | FamilyPointer | FamilyString}},
	OpLessEqual:    {{Left: FamilyOrdered | FamilyPointer | FamilyString, Right: FamilyOrdered | FamilyPointer | FamilyString}},
	OpGreater:      {{Left: FamilyOrdered | FamilyPointer | FamilyString, Right: FamilyOrdered | FamilyPointer | FamilyString}},
	OpGreaterEqual: {{Left: FamilyOrdered | FamilyPointer | FamilyString, Right: FamilyOrdered | FamilyPointer | FamilyString}},
}

var unarySpecTable = map[Operator]FamilyMask{
	OpNegate:      FamilySignedInt | FamilyFloat,
	OpUnaryPlus:   FamilyNumeric,
	OpNot:         FamilyBool,
	OpComplement:  FamilyIntegral | FamilyFlag,
	OpAddressOf:   FamilyAny,
	OpDereference: FamilyPointer | FamilyReference,
	OpIncrement:   FamilyNumeric | FamilyPointer | FamilyChar,
	OpDecrement:   FamilyNumeric | FamilyPointer | FamilyChar,
}

// BinarySpecs returns the operand specs of a binary operator.
func BinarySpecs(op Operator) []BinarySpec {
	return binarySpecTable[op]
}

// Family classifies a type for operator tables.
func Family(g *ids.Graph, typ ids.ID) FamilyMask {
	ident := g.Id(g.TypeOf(typ))
	if ident == nil {
		return FamilyNone
	}
	switch ident.Kind {
	case ids.KindBool:
		return FamilyBool
	case ids.KindSigned:
		return FamilySignedInt
	case ids.KindUnsigned:
		return FamilyUnsignedInt
	case ids.KindFloat:
		return FamilyFloat
	case ids.KindChar:
		return FamilyChar
	case ids.KindString:
		return FamilyString
	case ids.KindRefArray, ids.KindNonrefArray, ids.KindPointerAndLength:
		return FamilyArray
	case ids.KindPointer:
		return FamilyPointer
	case ids.KindReference:
		return FamilyReference
	case ids.KindEnum:
		return FamilyEnum
	case ids.KindFlag:
		return FamilyFlag
	case ids.KindFunctionType, ids.KindNonstaticFunctionType:
		return FamilyFunction
	case ids.KindClass, ids.KindStruct, ids.KindTuple:
		return FamilyStructured
	case ids.KindObject, ids.KindValueTypeBase, ids.KindEnumBase, ids.KindTupleBase:
		return FamilyObject
	}
	return FamilyNone
}

// CanOpApplied reports whether op may be applied with src as its (left)
// operand. other is the right operand of binary operators and may be NoID
// when unknown. Assignment is always legal.
func CanOpApplied(g *ids.Graph, op Operator, src, other ids.ID) bool {
	return canOpApplied(g, op, g.TypeOf(src), g.TypeOf(other), 0)
}

func canOpApplied(g *ids.Graph, op Operator, src, other ids.ID, depth int) bool {
	if op == OpAssign || op == OpCast {
		return true
	}
	ident := g.Id(src)
	if ident == nil || depth > 8 {
		return false
	}
	if ident.Kind == ids.KindReference {
		return canOpApplied(g, op, g.Real(ident.Child(0)), other, depth+1)
	}
	if builtinRule(g, op, ident, other) {
		return true
	}
	if userOperator(g, op, ident) {
		return true
	}
	if u := g.Real(ident.Type.Underlying); u.IsValid() && u != src {
		return canOpApplied(g, op, u, other, depth+1)
	}
	return false
}

func builtinRule(g *ids.Graph, op Operator, src *ids.Identifier, other ids.ID) bool {
	fam := Family(g, src.ID)
	switch op {
	case OpMember:
		return src.Scope.IsValid() || fam == FamilyObject || fam == FamilyString || src.Kind.IsArray()
	case OpIndex:
		return fam&(FamilyArray|FamilyPointer|FamilyString) != 0
	case OpCall:
		return fam == FamilyFunction
	}
	if op.IsUnary() {
		mask, ok := unarySpecTable[op]
		return ok && (mask == FamilyAny || mask&fam != 0)
	}
	for _, spec := range binarySpecTable[op] {
		if spec.Left != FamilyAny && spec.Left&fam == 0 {
			continue
		}
		if !other.IsValid() {
			return true
		}
		ofam := Family(g, other)
		if spec.Right == FamilyAny {
			if op == OpEqual || op == OpNotEqual {
				return CanConvert(g, other, src.ID) != Nonconvertable || CanConvert(g, src.ID, other) != Nonconvertable
			}
			return true
		}
		if spec.Right&ofam == 0 {
			continue
		}
		if spec.SameFamily && ofam != fam {
			continue
		}
		return true
	}
	return false
}

// userOperator looks for a %Operator_<Op> function in the scope of a
// structured type or its bases.
func userOperator(g *ids.Graph, op Operator, src *ids.Identifier) bool {
	if !src.Scope.IsValid() || !src.Kind.IsStructured() {
		return false
	}
	want := 2
	if op.IsUnary() {
		want = 1
	}
	for _, fn := range g.GetMember(src.ID, op.FunctionName()) {
		f := g.Id(fn)
		if f.Kind.IsFunction() && len(g.Params(fn)) == want {
			return true
		}
	}
	return false
}
