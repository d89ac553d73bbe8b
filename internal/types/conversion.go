// Package types answers type-system questions over the identifier graph:
// conversion legality, operator applicability and numeric promotion.
// Every rule is an explicit switch over kind pairs.
package types

import (
	"tessera/internal/ids"
)

// Conversion is the three-valued conversion lattice.
type Conversion uint8

const (
	// Nonconvertable values cannot be used as the target type.
	Nonconvertable Conversion = iota
	// Convertable values need an explicit cast.
	Convertable
	// Automatic values convert implicitly and without loss.
	Automatic
)

func (c Conversion) String() string {
	switch c {
	case Automatic:
		return "automatic"
	case Convertable:
		return "convertable"
	default:
		return "nonconvertable"
	}
}

// Meet returns the weaker of two conversions.
func Meet(a, b Conversion) Conversion {
	if a < b {
		return a
	}
	return b
}

// CanConvert decides whether a value of type from can be used where to is
// expected. Both arguments may be aliases. CanConvert(T, T) is Automatic.
func CanConvert(g *ids.Graph, from, to ids.ID) Conversion {
	from, to = g.TypeOf(from), g.TypeOf(to)
	if !from.IsValid() || !to.IsValid() {
		return Nonconvertable
	}
	if g.Equivalent(from, to) {
		return Automatic
	}
	f, t := g.Id(from), g.Id(to)
	fk, tk := f.Kind, t.Kind

	switch {
	case tk == ids.KindAuto:
		return Automatic
	case fk == ids.KindVoid || tk == ids.KindVoid:
		return Nonconvertable

	case fk == ids.KindReference:
		return CanConvert(g, f.Child(0), to)
	case tk == ids.KindReference:
		if g.Equivalent(from, t.Child(0)) {
			return Automatic
		}
		return Nonconvertable

	case fk.IsNumeric() && tk.IsNumeric():
		return numericConversion(f, t)
	case fk == ids.KindChar && tk.IsInteger(), fk.IsInteger() && tk == ids.KindChar:
		return Convertable
	case fk == ids.KindBool && tk.IsInteger(), fk.IsInteger() && tk == ids.KindBool:
		return Convertable

	case fk.IsEnum() && tk.IsInteger(), fk.IsInteger() && tk.IsEnum():
		return Convertable
	case fk.IsEnum() && tk == ids.KindEnumBase:
		return Convertable
	case fk == ids.KindEnumBase && tk.IsEnum():
		return Convertable

	case fk == ids.KindTuple && tk == ids.KindTuple:
		return tupleConversion(g, f, t)
	case fk == ids.KindTuple && tk == ids.KindTupleBase:
		return Convertable
	case fk == ids.KindTupleBase && tk == ids.KindTuple:
		return Convertable

	case fk == ids.KindPointer && tk == ids.KindPointer:
		if g.Kind(t.Child(0)) == ids.KindVoid {
			return Automatic
		}
		return Convertable
	case fk == ids.KindPointer && tk.IsInteger(), fk.IsInteger() && tk == ids.KindPointer:
		return Convertable

	case fk.IsArray() && tk == ids.KindPointerAndLength:
		if g.Equivalent(f.Child(0), t.Child(0)) {
			return Automatic
		}
		return Nonconvertable
	case fk == ids.KindPointerAndLength && tk == ids.KindPointer:
		if g.Equivalent(f.Child(0), t.Child(0)) || g.Kind(t.Child(0)) == ids.KindVoid {
			return Convertable
		}
		return Nonconvertable

	case fk == ids.KindFunctionType && tk == ids.KindNonstaticFunctionType:
		if g.Equivalent(from, t.Child(0)) {
			return Automatic
		}
		return Nonconvertable

	case tk == ids.KindObject:
		if fk.IsReferenceType() {
			return Automatic
		}
		if IsValueType(g, from) {
			return Convertable
		}
		return Nonconvertable
	case fk == ids.KindObject:
		if tk.IsReferenceType() || IsValueType(g, to) {
			return Convertable
		}
		return Nonconvertable
	case tk == ids.KindValueTypeBase:
		if IsValueType(g, from) {
			return Convertable
		}
		return Nonconvertable
	case fk == ids.KindValueTypeBase:
		if IsValueType(g, to) {
			return Convertable
		}
		return Nonconvertable

	case fk.IsStructured() && tk.IsStructured():
		switch {
		case g.IsSubtypeOf(from, to):
			return Automatic
		case g.IsSubtypeOf(to, from):
			return Convertable
		}
		return Nonconvertable
	}
	return Nonconvertable
}

func numericConversion(f, t *ids.Identifier) Conversion {
	fs, ts := f.Type.Size, t.Type.Size
	switch {
	case f.Kind == t.Kind:
		if ts >= fs {
			return Automatic
		}
		return Convertable
	case f.Kind == ids.KindUnsigned && t.Kind == ids.KindSigned:
		if ts > fs {
			return Automatic
		}
		return Convertable
	case f.Kind == ids.KindSigned && t.Kind == ids.KindUnsigned:
		return Convertable
	case f.Kind.IsInteger() && t.Kind == ids.KindFloat:
		return Automatic
	case f.Kind == ids.KindFloat && t.Kind.IsInteger():
		return Convertable
	}
	return Nonconvertable
}

// tupleConversion converts member-wise: Automatic only if every member is,
// Convertable if every member converts at all.
func tupleConversion(g *ids.Graph, f, t *ids.Identifier) Conversion {
	if len(f.Children) != len(t.Children) {
		return Nonconvertable
	}
	result := Automatic
	for i := range f.Children {
		c := CanConvert(g, g.Id(f.Children[i]).TypeOfSelf(), g.Id(t.Children[i]).TypeOfSelf())
		result = Meet(result, c)
		if result == Nonconvertable {
			break
		}
	}
	return result
}

// IsValueType reports types stored inline: numerics, bool, char, structs,
// enums, tuples, fixed arrays, pointers and pointer-and-length pairs.
func IsValueType(g *ids.Graph, id ids.ID) bool {
	switch g.Kind(g.TypeOf(id)) {
	case ids.KindBool, ids.KindChar, ids.KindSigned, ids.KindUnsigned, ids.KindFloat,
		ids.KindStruct, ids.KindEnum, ids.KindFlag, ids.KindTuple, ids.KindNonrefArray,
		ids.KindPointer, ids.KindPointerAndLength, ids.KindFunctionType, ids.KindNonstaticFunctionType:
		return true
	}
	return false
}

// IsReferenceType reports types whose values point to heap objects.
func IsReferenceType(g *ids.Graph, id ids.ID) bool {
	return g.Kind(g.TypeOf(id)).IsReferenceType()
}

// IsNumeric reports integer and float types.
func IsNumeric(g *ids.Graph, id ids.ID) bool {
	return g.Kind(g.TypeOf(id)).IsNumeric()
}
