package layout

import (
	"tessera/internal/datastore"
	"tessera/internal/ids"
)

func (e *Engine) compute(ident *ids.Identifier) error {
	g := e.Graph
	ptr := e.Target.pointerSize()

	switch ident.Kind {
	case ids.KindVoid, ids.KindAuto:
		ident.Layout.Size, ident.Layout.Align = 0, 1

	case ids.KindBool, ids.KindChar, ids.KindSigned, ids.KindUnsigned, ids.KindFloat:
		ident.Layout.Size, ident.Layout.Align = scalar(ident.Type.Size)

	case ids.KindString, ids.KindObject, ids.KindValueTypeBase, ids.KindEnumBase, ids.KindTupleBase,
		ids.KindRefArray, ids.KindPointer, ids.KindReference, ids.KindFunctionType:
		ident.Layout.Size, ident.Layout.Align = ptr, ptr

	case ids.KindNonrefArray:
		return e.arrayLayout(ident)

	case ids.KindEnum, ids.KindFlag:
		under := ident.Child(0)
		if !under.IsValid() {
			under = g.Builtins.Int32
		}
		if err := e.Calculate(under); err != nil {
			return err
		}
		u := g.Id(g.Real(under))
		ident.Layout.Size, ident.Layout.Align = u.Layout.Size, u.Layout.Align

	case ids.KindTuple, ids.KindPointerAndLength, ids.KindNonstaticFunctionType, ids.KindStruct:
		size, align, err := e.structuredLayout(ident, 0, 1)
		if err != nil {
			return err
		}
		ident.Layout.Size, ident.Layout.Align = size, align

	case ids.KindClass:
		// Values of a class are references, so members may name the class
		// itself while its instance is being laid out.
		ident.Layout.Size, ident.Layout.Align = ptr, ptr
		ident.Layout.Calculated = true
		return e.classLayout(ident)

	default:
		if ident.Kind.IsVariable() || ident.Kind == ids.KindProperty {
			return e.variableLayout(ident)
		}
		ident.Layout.Size, ident.Layout.Align = 0, 1
	}
	return nil
}

func scalar(size int) (int, int) {
	if size <= 0 {
		return 0, 1
	}
	return size, size
}

// arrayLayout stores len elements back to back; the total is rounded the
// way instance sizes are.
func (e *Engine) arrayLayout(ident *ids.Identifier) error {
	g := e.Graph
	elem := ident.Child(0)
	if err := e.Calculate(elem); err != nil {
		return err
	}
	el := g.Id(g.Real(elem)).Layout
	stride := datastore.AlignWithIncrease(el.Size, el.Align)
	n := ident.Type.Length
	if n < 0 {
		n = 0
	}
	ident.Layout.Align = max(el.Align, 1)
	ident.Layout.Size = datastore.AlignWithIncrease(
		datastore.CalcPow2Size(stride*n, e.Target.MaxStructPow2Size), ident.Layout.Align)
	return nil
}

func (e *Engine) variableLayout(ident *ids.Identifier) error {
	g := e.Graph
	typ := ident.TypeOfSelf()
	if !typ.IsValid() {
		return &Error{Kind: ErrUnresolved, Type: ident.ID, Name: ident.NameString()}
	}
	if err := e.Calculate(typ); err != nil {
		return err
	}
	t := g.Id(g.Real(typ)).Layout
	ident.Layout.Size = t.Size
	ident.Layout.Align = max(t.Align, ident.Layout.ExplicitAlign)
	return nil
}

// structuredLayout places the instance members of ident after start bytes:
// each member goes to the smallest offset at or past the previous member's
// end that satisfies its alignment. The result is the rounded instance size.
func (e *Engine) structuredLayout(ident *ids.Identifier, start, startAlign int) (int, int, error) {
	g := e.Graph
	size, align := start, max(startAlign, 1)
	for _, m := range g.Members(ident.ID) {
		member := g.Id(m)
		if err := e.Calculate(m); err != nil {
			return 0, 1, err
		}
		ma := max(member.Layout.Align, 1)
		offset := datastore.AlignWithIncrease(size, ma)
		member.Var.Offset = offset
		size = offset + member.Layout.Size
		align = max(align, ma)
	}
	align = max(align, ident.Layout.ExplicitAlign)
	size = datastore.AlignWithIncrease(datastore.CalcPow2Size(size, e.Target.MaxStructPow2Size), align)
	if ident.Struct != nil {
		ident.Struct.InstanceSize, ident.Struct.InstanceAlign = size, align
	}
	return size, align, nil
}

// classLayout lays out a class instance: the real bases first, then the
// function table pointer when the class introduces the first virtual slot,
// then its own members.
func (e *Engine) classLayout(ident *ids.Identifier) error {
	g := e.Graph
	if e.building == nil {
		e.building = make(map[ids.ID]bool)
	}
	e.building[ident.ID] = true
	defer delete(e.building, ident.ID)
	e.CalcVirtuals(ident.ID)

	start, align := 0, 1
	hasTable := false
	for i := range ident.Struct.Bases {
		sb := &ident.Struct.Bases[i]
		if sb.Unreal {
			continue
		}
		baseID := g.Real(sb.Base)
		if e.building[baseID] {
			return e.recursive(g.Id(baseID))
		}
		if err := e.Calculate(baseID); err != nil {
			return err
		}
		base := g.Id(baseID)
		if base == nil || base.Struct == nil {
			continue
		}
		ba := max(base.Struct.InstanceAlign, 1)
		sb.Offset = datastore.AlignWithIncrease(start, ba)
		start = sb.Offset + base.Struct.InstanceSize
		align = max(align, ba)
		hasTable = hasTable || len(base.Struct.FunctionTable) > 0
	}
	if !hasTable && len(ident.Struct.FunctionTable) > 0 {
		ptr := e.Target.pointerSize()
		start = datastore.AlignWithIncrease(start, ptr) + ptr
		align = max(align, ptr)
	}
	_, _, err := e.structuredLayout(ident, start, align)
	return err
}
