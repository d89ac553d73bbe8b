package ids

import (
	"go/constant"
	"strconv"
	"strings"

	"tessera/internal/source"
)

// Equivalent reports whether two types are the same type. Structural types
// compare by shape; every other type compares by identity.
func (g *Graph) Equivalent(a, b ID) bool {
	a, b = g.Real(a), g.Real(b)
	if !a.IsValid() || !b.IsValid() {
		return false
	}
	if a == b {
		return true
	}
	ia, ib := g.Id(a), g.Id(b)
	if ia.Kind != ib.Kind || !ia.Kind.IsStructural() {
		return false
	}
	switch ia.Kind {
	case KindPointer, KindReference, KindPointerAndLength, KindNonstaticFunctionType:
		return g.Equivalent(ia.Child(0), ib.Child(0))
	case KindNonrefArray:
		return ia.Type.Length == ib.Type.Length && g.Equivalent(ia.Child(0), ib.Child(0))
	case KindRefArray:
		return ia.Type.Dimensions == ib.Type.Dimensions && g.Equivalent(ia.Child(0), ib.Child(0))
	case KindTuple:
		if len(ia.Children) != len(ib.Children) {
			return false
		}
		for i := range ia.Children {
			if !g.Equivalent(g.Id(ia.Children[i]).TypeOfSelf(), g.Id(ib.Children[i]).TypeOfSelf()) {
				return false
			}
		}
		return true
	case KindFunctionType:
		if ia.Type.CallConv != ib.Type.CallConv || len(ia.Children) != len(ib.Children) {
			return false
		}
		if !g.Equivalent(ia.Child(0), ib.Child(0)) {
			return false
		}
		for i := 1; i < len(ia.Children); i++ {
			pa, pb := g.Id(ia.Children[i]), g.Id(ib.Children[i])
			if pa.Has(FlagParamArray) != pb.Has(FlagParamArray) || !g.Equivalent(pa.TypeOfSelf(), pb.TypeOfSelf()) {
				return false
			}
		}
		return true
	}
	return false
}

func (g *Graph) internKey(kind Kind, extra int, children ...ID) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(int(kind)))
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(extra))
	for _, c := range children {
		b.WriteByte(',')
		b.WriteString(strconv.FormatUint(uint64(g.Real(c)), 10))
	}
	return b.String()
}

func (g *Graph) newStructural(kind Kind, key string, children ...ID) (ID, bool) {
	if key != "" {
		if id, ok := g.interned[key]; ok {
			return id, false
		}
	}
	id := g.New(kind, g.Global(), source.CodeString{})
	ident := g.Id(id)
	ident.Access = AccessPublic
	ident.Flags |= FlagUnnamed
	ident.Type.Generated = true
	ident.Declared = true
	ident.Children = append([]ID(nil), children...)
	if key != "" {
		g.interned[key] = id
	}
	return id, true
}

// PointerTo returns the pointer type to elem.
func (g *Graph) PointerTo(elem ID) ID {
	id, _ := g.newStructural(KindPointer, g.internKey(KindPointer, 0, elem), elem)
	return id
}

// ReferenceTo returns the reference type to elem.
func (g *Graph) ReferenceTo(elem ID) ID {
	id, _ := g.newStructural(KindReference, g.internKey(KindReference, 0, elem), elem)
	return id
}

// ArrayOf returns the fixed-length value array of elem.
func (g *Graph) ArrayOf(elem ID, length int) ID {
	id, created := g.newStructural(KindNonrefArray, g.internKey(KindNonrefArray, length, elem), elem)
	if created {
		g.Id(id).Type.Length = length
	}
	return id
}

// RefArrayOf returns the heap-allocated array of elem with the given rank.
func (g *Graph) RefArrayOf(elem ID, dims int) ID {
	if dims < 1 {
		dims = 1
	}
	id, created := g.newStructural(KindRefArray, g.internKey(KindRefArray, dims, elem), elem)
	if created {
		g.Id(id).Type.Dimensions = dims
	}
	return id
}

// PointerAndLength returns the (pointer, length) view of elem.
func (g *Graph) PointerAndLength(elem ID) ID {
	id, created := g.newStructural(KindPointerAndLength, g.internKey(KindPointerAndLength, 0, elem), elem)
	if created {
		g.buildMembers(id, []memberSpec{
			{"Pointer", g.PointerTo(elem)},
			{"Length", g.NativeUInt()},
		})
		g.Id(id).Children = []ID{elem}
	}
	return id
}

// TupleOf returns the tuple of the given member types. names may be nil or
// hold one name per member ("" for unnamed).
func (g *Graph) TupleOf(types []ID, names []string) ID {
	key := g.internKey(KindTuple, 0, types...)
	if len(names) > 0 {
		key = g.internKey(KindTuple, len(names), types...) + "|" + strings.Join(names, ",")
	}
	id, created := g.newStructural(KindTuple, key)
	if !created {
		return id
	}
	specs := make([]memberSpec, len(types))
	for i, t := range types {
		name := ""
		if i < len(names) {
			name = names[i]
		}
		if name == "" {
			name = strconv.Itoa(i)
		}
		specs[i] = memberSpec{name, t}
	}
	g.Id(id).Children = g.buildMembers(id, specs)
	g.Id(id).Struct.Bases = []StructureBase{{Base: g.Builtins.TupleBase, Unreal: true}}
	return id
}

// ParamSpec describes one parameter of a new function type.
type ParamSpec struct {
	Name       source.CodeString
	Type       ID
	Default    constant.Value
	HasDefault bool
	ParamArray bool
}

// FunctionTypeOf creates a function type. Function types keep parameter
// names and defaults, so they are never interned; compare with Equivalent.
func (g *Graph) FunctionTypeOf(ret ID, params []ParamSpec, cc CallConv) ID {
	id, _ := g.newStructural(KindFunctionType, "", ret)
	g.Id(id).Type.CallConv = cc
	for _, p := range params {
		pid := g.New(KindFuncParam, g.Global(), p.Name)
		param := g.Id(pid)
		param.Access = AccessPublic
		param.Children = []ID{p.Type}
		param.Var.Const = p.Default
		param.Var.HasDefault = p.HasDefault
		param.Declared = true
		if p.ParamArray {
			param.Flags |= FlagParamArray
		}
		ident := g.Id(id)
		ident.Children = append(ident.Children, pid)
	}
	return id
}

// NonstaticOf returns the (self, function pointer) pair type of fn.
func (g *Graph) NonstaticOf(fnType ID) ID {
	id, created := g.newStructural(KindNonstaticFunctionType, g.internKey(KindNonstaticFunctionType, 0, fnType), fnType)
	if created {
		g.buildMembers(id, []memberSpec{
			{"Self", g.Builtins.Object},
			{"Pointer", fnType},
		})
		g.Id(id).Children = []ID{fnType}
	}
	return id
}

type memberSpec struct {
	name string
	typ  ID
}

// buildMembers opens an anonymous structured scope for owner and fills it
// with synthetic member variables.
func (g *Graph) buildMembers(owner ID, specs []memberSpec) []ID {
	scope := g.NewContainer(ContainerStructured, g.Global(), owner)
	out := make([]ID, 0, len(specs))
	for _, s := range specs {
		m := g.New(KindMemberVar, scope, source.FreeString(s.name))
		ident := g.Id(m)
		ident.Access = AccessPublic
		ident.Children = []ID{s.typ}
		g.AdmitUnchecked(scope, m)
		out = append(out, m)
	}
	return out
}

// Members returns the member variables of a structured identifier in
// declaration order, excluding static members.
func (g *Graph) Members(id ID) []ID {
	ident := g.Id(g.Real(id))
	if ident == nil || !ident.Scope.IsValid() {
		return nil
	}
	var out []ID
	for _, m := range g.C(ident.Scope).Ids {
		mi := g.Id(m)
		if mi.Kind == KindMemberVar && !mi.Has(FlagStatic) {
			out = append(out, m)
		}
	}
	return out
}
