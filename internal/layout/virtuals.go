package layout

import (
	"tessera/internal/diag"
	"tessera/internal/ids"
)

// CalcVirtuals assigns virtual slots to the functions of class id. The
// table of the first real base is inherited; an override takes the slot of
// the function it overrides and every other virtual appends a slot. A
// concrete class with at least one slot gets a function table index,
// abstract classes never do.
func (e *Engine) CalcVirtuals(id ids.ID) {
	g := e.Graph
	ident := g.Id(g.Real(id))
	if ident == nil || ident.Kind != ids.KindClass || ident.Struct.VirtualsCalculated {
		return
	}
	ident.Struct.VirtualsCalculated = true

	var table []ids.ID
	for _, sb := range ident.Struct.Bases {
		if sb.Unreal {
			continue
		}
		base := g.Id(g.Real(sb.Base))
		if base == nil || base.Kind != ids.KindClass {
			continue
		}
		e.CalcVirtuals(base.ID)
		table = append(table, base.Struct.FunctionTable...)
		break
	}

	if ident.Scope.IsValid() {
		for _, fid := range g.C(ident.Scope).Ids {
			fn := g.Id(fid)
			if !fn.Kind.IsFunction() || fn.Func == nil {
				continue
			}
			switch {
			case fn.Has(ids.FlagOverride):
				slot := findOverridden(g, table, fn)
				if slot < 0 {
					diag.Report(e.Reporter, diag.NothingToOverride, fn.Name.Span(), fn.NameString())
					continue
				}
				fn.Func.VirtualIndex = slot
				fn.Func.Overridden = table[slot]
				table[slot] = fid
			case fn.Has(ids.FlagVirtual) || fn.Has(ids.FlagAbstract):
				fn.Func.VirtualIndex = len(table)
				table = append(table, fid)
			}
		}
	}
	ident.Struct.FunctionTable = table

	if ident.Has(ids.FlagAbstract) || len(table) == 0 {
		return
	}
	for _, fid := range table {
		if fn := g.Id(fid); fn.Has(ids.FlagAbstract) {
			diag.Report(e.Reporter, diag.AbstractNotOverriden, ident.Name.Span(), ident.NameString(), fn.NameString())
		}
	}
	if ident.Struct.FunctionTableIndex < 0 {
		ident.Struct.FunctionTableIndex = g.NextFunctionTableIndex()
	}
}

// findOverridden returns the slot holding a function with the name and
// parameters of fn, searching from the most recent slot.
func findOverridden(g *ids.Graph, table []ids.ID, fn *ids.Identifier) int {
	name := fn.NameString()
	for i := len(table) - 1; i >= 0; i-- {
		cand := g.Id(table[i])
		if cand.NameString() == name && g.SameParameters(cand.TypeOfSelf(), fn.TypeOfSelf()) {
			return i
		}
	}
	return -1
}
