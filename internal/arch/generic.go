package arch

import (
	"context"
	"fmt"
	"go/constant"
	"strconv"

	"tessera/internal/ids"
	"tessera/internal/layout"
)

// Generic is a register-width parameterised machine whose output is a
// Listing of the data and entry points of an assembly.
type Generic struct {
	name string
	reg  int
}

// NewGeneric returns a generic machine with registers of regSize bytes.
func NewGeneric(name string, regSize int) *Generic {
	return &Generic{name: name, reg: regSize}
}

func init() {
	Register(NewGeneric("generic32", 4))
	Register(NewGeneric("generic64", 8))
}

func (a *Generic) Name() string           { return a.name }
func (a *Generic) RegisterSize() int      { return a.reg }
func (a *Generic) MaxStructPow2Size() int { return 2 * a.reg }
func (a *Generic) Target() layout.Target  { return layout.TargetFor(a.name, a.reg) }

func (a *Generic) NewCodeGenerator(g *ids.Graph) CodeGenerator { return NewListing(g) }

// Compile emits, for the current assembly of g, the global variables, the
// virtual function tables, the import pointer slots and one entry point
// per function that has a body.
func (a *Generic) Compile(ctx context.Context, g *ids.Graph) ([]byte, error) {
	asm := g.Assemblies[g.Current]
	cg := a.NewCodeGenerator(g)
	cg.Comment(fmt.Sprintf("%s (%s) for %s", asm.Name, asm.DescName, a.name))

	var vars, tables, imports, funcs []*ids.Identifier
	for _, id := range g.All() {
		ident := g.Id(id)
		if ident.Assembly != g.Current || !ident.Declared || ident.Has(ids.FlagBuiltin) {
			continue
		}
		switch {
		case ident.Kind == ids.KindGlobalVar,
			ident.Kind == ids.KindMemberVar && ident.Has(ids.FlagStatic):
			vars = append(vars, ident)
		case ident.Kind == ids.KindClass && ident.Struct != nil && ident.Struct.FunctionTableIndex >= 0:
			tables = append(tables, ident)
		case ident.Kind.IsFunction():
			if ident.Func.GlobalPointerIndex >= 0 {
				imports = append(imports, ident)
			}
			if ident.Scope.IsValid() && g.C(ident.Scope).Kind == ids.ContainerFunction {
				funcs = append(funcs, ident)
			}
		}
	}

	for _, v := range vars {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		typ := v.TypeOfSelf()
		cg.Align(a.alignOf(g, typ))
		cg.Symbol(Symbol(g, v.ID))
		cg.Declare(typ, v.Var.Const)
	}

	slot := g.NativeUInt()
	for _, class := range tables {
		cg.Align(a.reg)
		cg.Symbol(Symbol(g, class.ID) + "%table")
		for _, fn := range class.Struct.FunctionTable {
			if g.Id(fn).Has(ids.FlagAbstract) {
				cg.Declare(slot, nil)
				continue
			}
			cg.Declare(slot, constant.MakeString(Symbol(g, fn)))
		}
	}

	for _, fn := range imports {
		cg.Align(a.reg)
		cg.Symbol(Symbol(g, fn.ID) + "%ptr")
		cg.Declare(slot, nil)
	}

	for _, fn := range funcs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cg.Symbol(Symbol(g, fn.ID))
		// Statements are not lowered; every body falls through to its epilogue.
		epilogue := AutoLabel()
		cg.Jump(epilogue)
		cg.Label(epilogue)
		cg.Return()
	}
	return cg.Finish(), nil
}

func (a *Generic) alignOf(g *ids.Graph, typ ids.ID) int {
	ident := g.Id(g.Real(typ))
	if ident == nil || !ident.Layout.Calculated || ident.Layout.Align <= 0 {
		return a.reg
	}
	return ident.Layout.Align
}

// Symbol returns the output name of id: its assembler name when one is
// given, otherwise its full name with the overload index appended.
func Symbol(g *ids.Graph, id ids.ID) string {
	ident := g.Id(id)
	switch {
	case ident.Func != nil && ident.Func.AsmName != "":
		return ident.Func.AsmName
	case ident.Var != nil && ident.Var.AsmName != "":
		return ident.Var.AsmName
	}
	name := g.FullName(id)
	if ident.Func != nil && ident.Func.OverloadIndex > 0 {
		name += "%" + strconv.Itoa(ident.Func.OverloadIndex)
	}
	return name
}
