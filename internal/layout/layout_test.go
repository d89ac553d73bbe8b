package layout

import (
	"errors"
	"testing"

	"tessera/internal/diag"
	"tessera/internal/ids"
	"tessera/internal/source"
)

func newGraph(t *testing.T, pointerSize int) (*ids.Graph, *diag.Bag) {
	t.Helper()
	bag := diag.NewBag(0)
	g := ids.NewGraph(ids.Options{
		AssemblyName: "test",
		PointerSize:  pointerSize,
		Reporter:     diag.BagReporter{Bag: bag},
	})
	return g, bag
}

func declType(t *testing.T, g *ids.Graph, kind ids.Kind, name string) (ids.ID, ids.ContainerID) {
	t.Helper()
	id := g.New(kind, g.Global(), source.FreeString(name))
	g.Id(id).Access = ids.AccessPublic
	scope := g.NewContainer(ids.ContainerStructured, g.Global(), id)
	if !g.DeclareIdentifier(g.Global(), id) {
		t.Fatalf("declare %s failed", name)
	}
	return id, scope
}

func member(t *testing.T, g *ids.Graph, scope ids.ContainerID, name string, typ ids.ID) ids.ID {
	t.Helper()
	id := g.New(ids.KindMemberVar, scope, source.FreeString(name))
	g.Id(id).Access = ids.AccessPublic
	g.Id(id).Children = []ids.ID{typ}
	if !g.DeclareIdentifier(scope, id) {
		t.Fatalf("declare member %s failed", name)
	}
	return id
}

func method(t *testing.T, g *ids.Graph, scope ids.ContainerID, name string, flags ids.Flags) ids.ID {
	t.Helper()
	fnType := g.FunctionTypeOf(g.Builtins.Void, nil, ids.CallDefault)
	id := g.New(ids.KindMemberFunction, scope, source.FreeString(name))
	g.Id(id).Access = ids.AccessPublic
	g.Id(id).Flags |= flags
	g.Id(id).Children = []ids.ID{fnType}
	if !g.DeclareIdentifier(scope, id) {
		t.Fatalf("declare method %s failed", name)
	}
	return id
}

func TestPointLayout(t *testing.T) {
	g, bag := newGraph(t, 4)
	e := New(TargetFor("generic", 4), g)
	point, scope := declType(t, g, ids.KindStruct, "Point")
	x := member(t, g, scope, "X", g.Builtins.Int32)
	y := member(t, g, scope, "Y", g.Builtins.Int32)

	if err := e.Calculate(point); err != nil {
		t.Fatalf("Calculate: %v (%v)", err, bag.Items())
	}
	p := g.Id(point)
	if p.Layout.Align != 4 || p.Layout.Size != 8 || p.Struct.InstanceSize != 8 {
		t.Fatalf("Point: size=%d align=%d instance=%d", p.Layout.Size, p.Layout.Align, p.Struct.InstanceSize)
	}
	if g.Id(x).Var.Offset != 0 || g.Id(y).Var.Offset != 4 {
		t.Fatalf("offsets: X=%d Y=%d", g.Id(x).Var.Offset, g.Id(y).Var.Offset)
	}
}

func TestLayoutIsIdempotent(t *testing.T) {
	g, _ := newGraph(t, 8)
	e := New(TargetFor("generic", 8), g)
	s, scope := declType(t, g, ids.KindStruct, "S")
	a := member(t, g, scope, "a", g.Builtins.Int8)
	b := member(t, g, scope, "b", g.Builtins.Int32)
	c := member(t, g, scope, "c", g.Builtins.Int8)

	if err := e.Calculate(s); err != nil {
		t.Fatal(err)
	}
	first := []int{g.Id(a).Var.Offset, g.Id(b).Var.Offset, g.Id(c).Var.Offset, g.Id(s).Layout.Size}
	if err := e.Calculate(s); err != nil {
		t.Fatal(err)
	}
	second := []int{g.Id(a).Var.Offset, g.Id(b).Var.Offset, g.Id(c).Var.Offset, g.Id(s).Layout.Size}
	want := []int{0, 4, 8, 16}
	for i := range want {
		if first[i] != want[i] || second[i] != want[i] {
			t.Fatalf("layout[%d]: first=%d second=%d want=%d", i, first[i], second[i], want[i])
		}
	}
}

func TestInstanceSizeRounding(t *testing.T) {
	tests := []struct {
		members  int
		register int
		want     int
	}{
		{1, 4, 4},
		{3, 8, 16},
		{5, 4, 24},
		{5, 8, 32},
	}
	for _, tt := range tests {
		g, _ := newGraph(t, tt.register)
		e := New(TargetFor("generic", tt.register), g)
		s, scope := declType(t, g, ids.KindStruct, "S")
		for i := 0; i < tt.members; i++ {
			member(t, g, scope, string(rune('a'+i)), g.Builtins.Int32)
		}
		size, err := e.SizeOf(s)
		if err != nil {
			t.Fatal(err)
		}
		if size != tt.want {
			t.Fatalf("%d x int32 on %d-byte registers: size=%d want=%d", tt.members, tt.register, size, tt.want)
		}
	}
}

func TestArrayLayout(t *testing.T) {
	g, _ := newGraph(t, 8)
	e := New(TargetFor("generic", 8), g)
	arr := g.ArrayOf(g.Builtins.Int16, 3)
	size, err := e.SizeOf(arr)
	if err != nil {
		t.Fatal(err)
	}
	align, _ := e.AlignOf(arr)
	if size != 8 || align != 2 {
		t.Fatalf("int16[3]: size=%d align=%d", size, align)
	}
}

func TestRecursiveStructReportsError(t *testing.T) {
	g, bag := newGraph(t, 8)
	e := New(TargetFor("generic", 8), g)
	node, scope := declType(t, g, ids.KindStruct, "Node")
	member(t, g, scope, "next", node)

	err := e.Calculate(node)
	var lerr *Error
	if !errors.As(err, &lerr) || lerr.Kind != ErrRecursive {
		t.Fatalf("expected recursive layout error, got %v", err)
	}
	if len(lerr.Cycle) == 0 {
		t.Fatalf("expected a cycle path")
	}
	if !bag.HasCode(diag.RecursiveLayout) {
		t.Fatalf("expected RecursiveLayout diagnostic, got %v", bag.Items())
	}
}

func TestSelfReferenceThroughPointerIsSized(t *testing.T) {
	g, _ := newGraph(t, 8)
	e := New(TargetFor("generic", 8), g)
	node, scope := declType(t, g, ids.KindStruct, "Node")
	member(t, g, scope, "next", g.PointerTo(node))
	size, err := e.SizeOf(node)
	if err != nil {
		t.Fatal(err)
	}
	if size != 8 {
		t.Fatalf("Node size=%d want 8", size)
	}
}

func TestClassMayReferToItself(t *testing.T) {
	g, _ := newGraph(t, 8)
	e := New(TargetFor("generic", 8), g)
	list, scope := declType(t, g, ids.KindClass, "List")
	member(t, g, scope, "next", list)
	if err := e.Calculate(list); err != nil {
		t.Fatal(err)
	}
	if got := g.Id(list).Struct.InstanceSize; got != 8 {
		t.Fatalf("instance size=%d want 8", got)
	}
}

func TestVirtualSlots(t *testing.T) {
	g, bag := newGraph(t, 8)
	e := New(TargetFor("generic", 8), g)

	base, baseScope := declType(t, g, ids.KindClass, "Base")
	x := member(t, g, baseScope, "x", g.Builtins.Int32)
	baseF := method(t, g, baseScope, "F", ids.FlagVirtual)

	derived, derivedScope := declType(t, g, ids.KindClass, "Derived")
	g.Id(derived).Struct.Bases = []ids.StructureBase{{Base: base}}
	y := member(t, g, derivedScope, "y", g.Builtins.Int32)
	overF := method(t, g, derivedScope, "F", ids.FlagVirtual|ids.FlagOverride)
	newG := method(t, g, derivedScope, "G", ids.FlagVirtual)

	if err := e.CalculateAll(); err != nil {
		t.Fatalf("CalculateAll: %v (%v)", err, bag.Items())
	}
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}

	b, d := g.Id(base), g.Id(derived)
	if len(b.Struct.FunctionTable) != 1 || len(d.Struct.FunctionTable) != 2 {
		t.Fatalf("tables: base=%v derived=%v", b.Struct.FunctionTable, d.Struct.FunctionTable)
	}
	if g.Id(overF).Func.VirtualIndex != 0 || g.Id(overF).Func.Overridden != baseF {
		t.Fatalf("override must reuse slot 0 of %d", baseF)
	}
	if g.Id(newG).Func.VirtualIndex != 1 {
		t.Fatalf("new virtual must append, got slot %d", g.Id(newG).Func.VirtualIndex)
	}
	if b.Struct.FunctionTableIndex < 0 || d.Struct.FunctionTableIndex < 0 ||
		b.Struct.FunctionTableIndex == d.Struct.FunctionTableIndex {
		t.Fatalf("concrete classes need distinct tables: %d %d", b.Struct.FunctionTableIndex, d.Struct.FunctionTableIndex)
	}

	// table pointer at 0, x after it; Derived starts with the Base instance
	if g.Id(x).Var.Offset != 8 || b.Struct.InstanceSize != 16 {
		t.Fatalf("Base: x at %d, instance %d", g.Id(x).Var.Offset, b.Struct.InstanceSize)
	}
	if g.Id(y).Var.Offset != 16 || d.Struct.Bases[0].Offset != 0 {
		t.Fatalf("Derived: y at %d, base at %d", g.Id(y).Var.Offset, d.Struct.Bases[0].Offset)
	}
	if d.Layout.Size != 8 {
		t.Fatalf("class values are references, size=%d", d.Layout.Size)
	}
}

func TestAbstractClassHasNoTable(t *testing.T) {
	g, bag := newGraph(t, 8)
	e := New(TargetFor("generic", 8), g)

	shape, shapeScope := declType(t, g, ids.KindClass, "Shape")
	g.Id(shape).Flags |= ids.FlagAbstract
	method(t, g, shapeScope, "Area", ids.FlagAbstract)

	circle, circleScope := declType(t, g, ids.KindClass, "Circle")
	g.Id(circle).Struct.Bases = []ids.StructureBase{{Base: shape}}
	method(t, g, circleScope, "Area", ids.FlagVirtual|ids.FlagOverride)

	e.CalcVirtuals(circle)
	if g.Id(shape).Struct.FunctionTableIndex != -1 {
		t.Fatalf("abstract class must not materialise a table")
	}
	if g.Id(circle).Struct.FunctionTableIndex < 0 {
		t.Fatalf("concrete descendant must materialise a table")
	}
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
}

func TestMissingAbstractImplementation(t *testing.T) {
	g, bag := newGraph(t, 8)
	e := New(TargetFor("generic", 8), g)
	shape, shapeScope := declType(t, g, ids.KindClass, "Shape")
	g.Id(shape).Flags |= ids.FlagAbstract
	method(t, g, shapeScope, "Area", ids.FlagAbstract)
	square, _ := declType(t, g, ids.KindClass, "Square")
	g.Id(square).Struct.Bases = []ids.StructureBase{{Base: shape}}

	e.CalcVirtuals(square)
	if !bag.HasCode(diag.AbstractNotOverriden) {
		t.Fatalf("expected AbstractNotOverriden, got %v", bag.Items())
	}
}

func TestOverrideWithoutBaseSlot(t *testing.T) {
	g, bag := newGraph(t, 8)
	e := New(TargetFor("generic", 8), g)
	c, scope := declType(t, g, ids.KindClass, "C")
	method(t, g, scope, "F", ids.FlagVirtual|ids.FlagOverride)
	e.CalcVirtuals(c)
	if !bag.HasCode(diag.NothingToOverride) {
		t.Fatalf("expected NothingToOverride, got %v", bag.Items())
	}
}
