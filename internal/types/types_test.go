package types

import (
	"testing"

	"tessera/internal/diag"
	"tessera/internal/ids"
	"tessera/internal/source"
)

func newGraph(t *testing.T) (*ids.Graph, *diag.Bag) {
	t.Helper()
	bag := diag.NewBag(0)
	g := ids.NewGraph(ids.Options{
		AssemblyName: "test",
		PointerSize:  8,
		Reporter:     diag.BagReporter{Bag: bag},
		Predeclared:  map[string]string{"int": "int32"},
	})
	return g, bag
}

func declClass(t *testing.T, g *ids.Graph, kind ids.Kind, n string) (ids.ID, ids.ContainerID) {
	t.Helper()
	id := g.New(kind, g.Global(), source.FreeString(n))
	g.Id(id).Access = ids.AccessPublic
	scope := g.NewContainer(ids.ContainerStructured, g.Global(), id)
	if !g.DeclareIdentifier(g.Global(), id) {
		t.Fatalf("declare %s failed", n)
	}
	return id, scope
}

func TestConvertReflexive(t *testing.T) {
	g, _ := newGraph(t)
	b := g.Builtins
	cls, _ := declClass(t, g, ids.KindClass, "C")
	types := []ids.ID{
		b.Bool, b.Char, b.String, b.Object, b.Int8, b.Int64, b.UInt16, b.Float64,
		g.PointerTo(b.Int32), g.ArrayOf(b.Int8, 4), g.RefArrayOf(b.Float32, 2),
		g.TupleOf([]ids.ID{b.Int32, b.Bool}, nil), cls,
	}
	for _, typ := range types {
		if got := CanConvert(g, typ, typ); got != Automatic {
			t.Fatalf("CanConvert(%s, %s) = %s, want automatic", g.Name(typ), g.Name(typ), got)
		}
	}
}

func TestNumericConversions(t *testing.T) {
	g, _ := newGraph(t)
	b := g.Builtins
	tests := []struct {
		from, to ids.ID
		want     Conversion
	}{
		{b.Int8, b.Int32, Automatic},
		{b.Int32, b.Int8, Convertable},
		{b.UInt8, b.Int16, Automatic},
		{b.UInt16, b.Int16, Convertable},
		{b.Int16, b.UInt64, Convertable},
		{b.Int64, b.Float32, Automatic},
		{b.Float64, b.Int32, Convertable},
		{b.Float32, b.Float64, Automatic},
		{b.Float64, b.Float32, Convertable},
		{b.Char, b.Int32, Convertable},
		{b.Bool, b.String, Nonconvertable},
		{b.Int32, b.Void, Nonconvertable},
		{b.Int32, b.Auto, Automatic},
	}
	for _, tt := range tests {
		if got := CanConvert(g, tt.from, tt.to); got != tt.want {
			t.Fatalf("CanConvert(%s, %s) = %s, want %s", g.Name(tt.from), g.Name(tt.to), got, tt.want)
		}
	}
}

func TestConvertThroughAlias(t *testing.T) {
	g, _ := newGraph(t)
	alias := g.GetIdentifier(g.Global(), "int", ids.GetIdEverywhere)
	if len(alias) != 1 {
		t.Fatalf("expected predeclared int alias, got %d", len(alias))
	}
	if got := CanConvert(g, alias[0], g.Builtins.Int32); got != Automatic {
		t.Fatalf("alias must convert automatically, got %s", got)
	}
}

func TestTupleConversion(t *testing.T) {
	g, _ := newGraph(t)
	b := g.Builtins
	small := g.TupleOf([]ids.ID{b.Int8, b.Float32}, nil)
	wide := g.TupleOf([]ids.ID{b.Int32, b.Float64}, nil)
	mixed := g.TupleOf([]ids.ID{b.Int32, b.Int8}, nil)
	if got := CanConvert(g, small, wide); got != Automatic {
		t.Fatalf("widening tuple: got %s", got)
	}
	if got := CanConvert(g, wide, small); got != Convertable {
		t.Fatalf("narrowing tuple: got %s", got)
	}
	if got := CanConvert(g, wide, mixed); got != Convertable {
		t.Fatalf("float to int member: got %s", got)
	}
	if got := CanConvert(g, small, g.TupleOf([]ids.ID{b.Int8}, nil)); got != Nonconvertable {
		t.Fatalf("arity mismatch: got %s", got)
	}
}

func TestClassConversions(t *testing.T) {
	g, _ := newGraph(t)
	base, _ := declClass(t, g, ids.KindClass, "Base")
	derived, _ := declClass(t, g, ids.KindClass, "Derived")
	other, _ := declClass(t, g, ids.KindClass, "Other")
	g.Id(derived).Struct.Bases = []ids.StructureBase{{Base: base}}

	if got := CanConvert(g, derived, base); got != Automatic {
		t.Fatalf("up-cast: got %s", got)
	}
	if got := CanConvert(g, base, derived); got != Convertable {
		t.Fatalf("down-cast: got %s", got)
	}
	if got := CanConvert(g, other, base); got != Nonconvertable {
		t.Fatalf("unrelated: got %s", got)
	}
	if got := CanConvert(g, derived, g.Builtins.Object); got != Automatic {
		t.Fatalf("class to object: got %s", got)
	}
	if got := CanConvert(g, g.Builtins.Int32, g.Builtins.Object); got != Convertable {
		t.Fatalf("boxing: got %s", got)
	}
}

func TestPointerConversions(t *testing.T) {
	g, _ := newGraph(t)
	b := g.Builtins
	if got := CanConvert(g, g.PointerTo(b.Int32), g.PointerTo(b.Void)); got != Automatic {
		t.Fatalf("T* to void*: got %s", got)
	}
	if got := CanConvert(g, g.PointerTo(b.Int32), g.PointerTo(b.Float32)); got != Convertable {
		t.Fatalf("pointer reinterpret: got %s", got)
	}
	if got := CanConvert(g, g.ArrayOf(b.Int32, 3), g.PointerAndLength(b.Int32)); got != Automatic {
		t.Fatalf("array to pointer-and-length: got %s", got)
	}
	if got := CanConvert(g, g.ArrayOf(b.Int32, 3), g.PointerAndLength(b.Int8)); got != Nonconvertable {
		t.Fatalf("element mismatch: got %s", got)
	}
}

func TestGetNumberRetType(t *testing.T) {
	g, _ := newGraph(t)
	b := g.Builtins
	tests := []struct {
		a, b, want ids.ID
	}{
		{b.Int8, b.Int32, b.Int32},
		{b.UInt16, b.UInt8, b.UInt16},
		{b.Int32, b.Float32, b.Float32},
		{b.Float64, b.Float32, b.Float64},
		{b.Int32, b.UInt8, b.Int32},
		{b.Int16, b.UInt16, b.Int32},
		{b.UInt32, b.Int8, b.Int64},
		{b.UInt64, b.Int64, b.Int64},
		{b.Bool, b.Int32, ids.NoID},
	}
	for _, tt := range tests {
		if got := GetNumberRetType(g, tt.a, tt.b); got != tt.want {
			t.Fatalf("GetNumberRetType(%s, %s) = %s, want %s", g.Name(tt.a), g.Name(tt.b), g.Name(got), g.Name(tt.want))
		}
	}
}

func TestBuiltinOperators(t *testing.T) {
	g, _ := newGraph(t)
	b := g.Builtins
	tests := []struct {
		op         Operator
		src, other ids.ID
		want       bool
	}{
		{OpAdd, b.Int32, b.Int32, true},
		{OpAdd, b.String, b.Char, true},
		{OpAdd, b.Bool, b.Bool, false},
		{OpAnd, b.Bool, b.Bool, true},
		{OpAnd, b.Int32, b.Int32, false},
		{OpBitAnd, b.Int32, b.Bool, false},
		{OpShiftLeft, b.UInt8, b.Int32, true},
		{OpShiftLeft, b.Float32, b.Int32, false},
		{OpLess, b.Float64, b.Int8, true},
		{OpEqual, b.Int32, b.Int64, true},
		{OpEqual, b.Bool, b.String, false},
		{OpNegate, b.Int32, ids.NoID, true},
		{OpNegate, b.UInt32, ids.NoID, false},
		{OpNot, b.Bool, ids.NoID, true},
		{OpDereference, g.PointerTo(b.Int32), ids.NoID, true},
		{OpIndex, g.RefArrayOf(b.Int32, 1), b.Int32, true},
		{OpAssign, b.Bool, b.String, true},
	}
	for _, tt := range tests {
		if got := CanOpApplied(g, tt.op, tt.src, tt.other); got != tt.want {
			t.Fatalf("CanOpApplied(%s, %s, %s) = %v, want %v", tt.op, g.Name(tt.src), g.Name(tt.other), got, tt.want)
		}
	}
}

func TestUserOperator(t *testing.T) {
	g, bag := newGraph(t)
	vec, scope := declClass(t, g, ids.KindStruct, "Vec")
	if CanOpApplied(g, OpAdd, vec, vec) {
		t.Fatalf("struct without operator must not support Add")
	}
	fnType := g.FunctionTypeOf(vec, []ids.ParamSpec{
		{Name: source.FreeString("a"), Type: vec},
		{Name: source.FreeString("b"), Type: vec},
	}, ids.CallDefault)
	fn := g.New(ids.KindFunction, scope, source.FreeString(OpAdd.FunctionName()))
	g.Id(fn).Access = ids.AccessPublic
	g.Id(fn).Flags |= ids.FlagStatic | ids.FlagSpecialName
	g.Id(fn).Children = []ids.ID{fnType}
	if !g.DeclareIdentifier(scope, fn) {
		t.Fatalf("operator declaration rejected: %v", bag.Items())
	}
	if !CanOpApplied(g, OpAdd, vec, vec) {
		t.Fatalf("user operator Add must be found")
	}
	if CanOpApplied(g, OpNegate, vec, ids.NoID) {
		t.Fatalf("Negate was never declared")
	}
}

func TestOperatorNames(t *testing.T) {
	for op := OpAdd; op < opCount; op++ {
		back, ok := OperatorByName(op.String())
		if !ok || back != op {
			t.Fatalf("operator %d does not round trip through %q", op, op.String())
		}
	}
	if OpAdd.FunctionName() != "%Operator_Add" {
		t.Fatalf("unexpected function name %q", OpAdd.FunctionName())
	}
}
