package ids

import "testing"

func TestStructuralInterning(t *testing.T) {
	g, _ := newTestGraph(t)
	i32 := g.Builtins.Int32
	if g.PointerTo(i32) != g.PointerTo(i32) {
		t.Fatalf("pointer types must be interned")
	}
	if g.ArrayOf(i32, 4) == g.ArrayOf(i32, 5) {
		t.Fatalf("arrays of different length must differ")
	}
	alias := g.GetIdentifier(g.Global(), "int", GetIdEverywhere)[0]
	if g.PointerTo(alias) != g.PointerTo(i32) {
		t.Fatalf("interning must look through aliases")
	}
}

func TestEquivalentFunctionTypes(t *testing.T) {
	g, _ := newTestGraph(t)
	i32, f32 := g.Builtins.Int32, g.Builtins.Float32
	a := g.FunctionTypeOf(i32, []ParamSpec{param("x", i32), param("y", f32)}, CallDefault)
	b := g.FunctionTypeOf(i32, []ParamSpec{param("p", i32), param("q", f32)}, CallDefault)
	c := g.FunctionTypeOf(i32, []ParamSpec{param("p", i32)}, CallDefault)
	d := g.FunctionTypeOf(i32, []ParamSpec{param("x", i32), param("y", f32)}, CallCDecl)
	if a == b || !g.Equivalent(a, b) {
		t.Fatalf("function types with the same shape must be equivalent but distinct")
	}
	if g.Equivalent(a, c) || g.Equivalent(a, d) {
		t.Fatalf("different arity or calling convention must not be equivalent")
	}
}

func TestEquivalentTuples(t *testing.T) {
	g, _ := newTestGraph(t)
	i32, f32 := g.Builtins.Int32, g.Builtins.Float32
	named := g.TupleOf([]ID{i32, f32}, []string{"a", "b"})
	plain := g.TupleOf([]ID{i32, f32}, nil)
	if named == plain || !g.Equivalent(named, plain) {
		t.Fatalf("tuples compare by member types")
	}
	if g.Equivalent(plain, g.TupleOf([]ID{f32, i32}, nil)) {
		t.Fatalf("member order matters")
	}
	if len(g.Members(plain)) != 2 {
		t.Fatalf("tuple must expose its members")
	}
}

func TestGeneratedNames(t *testing.T) {
	g, _ := newTestGraph(t)
	i32 := g.Builtins.Int32
	tests := []struct {
		id   ID
		want string
	}{
		{g.PointerTo(i32), "int32*"},
		{g.ArrayOf(i32, 3), "int32[3]"},
		{g.RefArrayOf(i32, 2), "int32[,]"},
		{g.PointerAndLength(g.Builtins.Char), "char[*]"},
		{g.TupleOf([]ID{i32, g.Builtins.Bool}, nil), "(int32, bool)"},
		{g.TupleOf([]ID{i32}, []string{"x"}), "(int32 x)"},
		{g.FunctionTypeOf(g.Builtins.Void, []ParamSpec{param("a", i32)}, CallDefault), "void(int32)"},
	}
	for _, tt := range tests {
		if got := g.Name(tt.id); got != tt.want {
			t.Errorf("Name = %q, want %q", got, tt.want)
		}
	}
}

func TestFullName(t *testing.T) {
	g, _ := newTestGraph(t)
	_, ns := declNamespace(t, g, g.Global(), "Geometry")
	_, scope := declType(t, g, ns, KindStruct, "Point", AccessPublic)
	x := newVar(g, scope, KindMemberVar, "X", AccessPublic, g.Builtins.Int32)
	g.DeclareIdentifier(scope, x)
	if got := g.FullName(x); got != "Geometry.Point.X" {
		t.Fatalf("FullName = %q", got)
	}
}
