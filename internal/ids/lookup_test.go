package ids

import "testing"

func TestGetIdentifierModes(t *testing.T) {
	g, _ := newTestGraph(t)
	global := g.Global()
	outer := newVar(g, global, KindGlobalVar, "x", AccessPublic, g.Builtins.Int32)
	g.DeclareIdentifier(global, outer)

	fn := newFunc(g, global, KindFunction, "main", AccessPublic, g.Builtins.Void)
	g.DeclareIdentifier(global, fn)
	body := g.NewContainer(ContainerFunction, global, fn)
	inner := newVar(g, body, KindLocalVar, "x", AccessUnknown, g.Builtins.Int64)
	g.DeclareIdentifier(body, inner)
	block := g.NewContainer(ContainerBlock, body, NoID)

	got := g.GetIdentifier(block, "x", GetIdEverywhere)
	if len(got) != 2 || got[0] != inner || got[1] != outer {
		t.Fatalf("expected [inner outer], got %v", got)
	}
	if got := g.GetIdentifier(block, "x", GetIdScope); len(got) != 0 {
		t.Fatalf("scope mode must not leave the block, got %v", got)
	}

	// a nested function must not see the locals of the enclosing body
	nested := newFunc(g, body, KindFunction, "helper", AccessUnknown, g.Builtins.Void)
	g.DeclareIdentifier(body, nested)
	nestedBody := g.NewContainer(ContainerFunction, body, nested)
	got = g.GetIdentifier(nestedBody, "x", GetIdFunction)
	if len(got) != 1 || got[0] != outer {
		t.Fatalf("function mode should skip enclosing function bodies, got %v", got)
	}
}

func TestLookupIsCaseSensitive(t *testing.T) {
	g, _ := newTestGraph(t)
	v := newVar(g, g.Global(), KindGlobalVar, "Value", AccessPublic, g.Builtins.Int32)
	g.DeclareIdentifier(g.Global(), v)
	if got := g.GetIdentifier(g.Global(), "value", GetIdEverywhere); len(got) != 0 {
		t.Fatalf("lookup must be case-sensitive, got %v", got)
	}
}

func TestPredeclaredAliasesResolveOnce(t *testing.T) {
	g, _ := newTestGraph(t)
	first := g.GetIdentifier(g.Global(), "int", GetIdEverywhere)
	second := g.GetIdentifier(g.Global(), "int", GetIdEverywhere)
	if len(first) != 1 || len(second) != 1 || first[0] != second[0] {
		t.Fatalf("predeclared alias must be created once: %v %v", first, second)
	}
	if g.Real(first[0]) != g.Builtins.Int32 {
		t.Fatalf("int must alias int32")
	}
}

func TestBaseMembersVisibleFromDerivedScope(t *testing.T) {
	g, _ := newTestGraph(t)
	global := g.Global()
	base, baseScope := declType(t, g, global, KindClass, "A", AccessPublic)
	field := newVar(g, baseScope, KindMemberVar, "Count", AccessProtected, g.Builtins.Int32)
	g.DeclareIdentifier(baseScope, field)

	derived, derivedScope := declType(t, g, global, KindClass, "C", AccessPublic)
	g.Id(derived).Struct.Bases = []StructureBase{{Base: base}}

	got := g.GetIdentifier(derivedScope, "Count", GetIdScope)
	if len(got) != 1 || got[0] != field {
		t.Fatalf("expected base member, got %v", got)
	}
	if got := g.GetMember(derived, "Count"); len(got) != 1 {
		t.Fatalf("GetMember should see base members, got %v", got)
	}
}

func TestSelfAndBaseInMemberFunctions(t *testing.T) {
	g, _ := newTestGraph(t)
	global := g.Global()
	base, _ := declType(t, g, global, KindClass, "A", AccessPublic)
	derived, scope := declType(t, g, global, KindClass, "C", AccessPublic)
	g.Id(derived).Struct.Bases = []StructureBase{{Base: base}}

	method := newFunc(g, scope, KindMemberFunction, "M", AccessPublic, g.Builtins.Void)
	g.DeclareIdentifier(scope, method)
	body := g.NewContainer(ContainerFunction, scope, method)

	self := g.GetIdentifier(body, "self", GetIdEverywhere)
	if len(self) != 1 || g.TypeOf(self[0]) != derived {
		t.Fatalf("self should have type C, got %v", self)
	}
	again := g.GetIdentifier(body, "self", GetIdEverywhere)
	if again[0] != self[0] {
		t.Fatalf("self must be created once per function")
	}
	b := g.GetIdentifier(body, "base", GetIdEverywhere)
	if len(b) != 1 || g.TypeOf(b[0]) != base {
		t.Fatalf("base should have type A, got %v", b)
	}

	static := newFunc(g, scope, KindMemberFunction, "S", AccessPublic, g.Builtins.Void)
	g.Id(static).Flags |= FlagStatic
	g.DeclareIdentifier(scope, static)
	staticBody := g.NewContainer(ContainerFunction, scope, static)
	if got := g.GetIdentifier(staticBody, "self", GetIdEverywhere); len(got) != 0 {
		t.Fatalf("static functions have no self, got %v", got)
	}
}

func TestNamespaceMembersMergeAcrossAssemblies(t *testing.T) {
	g, _ := newTestGraph(t)
	_, local := declNamespace(t, g, g.Global(), "Lib")
	a := newVar(g, local, KindGlobalVar, "A", AccessPublic, g.Builtins.Int32)
	g.DeclareIdentifier(local, a)

	other := g.NewAssembly("other", 7)
	ns, remote := declNamespace(t, g, g.Assemblies[other].Global, "Lib")
	b := newVar(g, remote, KindGlobalVar, "B", AccessPublic, g.Builtins.Int32)
	g.DeclareIdentifier(remote, b)

	if got := g.GetIdentifier(local, "B", GetIdEverywhere); len(got) != 1 || got[0] != b {
		t.Fatalf("expected B through the merged namespace, got %v", got)
	}
	if got := g.GetMember(ns, "A"); len(got) != 1 || got[0] != a {
		t.Fatalf("expected A through the merged namespace, got %v", got)
	}
}
