package ids

import (
	"testing"

	"tessera/internal/diag"
	"tessera/internal/source"
)

func newTestGraph(t *testing.T) (*Graph, *diag.Bag) {
	t.Helper()
	bag := diag.NewBag(0)
	g := NewGraph(Options{
		AssemblyName: "test",
		PointerSize:  4,
		Reporter:     diag.BagReporter{Bag: bag},
		SelfName:     "self",
		BaseName:     "base",
		Predeclared:  map[string]string{"int": "int32", "float": "float32"},
	})
	return g, bag
}

func name(s string) source.CodeString { return source.FreeString(s) }

func declType(t *testing.T, g *Graph, c ContainerID, kind Kind, n string, access Access) (ID, ContainerID) {
	t.Helper()
	id := g.New(kind, c, name(n))
	g.Id(id).Access = access
	scope := g.NewContainer(ContainerStructured, c, id)
	if !g.DeclareIdentifier(c, id) {
		t.Fatalf("declare %s failed", n)
	}
	return id, scope
}

func declNamespace(t *testing.T, g *Graph, c ContainerID, n string) (ID, ContainerID) {
	t.Helper()
	id := g.New(KindNamespace, c, name(n))
	g.Id(id).Access = AccessPublic
	scope := g.NewContainer(ContainerNamespace, c, id)
	if !g.DeclareIdentifier(c, id) {
		t.Fatalf("declare namespace %s failed", n)
	}
	return id, scope
}

func newFunc(g *Graph, c ContainerID, kind Kind, n string, access Access, ret ID, params ...ParamSpec) ID {
	fnType := g.FunctionTypeOf(ret, params, CallDefault)
	id := g.New(kind, c, name(n))
	g.Id(id).Access = access
	g.Id(id).Children = []ID{fnType}
	return id
}

func newVar(g *Graph, c ContainerID, kind Kind, n string, access Access, typ ID) ID {
	id := g.New(kind, c, name(n))
	g.Id(id).Access = access
	g.Id(id).Children = []ID{typ}
	return id
}

func param(n string, typ ID) ParamSpec { return ParamSpec{Name: name(n), Type: typ} }
