package tess_test

import (
	"context"
	"go/constant"
	"testing"

	"tessera/internal/decls"
	"tessera/internal/diag"
	"tessera/internal/ids"
	"tessera/internal/lang"
	"tessera/internal/lang/tess"
	"tessera/internal/preproc"
	"tessera/internal/source"
)

const program = `#define SIZE 4
#define DOUBLE(x) ((x) * 2)
#if SIZE > 2
const int Big = DOUBLE(SIZE);
#else
const int Big = 0;
#endif

namespace Shapes {
    public enum Kind { Circle, Square = 4, Triangle }
    public flag Style { Filled, Dashed, Bold }
    public struct Point { public var int x, y; }
    public class Shape {
        public var Kind kind;
        public var int[SIZE] data;
        public func int Area(int scale = Big) {
            var int local = 1;
            if (scale > 0) { const Inner = 3; }
            return local;
        }
    }
    alias Coord = Point;
}
`

func declare(t *testing.T, src string) (*ids.Graph, *diag.Bag) {
	t.Helper()
	l, ok := lang.Lookup(tess.Name)
	if !ok {
		t.Fatalf("tess is not registered")
	}
	bag := diag.NewBag(0)
	rep := diag.BagReporter{Bag: bag}
	fs := source.NewFileSet()
	f := fs.Get(fs.AddVirtual("program.tess", []byte(src)))
	pp := preproc.New(l, rep)
	pp.Process(f)

	g := ids.NewGraph(ids.Options{
		AssemblyName: "program",
		PointerSize:  8,
		Reporter:     rep,
		SelfName:     l.SelfName(),
		BaseName:     l.BaseName(),
		Predeclared:  l.Predeclared(),
	})
	g.AddCode(g.Global(), f.All())
	p := decls.NewPipeline(g, l.Recognizer(pp.Macros))
	p.Macros = pp.Macros
	if err := p.Run(context.Background(), g.Global()); err != nil {
		t.Fatalf("run: %v", err)
	}
	return g, bag
}

func find(t *testing.T, g *ids.Graph, c ids.ContainerID, name string) ids.ID {
	t.Helper()
	found := g.GetIdentifier(c, name, ids.GetIdScope)
	if len(found) != 1 {
		t.Fatalf("%s: found %d identifiers", name, len(found))
	}
	return found[0]
}

func intConst(t *testing.T, g *ids.Graph, id ids.ID) int64 {
	t.Helper()
	n, ok := constant.Int64Val(g.Id(id).Var.Const)
	if !ok {
		t.Fatalf("%s is not an integer constant", g.FullName(id))
	}
	return n
}

func TestProgramDeclarations(t *testing.T) {
	g, bag := declare(t, program)
	if bag.HasErrors() {
		for _, d := range bag.Items() {
			t.Logf("%s %v", d.Code, d.Args)
		}
		t.Fatalf("unexpected errors")
	}
	big := find(t, g, g.Global(), "Big")
	if intConst(t, g, big) != 8 {
		t.Fatalf("Big = %v", g.Id(big).Var.Const)
	}
	if g.TypeOf(big) != g.Builtins.Int32 {
		t.Fatalf("Big has type %s", g.Name(g.TypeOf(big)))
	}

	ns := g.Id(find(t, g, g.Global(), "Shapes")).Scope
	kind := find(t, g, ns, "Kind")
	wantEnum := map[string]int64{"Circle": 0, "Square": 4, "Triangle": 5}
	for name, want := range wantEnum {
		if got := intConst(t, g, find(t, g, g.Id(kind).Scope, name)); got != want {
			t.Fatalf("Kind.%s = %d, want %d", name, got, want)
		}
	}
	style := find(t, g, ns, "Style")
	wantFlag := map[string]int64{"Filled": 1, "Dashed": 2, "Bold": 4}
	for name, want := range wantFlag {
		if got := intConst(t, g, find(t, g, g.Id(style).Scope, name)); got != want {
			t.Fatalf("Style.%s = %d, want %d", name, got, want)
		}
	}

	point := find(t, g, ns, "Point")
	if g.Kind(point) != ids.KindStruct {
		t.Fatalf("Point is a %s", g.Kind(point))
	}
	for _, member := range []string{"x", "y"} {
		m := find(t, g, g.Id(point).Scope, member)
		if g.Kind(m) != ids.KindMemberVar || g.Id(m).Access != ids.AccessPublic {
			t.Fatalf("Point.%s is a %s with %s access", member, g.Kind(m), g.Id(m).Access)
		}
	}
	if coord := find(t, g, ns, "Coord"); g.Real(coord) != point {
		t.Fatalf("Coord does not alias Point")
	}

	shape := g.Id(find(t, g, ns, "Shape"))
	data := find(t, g, shape.Scope, "data")
	arr := g.Id(g.TypeOf(data))
	if arr.Kind != ids.KindNonrefArray || arr.Type.Length != 4 {
		t.Fatalf("data has type %s", g.Name(g.TypeOf(data)))
	}
	area := find(t, g, shape.Scope, "Area")
	params := g.Params(area)
	if len(params) != 1 || intConst(t, g, params[0]) != 8 {
		t.Fatalf("Area parameters = %v", params)
	}
}

func TestLocalDeclarations(t *testing.T) {
	g, bag := declare(t, program)
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %+v", bag.Items())
	}
	var locals, inner int
	for _, id := range g.All() {
		ident := g.Id(id)
		switch {
		case ident.Kind == ids.KindLocalVar && ident.NameString() == "local":
			locals++
		case ident.Kind == ids.KindConstVar && ident.NameString() == "Inner":
			if g.C(ident.Container).Kind != ids.ContainerBlock {
				t.Fatalf("Inner lives in a %s", g.C(ident.Container).Kind)
			}
			inner++
		}
	}
	if locals != 1 || inner != 1 {
		t.Fatalf("found %d locals and %d block constants", locals, inner)
	}
}

func TestProgramErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code diag.Code
	}{
		{"unknown type", "var Missing m;", diag.UnknownId},
		{"const cycle", "const A = B;\nconst B = A;", diag.CannotCalcConst},
		{"syntax", "class;", diag.InvalidDeclaration},
		{"enum range", "enum Small : sbyte { A = 127, B }", diag.EnumValueOutOfRange},
		{"macro arity", "#define F(a, b) a\nconst X = F(1);", diag.ParamCountMismatch},
	}
	for _, tt := range tests {
		_, bag := declare(t, tt.src)
		if !bag.HasCode(tt.code) {
			t.Fatalf("%s: want %s, got %+v", tt.name, tt.code, bag.Items())
		}
	}
}
