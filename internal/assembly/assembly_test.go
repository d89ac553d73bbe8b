package assembly_test

import (
	"context"
	"errors"
	"fmt"
	"go/constant"
	gotoken "go/token"
	"io/fs"
	"testing"

	"tessera/internal/assembly"
	"tessera/internal/decls"
	"tessera/internal/diag"
	"tessera/internal/ids"
	"tessera/internal/lang/tess"
	"tessera/internal/layout"
	"tessera/internal/source"
)

const library = `namespace Geo {
    public struct Point { public var int x, y; }
    public class Shape {
        public var Point origin;
        public virtual func int Area() { return 0; }
        public prop int Sides { get; }
    }
    public class Square : Shape {
        public var int side;
        public override func int Area() { return side * side; }
    }
    public enum Color : byte { Red, Green = 5, Blue }
    public const int Answer = 42;
    public func int Sum(int a, int b = 2) { return a + b; }
    public func int Sum(int a, int b, int c) { return a + b + c; }
    alias P = Point;
}
public var int*[4] table;
public var (int, float x) pair;
`

type mapProvider map[string][]byte

func (p mapProvider) Open(name string) ([]byte, error) {
	if data, ok := p[name]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("%s: %w", name, fs.ErrNotExist)
}

func newGraph(name string, signature uint32) (*ids.Graph, *diag.Bag) {
	bag := diag.NewBag(0)
	lang := tess.Language{}
	g := ids.NewGraph(ids.Options{
		AssemblyName: name,
		Signature:    signature,
		PointerSize:  4,
		Reporter:     diag.BagReporter{Bag: bag},
		SelfName:     lang.SelfName(),
		BaseName:     lang.BaseName(),
		Predeclared:  lang.Predeclared(),
	})
	return g, bag
}

// compile declares src in g and calculates every layout.
func compile(t *testing.T, g *ids.Graph, bag *diag.Bag, src string) {
	t.Helper()
	files := source.NewFileSet()
	f := files.Get(files.AddVirtual("lib.tess", []byte(src)))
	g.AddCode(g.Global(), f.All())
	p := decls.NewPipeline(g, tess.Language{}.Recognizer(nil))
	if err := p.Run(context.Background(), g.Global()); err != nil {
		t.Fatalf("declare: %v", err)
	}
	if err := layout.New(layout.TargetFor("generic", 4), g).CalculateAll(); err != nil {
		t.Fatalf("layout: %v", err)
	}
	if bag.HasErrors() {
		t.Fatalf("diagnostics: %+v", bag.Items())
	}
}

func writeLibrary(t *testing.T) []byte {
	t.Helper()
	g, bag := newGraph("lib", 0x1234)
	compile(t, g, bag, library)
	data, err := assembly.Write(g)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	return data
}

func lookup(t *testing.T, g *ids.Graph, path ...string) ids.ID {
	t.Helper()
	found := g.GetIdentifier(g.Global(), path[0], ids.GetIdEverywhere)
	for _, name := range path[1:] {
		if len(found) == 0 {
			break
		}
		found = g.GetMember(found[0], name)
	}
	if len(found) == 0 {
		t.Fatalf("%v not found", path)
	}
	return found[0]
}

// sameTree compares the declared identifiers of two containers in order.
func sameTree(t *testing.T, ga *ids.Graph, ca ids.ContainerID, gb *ids.Graph, cb ids.ContainerID) {
	t.Helper()
	var left []ids.ID
	for _, id := range ga.C(ca).Ids {
		if !ga.Id(id).Has(ids.FlagBuiltin) {
			left = append(left, id)
		}
	}
	right := gb.C(cb).Ids
	if len(left) != len(right) {
		t.Fatalf("container sizes differ: %d != %d", len(left), len(right))
	}
	for i := range left {
		a, b := ga.Id(left[i]), gb.Id(right[i])
		name := ga.FullName(a.ID)
		switch {
		case a.Kind != b.Kind:
			t.Fatalf("%s: kind %s != %s", name, a.Kind, b.Kind)
		case a.NameString() != b.NameString():
			t.Fatalf("%s: name %q", name, b.NameString())
		case a.Access != b.Access || a.Flags != b.Flags:
			t.Fatalf("%s: access %s/%s flags %v/%v", name, a.Access, b.Access, a.Flags.Strings(), b.Flags.Strings())
		case ga.Name(a.TypeOfSelf()) != gb.Name(b.TypeOfSelf()):
			t.Fatalf("%s: type %s != %s", name, ga.Name(a.TypeOfSelf()), gb.Name(b.TypeOfSelf()))
		}
		if a.Struct != nil && a.Kind.IsStructured() {
			if a.Layout.Size != b.Layout.Size || a.Layout.Align != b.Layout.Align ||
				a.Struct.InstanceSize != b.Struct.InstanceSize || a.Struct.InstanceAlign != b.Struct.InstanceAlign {
				t.Fatalf("%s: layout %+v/%d != %+v/%d", name, a.Layout, a.Struct.InstanceSize, b.Layout, b.Struct.InstanceSize)
			}
			if len(a.Struct.Bases) != len(b.Struct.Bases) || len(a.Struct.FunctionTable) != len(b.Struct.FunctionTable) {
				t.Fatalf("%s: bases or function table differ", name)
			}
			for j := range a.Struct.Bases {
				if ga.FullName(a.Struct.Bases[j].Base) != gb.FullName(b.Struct.Bases[j].Base) {
					t.Fatalf("%s: base %d differs", name, j)
				}
			}
			for j := range a.Struct.FunctionTable {
				if ga.FullName(a.Struct.FunctionTable[j]) != gb.FullName(b.Struct.FunctionTable[j]) {
					t.Fatalf("%s: slot %d differs", name, j)
				}
			}
		}
		if a.Var != nil {
			if a.Var.Offset != b.Var.Offset || fmt.Sprint(a.Var.Const) != fmt.Sprint(b.Var.Const) {
				t.Fatalf("%s: offset %d/%d value %v/%v", name, a.Var.Offset, b.Var.Offset, a.Var.Const, b.Var.Const)
			}
		}
		if a.Func != nil {
			if a.Func.VirtualIndex != b.Func.VirtualIndex || a.Func.OverloadIndex != b.Func.OverloadIndex ||
				ga.FullName(a.Func.Overridden) != gb.FullName(b.Func.Overridden) {
				t.Fatalf("%s: virtual %d/%d overload %d/%d", name, a.Func.VirtualIndex, b.Func.VirtualIndex, a.Func.OverloadIndex, b.Func.OverloadIndex)
			}
		}
		if a.Kind != ids.KindFunction && a.Kind != ids.KindMemberFunction && a.Scope.IsValid() {
			sameTree(t, ga, a.Scope, gb, b.Scope)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	orig, bag := newGraph("lib", 0x1234)
	compile(t, orig, bag, library)
	data, err := assembly.Write(orig)
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	g, _ := newGraph("app", 1)
	idx, err := assembly.NewLoader(g, nil).Load(data)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	loaded := g.Assemblies[idx]
	if loaded.Name != "lib" || loaded.Signature != 0x1234 || !loaded.Loaded {
		t.Fatalf("assembly = %+v", loaded)
	}
	sameTree(t, orig, orig.Global(), g, loaded.Global)

	// the same graph serializes to the same bytes
	again, err := assembly.Write(orig)
	if err != nil || string(again) != string(data) {
		t.Fatalf("second write differs (err %v)", err)
	}
}

func TestLoadedReferences(t *testing.T) {
	g, _ := newGraph("app", 1)
	if _, err := assembly.NewLoader(g, nil).Load(writeLibrary(t)); err != nil {
		t.Fatalf("load: %v", err)
	}
	point := lookup(t, g, "Geo", "Point")
	if alias := lookup(t, g, "Geo", "P"); g.Real(alias) != point {
		t.Fatalf("alias P resolves to %s", g.FullName(g.Real(alias)))
	}
	shape, square := lookup(t, g, "Geo", "Shape"), lookup(t, g, "Geo", "Square")
	if !g.IsSubtypeOf(square, shape) {
		t.Fatalf("Square lost its base")
	}
	area := g.GetMember(square, "Area")[0]
	if over := g.Id(area).Func.Overridden; over != g.GetMember(shape, "Area")[0] {
		t.Fatalf("Square.Area overrides %s", g.FullName(over))
	}
	if g.TypeOf(lookup(t, g, "Geo", "Shape", "origin")) != point {
		t.Fatalf("Shape.origin is not a Point")
	}
	sides := g.Id(lookup(t, g, "Geo", "Shape", "Sides"))
	if !sides.Prop.Getter.IsValid() || g.Id(sides.Prop.Getter).Func.Property != sides.ID {
		t.Fatalf("property accessors not wired: %+v", sides.Prop)
	}
	color := g.Id(lookup(t, g, "Geo", "Color"))
	if color.Layout.Size != 1 || g.Real(color.Child(0)) != g.Builtins.UInt8 {
		t.Fatalf("Color layout %+v", color.Layout)
	}
	if v := g.Id(lookup(t, g, "Geo", "Color", "Green")).Var.Const; !constant.Compare(v, gotoken.EQL, constant.MakeInt64(5)) {
		t.Fatalf("Green = %v", v)
	}
	sums := g.GetMember(lookup(t, g, "Geo"), "Sum")
	if len(sums) != 2 {
		t.Fatalf("Sum overloads = %d", len(sums))
	}
	params := g.Params(sums[0])
	if len(params) != 2 || !g.Id(params[1]).Var.HasDefault || g.Id(params[1]).NameString() != "b" {
		t.Fatalf("Sum parameters lost their defaults")
	}
	table := g.Id(g.TypeOf(lookup(t, g, "table")))
	if table.Kind != ids.KindNonrefArray || table.Type.Length != 4 || g.Kind(table.Child(0)) != ids.KindPointer {
		t.Fatalf("table has type %s", g.Name(table.ID))
	}
	// structural types are shared with the loading graph
	if table.Child(0) != g.PointerTo(g.Builtins.Int32) {
		t.Fatalf("loaded pointer type is not interned")
	}
}

func TestChildAssemblies(t *testing.T) {
	lib := writeLibrary(t)
	app, bag := newGraph("app", 0x99)
	loader := assembly.NewLoader(app, mapProvider{"lib": lib})
	if _, err := loader.LoadByName("lib"); err != nil {
		t.Fatalf("load lib: %v", err)
	}
	compile(t, app, bag, "public var Geo.Point home;\npublic class Circle : Geo.Shape { public var int r; }\n")
	appData, err := assembly.Write(app)
	if err != nil {
		t.Fatalf("write app: %v", err)
	}

	g, _ := newGraph("main", 2)
	if _, err := assembly.NewLoader(g, mapProvider{"lib": lib}).Load(appData); err != nil {
		t.Fatalf("load app: %v", err)
	}
	if len(g.Assemblies) != 3 {
		t.Fatalf("loaded %d assemblies", len(g.Assemblies))
	}
	home := lookup(t, g, "home")
	if g.FullName(g.TypeOf(home)) != "Geo.Point" || g.Id(g.TypeOf(home)).Assembly == g.Id(home).Assembly {
		t.Fatalf("home has type %s", g.FullName(g.TypeOf(home)))
	}
	circle := g.Id(lookup(t, g, "Circle"))
	if len(circle.Struct.FunctionTable) != 1 || g.FullName(circle.Struct.FunctionTable[0]) != "Geo.Shape.Area" {
		t.Fatalf("Circle inherited %d slots", len(circle.Struct.FunctionTable))
	}
}

func TestStaleChildSignature(t *testing.T) {
	lib := writeLibrary(t)
	app, bag := newGraph("app", 0x99)
	if _, err := assembly.NewLoader(app, nil).Load(lib); err != nil {
		t.Fatalf("load lib: %v", err)
	}
	compile(t, app, bag, "public var Geo.Point home;\n")
	appData, err := assembly.Write(app)
	if err != nil {
		t.Fatalf("write app: %v", err)
	}

	rebuilt, bag2 := newGraph("lib", 0x4321)
	compile(t, rebuilt, bag2, library)
	newLib, err := assembly.Write(rebuilt)
	if err != nil {
		t.Fatalf("write lib: %v", err)
	}
	g, _ := newGraph("main", 2)
	_, err = assembly.NewLoader(g, mapProvider{"lib": newLib}).Load(appData)
	if !errors.Is(err, assembly.ErrStaleSignature) {
		t.Fatalf("err = %v, want a stale signature", err)
	}
}

func TestMissingChild(t *testing.T) {
	lib := writeLibrary(t)
	app, bag := newGraph("app", 0x99)
	if _, err := assembly.NewLoader(app, nil).Load(lib); err != nil {
		t.Fatalf("load lib: %v", err)
	}
	compile(t, app, bag, "public var Geo.Point home;\n")
	appData, err := assembly.Write(app)
	if err != nil {
		t.Fatalf("write app: %v", err)
	}
	g, _ := newGraph("main", 2)
	if _, err := assembly.NewLoader(g, mapProvider{}).Load(appData); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("err = %v", err)
	}
}

func TestMalformedInput(t *testing.T) {
	data := writeLibrary(t)
	ref, _ := newGraph("ref", 3)
	idx, err := assembly.NewLoader(ref, nil).Load(data)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	first := len(data)
	for pos := range ref.Assemblies[idx].Ids {
		first = min(first, pos)
	}

	badTag := append([]byte(nil), data...)
	badTag[first] = byte(ids.DeclBuiltin) << 4
	badOffset := append([]byte(nil), data...)
	badOffset[6] = 0x7f
	noEnd := append([]byte(nil), data[:first]...)
	noEnd = append(noEnd, byte(ids.DeclNamespace)<<4)

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"short", data[:5], assembly.ErrInvalidSize},
		{"table offset", badOffset, assembly.ErrInvalidSize},
		{"tag", badTag, assembly.ErrUnknownTag},
		{"truncated content", noEnd, assembly.ErrInvalidSize},
	}
	for _, tt := range tests {
		g, _ := newGraph("main", 2)
		before := len(g.Assemblies)
		_, err := assembly.NewLoader(g, nil).Load(tt.data)
		var ia *assembly.InvalidAssemblyError
		if !errors.As(err, &ia) || !errors.Is(err, tt.want) {
			t.Fatalf("%s: err = %v, want %v", tt.name, err, tt.want)
		}
		if len(g.Assemblies) != before {
			t.Fatalf("%s: a failed load left an assembly behind", tt.name)
		}
	}
}

func TestAlreadyLoaded(t *testing.T) {
	data := writeLibrary(t)
	g, _ := newGraph("main", 2)
	l := assembly.NewLoader(g, nil)
	a, err := l.Load(data)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	b, err := l.Load(data)
	if err != nil || a != b {
		t.Fatalf("second load = %d, %v", b, err)
	}
	self, _ := newGraph("lib", 7)
	if _, err := assembly.NewLoader(self, nil).Load(data); !errors.Is(err, assembly.ErrCyclicAssembly) {
		t.Fatalf("loading into an assembly of the same name: %v", err)
	}
}
