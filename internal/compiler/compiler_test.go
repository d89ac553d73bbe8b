package compiler

import (
	"context"
	"go/constant"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tessera/internal/arch"
	"tessera/internal/assembly"
	"tessera/internal/diag"
	"tessera/internal/ids"
	"tessera/internal/lang"
	"tessera/internal/lang/tess"
)

const geoSource = `namespace Geo {
    public struct Point { public var int x, y; }
    public class Shape {
        public virtual func int Area() { return 0; }
    }
}
`

const appMacros = `#define SIDE 3
`

const appSource = `#if WIDE
public const int Width = SIDE * 2;
#else
public const int Width = SIDE;
#endif
public var Geo.Point origin;
public class Square : Geo.Shape {
    public override func int Area() { return Width * Width; }
}
`

func write(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func newState(t *testing.T, name string, opts Options) *State {
	t.Helper()
	a, ok := arch.Lookup("generic64")
	if !ok {
		t.Fatalf("generic64 is not registered")
	}
	l, ok := lang.Lookup(tess.Name)
	if !ok {
		t.Fatalf("tess is not registered")
	}
	opts.AssemblyName = name
	opts.Arch = a
	opts.Lang = l
	return New(opts)
}

func requireOK(t *testing.T, s *State, ok bool) {
	t.Helper()
	if ok {
		return
	}
	for _, d := range s.Bag.Items() {
		t.Logf("%s: %s", d.Code, d.Message)
	}
	t.Fatalf("compilation of %s failed", s.AssemblyName)
}

func buildGeo(t *testing.T, dir string) string {
	t.Helper()
	out := filepath.Join(dir, "geo"+assembly.Ext)
	s := newState(t, "geo", Options{Output: out, Signature: 77})
	requireOK(t, s, s.Compile(context.Background(), []string{write(t, dir, "geo.tess", geoSource)}, nil, nil))
	return out
}

func TestCompileWithReferences(t *testing.T) {
	dir := t.TempDir()
	buildGeo(t, dir)
	logo := write(t, dir, "logo.bin", "abc")
	listing := filepath.Join(dir, "app.lst")

	events := make(chan Event, 256)
	s := newState(t, "app", Options{
		Parallel: true,
		Defines:  map[string]string{"WIDE": "1"},
		Provider: assembly.DirProvider{Dirs: []string{dir}},
		Listing:  listing,
		Events:   events,
	})
	files := []string{write(t, dir, "macros.tess", appMacros), write(t, dir, "app.tess", appSource)}
	requireOK(t, s, s.Compile(context.Background(), files, []string{"geo"}, map[string]string{"logo": logo}))
	close(events)

	g := s.Graph
	if len(g.Assemblies) != 2 || !g.Assemblies[1].Loaded || g.Assemblies[1].Signature != 77 {
		t.Fatalf("geo was not loaded: %+v", g.Assemblies)
	}
	if !s.Bag.HasCode(diag.AssemblyLoaded) {
		t.Fatalf("missing assembly loaded notice")
	}
	width := g.GetIdentifier(g.Global(), "Width", ids.GetIdScope)
	if len(width) != 1 {
		t.Fatalf("Width not declared")
	}
	if v, _ := constant.Int64Val(g.Id(width[0]).Var.Const); v != 6 {
		t.Fatalf("Width = %v, want 6", g.Id(width[0]).Var.Const)
	}

	bin := g.GetIdentifier(g.Global(), "logo", ids.GetIdScope)
	if len(bin) != 1 {
		t.Fatalf("logo not declared")
	}
	typ := g.Id(g.TypeOf(bin[0]))
	if typ.Kind != ids.KindNonrefArray || typ.Type.Length != 3 || !g.Id(bin[0]).Has(ids.FlagReadOnly) {
		t.Fatalf("logo has type %s", g.Name(typ.ID))
	}

	text, err := os.ReadFile(listing)
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	for _, want := range []string{"logo:\n\tdb \"abc\"\n", "Square%table:\n\tdq Square.Area\n"} {
		if !strings.Contains(string(text), want) {
			t.Fatalf("listing lacks %q:\n%s", want, text)
		}
	}

	phases := map[Stage]bool{}
	for ev := range events {
		if ev.Unit == "" && ev.Status == StatusDone {
			phases[ev.Stage] = true
		}
	}
	for _, st := range []Stage{StagePreprocess, StageLoad, StageDeclare, StageLayout, StageGenerate, StageWrite} {
		if !phases[st] {
			t.Fatalf("no completion event for %s", st)
		}
	}
	if got := len(s.Timer.Phases()); got != 6 {
		t.Fatalf("timed %d phases, want 6", got)
	}
}

func TestCompileFailures(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name  string
		files []string
		refs  []string
		bins  map[string]string
		code  diag.Code
	}{
		{"missing source", []string{filepath.Join(dir, "nope.tess")}, nil, nil, diag.CannotReadFile},
		{"missing assembly", nil, []string{"ghost"}, nil, diag.AssemblyNotFound},
		{"corrupt assembly", nil, []string{write(t, dir, "bad"+assembly.Ext, "garbage!!")}, nil, diag.CannotLoadAssembly},
		{"missing binary", nil, nil, map[string]string{"blob": filepath.Join(dir, "nope.bin")}, diag.CannotReadFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newState(t, "app", Options{Provider: assembly.DirProvider{Dirs: []string{dir}}})
			if s.Compile(context.Background(), tt.files, tt.refs, tt.bins) {
				t.Fatalf("compilation succeeded")
			}
			if !s.Bag.HasCode(tt.code) {
				t.Fatalf("missing %s", tt.code)
			}
		})
	}
}

func TestCompileWritesLoadableDescriptor(t *testing.T) {
	dir := t.TempDir()
	out := buildGeo(t, dir)
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	h, err := assembly.ReadHeader(data)
	if err != nil || h.Name != "geo" || h.Signature != 77 {
		t.Fatalf("header = %+v, %v", h, err)
	}
}

func TestCompileCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := newState(t, "app", Options{})
	if s.Compile(ctx, nil, nil, nil) {
		t.Fatalf("cancelled compilation succeeded")
	}
}
