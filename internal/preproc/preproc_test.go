package preproc_test

import (
	"go/constant"
	"slices"
	"strings"
	"testing"

	"tessera/internal/diag"
	"tessera/internal/lang/tess"
	"tessera/internal/preproc"
	"tessera/internal/source"
	"tessera/internal/syntax"
)

// process runs the preprocessor over src and returns the words left in the
// file.
func process(t *testing.T, src string, predefine ...string) ([]string, *preproc.Preprocessor, *diag.Bag) {
	t.Helper()
	bag := diag.NewBag(0)
	fs := source.NewFileSet()
	f := fs.Get(fs.AddVirtual("test.tess", []byte(src)))
	pp := preproc.New(tess.Language{}, diag.BagReporter{Bag: bag})
	for i := 0; i+1 < len(predefine); i += 2 {
		pp.Define(predefine[i], predefine[i+1])
	}
	pp.Process(f)
	if len(f.Content) != len(src) {
		t.Fatalf("processing changed the file length from %d to %d", len(src), len(f.Content))
	}
	return strings.Fields(string(f.Content)), pp, bag
}

func TestConditionalBlocks(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{"if elif else", "#define DEBUG 1\n#if DEBUG\nA\n#elif 1\nB\n#else\nC\n#endif\n", []string{"A"}},
		{"elif taken", "#if 0\nA\n#elif 2 > 1\nB\n#else\nC\n#endif\n", []string{"B"}},
		{"else taken", "#if 0\nA\n#elif 0\nB\n#else\nC\n#endif\n", []string{"C"}},
		{"ifdef", "#ifdef MISSING\nD\n#endif\n#ifndef MISSING\nE\n#endif\n", []string{"E"}},
		{"nested inactive", "#if 0\n#if 1\nX\n#else\nY\n#endif\n#endif\nZ\n", []string{"Z"}},
		{"defined", "#define DEBUG\n#if defined(DEBUG) && !defined(NOPE)\nK\n#endif\n", []string{"K"}},
		{"indented directive", "  #if 0\nA\n  #endif\nB\n", []string{"B"}},
	}
	for _, tt := range tests {
		got, _, bag := process(t, tt.src)
		if bag.HasErrors() {
			t.Fatalf("%s: unexpected diagnostics %+v", tt.name, bag.Items())
		}
		if !slices.Equal(got, tt.want) {
			t.Fatalf("%s: kept %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestPredefinedMacro(t *testing.T) {
	got, _, bag := process(t, "#if PLATFORM == 64\nok\n#endif\n", "PLATFORM", "64")
	if bag.HasErrors() || !slices.Equal(got, []string{"ok"}) {
		t.Fatalf("kept %q, diagnostics %+v", got, bag.Items())
	}
}

func TestDirectiveDiagnostics(t *testing.T) {
	tests := []struct {
		src  string
		code diag.Code
	}{
		{"#endif\n", diag.UnmatchedEndif},
		{"#else\n", diag.UnmatchedElse},
		{"#if 1\n#else\n#else\n#endif\n", diag.ElseAfterElse},
		{"#if 1\n", diag.UnterminatedIf},
		{"#bogus\n", diag.InvalidDirective},
		{"#define X 1\n#define X 2\n", diag.MacroAlreadyDefined},
		{"#undef Y\n", diag.UnknownMacro},
		{"#if UNKNOWN\n#endif\n", diag.UnknownMacro},
		{"#define F(a, b) a + b\n#if F(1)\n#endif\n", diag.ParamCountMismatch},
		{"#error stop here\n", diag.PreprocError},
		{"#warning careful\n", diag.PreprocWarning},
		{"#info note\n", diag.PreprocInfo},
		{"#redef W 5\n", diag.MacroRedefined},
		{"#define 1X 2\n", diag.InvalidName},
	}
	for _, tt := range tests {
		_, _, bag := process(t, tt.src)
		if !bag.HasCode(tt.code) {
			t.Fatalf("%q: want %s, got %+v", tt.src, tt.code, bag.Items())
		}
	}
}

func TestInactiveDirectivesAreIgnored(t *testing.T) {
	_, pp, bag := process(t, "#if 0\n#error hidden\n#define HIDDEN 1\n#endif\n")
	if bag.Len() != 0 {
		t.Fatalf("inactive directives reported %+v", bag.Items())
	}
	if pp.Macros.Lookup("HIDDEN") != nil {
		t.Fatalf("inactive #define took effect")
	}
}

func TestRedefAndUndef(t *testing.T) {
	_, pp, bag := process(t, "#define V 1\n#redef V 2\n#define G 7\n#undef G\n")
	if bag.Len() != 0 {
		t.Fatalf("diagnostics %+v", bag.Items())
	}
	m := pp.Macros.Lookup("V")
	if m == nil || m.Body.String() != "2" {
		t.Fatalf("V = %+v", m)
	}
	if pp.Macros.Lookup("G") != nil || pp.Macros.Len() != 1 {
		t.Fatalf("G survived #undef")
	}
}

func TestMacroBodySurvivesErasure(t *testing.T) {
	_, pp, _ := process(t, "#define SQR(x) ((x) * (x))\n")
	m := pp.Macros.Lookup("SQR")
	if m == nil || !slices.Equal(m.Params, []string{"x"}) {
		t.Fatalf("SQR = %+v", m)
	}
	if m.Body.String() != "((x) * (x))" {
		t.Fatalf("body = %q", m.Body.String())
	}
}

func TestExpansionSharesArguments(t *testing.T) {
	_, pp, _ := process(t, "#define SQR(x) ((x) * (x))\n#define N 3\n")
	e, err := tess.Language{}.ParseExpr(source.FreeString("SQR(N + 1)"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	expanded, err := pp.Macros.ExpandAll(e)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if expanded.Kind != syntax.ExprExpansion || len(expanded.Links) != 1 {
		t.Fatalf("expansion = %+v", expanded)
	}
	ev := &syntax.Evaluator{}
	v, err := ev.Eval(expanded)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if n, _ := constant.Int64Val(v); n != 16 {
		t.Fatalf("SQR(N + 1) = %v", v)
	}
	if ev.Evaluations != 1 {
		t.Fatalf("shared argument evaluated %d times", ev.Evaluations)
	}
}

func TestTableAsEnv(t *testing.T) {
	_, pp, _ := process(t, "#define N 3\n#define M (N * 2)\n#define F(a) a\n")
	v, err := pp.Macros.Value([]source.CodeString{source.FreeString("M")})
	if err != nil {
		t.Fatalf("M: %v", err)
	}
	if n, _ := constant.Int64Val(v); n != 6 {
		t.Fatalf("M = %v", v)
	}
	if _, err := pp.Macros.Value([]source.CodeString{source.FreeString("F")}); err == nil {
		t.Fatalf("a parameterized macro has no value")
	}
}

func TestRecursiveMacroStops(t *testing.T) {
	_, _, bag := process(t, "#define LOOP (LOOP + 1)\n#if LOOP\n#endif\n")
	if !bag.HasCode(diag.InvalidExpression) {
		t.Fatalf("self reference not reported: %+v", bag.Items())
	}
}

func TestCloneIsIndependent(t *testing.T) {
	pp := preproc.New(tess.Language{}, nil)
	pp.Define("A", "1")
	clone := pp.Clone()
	clone.Define("B", "2")
	if pp.Macros.Lookup("B") != nil || clone.Macros.Lookup("A") == nil {
		t.Fatalf("clone shares its table")
	}
}
