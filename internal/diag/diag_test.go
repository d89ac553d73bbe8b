package diag

import (
	"strings"
	"sync"
	"testing"

	"tessera/internal/source"
)

func TestSeverityBands(t *testing.T) {
	tests := []struct {
		code Code
		want Severity
	}{
		{UnknownId, SevError},
		{UnknownMacro, SevError},
		{CannotLoadAssembly, SevError},
		{HidesBaseMember, SevWarning},
		{PreprocWarning, SevWarning},
		{PreprocInfo, SevInfo},
		{CompilationFinish, SevInfo},
	}
	for _, tt := range tests {
		if got := tt.code.Severity(); got != tt.want {
			t.Errorf("%s: severity %s, want %s", tt.code, got, tt.want)
		}
	}
}

func TestParseSeverityAndFilter(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want Severity
	}{{"info", SevInfo}, {"Warning", SevWarning}, {"ERROR", SevError}} {
		got, err := ParseSeverity(tt.in)
		if err != nil || got != tt.want {
			t.Fatalf("ParseSeverity(%q) = %v, %v", tt.in, got, err)
		}
	}
	if _, err := ParseSeverity("fatal"); err == nil {
		t.Fatalf("ParseSeverity accepted fatal")
	}
	diags := []Diagnostic{New(AssemblyLoaded, source.Span{}, "a"), New(HidesBaseMember, source.Span{}, "m"), New(UnknownId, source.Span{}, "x")}
	if got := AtLeast(diags, SevWarning); len(got) != 2 || got[0].Code != HidesBaseMember {
		t.Fatalf("AtLeast(warning) = %+v", got)
	}
}

func TestCodeNamesRoundTrip(t *testing.T) {
	for _, c := range Codes() {
		back, ok := CodeByName(c.String())
		if !ok || back != c {
			t.Fatalf("CodeByName(%q) = %d, %v", c.String(), back, ok)
		}
	}
}

func TestEveryCodeHasEnglishMessage(t *testing.T) {
	table := DefaultMessages()
	for _, c := range Codes() {
		if _, ok := table.Lookup(c); !ok {
			t.Errorf("no English message for %s", c)
		}
	}
}

func TestBagConcurrentAdd(t *testing.T) {
	bag := NewBag(0)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				bag.Add(New(UnknownId, source.Span{}, "x"))
			}
		}()
	}
	wg.Wait()
	if bag.Len() != 800 {
		t.Fatalf("expected 800 diagnostics, got %d", bag.Len())
	}
	if !bag.HasErrors() {
		t.Fatalf("expected errors")
	}
}

func TestBagLimitKeepsErrorState(t *testing.T) {
	bag := NewBag(1)
	bag.Add(New(PreprocInfo, source.Span{}, "hello"))
	if bag.Add(New(UnknownId, source.Span{}, "x")) {
		t.Fatalf("add past limit must fail")
	}
	if !bag.HasErrors() {
		t.Fatalf("dropped error must still count")
	}
}

func TestBagSortAndDedup(t *testing.T) {
	bag := NewBag(10)
	bag.Add(New(UnknownId, source.Span{Start: 5, End: 6}, "b"))
	bag.Add(New(HidesBaseMember, source.Span{Start: 1, End: 2}, "a"))
	bag.Add(New(UnknownId, source.Span{Start: 5, End: 6}, "b"))
	bag.Sort()
	bag.Dedup()
	items := bag.Items()
	if len(items) != 2 {
		t.Fatalf("expected 2 items after dedup, got %d", len(items))
	}
	if items[0].Code != HidesBaseMember {
		t.Fatalf("unexpected order: %v", items[0].Code)
	}
}

func TestDedupReporter(t *testing.T) {
	bag := NewBag(0)
	r := NewDedupReporter(BagReporter{Bag: bag})
	for i := 0; i < 3; i++ {
		Report(r, CannotCalcConst, source.Span{Start: 1, End: 2}, "X")
	}
	if bag.Len() != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", bag.Len())
	}
}

func TestFormatUsesArgs(t *testing.T) {
	d := New(CannotConvert, source.Span{}, "int", "string")
	if d.Message != "cannot convert 'int' to 'string'" {
		t.Fatalf("unexpected message %q", d.Message)
	}
	d = New(ParamCountMismatch, source.Span{}, "MAX", 2)
	if d.Message != "macro 'MAX' takes 2 parameters" {
		t.Fatalf("unexpected message %q", d.Message)
	}
}

func TestLoadMessagesCultureMatching(t *testing.T) {
	de, err := LoadMessages("de-AT")
	if err != nil {
		t.Fatalf("LoadMessages: %v", err)
	}
	if got := de.Format(UnknownId, "x"); got != "unbekannter Bezeichner 'x'" {
		t.Fatalf("unexpected German text %q", got)
	}
	// not translated, falls back to English
	if got := de.Format(InvalidGuid, "g"); got != "'g' is not a valid GUID" {
		t.Fatalf("unexpected fallback text %q", got)
	}
	fr, err := LoadMessages("fr")
	if err != nil {
		t.Fatalf("LoadMessages(fr): %v", err)
	}
	if fr != DefaultMessages() {
		t.Fatalf("unsupported culture should use the default table")
	}
	if _, err := LoadMessages("not a tag!"); err == nil {
		t.Fatalf("expected error for malformed culture")
	}
}

func TestParseMessages(t *testing.T) {
	entries, err := ParseMessages(strings.NewReader("# c\n\nA=\"x \\\"y\\\"\"\nB = \"line\\nnext\"\n"))
	if err != nil {
		t.Fatalf("ParseMessages: %v", err)
	}
	if entries["A"] != `x "y"` || entries["B"] != "line\nnext" {
		t.Fatalf("unexpected entries %#v", entries)
	}
	if _, err := ParseMessages(strings.NewReader("A=x\n")); err == nil {
		t.Fatalf("expected error for unquoted value")
	}
}

func TestPrettyCaretUsesCellWidth(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("m.tess", []byte("const 名前 = 1;\n"))
	// "名前" spans bytes 6..12 and four display cells
	d := New(UnknownId, source.Span{File: id, Start: 6, End: 12}, "名前")
	var b strings.Builder
	if err := Pretty(&b, []Diagnostic{d}, fs, PrettyOpts{}); err != nil {
		t.Fatalf("Pretty: %v", err)
	}
	want := "m.tess:1:7: ERROR TS1001: unknown identifier '名前'\n" +
		"  const 名前 = 1;\n" +
		"        ^~~~\n"
	if b.String() != want {
		t.Fatalf("unexpected output:\n%q\nwant\n%q", b.String(), want)
	}
}

func TestFormatShort(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("a.tess", []byte("a\nb\n"))
	diags := []Diagnostic{
		New(HidesBaseMember, source.Span{File: id, Start: 2, End: 3}, "b").WithNote(source.Span{File: id, Start: 0, End: 1}, "base\nmember"),
		New(UnknownId, source.Span{File: id, Start: 0, End: 1}, "a"),
	}
	want := "error TS1001 a.tess:1:1 unknown identifier 'a'\n" +
		"note TS5002 a.tess:1:1 base member\n" +
		"warning TS5002 a.tess:2:1 'b' hides an inherited member; use the new modifier"
	if got := FormatShort(diags, fs, true); got != want {
		t.Fatalf("unexpected short output:\n%s\nwant:\n%s", got, want)
	}
}

func TestFatalfPanicsWithInternalError(t *testing.T) {
	defer func() {
		r := recover()
		ie, ok := r.(*InternalError)
		if !ok || !strings.Contains(ie.Error(), "kind 42") {
			t.Fatalf("unexpected panic value %#v", r)
		}
	}()
	Fatalf("unexpected kind %d", 42)
}
