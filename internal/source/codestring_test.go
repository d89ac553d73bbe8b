package source

import "testing"

func newTestString(t *testing.T, text string) CodeString {
	t.Helper()
	fs := NewFileSet()
	return fs.Get(fs.AddVirtual("t.tss", []byte(text))).All()
}

func TestCodeStringSubstringTracksLine(t *testing.T) {
	cs := newTestString(t, "one\ntwo\nthree")
	sub := cs.Substring(8)
	if sub.String() != "three" {
		t.Fatalf("got %q", sub.String())
	}
	if sub.Line != 2 {
		t.Errorf("expected line 2, got %d", sub.Line)
	}
	if pos := sub.Position(); pos.Line != 3 || pos.Col != 1 {
		t.Errorf("unexpected position %+v", pos)
	}
}

func TestCodeStringTrimAndEqual(t *testing.T) {
	cs := newTestString(t, "  Name \t")
	trimmed := cs.Trim()
	if !trimmed.Equal("Name") {
		t.Fatalf("expected Name, got %q", trimmed.String())
	}
	if trimmed.Equal("name") {
		t.Errorf("comparison must be case-sensitive")
	}
	if trimmed.Index != 2 {
		t.Errorf("trim must keep the file offset, got %d", trimmed.Index)
	}
}

func TestMatchingBracketSkipsLiterals(t *testing.T) {
	cs := newTestString(t, `f(a, ")", (b[1]), '(') + 1`)
	open := cs.Find("(")
	closeAt := cs.MatchingBracket(open)
	if closeAt < 0 {
		t.Fatal("expected a match")
	}
	if got := cs.SubstringN(open, closeAt-open+1).String(); got != `(a, ")", (b[1]), '(')` {
		t.Errorf("unexpected bracket range %q", got)
	}
	if newTestString(t, "(]").MatchingBracket(0) != -1 {
		t.Errorf("mismatched brackets must fail")
	}
}

func TestSplitRespectsNesting(t *testing.T) {
	parts := newTestString(t, `a, f(b, c), "x,y", {d, e}`).Split(',')
	want := []string{"a", "f(b, c)", `"x,y"`, "{d, e}"}
	if len(parts) != len(want) {
		t.Fatalf("expected %d parts, got %d", len(want), len(parts))
	}
	for i := range want {
		if parts[i].String() != want[i] {
			t.Errorf("part %d: want %q got %q", i, want[i], parts[i].String())
		}
	}
}

func TestWordAndIdentifier(t *testing.T) {
	word, rest := newTestString(t, "  public int X;").Word()
	if !word.Equal("public") || !rest.StartsWith("int") {
		t.Fatalf("unexpected split %q / %q", word.String(), rest.String())
	}
	if !FreeString("_x1").IsIdentifier() || FreeString("1x").IsIdentifier() || FreeString("a-b").IsIdentifier() {
		t.Errorf("identifier classification is wrong")
	}
}

func TestFindOutsideBrackets(t *testing.T) {
	cs := newTestString(t, "Foo(a = 1) = b")
	if idx := cs.FindOutsideBrackets("="); idx != 11 {
		t.Errorf("expected 11, got %d", idx)
	}
}

func TestEraseKeepsLines(t *testing.T) {
	cs := newTestString(t, "#if X\nbody\n#endif\n")
	cs.SubstringN(0, 10).Erase()
	if got := cs.String(); got != "     \n    \n#endif\n" {
		t.Fatalf("unexpected erase result %q", got)
	}
	if len(cs.File.LineIdx) != 3 {
		t.Errorf("line table must survive erasure, got %v", cs.File.LineIdx)
	}
}

func TestFreeString(t *testing.T) {
	fs := FreeString("alpha beta")
	if !fs.IsFree() || fs.Span() != (Span{}) {
		t.Fatalf("free strings have no span")
	}
	if fs.Substring(6).String() != "beta" {
		t.Errorf("substring of free string failed")
	}
	fs.Erase()
	if fs.String() != "alpha beta" {
		t.Errorf("erase must not touch free strings")
	}
}
