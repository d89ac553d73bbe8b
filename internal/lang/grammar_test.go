package lang

import (
	"slices"
	"sync"
	"testing"
)

func testGrammar() *Grammar {
	expr := &GrammarNode{Name: "expr", Operators: []string{"+", "<<", "<", "&&"}, Skip: []string{"()"}}
	typ := &GrammarNode{Name: "type", Operators: []string{"*", "&"}, Skip: []string{"[]"}}
	// expressions may nest types and the other way around
	typ.Children = []*GrammarNode{expr}
	expr.Children = []*GrammarNode{typ}
	root := &GrammarNode{Name: "file", Operators: []string{";"}, Children: []*GrammarNode{expr, typ}}
	return NewGrammar(root)
}

func TestOperatorsLongestFirst(t *testing.T) {
	g := testGrammar()
	ops := g.Operators(g.Root)
	want := []string{"&&", "<<", "&", "*", "+", ";", "<"}
	if !slices.Equal(ops, want) {
		t.Fatalf("operators = %q, want %q", ops, want)
	}
	if got := g.SkipPairs(g.Root); !slices.Equal(got, []string{"()", "[]"}) {
		t.Fatalf("skip pairs = %q", got)
	}
}

func TestOperatorsOfSubtree(t *testing.T) {
	g := testGrammar()
	typ := g.Find("type")
	if typ == nil {
		t.Fatalf("type node not found")
	}
	if slices.Contains(g.Operators(typ), ";") {
		t.Fatalf("subtree sets must not include parent operators")
	}
	if g.Find("missing") != nil {
		t.Fatalf("found a node that does not exist")
	}
}

func TestOperatorsComputedOnce(t *testing.T) {
	g := testGrammar()
	var wg sync.WaitGroup
	results := make([][]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = g.Operators(g.Root)
		}(i)
	}
	wg.Wait()
	for i := 1; i < len(results); i++ {
		if &results[i][0] != &results[0][0] {
			t.Fatalf("result %d was derived again", i)
		}
	}
}
