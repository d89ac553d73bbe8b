package tess

import "tessera/internal/lang"

// grammar describes the token sets of the language. The lexer takes its
// operator list from the root so every rule's operators are recognized.
var grammar = buildGrammar()

func buildGrammar() *lang.Grammar {
	expr := &lang.GrammarNode{
		Name: "expression",
		Operators: []string{
			"||", "&&", "|", "^", "&", "==", "!=", "<=", ">=", "<<", ">>", "<", ">",
			"+", "-", "*", "/", "%", "!", "~", ".", ",",
		},
		Skip: []string{"()"},
	}
	typ := &lang.GrammarNode{
		Name:      "type",
		Operators: []string{"*", "&", ".", ","},
		Skip:      []string{"()", "[]"},
	}
	// array lengths are expressions
	typ.Children = []*lang.GrammarNode{expr}
	modifier := &lang.GrammarNode{Name: "modifier", Skip: []string{"()"}}
	param := &lang.GrammarNode{Name: "parameter", Operators: []string{"="}, Children: []*lang.GrammarNode{typ, expr}}
	decl := &lang.GrammarNode{
		Name:      "declaration",
		Operators: []string{":", "=", ";"},
		Skip:      []string{"{}"},
		Children:  []*lang.GrammarNode{modifier, typ, param, expr},
	}
	root := &lang.GrammarNode{
		Name:      "file",
		Operators: []string{";"},
		Skip:      []string{"{}"},
		Children:  []*lang.GrammarNode{decl},
	}
	return lang.NewGrammar(root)
}

func rootOperators() []string {
	ops := grammar.Operators(grammar.Root)
	// brackets are scanned as single-byte operators
	return append(ops[:len(ops):len(ops)], bracketTokens()...)
}

func bracketTokens() []string {
	var out []string
	for _, pair := range grammar.SkipPairs(grammar.Root) {
		out = append(out, pair[:1], pair[1:])
	}
	return out
}
