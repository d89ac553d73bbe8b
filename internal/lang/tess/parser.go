package tess

import (
	"go/constant"
	gotoken "go/token"
	"strconv"
	"strings"
	"sync"

	"tessera/internal/diag"
	"tessera/internal/source"
	"tessera/internal/syntax"
	"tessera/internal/types"
)

var operators = sync.OnceValue(rootOperators)

// parser is a recursive descent parser over the tokens of one statement.
type parser struct {
	src  source.CodeString
	toks []token
	pos  int
}

func newParser(code source.CodeString) (*parser, error) {
	toks, err := tokenize(code, operators())
	if err != nil {
		return nil, err
	}
	return &parser{src: code, toks: toks}, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) peekN(n int) token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *parser) advance() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) accept(s string) bool {
	if p.peek().is(s) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expect(s string) (token, error) {
	t := p.peek()
	if !t.is(s) {
		return t, p.unexpected()
	}
	return p.advance(), nil
}

func (p *parser) unexpected() error {
	t := p.peek()
	if t.kind == tokEOF {
		return syntax.NewError(p.src, diag.InvalidDeclaration)
	}
	return syntax.NewError(t.text, diag.NotExpected, t.text.String())
}

func (p *parser) ident() (source.CodeString, error) {
	t := p.peek()
	if t.kind != tokIdent || isKeyword(t.text.String()) {
		if t.kind == tokEOF {
			return source.CodeString{}, syntax.NewError(p.src, diag.InvalidDeclaration)
		}
		return source.CodeString{}, syntax.NewError(t.text, diag.InvalidName, t.text.String())
	}
	return p.advance().text, nil
}

// span covers the tokens from start up to the current position.
func (p *parser) span(start int) source.CodeString {
	first := p.toks[start]
	end := first.off
	if p.pos > start {
		end = p.toks[p.pos-1].end()
	}
	return p.src.SubstringN(first.off, end-first.off)
}

func (p *parser) done() error {
	if p.peek().kind != tokEOF {
		return p.unexpected()
	}
	return nil
}

// skipBalanced moves past the bracket group opening at the current token
// and returns its inner text.
func (p *parser) skipBalanced() (source.CodeString, error) {
	open := p.advance()
	closing := map[string]string{"(": ")", "[": "]", "{": "}"}[open.text.String()]
	depth := 1
	startIdx := p.pos
	for {
		t := p.peek()
		switch {
		case t.kind == tokEOF:
			return source.CodeString{}, syntax.NewError(open.text, diag.UnclosedBracket)
		case t.is(open.text.String()):
			depth++
		case t.is(closing):
			depth--
			if depth == 0 {
				inner := p.between(startIdx, p.pos)
				p.advance()
				return inner, nil
			}
		}
		p.advance()
	}
}

// between returns the source text from token i up to token j, exclusive.
func (p *parser) between(i, j int) source.CodeString {
	if i == j {
		return p.src.SubstringN(p.toks[i].off, 0)
	}
	from := p.toks[i].off
	return p.src.SubstringN(from, p.toks[j-1].end()-from)
}

// Expressions.

type binaryLevel struct {
	ops map[string]types.Operator
}

var binaryLevels = []binaryLevel{
	{map[string]types.Operator{"||": types.OpOr}},
	{map[string]types.Operator{"&&": types.OpAnd}},
	{map[string]types.Operator{"|": types.OpBitOr}},
	{map[string]types.Operator{"^": types.OpBitXor}},
	{map[string]types.Operator{"&": types.OpBitAnd}},
	{map[string]types.Operator{"==": types.OpEqual, "!=": types.OpNotEqual}},
	{map[string]types.Operator{
		"<": types.OpLess, "<=": types.OpLessEqual, ">": types.OpGreater, ">=": types.OpGreaterEqual,
	}},
	{map[string]types.Operator{"<<": types.OpShiftLeft, ">>": types.OpShiftRight}},
	{map[string]types.Operator{"+": types.OpAdd, "-": types.OpSubtract}},
	{map[string]types.Operator{"*": types.OpMultiply, "/": types.OpDivide, "%": types.OpModulo}},
}

var unaryOps = map[string]types.Operator{
	"-": types.OpNegate,
	"+": types.OpUnaryPlus,
	"!": types.OpNot,
	"~": types.OpComplement,
}

func (p *parser) expr() (*syntax.Expr, error) {
	return p.binary(0)
}

func (p *parser) binary(level int) (*syntax.Expr, error) {
	if level == len(binaryLevels) {
		return p.unary()
	}
	start := p.pos
	x, err := p.binary(level + 1)
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp {
			return x, nil
		}
		op, ok := binaryLevels[level].ops[t.text.String()]
		if !ok {
			return x, nil
		}
		p.advance()
		y, err := p.binary(level + 1)
		if err != nil {
			return nil, err
		}
		x = syntax.Binary(p.span(start), op, x, y)
	}
}

func (p *parser) unary() (*syntax.Expr, error) {
	start := p.pos
	t := p.peek()
	if t.kind == tokOp {
		if op, ok := unaryOps[t.text.String()]; ok {
			p.advance()
			x, err := p.unary()
			if err != nil {
				return nil, err
			}
			return syntax.Unary(p.span(start), op, x), nil
		}
	}
	return p.postfix()
}

func (p *parser) postfix() (*syntax.Expr, error) {
	start := p.pos
	x, err := p.primary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.accept("."):
			name, err := p.ident()
			if err != nil {
				return nil, err
			}
			x = syntax.Member(p.span(start), x, name)
		case p.accept("("):
			var args []*syntax.Expr
			for !p.peek().is(")") {
				a, err := p.expr()
				if err != nil {
					return nil, err
				}
				args = append(args, a)
				if !p.accept(",") {
					break
				}
			}
			if _, err := p.expect(")"); err != nil {
				return nil, err
			}
			x = &syntax.Expr{Kind: syntax.ExprCall, Text: p.span(start), X: x, Args: args}
		default:
			return x, nil
		}
	}
}

func (p *parser) primary() (*syntax.Expr, error) {
	t := p.peek()
	switch t.kind {
	case tokIdent:
		switch t.text.String() {
		case "true", "false":
			p.advance()
			return syntax.Lit(t.text, constant.MakeBool(t.text.Equal("true"))), nil
		}
		p.advance()
		return syntax.Ident(t.text), nil
	case tokInt, tokFloat:
		p.advance()
		v, err := parseNumber(t)
		if err != nil {
			return nil, err
		}
		return syntax.Lit(t.text, v), nil
	case tokString, tokChar:
		p.advance()
		s, err := strconv.Unquote(`"` + escapeQuotes(t) + `"`)
		if err != nil {
			return nil, syntax.NewError(t.text, diag.InvalidExpression, t.text.String())
		}
		if t.kind == tokChar {
			r := []rune(s)
			if len(r) != 1 {
				return nil, syntax.NewError(t.text, diag.InvalidExpression, t.text.String())
			}
			return syntax.Lit(t.text, constant.MakeInt64(int64(r[0]))), nil
		}
		return syntax.Lit(t.text, constant.MakeString(s)), nil
	case tokOp:
		if t.is("(") {
			p.advance()
			x, err := p.expr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(")"); err != nil {
				return nil, err
			}
			return x, nil
		}
	}
	return nil, p.unexpected()
}

// escapeQuotes strips the delimiters of a quoted token and escapes any
// double quotes a character literal may contain.
func escapeQuotes(t token) string {
	s := t.text.String()
	inner := s[1 : len(s)-1]
	if t.kind == tokChar {
		inner = strings.ReplaceAll(inner, `\'`, `'`)
		inner = strings.ReplaceAll(inner, `"`, `\"`)
	}
	return inner
}

func parseNumber(t token) (constant.Value, error) {
	text := strings.ReplaceAll(t.text.String(), "_", "")
	kind := gotoken.INT
	if t.kind == tokFloat {
		kind = gotoken.FLOAT
	}
	v := constant.MakeFromLiteral(text, kind, 0)
	if v.Kind() == constant.Unknown {
		return nil, syntax.NewError(t.text, diag.InvalidExpression, t.text.String())
	}
	return v, nil
}

// Types.

// typeExpr parses a type name with its postfix forms: T* pointer, T&
// reference, T[N] fixed array, T[] or T[,] reference array and T[*]
// pointer and length.
func (p *parser) typeExpr() (*syntax.TypeExpr, error) {
	start := p.pos
	var te *syntax.TypeExpr
	switch {
	case p.peek().is("("):
		p.advance()
		tuple := &syntax.TypeExpr{Kind: syntax.TypeTuple}
		for !p.peek().is(")") {
			mt, err := p.typeExpr()
			if err != nil {
				return nil, err
			}
			f := syntax.Field{Type: mt}
			if p.peek().kind == tokIdent && !isKeyword(p.peek().text.String()) {
				f.Name = p.advance().text
			}
			tuple.Members = append(tuple.Members, f)
			if !p.accept(",") {
				break
			}
		}
		if _, err := p.expect(")"); err != nil {
			return nil, err
		}
		tuple.Text = p.span(start)
		te = tuple
	case p.peek().is("func"):
		p.advance()
		fn := &syntax.TypeExpr{Kind: syntax.TypeFunction}
		ret, err := p.typeExpr()
		if err != nil {
			return nil, err
		}
		fn.Ret = ret
		if fn.Params, err = p.params(); err != nil {
			return nil, err
		}
		if t := p.peek(); t.kind == tokIdent && isCallConv(t.text.String()) {
			fn.CallConv = p.advance().text.String()
		}
		fn.Text = p.span(start)
		te = fn
	default:
		first, err := p.ident()
		if err != nil {
			return nil, err
		}
		path := []source.CodeString{first}
		for p.peek().is(".") && p.peekN(1).kind == tokIdent {
			p.advance()
			path = append(path, p.advance().text)
		}
		te = &syntax.TypeExpr{Kind: syntax.TypeNamed, Text: p.span(start), Path: path}
	}
	for {
		switch {
		case p.accept("*"):
			te = &syntax.TypeExpr{Kind: syntax.TypePointer, Text: p.span(start), Elem: te}
		case p.accept("&"):
			te = &syntax.TypeExpr{Kind: syntax.TypeReference, Text: p.span(start), Elem: te}
		case p.peek().is("["):
			p.advance()
			switch {
			case p.accept("*"):
				if _, err := p.expect("]"); err != nil {
					return nil, err
				}
				te = &syntax.TypeExpr{Kind: syntax.TypePointerAndLength, Text: p.span(start), Elem: te}
			case p.peek().is("]") || p.peek().is(","):
				dims := 1
				for p.accept(",") {
					dims++
				}
				if _, err := p.expect("]"); err != nil {
					return nil, err
				}
				te = &syntax.TypeExpr{Kind: syntax.TypeRefArray, Text: p.span(start), Elem: te, Dims: dims}
			default:
				n, err := p.expr()
				if err != nil {
					return nil, err
				}
				if _, err := p.expect("]"); err != nil {
					return nil, err
				}
				te = &syntax.TypeExpr{Kind: syntax.TypeArray, Text: p.span(start), Elem: te, Length: n}
			}
		default:
			return te, nil
		}
	}
}

// params parses a parenthesized parameter list:
// ([params] [ref] type [name] [= default], ...).
func (p *parser) params() ([]syntax.Param, error) {
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	var out []syntax.Param
	for !p.peek().is(")") {
		var prm syntax.Param
		for p.peek().is("params") {
			prm.Modifiers = append(prm.Modifiers, p.advance().text)
			prm.ParamArray = true
		}
		t, err := p.typeExpr()
		if err != nil {
			return nil, err
		}
		prm.Type = t
		if p.peek().kind == tokIdent && !isKeyword(p.peek().text.String()) {
			prm.Name = p.advance().text
		}
		if p.accept("=") {
			if prm.Default, err = p.expr(); err != nil {
				return nil, err
			}
		}
		out = append(out, prm)
		if !p.accept(",") {
			break
		}
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}
	return out, nil
}
