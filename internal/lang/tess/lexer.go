package tess

import (
	"tessera/internal/diag"
	"tessera/internal/source"
	"tessera/internal/syntax"
)

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokIdent
	tokInt
	tokFloat
	tokString
	tokChar
	tokOp
)

var tokenKindNames = [...]string{
	tokEOF:    "end of statement",
	tokIdent:  "identifier",
	tokInt:    "integer",
	tokFloat:  "float",
	tokString: "string",
	tokChar:   "char",
	tokOp:     "operator",
}

func (k tokenKind) String() string {
	if int(k) < len(tokenKindNames) {
		return tokenKindNames[k]
	}
	return "invalid"
}

type token struct {
	kind tokenKind
	text source.CodeString
	// off is the offset of the token inside the scanned code.
	off int
}

func (t token) end() int { return t.off + t.text.Length }

func (t token) is(s string) bool {
	return (t.kind == tokOp || t.kind == tokIdent) && t.text.Equal(s)
}

// lexer scans a code string into tokens. Comments are skipped.
type lexer struct {
	code source.CodeString
	off  int
	ops  []string
}

func isDec(b byte) bool { return b >= '0' && b <= '9' }

func isHex(b byte) bool { return isDec(b) || b >= 'a' && b <= 'f' || b >= 'A' && b <= 'F' }

func isIdentStart(b byte) bool {
	return b == '_' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= 0x80
}

func (lx *lexer) peek(i int) byte {
	if lx.off+i >= lx.code.Length {
		return 0
	}
	return lx.code.At(lx.off + i)
}

func (lx *lexer) skipTrivia() error {
	for lx.off < lx.code.Length {
		b := lx.peek(0)
		switch {
		case b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\v' || b == '\f':
			lx.off++
		case b == '/' && lx.peek(1) == '/':
			for lx.off < lx.code.Length && lx.peek(0) != '\n' {
				lx.off++
			}
		case b == '/' && lx.peek(1) == '*':
			start := lx.off
			lx.off += 2
			for lx.off < lx.code.Length && !(lx.peek(0) == '*' && lx.peek(1) == '/') {
				lx.off++
			}
			if lx.off >= lx.code.Length {
				return syntax.NewError(lx.code.Substring(start), diag.UnclosedBracket)
			}
			lx.off += 2
		default:
			return nil
		}
	}
	return nil
}

func (lx *lexer) next() (token, error) {
	if err := lx.skipTrivia(); err != nil {
		return token{}, err
	}
	start := lx.off
	if start >= lx.code.Length {
		return token{kind: tokEOF, text: lx.code.SubstringN(start, 0), off: start}, nil
	}
	b := lx.peek(0)
	var kind tokenKind
	switch {
	case isIdentStart(b):
		for lx.off < lx.code.Length && source.IsIdentChar(lx.peek(0)) {
			lx.off++
		}
		kind = tokIdent
	case isDec(b) || b == '.' && isDec(lx.peek(1)):
		kind = lx.scanNumber()
	case b == '"' || b == '\'':
		if err := lx.scanQuoted(b); err != nil {
			return token{}, err
		}
		kind = tokString
		if b == '\'' {
			kind = tokChar
		}
	default:
		for _, op := range lx.ops {
			if lx.code.Substring(lx.off).StartsWith(op) {
				lx.off += len(op)
				return token{kind: tokOp, text: lx.code.SubstringN(start, len(op)), off: start}, nil
			}
		}
		lx.off++
		return token{}, syntax.NewError(lx.code.SubstringN(start, 1), diag.NotExpected, string(b))
	}
	return token{kind: kind, text: lx.code.SubstringN(start, lx.off-start), off: start}, nil
}

// scanNumber accepts 123, 0x1F, 0b101, 0o17, 1.5 and 1e-3. Underscores may
// separate digits.
func (lx *lexer) scanNumber() tokenKind {
	if lx.peek(0) == '0' {
		switch lx.peek(1) {
		case 'x', 'X', 'b', 'B', 'o', 'O':
			lx.off += 2
			for isHex(lx.peek(0)) || lx.peek(0) == '_' {
				lx.off++
			}
			return tokInt
		}
	}
	kind := tokInt
	for isDec(lx.peek(0)) || lx.peek(0) == '_' {
		lx.off++
	}
	if lx.peek(0) == '.' && isDec(lx.peek(1)) {
		kind = tokFloat
		lx.off++
		for isDec(lx.peek(0)) || lx.peek(0) == '_' {
			lx.off++
		}
	}
	if e := lx.peek(0); e == 'e' || e == 'E' {
		sign := 1
		if s := lx.peek(1); s == '+' || s == '-' {
			sign = 2
		}
		if isDec(lx.peek(sign)) {
			kind = tokFloat
			lx.off += sign
			for isDec(lx.peek(0)) {
				lx.off++
			}
		}
	}
	return kind
}

func (lx *lexer) scanQuoted(quote byte) error {
	start := lx.off
	lx.off++
	for lx.off < lx.code.Length {
		switch lx.peek(0) {
		case '\\':
			lx.off += 2
			continue
		case '\n':
			return syntax.NewError(lx.code.SubstringN(start, lx.off-start), diag.UnclosedBracket)
		case quote:
			lx.off++
			return nil
		}
		lx.off++
	}
	return syntax.NewError(lx.code.Substring(start), diag.UnclosedBracket)
}

// tokenize scans all of code.
func tokenize(code source.CodeString, ops []string) ([]token, error) {
	lx := &lexer{code: code, ops: ops}
	var toks []token
	for {
		t, err := lx.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, t)
		if t.kind == tokEOF {
			return toks, nil
		}
	}
}
