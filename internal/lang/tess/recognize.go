package tess

import (
	"strconv"

	"tessera/internal/decls"
	"tessera/internal/diag"
	"tessera/internal/ids"
	"tessera/internal/lang"
	"tessera/internal/modifiers"
	"tessera/internal/source"
	"tessera/internal/syntax"
	"tessera/internal/types"
)

var keywords = map[string]bool{
	"namespace": true, "const": true, "alias": true, "enum": true, "flag": true,
	"class": true, "struct": true, "var": true, "func": true, "prop": true,
	"ctor": true, "dtor": true, "operator": true, "params": true,
	"true": true, "false": true,
}

func isKeyword(s string) bool {
	if keywords[s] {
		return true
	}
	_, mod := modifierKinds[s]
	_, acc := accessLevels[s]
	return mod || acc
}

func isCallConv(s string) bool {
	_, ok := ids.ParseCallConv(s)
	return ok && s != "default"
}

var accessLevels = map[string]ids.Access{
	"public":    ids.AccessPublic,
	"internal":  ids.AccessInternal,
	"protected": ids.AccessProtected,
	"private":   ids.AccessPrivate,
}

var modifierKinds = map[string]modifiers.Kind{
	"static":   modifiers.KindStatic,
	"virtual":  modifiers.KindVirtual,
	"override": modifiers.KindOverride,
	"abstract": modifiers.KindAbstract,
	"sealed":   modifiers.KindSealed,
	"extern":   modifiers.KindExtern,
	"readonly": modifiers.KindReadOnly,
	"new":      modifiers.KindHideBase,
	"nobase":   modifiers.KindNoDefaultBase,
	"align":    modifiers.KindAlign,
	"callconv": modifiers.KindCallConv,
	"asmname":  modifiers.KindAsmName,
	"guid":     modifiers.KindGuid,
}

// modifiers with a parenthesized argument
var argModifiers = map[modifiers.Kind]bool{
	modifiers.KindAlign:    true,
	modifiers.KindCallConv: true,
	modifiers.KindAsmName:  true,
	modifiers.KindGuid:     true,
}

// recognizer implements decls.Recognizer for tess.
type recognizer struct {
	macros lang.Expander
}

// Split cuts code at top-level semicolons and after top-level brace blocks.
func (r *recognizer) Split(code source.CodeString) []source.CodeString {
	toks, err := tokenize(code, operators())
	if err != nil {
		// the recognizer reports the scan error
		if code.Trim().IsEmpty() {
			return nil
		}
		return []source.CodeString{code}
	}
	p := &parser{src: code, toks: toks}
	var out []source.CodeString
	start, depth := 0, 0
	flush := func(end int) {
		if end > start {
			out = append(out, p.between(start, end))
		}
	}
	for i, t := range toks {
		switch {
		case t.kind == tokEOF:
			flush(i)
			return out
		case t.is("(") || t.is("[") || t.is("{"):
			depth++
		case t.is(")") || t.is("]") || t.is("}"):
			depth--
			if depth == 0 && t.is("}") {
				flush(i + 1)
				start = i + 1
			}
		case t.is(";") && depth == 0:
			flush(i)
			start = i + 1
		}
	}
	return out
}

// Recognize extracts the declarations of stmt.
func (r *recognizer) Recognize(stmt source.CodeString, in ids.ContainerKind) ([]*decls.Declaration, error) {
	p, err := newParser(stmt)
	if err != nil {
		return nil, err
	}
	if in.IsLocal() && !startsDeclaration(p) {
		return r.localStatement(p)
	}
	mods, err := p.modifiers()
	if err != nil {
		return nil, err
	}
	kw := p.peek()
	if kw.kind != tokIdent {
		return nil, p.unexpected()
	}
	var list []*decls.Declaration
	switch kw.text.String() {
	case "namespace":
		list, err = r.namespace(p)
	case "const":
		list, err = r.constant(p)
	case "alias":
		list, err = r.alias(p)
	case "enum", "flag":
		list, err = r.enum(p)
	case "class", "struct":
		list, err = r.structured(p)
	case "var":
		list, err = r.variable(p)
	case "func":
		list, err = r.function(p)
	case "ctor", "dtor":
		list, err = r.constructor(p)
	case "prop":
		list, err = r.property(p)
	default:
		return nil, syntax.NewError(kw.text, diag.InvalidDeclaration)
	}
	if err != nil {
		return nil, err
	}
	for _, d := range list {
		d.Stmt = stmt
		d.Modifiers = append(d.Modifiers, mods...)
	}
	return list, nil
}

// startsDeclaration reports whether a statement of a function body declares
// something rather than being plain code.
func startsDeclaration(p *parser) bool {
	t := p.peek()
	if t.kind != tokIdent {
		return false
	}
	switch t.text.String() {
	case "var", "const", "alias", "enum", "flag", "class", "struct", "readonly", "align":
		return true
	}
	return false
}

// localStatement turns code in a function body into a block when it ends
// with a brace group, such as an if or a loop, so declarations inside it
// are still found.
func (r *recognizer) localStatement(p *parser) ([]*decls.Declaration, error) {
	if p.peek().is("{") {
		body, err := p.skipBalanced()
		if err != nil {
			return nil, err
		}
		return []*decls.Declaration{{Kind: decls.DeclBlock, Stmt: p.src, Body: body, HasBody: true}}, nil
	}
	last := len(p.toks) - 2
	if last < 0 || !p.toks[last].is("}") {
		return nil, nil
	}
	depth := 0
	for i := last; i >= 0; i-- {
		switch {
		case p.toks[i].is("}"):
			depth++
		case p.toks[i].is("{"):
			depth--
			if depth == 0 {
				body := p.between(i+1, last)
				return []*decls.Declaration{{Kind: decls.DeclBlock, Stmt: p.src, Body: body, HasBody: true}}, nil
			}
		}
	}
	return nil, nil
}

func (p *parser) modifiers() ([]modifiers.Modifier, error) {
	var out []modifiers.Modifier
	for {
		t := p.peek()
		if t.kind != tokIdent {
			return out, nil
		}
		name := t.text.String()
		if acc, ok := accessLevels[name]; ok {
			p.advance()
			out = append(out, modifiers.Modifier{Kind: modifiers.KindAccess, Text: t.text, Access: acc})
			continue
		}
		kind, ok := modifierKinds[name]
		if !ok {
			return out, nil
		}
		start := p.pos
		p.advance()
		m := modifiers.Modifier{Kind: kind}
		if argModifiers[kind] {
			if !p.peek().is("(") {
				return nil, syntax.NewError(t.text, diag.InvalidDeclaration)
			}
			inner, err := p.skipBalanced()
			if err != nil {
				return nil, err
			}
			m.Value = inner.Trim().String()
			if s, err := strconv.Unquote(m.Value); err == nil {
				m.Value = s
			}
		}
		m.Text = p.span(start)
		out = append(out, m)
	}
}

func (r *recognizer) expand(e *syntax.Expr) (*syntax.Expr, error) {
	if e == nil || r.macros == nil {
		return e, nil
	}
	return r.macros.ExpandAll(e)
}

// body parses an optional brace block at the end of a declaration.
func (p *parser) body() (source.CodeString, bool, error) {
	if !p.peek().is("{") {
		return source.CodeString{}, false, p.done()
	}
	body, err := p.skipBalanced()
	if err != nil {
		return source.CodeString{}, false, err
	}
	return body, true, p.done()
}

func (r *recognizer) namespace(p *parser) ([]*decls.Declaration, error) {
	p.advance()
	start := p.pos
	first, err := p.ident()
	if err != nil {
		return nil, err
	}
	path := []source.CodeString{first}
	for p.accept(".") {
		seg, err := p.ident()
		if err != nil {
			return nil, err
		}
		path = append(path, seg)
	}
	d := &decls.Declaration{Kind: decls.DeclNamespace, Name: p.span(start), Path: path}
	if d.Body, d.HasBody, err = p.body(); err != nil {
		return nil, err
	}
	return []*decls.Declaration{d}, nil
}

// typedName parses "[Type] Name", where the type is left out when the name
// is directly followed by one of the given terminators.
func (p *parser) typedName(terminators ...string) (*syntax.TypeExpr, source.CodeString, error) {
	if p.peek().kind == tokIdent {
		next := p.peekN(1)
		if next.kind == tokEOF {
			name, err := p.ident()
			return nil, name, err
		}
		for _, term := range terminators {
			if next.is(term) {
				name, err := p.ident()
				return nil, name, err
			}
		}
	}
	te, err := p.typeExpr()
	if err != nil {
		return nil, source.CodeString{}, err
	}
	name, err := p.ident()
	return te, name, err
}

func (r *recognizer) constant(p *parser) ([]*decls.Declaration, error) {
	p.advance()
	te, name, err := p.typedName("=", ",")
	if err != nil {
		return nil, err
	}
	d := &decls.Declaration{Kind: decls.DeclConst, Name: name, Type: te}
	if p.accept("=") {
		if d.Value, err = p.expr(); err != nil {
			return nil, err
		}
		if d.Value, err = r.expand(d.Value); err != nil {
			return nil, err
		}
	}
	return []*decls.Declaration{d}, p.done()
}

func (r *recognizer) alias(p *parser) ([]*decls.Declaration, error) {
	p.advance()
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect("="); err != nil {
		return nil, err
	}
	te, err := p.typeExpr()
	if err != nil {
		return nil, err
	}
	return []*decls.Declaration{{Kind: decls.DeclAlias, Name: name, Type: te}}, p.done()
}

func (r *recognizer) enum(p *parser) ([]*decls.Declaration, error) {
	kind := ids.KindEnum
	if p.advance().text.Equal("flag") {
		kind = ids.KindFlag
	}
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	d := &decls.Declaration{Kind: decls.DeclType, TypeKind: kind, Name: name}
	if p.accept(":") {
		if d.Type, err = p.typeExpr(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect("{"); err != nil {
		return nil, err
	}
	for !p.peek().is("}") {
		m := decls.EnumMember{}
		if m.Name, err = p.ident(); err != nil {
			return nil, err
		}
		if p.accept("=") {
			if m.Value, err = p.expr(); err != nil {
				return nil, err
			}
			if m.Value, err = r.expand(m.Value); err != nil {
				return nil, err
			}
		}
		d.Members = append(d.Members, m)
		if !p.accept(",") {
			break
		}
	}
	if _, err := p.expect("}"); err != nil {
		return nil, err
	}
	return []*decls.Declaration{d}, p.done()
}

func (r *recognizer) structured(p *parser) ([]*decls.Declaration, error) {
	kind := ids.KindStruct
	if p.advance().text.Equal("class") {
		kind = ids.KindClass
	}
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	d := &decls.Declaration{Kind: decls.DeclType, TypeKind: kind, Name: name}
	if p.accept(":") {
		for {
			base, err := p.typeExpr()
			if err != nil {
				return nil, err
			}
			d.Bases = append(d.Bases, base)
			if !p.accept(",") {
				break
			}
		}
	}
	if d.Body, d.HasBody, err = p.body(); err != nil {
		return nil, err
	}
	return []*decls.Declaration{d}, nil
}

// variable parses "var [Type] a [= v], b [= v]".
func (r *recognizer) variable(p *parser) ([]*decls.Declaration, error) {
	p.advance()
	te, name, err := p.typedName("=", ",")
	if err != nil {
		return nil, err
	}
	var out []*decls.Declaration
	for {
		d := &decls.Declaration{Kind: decls.DeclVar, Name: name, Type: te}
		if p.accept("=") {
			if d.Value, err = p.expr(); err != nil {
				return nil, err
			}
			if d.Value, err = r.expand(d.Value); err != nil {
				return nil, err
			}
		}
		out = append(out, d)
		if !p.accept(",") {
			break
		}
		if name, err = p.ident(); err != nil {
			return nil, err
		}
	}
	return out, p.done()
}

// function parses "func Ret Name(params) [body]" and operator functions
// such as "func T operator+(T a, T b)".
func (r *recognizer) function(p *parser) ([]*decls.Declaration, error) {
	p.advance()
	ret, err := p.typeExpr()
	if err != nil {
		return nil, err
	}
	d := &decls.Declaration{Kind: decls.DeclFunction, TypeKind: ids.KindFunction, Type: ret}
	var opText source.CodeString
	if p.peek().is("operator") {
		start := p.pos
		p.advance()
		if p.peek().kind != tokOp {
			return nil, p.unexpected()
		}
		p.advance()
		opText = p.span(start)
	} else if d.Name, err = p.ident(); err != nil {
		return nil, err
	}
	if d.Params, err = p.params(); err != nil {
		return nil, err
	}
	if !opText.IsEmpty() {
		op, ok := operatorFor(opText.Substring(len("operator")).Trim().String(), len(d.Params))
		if !ok {
			return nil, syntax.NewError(opText, diag.InvalidName, opText.String())
		}
		d.Name = source.FreeString(op.FunctionName())
	}
	if err := r.expandParams(d.Params); err != nil {
		return nil, err
	}
	if d.Body, d.HasBody, err = p.body(); err != nil {
		return nil, err
	}
	return []*decls.Declaration{d}, nil
}

// operatorFor maps an operator symbol to its operator; the parameter count
// tells unary and binary minus apart.
func operatorFor(sym string, params int) (types.Operator, bool) {
	if params == 1 {
		if op, ok := unaryOps[sym]; ok {
			return op, true
		}
	}
	for _, level := range binaryLevels {
		if op, ok := level.ops[sym]; ok {
			return op, true
		}
	}
	return types.OpInvalid, false
}

func (r *recognizer) expandParams(params []syntax.Param) error {
	for i := range params {
		e, err := r.expand(params[i].Default)
		if err != nil {
			return err
		}
		params[i].Default = e
	}
	return nil
}

func (r *recognizer) constructor(p *parser) ([]*decls.Declaration, error) {
	kw := p.advance()
	kind := ids.KindConstructor
	if kw.text.Equal("dtor") {
		kind = ids.KindDestructor
	}
	d := &decls.Declaration{Kind: decls.DeclFunction, TypeKind: kind, Name: kw.text}
	var err error
	if d.Params, err = p.params(); err != nil {
		return nil, err
	}
	if err := r.expandParams(d.Params); err != nil {
		return nil, err
	}
	if d.Body, d.HasBody, err = p.body(); err != nil {
		return nil, err
	}
	return []*decls.Declaration{d}, nil
}

// property parses "prop Type Name[(params)] { [mods] get [body]; [mods] set [body] }".
func (r *recognizer) property(p *parser) ([]*decls.Declaration, error) {
	p.advance()
	te, err := p.typeExpr()
	if err != nil {
		return nil, err
	}
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	d := &decls.Declaration{Kind: decls.DeclProperty, Name: name, Type: te}
	if p.peek().is("(") {
		if d.Params, err = p.params(); err != nil {
			return nil, err
		}
		if err := r.expandParams(d.Params); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect("{"); err != nil {
		return nil, err
	}
	for !p.peek().is("}") {
		if p.accept(";") {
			continue
		}
		mods, err := p.modifiers()
		if err != nil {
			return nil, err
		}
		kw := p.peek()
		acc := &decls.Accessor{Modifiers: mods}
		switch {
		case kw.is("get") && d.Getter == nil:
			d.Getter = acc
		case kw.is("set") && d.Setter == nil:
			d.Setter = acc
		default:
			return nil, p.unexpected()
		}
		p.advance()
		if p.peek().is("{") {
			if acc.Body, err = p.skipBalanced(); err != nil {
				return nil, err
			}
			acc.HasBody = true
		}
	}
	if _, err := p.expect("}"); err != nil {
		return nil, err
	}
	return []*decls.Declaration{d}, p.done()
}
