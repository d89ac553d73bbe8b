// Package preproc runs the directive pass over a source file before any
// declaration is recognized. It evaluates conditional blocks, keeps the
// macro table and blanks out inactive code and the directive lines, so
// later phases only see the active program text at its original offsets.
package preproc

import (
	"bytes"
	"errors"
	"go/constant"

	"tessera/internal/diag"
	"tessera/internal/source"
	"tessera/internal/syntax"
)

// ExprParser parses the expressions of #if conditions and macro bodies.
type ExprParser interface {
	ParseExpr(code source.CodeString) (*syntax.Expr, error)
}

// frame is one open conditional block.
type frame struct {
	decl    source.CodeString
	value   bool
	wasTrue bool
	seenEls bool
}

// Preprocessor processes files one at a time. It is not safe for
// concurrent use; clone it per goroutine.
type Preprocessor struct {
	Macros   *Table
	Parser   ExprParser
	Reporter diag.Reporter

	stack    []frame
	pristine *source.File
}

// New returns a preprocessor with an empty macro table.
func New(parser ExprParser, r diag.Reporter) *Preprocessor {
	if r == nil {
		r = diag.NopReporter{}
	}
	return &Preprocessor{Macros: NewTable(), Parser: parser, Reporter: r}
}

// Clone returns a preprocessor starting from a copy of p's macros.
func (p *Preprocessor) Clone() *Preprocessor {
	return &Preprocessor{Macros: p.Macros.Clone(), Parser: p.Parser, Reporter: p.Reporter}
}

// Define adds a predefined macro, as given on the command line.
func (p *Preprocessor) Define(name, body string) {
	m := &Macro{Name: name, Decl: source.FreeString(name), Body: source.FreeString(body)}
	if body != "" && p.Parser != nil {
		if e, err := p.Parser.ParseExpr(m.Body); err == nil {
			m.Expr = e
		}
	}
	p.Macros.Define(m)
}

func (p *Preprocessor) active() bool {
	for _, f := range p.stack {
		if !f.value {
			return false
		}
	}
	return true
}

func (p *Preprocessor) report(code diag.Code, at source.CodeString, args ...any) {
	diag.Report(p.Reporter, code, at.Span(), args...)
}

// Process runs the directives of f and erases inactive lines and directive
// lines in place.
func (p *Preprocessor) Process(f *source.File) {
	p.stack = p.stack[:0]
	// macro bodies must outlive the erasure of their directive line
	p.pristine = &source.File{
		ID:      f.ID,
		Path:    f.Path,
		Content: bytes.Clone(f.Content),
		LineIdx: f.LineIdx,
		Flags:   f.Flags,
	}
	for _, line := range f.All().Lines() {
		trimmed := line.TrimStart()
		if trimmed.StartsWith("#") {
			p.directive(trimmed)
			line.Erase()
			continue
		}
		if !p.active() {
			line.Erase()
		}
	}
	for _, fr := range p.stack {
		p.report(diag.UnterminatedIf, fr.decl)
	}
	p.stack = p.stack[:0]
}

// keep maps a view of the processed file onto the pristine copy.
func (p *Preprocessor) keep(c source.CodeString) source.CodeString {
	if c.File == nil || p.pristine == nil {
		return c
	}
	return source.NewCodeString(p.pristine, c.Index, c.Length)
}

func (p *Preprocessor) directive(line source.CodeString) {
	name, rest := line.Substring(1).Word()
	rest = rest.Trim()
	word := line.SubstringTo(name.End() - line.Index)
	switch name.String() {
	case "if":
		p.push(word, func() bool { return p.condition(word, rest) })
	case "ifdef", "ifndef":
		want := name.String() == "ifdef"
		p.push(word, func() bool {
			macro, _ := rest.Word()
			return (p.Macros.Lookup(macro.String()) != nil) == want
		})
	case "elif":
		top := p.top(word)
		if top == nil {
			return
		}
		if top.wasTrue {
			top.value = false
			return
		}
		if !p.outerActive() {
			return
		}
		top.value = p.condition(word, rest)
		top.wasTrue = top.value
	case "else":
		top := p.top(word)
		if top == nil {
			return
		}
		top.seenEls = true
		top.value = !top.wasTrue
		top.wasTrue = true
	case "endif":
		if len(p.stack) == 0 {
			p.report(diag.UnmatchedEndif, word)
			return
		}
		p.stack = p.stack[:len(p.stack)-1]
	default:
		if !p.active() {
			return
		}
		p.command(name, word, rest)
	}
}

// command runs the directives that only apply in active code.
func (p *Preprocessor) command(name, word, rest source.CodeString) {
	switch name.String() {
	case "define", "redef":
		p.define(name.String() == "redef", word, rest)
	case "undef":
		macro, _ := rest.Word()
		if !p.Macros.Undef(macro.String()) {
			p.report(diag.UnknownMacro, macro, macro.String())
		}
	case "error":
		p.report(diag.PreprocError, rest, rest.String())
	case "warning":
		p.report(diag.PreprocWarning, rest, rest.String())
	case "info":
		p.report(diag.PreprocInfo, rest, rest.String())
	default:
		p.report(diag.InvalidDirective, word, name.String())
	}
}

// push opens a conditional block. The condition is only evaluated when the
// enclosing code is active.
func (p *Preprocessor) push(decl source.CodeString, cond func() bool) {
	if !p.active() {
		p.stack = append(p.stack, frame{decl: decl, wasTrue: true})
		return
	}
	v := cond()
	p.stack = append(p.stack, frame{decl: decl, value: v, wasTrue: v})
}

func (p *Preprocessor) top(word source.CodeString) *frame {
	if len(p.stack) == 0 {
		p.report(diag.UnmatchedElse, word, word.String())
		return nil
	}
	top := &p.stack[len(p.stack)-1]
	if top.seenEls {
		p.report(diag.ElseAfterElse, word, word.String())
		return nil
	}
	return top
}

func (p *Preprocessor) outerActive() bool {
	for _, f := range p.stack[:len(p.stack)-1] {
		if !f.value {
			return false
		}
	}
	return true
}

func (p *Preprocessor) define(redef bool, word, rest source.CodeString) {
	name, after := rest.Word()
	if !name.IsIdentifier() {
		p.report(diag.InvalidName, word, rest.String())
		return
	}
	m := &Macro{Name: name.String(), Decl: name}
	// parameters only when "(" follows the name directly
	if name.End() < rest.End() && rest.At(name.End()-rest.Index) == '(' {
		open := name.End() - rest.Index
		closing := rest.MatchingBracket(open)
		if closing < 0 {
			p.report(diag.UnclosedBracket, rest.Substring(open))
			return
		}
		for _, prm := range rest.SubstringN(open+1, closing-open-1).Split(',') {
			if !prm.IsIdentifier() {
				p.report(diag.InvalidName, prm, prm.String())
				return
			}
			m.Params = append(m.Params, prm.String())
		}
		after = rest.Substring(closing + 1).Trim()
	}
	m.Body = p.keep(after.Trim())
	if !m.Body.IsEmpty() && p.Parser != nil {
		e, err := p.Parser.ParseExpr(m.Body)
		if err != nil {
			p.reportErr(m.Body, err)
		} else {
			m.Expr = e
		}
	}
	existing := p.Macros.Lookup(m.Name)
	switch {
	case existing != nil && !redef:
		diag.NewReportBuilder(p.Reporter, diag.MacroAlreadyDefined, name.Span(), m.Name).
			WithNote(existing.Decl.Span(), "previous definition").
			Emit()
		return
	case existing == nil && redef:
		p.report(diag.MacroRedefined, name, m.Name)
	}
	p.Macros.Define(m)
}

// condition evaluates an #if or #elif expression. Non-zero numbers are true.
func (p *Preprocessor) condition(word, text source.CodeString) bool {
	if text.IsEmpty() || p.Parser == nil {
		p.report(diag.InvalidExpression, word, text.String())
		return false
	}
	e, err := p.Parser.ParseExpr(text)
	if err != nil {
		p.reportErr(text, err)
		return false
	}
	if e, err = p.Macros.expandCondition(e); err != nil {
		p.reportErr(text, err)
		return false
	}
	v, err := syntax.Eval(e, nil)
	if err != nil {
		p.reportErr(text, err)
		return false
	}
	switch v.Kind() {
	case constant.Bool:
		return constant.BoolVal(v)
	case constant.Int, constant.Float:
		return constant.Sign(v) != 0
	}
	p.report(diag.InvalidExpression, text, text.String())
	return false
}

func (p *Preprocessor) reportErr(at source.CodeString, err error) {
	var serr *syntax.Error
	var unknown *syntax.UnknownError
	switch {
	case errors.As(err, &serr):
		serr.Report(p.Reporter)
	case errors.As(err, &unknown):
		diag.Report(p.Reporter, diag.UnknownMacro, at.Span(), unknown.Name())
	default:
		p.report(diag.InvalidExpression, at, at.String())
	}
}
