package decls

import (
	"context"
	"errors"

	"tessera/internal/diag"
	"tessera/internal/ids"
	"tessera/internal/modifiers"
	"tessera/internal/source"
	"tessera/internal/syntax"
)

// Pipeline declares everything found in the code of a container tree.
// Namespaces, types, aliases and constants are registered while the code
// is collected; the lists then resolve constants, aliases and enums
// jointly, then base types, then functions and properties, then variables.
type Pipeline struct {
	Graph *ids.Graph
	Rec   Recognizer
	// Macros supplies values of constant macros to constant expressions.
	Macros syntax.Env
	// DefaultAccess applies outside structures, MemberAccess inside them.
	DefaultAccess ids.Access
	MemberAccess  ids.Access

	Consts    List
	Bases     List
	Functions List
	Variables List

	globalIndex int
}

// NewPipeline creates a pipeline over g.
func NewPipeline(g *ids.Graph, rec Recognizer) *Pipeline {
	p := &Pipeline{
		Graph:         g,
		Rec:           rec,
		DefaultAccess: ids.AccessPublic,
		MemberAccess:  ids.AccessPrivate,
	}
	p.Consts = List{Name: "constants", Declare: p.declareConstLike}
	p.Bases = List{Name: "bases", Declare: p.declareBases}
	p.Functions = List{Name: "functions", Declare: p.declareFunctionLike}
	p.Variables = List{Name: "variables", Declare: p.declareVariable}
	return p
}

// Run collects the code of root and resolves every list in order. It
// stops between phases when ctx is done.
func (p *Pipeline) Run(ctx context.Context, root ids.ContainerID) error {
	p.Collect(root)
	phases := []*List{&p.Consts, &p.Bases, &p.Functions, &p.Variables}
	for i := range phases {
		if err := ctx.Err(); err != nil {
			return err
		}
		// function bodies may still add constants and local types
		active := phases[:i+1]
		ResolveAll(active...)
		for _, l := range active {
			for _, e := range l.Pending() {
				reportLeftover(p.Graph, e)
			}
			l.entries = nil
		}
	}
	return nil
}

// Collect splits the pending code of c into statements, recognizes them
// and registers or queues the declarations.
func (p *Pipeline) Collect(c ids.ContainerID) {
	g := p.Graph
	cont := g.C(c)
	code := cont.Code
	cont.Code = nil
	for _, chunk := range code {
		for _, stmt := range p.Rec.Split(chunk) {
			list, err := p.Rec.Recognize(stmt, cont.Kind)
			if err != nil {
				p.reportSyntax(stmt, err)
				continue
			}
			for _, d := range list {
				p.register(c, d)
			}
		}
	}
}

func (p *Pipeline) reportSyntax(stmt source.CodeString, err error) {
	var serr *syntax.Error
	if errors.As(err, &serr) {
		serr.Report(p.Graph.Reporter)
		return
	}
	diag.Report(p.Graph.Reporter, diag.InvalidDeclaration, stmt.Span())
}

func (p *Pipeline) accessFor(c ids.ContainerID) ids.Access {
	switch p.Graph.C(c).Kind {
	case ids.ContainerStructured, ids.ContainerProperty:
		return p.MemberAccess
	}
	return p.DefaultAccess
}

func (p *Pipeline) applyModifiers(c ids.ContainerID, list []modifiers.Modifier, id ids.ID) (modifiers.Result, bool) {
	return modifiers.Apply(modifiers.Context{Graph: p.Graph, Container: c, DefaultAccess: p.accessFor(c)}, list, id)
}

func (p *Pipeline) register(c ids.ContainerID, d *Declaration) {
	g := p.Graph
	switch d.Kind {
	case DeclNamespace:
		p.registerNamespace(c, d)
	case DeclType:
		p.registerType(c, d)
	case DeclAlias, DeclConst:
		kind := ids.KindAlias
		if d.Kind == DeclConst {
			kind = ids.KindConstVar
		}
		id := g.New(kind, c, d.Name)
		p.applyModifiers(c, d.Modifiers, id)
		if d.Kind == DeclConst && d.Value == nil {
			diag.Report(g.Reporter, diag.MissingInitializer, d.Name.Span(), d.Name.String())
		}
		if !g.DeclareIdentifier(c, id) {
			return
		}
		if d.Kind == DeclConst && d.Value == nil {
			return
		}
		p.Consts.Add(&Entry{Decl: d, Container: c, ID: id})
	case DeclVar:
		p.Variables.Add(&Entry{Decl: d, Container: c})
	case DeclFunction, DeclProperty:
		p.Functions.Add(&Entry{Decl: d, Container: c})
	case DeclBlock:
		if !g.C(c).Kind.IsLocal() {
			diag.Report(g.Reporter, diag.NotExpected, d.Stmt.Span(), d.Stmt.String())
			return
		}
		block := g.NewContainer(ids.ContainerBlock, c, ids.NoID)
		g.AddCode(block, d.Body)
		p.Collect(block)
	default:
		diag.Unreachable("declaration kind", d.Kind)
	}
}

// registerNamespace opens or reopens every segment of a dotted namespace
// name and collects its body.
func (p *Pipeline) registerNamespace(c ids.ContainerID, d *Declaration) {
	g := p.Graph
	path := d.Path
	if len(path) == 0 {
		path = []source.CodeString{d.Name}
	}
	scope := c
	for _, seg := range path {
		next := ids.NoContainer
		for _, existing := range g.C(scope).Lookup(seg.String()) {
			if g.Kind(existing) == ids.KindNamespace {
				next = g.Id(existing).Scope
				break
			}
		}
		if !next.IsValid() {
			ns := g.New(ids.KindNamespace, scope, seg)
			g.Id(ns).Access = ids.AccessPublic
			inner := g.NewContainer(ids.ContainerNamespace, scope, ns)
			if !g.DeclareIdentifier(scope, ns) {
				return
			}
			next = inner
		}
		scope = next
	}
	if d.HasBody {
		g.AddCode(scope, d.Body)
		p.Collect(scope)
	}
}

// registerType declares a class, struct, enum or flag, opens its scope and
// collects its members.
func (p *Pipeline) registerType(c ids.ContainerID, d *Declaration) {
	g := p.Graph
	id := g.New(d.TypeKind, c, d.Name)
	p.applyModifiers(c, d.Modifiers, id)
	if d.TypeKind.IsEnum() {
		scope := g.NewContainer(ids.ContainerEnum, c, id)
		if !g.DeclareIdentifier(c, id) {
			return
		}
		enumEntry := &Entry{Decl: d, Container: c, ID: id}
		p.Consts.Add(enumEntry)
		prev := ids.NoID
		for _, m := range d.Members {
			member := g.New(ids.KindConstVar, scope, m.Name)
			g.Id(member).Access = ids.AccessPublic
			if !g.DeclareIdentifier(scope, member) {
				continue
			}
			md := &Declaration{Kind: DeclConst, Stmt: d.Stmt, Name: m.Name, Value: m.Value}
			p.Consts.Add(&Entry{Decl: md, Container: scope, ID: member, Owner: id, Prev: prev})
			prev = member
		}
		return
	}
	scope := g.NewContainer(ids.ContainerStructured, c, id)
	if !g.DeclareIdentifier(c, id) {
		return
	}
	p.Bases.Add(&Entry{Decl: d, Container: c, ID: id})
	if d.HasBody {
		g.AddCode(scope, d.Body)
		p.Collect(scope)
	}
}
