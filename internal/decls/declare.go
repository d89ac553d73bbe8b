package decls

import (
	"go/constant"
	"go/token"

	"tessera/internal/datastore"
	"tessera/internal/diag"
	"tessera/internal/ids"
	"tessera/internal/modifiers"
	"tessera/internal/source"
	"tessera/internal/syntax"
)

func (p *Pipeline) declareConstLike(e *Entry) Result {
	switch {
	case e.Owner.IsValid():
		return p.declareEnumMember(e)
	case e.Decl.Kind == DeclAlias:
		return p.declareAlias(e)
	case e.Decl.Kind == DeclType:
		return p.declareEnum(e)
	default:
		return p.declareConst(e)
	}
}

func (p *Pipeline) declareConst(e *Entry) Result {
	g := p.Graph
	d := e.Decl
	v, err := p.eval(e.Container, d.Value)
	if err != nil {
		return status(e, err)
	}
	typ := ids.NoID
	if d.Type != nil {
		if typ, err = p.resolveType(e.Container, d.Type); err != nil {
			return status(e, err)
		}
	}
	if !typ.IsValid() || g.Kind(typ) == ids.KindAuto {
		typ = p.inferConstType(v)
		if !typ.IsValid() {
			diag.Report(g.Reporter, diag.NotConstValue, d.Value.Text.Span(), d.Value.Text.String())
			return Failed
		}
	}
	if v, err = p.convertConst(d.Value.Text, v, typ); err != nil {
		return Failed
	}
	ident := g.Id(e.ID)
	ident.Children = []ids.ID{typ}
	ident.Var.Const = v
	return Succeeded
}

func (p *Pipeline) declareAlias(e *Entry) Result {
	g := p.Graph
	d := e.Decl
	var target ids.ID
	if d.Type != nil && d.Type.Kind == syntax.TypeNamed {
		// aliases may name namespaces as well as types
		id, err := p.findPath(e.Container, d.Type.Path, nil)
		if err != nil {
			return status(e, err)
		}
		if target = g.Real(id); !target.IsValid() {
			e.wait(&syntax.PendingError{Path: d.Type.Path})
			return Unknown
		}
	} else {
		t, err := p.resolveType(e.Container, d.Type)
		if err != nil {
			return status(e, err)
		}
		target = t
	}
	if target == e.ID {
		diag.Report(g.Reporter, diag.InvalidDeclaration, d.Name.Span())
		return Failed
	}
	ident := g.Id(e.ID)
	ident.Children = []ids.ID{target}
	ident.Real = target
	return Succeeded
}

func (p *Pipeline) declareEnum(e *Entry) Result {
	g := p.Graph
	under := g.Builtins.Int32
	if e.Decl.Type != nil {
		t, err := p.resolveType(e.Container, e.Decl.Type)
		if err != nil {
			return status(e, err)
		}
		if !g.Kind(t).IsInteger() {
			diag.Report(g.Reporter, diag.CannotInheritFrom, e.Decl.Type.Text.Span(), g.Name(t))
			under = g.Builtins.Int32
		} else {
			under = t
		}
	}
	ident := g.Id(e.ID)
	ident.Children = []ids.ID{under}
	return Succeeded
}

func (p *Pipeline) declareEnumMember(e *Entry) Result {
	g := p.Graph
	enum := g.Id(e.Owner)
	if len(enum.Children) == 0 {
		e.wait(&syntax.PendingError{Path: []source.CodeString{enum.Name}})
		return Unknown
	}
	flag := enum.Kind == ids.KindFlag
	var v constant.Value
	switch {
	case e.Decl.Value != nil:
		val, err := p.eval(enum.Scope, e.Decl.Value)
		if err != nil {
			return status(e, err)
		}
		v = constant.ToInt(val)
		if v.Kind() != constant.Int {
			diag.Report(g.Reporter, diag.NotConstValue, e.Decl.Value.Text.Span(), e.Decl.Value.Text.String())
			return Failed
		}
	case !e.Prev.IsValid():
		v = constant.MakeInt64(0)
		if flag {
			v = constant.MakeInt64(1)
		}
	default:
		prev := g.Id(e.Prev)
		if prev.Var.Const == nil {
			e.wait(&syntax.PendingError{Path: []source.CodeString{prev.Name}})
			return Unknown
		}
		v = nextEnumValue(prev.Var.Const, flag)
	}
	under := g.Id(enum.Child(0))
	if !fitsInt(v, under.Type.Size, under.Kind == ids.KindSigned) {
		diag.Report(g.Reporter, diag.EnumValueOutOfRange, e.Decl.Name.Span(), e.Decl.Name.String())
		return Failed
	}
	ident := g.Id(e.ID)
	ident.Children = []ids.ID{e.Owner}
	ident.Var.Const = v
	return Succeeded
}

// nextEnumValue continues an enum by one and a flag with the next unused
// power of two.
func nextEnumValue(prev constant.Value, flag bool) constant.Value {
	if !flag {
		return constant.BinaryOp(prev, token.ADD, constant.MakeInt64(1))
	}
	n, ok := constant.Int64Val(prev)
	if !ok || n <= 0 {
		return constant.MakeInt64(1)
	}
	return constant.MakeInt64(int64(datastore.NextPow2(int(n) + 1)))
}

// declareBases resolves the base types of a class or struct and adds the
// implicit root base.
func (p *Pipeline) declareBases(e *Entry) Result {
	g := p.Graph
	ident := g.Id(e.ID)
	var bases []ids.StructureBase
	for _, te := range e.Decl.Bases {
		base, err := p.resolveType(e.Container, te)
		if err != nil {
			if r := status(e, err); r == Unknown {
				return r
			}
			continue
		}
		b := g.Id(base)
		switch {
		case b.Kind != ident.Kind:
			diag.Report(g.Reporter, diag.CannotInheritFrom, te.Text.Span(), g.Name(base))
			continue
		case b.Has(ids.FlagSealed):
			diag.Report(g.Reporter, diag.CannotInheritSealed, te.Text.Span(), g.Name(base))
			continue
		case base == e.ID || g.IsSubtypeOf(base, e.ID):
			diag.Report(g.Reporter, diag.CyclicInheritance, te.Text.Span(), g.Name(e.ID))
			continue
		}
		bases = append(bases, ids.StructureBase{Base: base})
	}
	if len(bases) == 0 {
		switch {
		case ident.Kind == ids.KindStruct:
			bases = append(bases, ids.StructureBase{Base: g.Builtins.ValueTypeBase, Unreal: true})
		case !ident.Has(ids.FlagNoDefaultBase):
			bases = append(bases, ids.StructureBase{Base: g.Builtins.Object, Unreal: true})
		}
	}
	ident.Struct.Bases = bases
	ident.Struct.BasesResolved = true
	return Succeeded
}

func (p *Pipeline) declareFunctionLike(e *Entry) Result {
	if e.Decl.Kind == DeclProperty {
		return p.declareProperty(e)
	}
	return p.declareFunction(e)
}

func hasModifier(list []modifiers.Modifier, k modifiers.Kind) bool {
	for _, m := range list {
		if m.Kind == k {
			return true
		}
	}
	return false
}

// functionKind picks the identifier kind of a function declared in c.
func (p *Pipeline) functionKind(c ids.ContainerID, declared ids.Kind, mods []modifiers.Modifier) ids.Kind {
	if declared != ids.KindFunction {
		return declared
	}
	switch p.Graph.C(c).Kind {
	case ids.ContainerStructured, ids.ContainerProperty:
		if !hasModifier(mods, modifiers.KindStatic) {
			return ids.KindMemberFunction
		}
	}
	return ids.KindFunction
}

func (p *Pipeline) declareFunction(e *Entry) Result {
	g := p.Graph
	d := e.Decl
	fnType, err := p.functionType(e.Container, d.Type, d.Params, "")
	if err != nil {
		return status(e, err)
	}
	kind := p.functionKind(e.Container, d.TypeKind, d.Modifiers)
	id := g.New(kind, e.Container, d.Name)
	ident := g.Id(id)
	if kind == ids.KindFunction && g.C(e.Container).Kind != ids.ContainerStructured {
		ident.Flags |= ids.FlagStatic
	}
	if len(d.Name.String()) > len(ids.OperatorPrefix) && d.Name.StartsWith(ids.OperatorPrefix) {
		ident.Flags |= ids.FlagSpecialName
	}
	res, _ := p.applyModifiers(e.Container, d.Modifiers, id)
	g.Id(fnType).Type.CallConv = res.CallConv
	ident.Children = []ids.ID{fnType}
	if !g.DeclareIdentifier(e.Container, id) {
		return Failed
	}
	e.ID = id
	if ident.Has(ids.FlagExtern) {
		ident.Func.GlobalPointerIndex = g.NextGlobalPointerIndex()
	}
	if d.HasBody {
		p.openBody(id, e.Container, d.Body)
	}
	return Succeeded
}

// openBody creates the function scope of id, declares its parameters and
// collects the body statements.
func (p *Pipeline) openBody(id ids.ID, c ids.ContainerID, body source.CodeString) {
	g := p.Graph
	scope := g.NewContainer(ids.ContainerFunction, c, id)
	for _, prm := range g.Params(id) {
		param := g.Id(prm)
		if param.Name.IsEmpty() {
			continue
		}
		local := g.New(ids.KindParamVar, scope, param.Name)
		g.Id(local).Children = []ids.ID{param.TypeOfSelf()}
		g.DeclareIdentifier(scope, local)
	}
	g.AddCode(scope, body)
	p.Collect(scope)
}

func (p *Pipeline) declareProperty(e *Entry) Result {
	g := p.Graph
	d := e.Decl
	typ, err := p.resolveType(e.Container, d.Type)
	if err != nil {
		return status(e, err)
	}
	// indexer parameters are shared by the property and its accessors
	specs, err := p.paramSpecs(e.Container, d.Params)
	if err != nil {
		return status(e, err)
	}
	getterType := g.FunctionTypeOf(typ, specs, ids.CallDefault)
	prop := g.New(ids.KindProperty, e.Container, d.Name)
	p.applyModifiers(e.Container, d.Modifiers, prop)
	ident := g.Id(prop)
	ident.Children = []ids.ID{typ}
	ident.Prop.Params = g.Params(getterType)
	if !g.DeclareIdentifier(e.Container, prop) {
		return Failed
	}
	e.ID = prop
	scope := g.NewContainer(ids.ContainerProperty, e.Container, prop)
	inherited := ident.Flags & (ids.FlagStatic | ids.FlagVirtual | ids.FlagOverride | ids.FlagAbstract | ids.FlagSealed)
	accessor := func(name string, acc *Accessor, fnType ids.ID) ids.ID {
		kind := ids.KindMemberFunction
		if ident.Has(ids.FlagStatic) || g.C(e.Container).Kind != ids.ContainerStructured {
			kind = ids.KindFunction
		}
		fn := g.New(kind, scope, source.FreeString(name))
		f := g.Id(fn)
		f.Access = ident.Access
		f.Flags |= inherited | ids.FlagSpecialName
		if kind == ids.KindFunction {
			f.Flags |= ids.FlagStatic
		}
		f.Children = []ids.ID{fnType}
		f.Func.Property = prop
		p.applyModifiers(scope, acc.Modifiers, fn)
		if !g.DeclareIdentifier(scope, fn) {
			return ids.NoID
		}
		if acc.HasBody {
			p.openBody(fn, scope, acc.Body)
		}
		return fn
	}
	if d.Getter != nil {
		ident.Prop.Getter = accessor("get", d.Getter, getterType)
	}
	if d.Setter != nil {
		value := ids.ParamSpec{Name: source.FreeString("value"), Type: typ}
		setterType := g.FunctionTypeOf(g.Builtins.Void, append(specs[:len(specs):len(specs)], value), ids.CallDefault)
		ident.Prop.Setter = accessor("set", d.Setter, setterType)
	}
	return Succeeded
}

// variableKind picks the identifier kind of a variable declared in c, or
// reports that variables cannot live there.
func (p *Pipeline) variableKind(c ids.ContainerID) (ids.Kind, bool) {
	switch p.Graph.C(c).Kind {
	case ids.ContainerGlobal, ids.ContainerNamespace:
		return ids.KindGlobalVar, true
	case ids.ContainerStructured:
		return ids.KindMemberVar, true
	case ids.ContainerFunction, ids.ContainerBlock:
		return ids.KindLocalVar, true
	}
	return ids.KindInvalid, false
}

func (p *Pipeline) declareVariable(e *Entry) Result {
	g := p.Graph
	d := e.Decl
	kind, ok := p.variableKind(e.Container)
	if !ok {
		diag.Report(g.Reporter, diag.NotExpected, d.Name.Span(), d.Name.String())
		return Failed
	}
	typ, err := p.resolveType(e.Container, d.Type)
	if err != nil {
		return status(e, err)
	}
	var value constant.Value
	if g.Kind(typ) == ids.KindAuto {
		if d.Value == nil {
			diag.Report(g.Reporter, diag.MissingInitializer, d.Name.Span(), d.Name.String())
			return Failed
		}
		if value, err = p.eval(e.Container, d.Value); err != nil {
			return status(e, err)
		}
		if typ = p.inferConstType(value); !typ.IsValid() {
			diag.Report(g.Reporter, diag.NotConstValue, d.Value.Text.Span(), d.Value.Text.String())
			return Failed
		}
	}
	id := g.New(kind, e.Container, d.Name)
	p.applyModifiers(e.Container, d.Modifiers, id)
	ident := g.Id(id)
	ident.Children = []ids.ID{typ}
	if kind == ids.KindGlobalVar || ident.Has(ids.FlagStatic) {
		ident.Var.GlobalIndex = p.globalIndex
		p.globalIndex++
	}
	if value != nil && ident.Has(ids.FlagReadOnly) {
		ident.Var.Const = value
	}
	if !g.DeclareIdentifier(e.Container, id) {
		return Failed
	}
	e.ID = id
	return Succeeded
}
