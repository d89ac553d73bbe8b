package decls

import (
	"errors"
	"go/constant"
	"go/token"
	"math"

	"tessera/internal/diag"
	"tessera/internal/ids"
	"tessera/internal/resolve"
	"tessera/internal/source"
	"tessera/internal/syntax"
)

// findPath resolves a dotted name without reporting missing segments:
// those come back as *syntax.UnknownError, and segments whose alias target
// is not known yet as *syntax.PendingError, so the caller can retry later.
// Ambiguity and access violations are reported and yield errReported.
func (p *Pipeline) findPath(from ids.ContainerID, path []source.CodeString, call *resolve.CallInfo) (ids.ID, error) {
	g := p.Graph
	var id ids.ID
	for i, seg := range path {
		var candidates []ids.ID
		if i == 0 {
			candidates = g.GetIdentifier(from, seg.String(), ids.GetIdEverywhere)
		} else {
			owner := g.Real(id)
			if !owner.IsValid() {
				return ids.NoID, &syntax.PendingError{Path: path[:i]}
			}
			candidates = g.GetMember(owner, seg.String())
		}
		if len(candidates) == 0 {
			return ids.NoID, &syntax.UnknownError{Path: path[:i+1]}
		}
		var c *resolve.CallInfo
		if i == len(path)-1 {
			c = call
		}
		id = resolve.SelectIdentifier(g, seg, candidates, c)
		if !id.IsValid() {
			return ids.NoID, errReported
		}
		if !g.VerifyAccess(from, id) {
			diag.Report(g.Reporter, diag.CannotAccess, seg.Span(), g.FullName(id))
			return ids.NoID, errReported
		}
	}
	return id, nil
}

// constEnv answers identifier values of constant expressions evaluated in
// one container.
type constEnv struct {
	p    *Pipeline
	from ids.ContainerID
}

func (env constEnv) Value(path []source.CodeString) (constant.Value, error) {
	g := env.p.Graph
	id, err := env.p.findPath(env.from, path, nil)
	if err != nil {
		var unknown *syntax.UnknownError
		if errors.As(err, &unknown) && len(path) == 1 && env.p.Macros != nil {
			if v, merr := env.p.Macros.Value(path); merr == nil {
				return v, nil
			}
		}
		return nil, err
	}
	ident := g.Id(g.Real(id))
	if ident == nil {
		return nil, &syntax.PendingError{Path: path}
	}
	if ident.Kind != ids.KindConstVar {
		last := path[len(path)-1]
		diag.Report(g.Reporter, diag.NotConstValue, last.Span(), last.String())
		return nil, errReported
	}
	if ident.Var.Const == nil {
		return nil, &syntax.PendingError{Path: path}
	}
	return ident.Var.Const, nil
}

// eval folds e inside container from. Failures other than missing
// dependencies are reported.
func (p *Pipeline) eval(from ids.ContainerID, e *syntax.Expr) (constant.Value, error) {
	v, err := syntax.Eval(e, constEnv{p: p, from: from})
	if err == nil || errors.Is(err, syntax.ErrUnknown) || errors.Is(err, errReported) {
		return v, err
	}
	if errors.Is(err, syntax.ErrDivisionByZero) {
		diag.Report(p.Graph.Reporter, diag.InvalidExpression, e.Text.Span(), e.Text.String())
	} else {
		diag.Report(p.Graph.Reporter, diag.NotConstValue, e.Text.Span(), e.Text.String())
	}
	return nil, errReported
}

// resolveType turns a type expression into a type identifier.
func (p *Pipeline) resolveType(from ids.ContainerID, te *syntax.TypeExpr) (ids.ID, error) {
	g := p.Graph
	if te == nil {
		return g.Builtins.Auto, nil
	}
	switch te.Kind {
	case syntax.TypeNamed:
		id, err := p.findPath(from, te.Path, nil)
		if err != nil {
			return ids.NoID, err
		}
		target := g.Real(id)
		if !target.IsValid() {
			return ids.NoID, &syntax.PendingError{Path: te.Path}
		}
		if !g.Kind(target).IsType() {
			diag.Report(g.Reporter, diag.NotType, te.Text.Span(), te.Text.String())
			return ids.NoID, errReported
		}
		return target, nil
	case syntax.TypePointer, syntax.TypeReference, syntax.TypeRefArray, syntax.TypePointerAndLength:
		elem, err := p.resolveType(from, te.Elem)
		if err != nil {
			return ids.NoID, err
		}
		switch te.Kind {
		case syntax.TypePointer:
			return g.PointerTo(elem), nil
		case syntax.TypeReference:
			return g.ReferenceTo(elem), nil
		case syntax.TypeRefArray:
			return g.RefArrayOf(elem, max(te.Dims, 1)), nil
		default:
			return g.PointerAndLength(elem), nil
		}
	case syntax.TypeArray:
		elem, err := p.resolveType(from, te.Elem)
		if err != nil {
			return ids.NoID, err
		}
		v, err := p.eval(from, te.Length)
		if err != nil {
			return ids.NoID, err
		}
		n, ok := constant.Int64Val(constant.ToInt(v))
		if !ok || n <= 0 || n > math.MaxInt32 {
			diag.Report(g.Reporter, diag.InvalidArrayLength, te.Length.Text.Span(), v.String())
			return ids.NoID, errReported
		}
		return g.ArrayOf(elem, int(n)), nil
	case syntax.TypeTuple:
		members := make([]ids.ID, len(te.Members))
		names := make([]string, len(te.Members))
		named := false
		for i, f := range te.Members {
			t, err := p.resolveType(from, f.Type)
			if err != nil {
				return ids.NoID, err
			}
			members[i] = t
			names[i] = f.Name.String()
			named = named || names[i] != ""
		}
		if !named {
			names = nil
		}
		return g.TupleOf(members, names), nil
	case syntax.TypeFunction:
		return p.functionType(from, te.Ret, te.Params, te.CallConv)
	}
	diag.Unreachable("type expression kind", te.Kind)
	return ids.NoID, errReported
}

// functionType builds a function type from a return type and parameters.
// Default values are folded and converted to the parameter types.
func (p *Pipeline) functionType(from ids.ContainerID, ret *syntax.TypeExpr, params []syntax.Param, cc string) (ids.ID, error) {
	g := p.Graph
	retType := g.Builtins.Void
	if ret != nil {
		t, err := p.resolveType(from, ret)
		if err != nil {
			return ids.NoID, err
		}
		retType = t
	}
	specs, err := p.paramSpecs(from, params)
	if err != nil {
		return ids.NoID, err
	}
	callConv := ids.CallDefault
	if cc != "" {
		if parsed, ok := ids.ParseCallConv(cc); ok {
			callConv = parsed
		}
	}
	return g.FunctionTypeOf(retType, specs, callConv), nil
}

// paramSpecs resolves parameter types and default values without touching
// the graph, so a failed attempt can be retried.
func (p *Pipeline) paramSpecs(from ids.ContainerID, params []syntax.Param) ([]ids.ParamSpec, error) {
	specs := make([]ids.ParamSpec, len(params))
	for i, prm := range params {
		t, err := p.resolveType(from, prm.Type)
		if err != nil {
			return nil, err
		}
		specs[i] = ids.ParamSpec{Name: prm.Name, Type: t, ParamArray: prm.ParamArray}
		if prm.Default != nil {
			v, err := p.eval(from, prm.Default)
			if err != nil {
				return nil, err
			}
			if v, err = p.convertConst(prm.Default.Text, v, t); err != nil {
				return nil, err
			}
			specs[i].Default, specs[i].HasDefault = v, true
		}
	}
	return specs, nil
}

// inferConstType picks the builtin type of an untyped constant.
func (p *Pipeline) inferConstType(v constant.Value) ids.ID {
	b := p.Graph.Builtins
	switch v.Kind() {
	case constant.Bool:
		return b.Bool
	case constant.String:
		return b.String
	case constant.Float:
		return b.Float64
	case constant.Int:
		if _, ok := constant.Int64Val(v); ok && fitsInt(v, 4, true) {
			return b.Int32
		}
		if fitsInt(v, 8, true) {
			return b.Int64
		}
		return b.UInt64
	}
	return ids.NoID
}

// convertConst checks that v can be stored in typ and returns it in the
// representation of typ.
func (p *Pipeline) convertConst(at source.CodeString, v constant.Value, typ ids.ID) (constant.Value, error) {
	g := p.Graph
	typ = g.Real(typ)
	ident := g.Id(typ)
	mismatch := func() (constant.Value, error) {
		diag.Report(g.Reporter, diag.CannotConvert, at.Span(), v.ExactString(), g.Name(typ))
		return nil, errReported
	}
	switch ident.Kind {
	case ids.KindAuto:
		return v, nil
	case ids.KindSigned, ids.KindUnsigned, ids.KindChar:
		iv := constant.ToInt(v)
		if iv.Kind() != constant.Int {
			return mismatch()
		}
		size, signed := ident.Type.Size, ident.Kind == ids.KindSigned
		if !fitsInt(iv, size, signed) {
			diag.Report(g.Reporter, diag.ConstTruncated, at.Span(), at.String())
			iv = truncateInt(iv, size, signed)
		}
		return iv, nil
	case ids.KindFloat:
		fv := constant.ToFloat(v)
		if fv.Kind() != constant.Float && fv.Kind() != constant.Int {
			return mismatch()
		}
		return fv, nil
	case ids.KindBool:
		if v.Kind() != constant.Bool {
			return mismatch()
		}
		return v, nil
	case ids.KindString:
		if v.Kind() != constant.String {
			return mismatch()
		}
		return v, nil
	case ids.KindEnum, ids.KindFlag:
		return p.convertConst(at, v, ident.Child(0))
	}
	return mismatch()
}

func intBounds(size int, signed bool) (lo, hi constant.Value) {
	bits := uint(size * 8)
	one := constant.MakeInt64(1)
	if signed {
		hi = constant.BinaryOp(constant.Shift(one, token.SHL, bits-1), token.SUB, one)
		lo = constant.UnaryOp(token.SUB, constant.Shift(one, token.SHL, bits-1), 0)
		return lo, hi
	}
	return constant.MakeInt64(0), constant.BinaryOp(constant.Shift(one, token.SHL, bits), token.SUB, one)
}

func fitsInt(v constant.Value, size int, signed bool) bool {
	if size <= 0 {
		return false
	}
	lo, hi := intBounds(size, signed)
	return constant.Compare(v, token.GEQ, lo) && constant.Compare(v, token.LEQ, hi)
}

// truncateInt wraps v into the two's complement range of the type.
func truncateInt(v constant.Value, size int, signed bool) constant.Value {
	bits := uint(size * 8)
	mask := constant.BinaryOp(constant.Shift(constant.MakeInt64(1), token.SHL, bits), token.SUB, constant.MakeInt64(1))
	u := constant.BinaryOp(v, token.AND, mask)
	if signed && !fitsInt(u, size, true) {
		u = constant.BinaryOp(u, token.SUB, constant.Shift(constant.MakeInt64(1), token.SHL, bits))
	}
	return u
}
