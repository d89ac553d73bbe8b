package ids

import (
	"strings"

	"tessera/internal/diag"
)

// OperatorPrefix starts the special names of operator functions.
const OperatorPrefix = "%Operator_"

// DeclareIdentifier admits id into container c when CanIdDeclared accepts
// it. Rule violations are reported and leave the container unchanged.
func (g *Graph) DeclareIdentifier(c ContainerID, id ID) bool {
	if !g.CanIdDeclared(c, id) {
		return false
	}
	g.admit(c, id)
	return true
}

// AdmitUnchecked stores id in c without validation. The assembly loader
// uses it for identifiers that were validated when they were compiled.
func (g *Graph) AdmitUnchecked(c ContainerID, id ID) {
	g.admit(c, id)
}

func (g *Graph) admit(c ContainerID, id ID) {
	cont := g.C(c)
	ident := g.Id(id)
	ident.Container = c
	ident.Declared = true
	cont.Ids = append(cont.Ids, id)
	name := ident.NameString()
	if name != "" {
		cont.names[name] = append(cont.names[name], id)
	}
	if ident.Kind.IsFunction() && name != "" {
		bucket := cont.overloads[name]
		if bucket == nil {
			bucket = &FunctionOverloads{Name: name}
			cont.overloads[name] = bucket
		}
		if ident.Func.OverloadIndex < 0 {
			ident.Func.OverloadIndex = len(bucket.Functions)
		}
		bucket.Functions = append(bucket.Functions, id)
	}
	if ident.Kind.IsLocal() && ident.Var.LocalIndex < 0 {
		ident.Var.LocalIndex = g.AllocLocal(c)
	}
	if ident.Kind == KindNamespace {
		full := g.FullName(id)
		if ident.Scope.IsValid() {
			g.nsIndex[full] = append(g.nsIndex[full], ident.Scope)
		}
	}
}

// CanIdDeclared checks every declaration rule for id inside container c
// and reports the first violation of each independent rule group.
func (g *Graph) CanIdDeclared(c ContainerID, id ID) bool {
	cont := g.C(c)
	ident := g.Id(id)
	if cont == nil || ident == nil {
		diag.Fatalf("declare %d in container %d: invalid handle", id, c)
	}
	span := ident.Name.Span()
	ok := g.checkAccessConsistency(cont, ident)

	switch k := ident.Kind; {
	case k == KindNamespace:
		if cont.Kind != ContainerGlobal && cont.Kind != ContainerNamespace {
			diag.Report(g.Reporter, diag.NotExpected, span, ident.NameString())
			return false
		}
		// namespaces merge: redeclaring a namespace is not a conflict
		for _, other := range cont.names[ident.NameString()] {
			if g.Id(other).Kind != KindNamespace {
				diag.Report(g.Reporter, diag.IdAlreadyDefined, span, ident.NameString())
				return false
			}
		}
		return ok
	case k.IsType(), k == KindAlias:
		// types carry no further rules beyond naming
	case k.IsVariable(), k == KindProperty:
		if t := ident.TypeOfSelf(); t.IsValid() && !k.IsLocal() && g.IsLessAccessable(t, id) {
			diag.Report(g.Reporter, diag.LessAccessable, span, g.Name(t), ident.NameString())
			ok = false
		}
		if t := g.Real(ident.TypeOfSelf()); t.IsValid() && g.Kind(t) == KindVoid {
			diag.Report(g.Reporter, diag.VoidVariable, span, ident.NameString())
			ok = false
		}
	case k.IsFunction():
		if !g.checkFunction(cont, ident) {
			ok = false
		}
	default:
		diag.Fatalf("CanIdDeclared: unhandled identifier kind %s", k)
	}

	if !g.checkNameConflict(cont, ident) {
		ok = false
	}
	return ok
}

func (g *Graph) checkAccessConsistency(cont *Container, ident *Identifier) bool {
	if cont.Kind.IsLocal() || ident.Kind == KindFuncParam {
		return true
	}
	switch ident.Access {
	case AccessUnknown:
		diag.Report(g.Reporter, diag.UnknownAccess, ident.Name.Span(), ident.NameString())
		return false
	case AccessPrivate, AccessProtected:
		if cont.Kind != ContainerStructured && cont.Kind != ContainerProperty {
			diag.Report(g.Reporter, diag.AccessOutsideStructure, ident.Name.Span())
			return false
		}
	}
	return true
}

func (g *Graph) checkFunction(cont *Container, ident *Identifier) bool {
	ok := true
	span := ident.Name.Span()
	name := ident.NameString()
	inStruct := cont.Kind == ContainerStructured

	if strings.HasPrefix(name, OperatorPrefix) {
		if ident.Access != AccessPublic || !ident.Has(FlagStatic) {
			diag.Report(g.Reporter, diag.OperatorMustBePublicStatic, span, strings.TrimPrefix(name, OperatorPrefix))
			ok = false
		}
		if !inStruct {
			diag.Report(g.Reporter, diag.OperatorOutsideStructure, span, strings.TrimPrefix(name, OperatorPrefix))
			ok = false
		}
	}
	if (ident.Kind == KindConstructor || ident.Kind == KindDestructor) && !inStruct {
		diag.Report(g.Reporter, diag.CtorOutsideStructure, span)
		ok = false
	}

	fnType := g.Id(g.Real(ident.TypeOfSelf()))
	if fnType == nil || !fnType.Kind.IsFunctionType() {
		return ok
	}
	if fnType.Kind == KindNonstaticFunctionType {
		fnType = g.Id(g.Real(fnType.Child(0)))
	}
	if ret := fnType.Child(0); ret.IsValid() && g.IsLessAccessable(ret, ident.ID) {
		diag.Report(g.Reporter, diag.LessAccessable, span, g.Name(ret), name)
		ok = false
	}
	params := fnType.Children[1:]
	sawDefault := false
	for i, p := range params {
		param := g.Id(p)
		if t := param.TypeOfSelf(); t.IsValid() && g.IsLessAccessable(t, ident.ID) {
			diag.Report(g.Reporter, diag.LessAccessable, param.Name.Span(), g.Name(t), name)
			ok = false
		}
		if param.Has(FlagParamArray) {
			if i != len(params)-1 {
				diag.Report(g.Reporter, diag.ParamArrayMustBeLast, param.Name.Span())
				ok = false
			}
			continue
		}
		if param.Var.HasDefault {
			sawDefault = true
		} else if sawDefault {
			diag.Report(g.Reporter, diag.ParamIsntOptional, param.Name.Span(), param.NameString())
			ok = false
		}
	}

	if bucket := cont.overloads[name]; bucket != nil {
		for _, other := range bucket.Functions {
			o := g.Id(other)
			if ident.Kind == KindConstructor && o.Kind == KindConstructor && ident.Has(FlagStatic) != o.Has(FlagStatic) {
				continue
			}
			if g.SameParameters(ident.TypeOfSelf(), o.TypeOfSelf()) {
				diag.Report(g.Reporter, diag.SameOverloads, span, name)
				ok = false
				break
			}
		}
	}
	return ok
}

// checkNameConflict rejects a second identifier of the same name unless both
// are functions (overloads) or the existing one is overridden by the new one.
func (g *Graph) checkNameConflict(cont *Container, ident *Identifier) bool {
	name := ident.NameString()
	if name == "" {
		return true
	}
	for _, other := range cont.names[name] {
		o := g.Id(other)
		if other == ident.ID {
			continue
		}
		if o.Kind.IsFunction() && ident.Kind.IsFunction() {
			continue
		}
		if o.Has(FlagBuiltin) && o.Kind == KindAlias {
			continue
		}
		diag.Report(g.Reporter, diag.IdAlreadyDefined, ident.Name.Span(), name)
		return false
	}
	return true
}

// SameParameters reports whether two function types take structurally
// equivalent parameter lists. Return types are ignored.
func (g *Graph) SameParameters(a, b ID) bool {
	fa, fb := g.plainFunctionType(a), g.plainFunctionType(b)
	if fa == nil || fb == nil {
		return false
	}
	if len(fa.Children) != len(fb.Children) {
		return false
	}
	for i := 1; i < len(fa.Children); i++ {
		pa, pb := g.Id(fa.Children[i]), g.Id(fb.Children[i])
		if pa.Has(FlagParamArray) != pb.Has(FlagParamArray) {
			return false
		}
		if !g.Equivalent(pa.TypeOfSelf(), pb.TypeOfSelf()) {
			return false
		}
	}
	return true
}

func (g *Graph) plainFunctionType(id ID) *Identifier {
	t := g.Id(g.Real(id))
	if t == nil {
		return nil
	}
	if t.Kind == KindNonstaticFunctionType {
		t = g.Id(g.Real(t.Child(0)))
	}
	if t == nil || t.Kind != KindFunctionType {
		return nil
	}
	return t
}

// Params returns the parameter identifiers of a function or function type.
func (g *Graph) Params(id ID) []ID {
	ident := g.Id(g.Real(id))
	if ident == nil {
		return nil
	}
	if ident.Kind.IsFunction() {
		ident = g.plainFunctionType(ident.TypeOfSelf())
	} else {
		ident = g.plainFunctionType(ident.ID)
	}
	if ident == nil || len(ident.Children) == 0 {
		return nil
	}
	return ident.Children[1:]
}

// ReturnType returns the return type of a function or function type.
func (g *Graph) ReturnType(id ID) ID {
	ident := g.Id(g.Real(id))
	if ident == nil {
		return NoID
	}
	if ident.Kind.IsFunction() {
		ident = g.plainFunctionType(ident.TypeOfSelf())
	} else {
		ident = g.plainFunctionType(ident.ID)
	}
	if ident == nil {
		return NoID
	}
	return g.Real(ident.Child(0))
}
