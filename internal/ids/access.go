package ids

// VerifyAccess reports whether code in container from may reference id.
//
// Internal access requires the same assembly. Protected access requires from
// to be nested in a structured scope whose type is the declaring type or
// derives from it. Private access requires the same assembly and from to be
// inside the declaring container.
func (g *Graph) VerifyAccess(from ContainerID, id ID) bool {
	ident := g.Id(id)
	cont := g.C(from)
	if ident == nil || cont == nil {
		return false
	}
	switch ident.Access {
	case AccessPublic, AccessUnknown:
		return true
	case AccessInternal:
		return cont.Assembly == ident.Assembly
	case AccessProtected:
		declaring := g.C(ident.Container)
		if declaring == nil {
			return false
		}
		if g.IsInside(from, ident.Container) {
			return true
		}
		declType := declaring.Owner
		if declaring.Kind == ContainerProperty {
			declType = g.C(g.StructuredScopeOf(ident.Container)).Owner
		}
		for s := g.StructuredScopeOf(from); s.IsValid(); s = g.StructuredScopeOf(g.C(s).Parent) {
			if g.IsSubtypeOf(g.C(s).Owner, declType) {
				return true
			}
		}
		return false
	case AccessPrivate:
		return cont.Assembly == ident.Assembly && g.IsInside(from, ident.Container)
	}
	return false
}

// IsSubtypeOf reports whether derived equals base or inherits from it
// through any chain of base edges, unreal bases included.
func (g *Graph) IsSubtypeOf(derived, base ID) bool {
	return g.isSubtypeOf(g.Real(derived), g.Real(base), make(map[ID]bool))
}

func (g *Graph) isSubtypeOf(derived, base ID, visited map[ID]bool) bool {
	if !derived.IsValid() || !base.IsValid() {
		return false
	}
	if derived == base {
		return true
	}
	if visited[derived] {
		return false
	}
	visited[derived] = true
	ident := g.Id(derived)
	if ident.Struct == nil {
		return false
	}
	for _, b := range ident.Struct.Bases {
		if g.isSubtypeOf(g.Real(b.Base), base, visited) {
			return true
		}
	}
	return false
}

// EffectiveAccess is the access an identifier is visible with from outside
// its assembly: the minimum of its own access and every enclosing type's.
// Structural types are as accessible as their least accessible component.
func (g *Graph) EffectiveAccess(id ID) Access {
	return g.effectiveAccess(id, make(map[ID]bool))
}

func (g *Graph) effectiveAccess(id ID, visited map[ID]bool) Access {
	ident := g.Id(id)
	if ident == nil {
		return AccessPublic
	}
	if ident.Kind == KindAlias && g.Real(id).IsValid() && g.Real(id) != id {
		return minAccess(g.ownAccess(ident), g.effectiveAccess(g.Real(id), visited))
	}
	if visited[id] {
		return AccessPublic
	}
	visited[id] = true
	if ident.Kind.IsStructural() {
		acc := AccessPublic
		for _, child := range ident.Children {
			ch := g.Id(child)
			if ch != nil && ch.Kind.IsVariable() {
				child = ch.TypeOfSelf()
			}
			acc = minAccess(acc, g.effectiveAccess(child, visited))
		}
		return acc
	}
	acc := g.ownAccess(ident)
	for c := ident.Container; c.IsValid(); c = g.C(c).Parent {
		owner := g.Id(g.C(c).Owner)
		if owner != nil && owner.Kind.IsType() {
			acc = minAccess(acc, g.ownAccess(owner))
		}
	}
	return acc
}

func (g *Graph) ownAccess(ident *Identifier) Access {
	if ident.Access == AccessUnknown {
		return AccessPublic
	}
	return ident.Access
}

// IsLessAccessable reports whether typ is less accessible than the
// identifier that uses it in its signature.
func (g *Graph) IsLessAccessable(typ, than ID) bool {
	return g.EffectiveAccess(typ) < g.EffectiveAccess(than)
}

func minAccess(a, b Access) Access {
	if a < b {
		return a
	}
	return b
}
