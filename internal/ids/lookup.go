package ids

import "tessera/internal/source"

// GetIdMode bounds how far a lookup walks outwards.
type GetIdMode uint8

const (
	// GetIdScope searches only the starting container (and its bases).
	GetIdScope GetIdMode = iota
	// GetIdFunction skips the bodies of enclosing functions.
	GetIdFunction
	// GetIdEverywhere searches every enclosing container.
	GetIdEverywhere
)

// GetIdentifier walks from c to the root and merges every identifier named
// name. Results are ordered innermost first. Structured scopes contribute the
// members of their base types.
func (g *Graph) GetIdentifier(c ContainerID, name string, mode GetIdMode) []ID {
	if name == "" {
		return nil
	}
	if pre := g.predeclaredVariable(c, name); pre.IsValid() {
		return []ID{pre}
	}
	start := g.C(c)
	if start == nil {
		return nil
	}
	var out []ID
	seen := make(map[ID]struct{})
	add := func(list []ID) {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	for cur := c; cur.IsValid(); cur = g.C(cur).Parent {
		cont := g.C(cur)
		if mode == GetIdFunction && cont.Kind.IsLocal() && cont.FunctionScope != start.FunctionScope {
			continue
		}
		if cont.Kind == ContainerGlobal {
			g.ensurePredeclared(cur)
			add(cont.names[name])
			// the other assemblies' global namespaces are merged in
			for _, a := range g.Assemblies {
				if a.Global != cur {
					add(g.C(a.Global).names[name])
				}
			}
		} else {
			add(cont.names[name])
			if cont.Kind == ContainerNamespace {
				add(g.namespaceSiblings(cont, name))
			}
		}
		if cont.Kind == ContainerStructured {
			add(g.baseMembers(cont.Owner, name, make(map[ID]bool)))
		}
		if mode == GetIdScope {
			break
		}
	}
	return out
}

// GetMember looks up name directly inside the scope opened by owner: the
// members of a type (with its bases), a namespace (merged across
// assemblies) or an enum.
func (g *Graph) GetMember(owner ID, name string) []ID {
	ident := g.Id(g.Real(owner))
	if ident == nil || !ident.Scope.IsValid() {
		return nil
	}
	cont := g.C(ident.Scope)
	out := append([]ID(nil), cont.names[name]...)
	switch {
	case ident.Kind == KindNamespace:
		out = append(out, g.namespaceSiblings(cont, name)...)
	case cont.Kind == ContainerStructured:
		out = append(out, g.baseMembers(ident.ID, name, make(map[ID]bool))...)
	}
	return out
}

// namespaceSiblings returns members named name of the other containers of
// the same fully qualified namespace.
func (g *Graph) namespaceSiblings(cont *Container, name string) []ID {
	if !cont.Owner.IsValid() {
		return nil
	}
	var out []ID
	for _, other := range g.nsIndex[g.FullName(cont.Owner)] {
		if other != cont.ID {
			out = append(out, g.C(other).names[name]...)
		}
	}
	return out
}

// NamespaceScopes returns every container of the namespace ns across assemblies.
func (g *Graph) NamespaceScopes(ns ID) []ContainerID {
	return g.nsIndex[g.FullName(ns)]
}

func (g *Graph) baseMembers(structured ID, name string, visited map[ID]bool) []ID {
	ident := g.Id(g.Real(structured))
	if ident == nil || ident.Struct == nil || visited[ident.ID] {
		return nil
	}
	visited[ident.ID] = true
	var out []ID
	for _, b := range ident.Struct.Bases {
		base := g.Id(g.Real(b.Base))
		if base == nil {
			continue
		}
		if base.Scope.IsValid() {
			out = append(out, g.C(base.Scope).names[name]...)
		}
		out = append(out, g.baseMembers(base.ID, name, visited)...)
	}
	return out
}

// predeclaredVariable resolves the self and base names inside non-static
// member functions. The variables are created once per function container.
func (g *Graph) predeclaredVariable(c ContainerID, name string) ID {
	if name != g.Opts.SelfName && name != g.Opts.BaseName {
		return NoID
	}
	cont := g.C(c)
	if cont == nil || !cont.FunctionScope.IsValid() {
		return NoID
	}
	fn := g.C(cont.FunctionScope)
	fnIdent := g.Id(fn.Owner)
	if fnIdent == nil || fnIdent.Has(FlagStatic) {
		return NoID
	}
	structScope := g.StructuredScopeOf(fn.ID)
	if !structScope.IsValid() {
		return NoID
	}
	owner := g.C(structScope).Owner
	if name == g.Opts.SelfName {
		if !fn.selfVar.IsValid() {
			fn.selfVar = g.newPredeclaredVar(KindSelfVar, fn.ID, name, g.selfType(owner))
		}
		return fn.selfVar
	}
	if !fn.baseVar.IsValid() {
		ident := g.Id(owner)
		if ident.Struct == nil || len(ident.Struct.Bases) == 0 {
			return NoID
		}
		fn.baseVar = g.newPredeclaredVar(KindBaseVar, fn.ID, name, g.selfType(ident.Struct.Bases[0].Base))
	}
	return fn.baseVar
}

// selfType is the type self has: the class itself, or a reference to a struct.
func (g *Graph) selfType(owner ID) ID {
	if g.Kind(owner) == KindStruct {
		return g.ReferenceTo(owner)
	}
	return owner
}

func (g *Graph) newPredeclaredVar(kind Kind, fn ContainerID, name string, typ ID) ID {
	id := g.New(kind, fn, source.FreeString(name))
	ident := g.Id(id)
	ident.Children = []ID{typ}
	ident.Flags |= FlagSpecialName | FlagReadOnly
	ident.Declared = true
	ident.Var.LocalIndex = -1
	return id
}
