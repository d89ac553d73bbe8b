package resolve

import (
	"tessera/internal/diag"
	"tessera/internal/ids"
	"tessera/internal/source"
)

// Lookup resolves name as seen from container from: it gathers the
// candidates, selects one and verifies that from may access it. Every
// failure is reported and yields NoID.
func Lookup(g *ids.Graph, from ids.ContainerID, name source.CodeString, mode ids.GetIdMode, call *CallInfo) ids.ID {
	candidates := g.GetIdentifier(from, name.String(), mode)
	return pick(g, from, name, candidates, call)
}

// LookupMember resolves name inside the scope opened by owner, such as a
// member of a type or of a namespace.
func LookupMember(g *ids.Graph, from ids.ContainerID, owner ids.ID, name source.CodeString, call *CallInfo) ids.ID {
	candidates := g.GetMember(owner, name.String())
	return pick(g, from, name, candidates, call)
}

// LookupPath resolves a dotted path such as "A.B.C": the first segment
// with Lookup, every further one as a member of the previous result.
func LookupPath(g *ids.Graph, from ids.ContainerID, path []source.CodeString, mode ids.GetIdMode, call *CallInfo) ids.ID {
	if len(path) == 0 {
		return ids.NoID
	}
	var last *CallInfo
	if len(path) == 1 {
		last = call
	}
	id := Lookup(g, from, path[0], mode, last)
	for i := 1; i < len(path) && id.IsValid(); i++ {
		if i == len(path)-1 {
			last = call
		}
		id = LookupMember(g, from, id, path[i], last)
	}
	return id
}

func pick(g *ids.Graph, from ids.ContainerID, name source.CodeString, candidates []ids.ID, call *CallInfo) ids.ID {
	id := SelectIdentifier(g, name, candidates, call)
	if !id.IsValid() {
		return ids.NoID
	}
	if !g.VerifyAccess(from, id) {
		diag.Report(g.Reporter, diag.CannotAccess, name.Span(), g.FullName(id))
		return ids.NoID
	}
	return id
}
