// Package resolve picks one identifier out of the candidates a name lookup
// returns, using kind priority, argument scores, param-array usage and
// shadowing, and checks that the pick is accessible.
package resolve

import (
	"tessera/internal/diag"
	"tessera/internal/ids"
	"tessera/internal/source"
)

// Outcome classifies a selection.
type Outcome uint8

const (
	Found Outcome = iota
	Unknown
	Ambiguous
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case Unknown:
		return "unknown"
	default:
		return "ambiguous"
	}
}

type candidate struct {
	id         ids.ID
	score      int
	paramArray bool
	callable   bool
}

// Select narrows candidates to one identifier. call is nil when the name
// is not applied to arguments. The remaining set is returned alongside an
// ambiguous outcome so callers can list it.
func Select(g *ids.Graph, candidates []ids.ID, call *CallInfo) (ids.ID, Outcome, []ids.ID) {
	if len(candidates) == 0 {
		return ids.NoID, Unknown, nil
	}
	set := make([]candidate, 0, len(candidates))
	for _, id := range candidates {
		set = append(set, candidate{id: id})
	}

	set = keepMax(set, func(c candidate) int { return kindPriority(g, c.id) })
	if call != nil {
		set = byScore(g, set, call)
		set = byParamArray(set)
	}
	set = byShadowing(g, set)

	if len(set) == 1 {
		return set[0].id, Found, nil
	}
	if sameNamespace(g, set) {
		return set[0].id, Found, nil
	}
	out := make([]ids.ID, len(set))
	for i, c := range set {
		out[i] = c.id
	}
	return ids.NoID, Ambiguous, out
}

// SelectIdentifier is Select with diagnostics: UnknownId when nothing was
// found and AmbiguousReference when more than one candidate survives.
func SelectIdentifier(g *ids.Graph, name source.CodeString, candidates []ids.ID, call *CallInfo) ids.ID {
	id, outcome, rest := Select(g, candidates, call)
	switch outcome {
	case Unknown:
		diag.Report(g.Reporter, diag.UnknownId, name.Span(), name.String())
	case Ambiguous:
		b := diag.NewReportBuilder(g.Reporter, diag.AmbiguousReference, name.Span(), name.String())
		for _, r := range rest {
			b.WithNote(g.Id(r).Name.Span(), "candidate "+g.FullName(r))
		}
		b.Emit()
	}
	return id
}

// keepMax drops every candidate whose key is below the maximum. Ties
// survive, so the set never becomes empty.
func keepMax(set []candidate, key func(candidate) int) []candidate {
	best := key(set[0])
	for _, c := range set[1:] {
		best = max(best, key(c))
	}
	out := set[:0:0]
	for _, c := range set {
		if key(c) == best {
			out = append(out, c)
		}
	}
	return out
}

// kindPriority ranks namespaces above types above everything else.
func kindPriority(g *ids.Graph, id ids.ID) int {
	k := g.Kind(id)
	switch {
	case k == ids.KindNamespace:
		return 2
	case k.IsType():
		return 1
	}
	return 0
}

func byScore(g *ids.Graph, set []candidate, call *CallInfo) []candidate {
	anyCallable := false
	for i := range set {
		set[i].callable = FunctionType(g, set[i].id).IsValid()
		set[i].score, set[i].paramArray = FunctionValue(g, set[i].id, call)
		anyCallable = anyCallable || set[i].callable
	}
	if anyCallable {
		// non-functions only survive when nothing else can be called
		kept := set[:0:0]
		for _, c := range set {
			if c.callable {
				kept = append(kept, c)
			}
		}
		set = kept
	}
	return keepMax(set, func(c candidate) int { return c.score })
}

func byParamArray(set []candidate) []candidate {
	return keepMax(set, func(c candidate) int {
		if c.paramArray {
			return 0
		}
		return 1
	})
}

// byShadowing drops candidates declared in a container that encloses the
// container of another candidate, and base members hidden by a member of
// a derived type.
func byShadowing(g *ids.Graph, set []candidate) []candidate {
	if len(set) < 2 {
		return set
	}
	out := set[:0:0]
	for i, c := range set {
		shadowed := false
		for j, o := range set {
			if i != j && hides(g, o.id, c.id) {
				shadowed = true
				break
			}
		}
		if !shadowed {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return set
	}
	return out
}

// hides reports whether inner hides outer.
func hides(g *ids.Graph, inner, outer ids.ID) bool {
	ic, oc := g.Id(inner).Container, g.Id(outer).Container
	if ic == oc {
		return false
	}
	if g.IsInside(ic, oc) {
		return true
	}
	icont, ocont := g.C(ic), g.C(oc)
	if icont.Kind != ids.ContainerStructured || ocont.Kind != ids.ContainerStructured {
		return false
	}
	return g.IsSubtypeOf(icont.Owner, ocont.Owner) && sameSignature(g, inner, outer)
}

func sameSignature(g *ids.Graph, a, b ids.ID) bool {
	fa, fb := FunctionType(g, a), FunctionType(g, b)
	if !fa.IsValid() || !fb.IsValid() {
		return !fa.IsValid() && !fb.IsValid()
	}
	return g.SameParameters(fa, fb)
}

// sameNamespace reports a set made only of the containers of one
// namespace spread over several assemblies.
func sameNamespace(g *ids.Graph, set []candidate) bool {
	name := ""
	for i, c := range set {
		if g.Kind(c.id) != ids.KindNamespace {
			return false
		}
		full := g.FullName(c.id)
		if i == 0 {
			name = full
		} else if full != name {
			return false
		}
	}
	return true
}
