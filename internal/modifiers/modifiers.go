// Package modifiers applies declaration modifiers such as access levels,
// virtual, abstract or align(N) to identifiers and checks the rules that
// govern their combination. Every broken rule is reported on its own so a
// single declaration can produce several diagnostics.
package modifiers

import (
	"strconv"
	"strings"

	"tessera/internal/datastore"
	"tessera/internal/diag"
	"tessera/internal/ids"
	"tessera/internal/source"
)

type Kind uint8

const (
	KindAccess Kind = iota
	KindStatic
	KindVirtual
	KindOverride
	KindAbstract
	KindSealed
	KindExtern
	KindReadOnly
	KindConst
	KindHideBase
	KindAlign
	KindCallConv
	KindAsmName
	KindGuid
	KindNoDefaultBase
)

var kindNames = [...]string{
	KindAccess:        "access",
	KindStatic:        "static",
	KindVirtual:       "virtual",
	KindOverride:      "override",
	KindAbstract:      "abstract",
	KindSealed:        "sealed",
	KindExtern:        "extern",
	KindReadOnly:      "readonly",
	KindConst:         "const",
	KindHideBase:      "new",
	KindAlign:         "align",
	KindCallConv:      "callconv",
	KindAsmName:       "asmname",
	KindGuid:          "guid",
	KindNoDefaultBase: "nobase",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid"
}

// Modifier is one recognized modifier of a declaration.
type Modifier struct {
	Kind Kind
	Text source.CodeString
	// Access is set for KindAccess.
	Access ids.Access
	// Value is the argument of align, callconv, asmname and guid.
	Value string
}

// Result carries the modifier effects that do not live on the identifier
// itself.
type Result struct {
	CallConv ids.CallConv
	// Const marks declarations the const modifier turned into constants.
	Const bool
}

// Context describes where the modified identifier is being declared.
type Context struct {
	Graph     *ids.Graph
	Container ids.ContainerID
	// DefaultAccess is used when no access modifier is present.
	DefaultAccess ids.Access
}

func (ctx Context) report(code diag.Code, m Modifier, args ...any) {
	diag.Report(ctx.Graph.Reporter, code, m.Text.Span(), args...)
}

// Apply sets the flags and attributes of list on id and reports every
// violated rule. It returns false when at least one rule failed.
func Apply(ctx Context, list []Modifier, id ids.ID) (Result, bool) {
	g := ctx.Graph
	ident := g.Id(id)
	cont := g.C(ctx.Container)
	res := Result{}
	ok := true

	seen := make(map[Kind]Modifier, len(list))
	accessSet := false
	for _, m := range list {
		if prev, dup := seen[m.Kind]; dup {
			if m.Kind == KindAccess {
				if prev.Access != m.Access {
					ctx.report(diag.MultipleAccess, m)
				} else {
					ctx.report(diag.SameModifier, m, m.Text.String())
				}
			} else {
				ctx.report(diag.SameModifier, m, m.Text.String())
			}
			ok = false
			continue
		}
		seen[m.Kind] = m
		if !applyOne(ctx, m, ident, cont, &res) {
			ok = false
			continue
		}
		if m.Kind == KindAccess {
			accessSet = true
		}
	}
	if !accessSet && ident.Access == ids.AccessUnknown && !cont.Kind.IsLocal() && ident.Kind != ids.KindFuncParam {
		ident.Access = ctx.DefaultAccess
	}
	if !checkCombinations(ctx, seen, ident, cont) {
		ok = false
	}
	return res, ok
}

func applyOne(ctx Context, m Modifier, ident *ids.Identifier, cont *ids.Container, res *Result) bool {
	k := ident.Kind
	notApplicable := func() bool {
		ctx.report(diag.ModifierNotApplicable, m, m.Text.String())
		return false
	}
	switch m.Kind {
	case KindAccess:
		if k.IsLocal() || cont.Kind.IsLocal() {
			return notApplicable()
		}
		ident.Access = m.Access
	case KindStatic:
		if !k.IsFunction() && k != ids.KindMemberVar && k != ids.KindProperty && k != ids.KindGlobalVar {
			return notApplicable()
		}
		if k == ids.KindDestructor {
			return notApplicable()
		}
		ident.Flags |= ids.FlagStatic
	case KindVirtual, KindOverride:
		if !k.IsFunction() && k != ids.KindProperty {
			return notApplicable()
		}
		if !inClass(ctx.Graph, cont) {
			ctx.report(diag.VirtualOutsideStructure, m)
			return false
		}
		if k == ids.KindConstructor || k == ids.KindDestructor {
			ctx.report(diag.VirtualCtor, m)
			return false
		}
		ident.Flags |= ids.FlagVirtual
		if m.Kind == KindOverride {
			ident.Flags |= ids.FlagOverride
		}
	case KindAbstract:
		switch {
		case k == ids.KindClass:
		case k.IsFunction() || k == ids.KindProperty:
			if !inClass(ctx.Graph, cont) {
				ctx.report(diag.VirtualOutsideStructure, m)
				return false
			}
			if k == ids.KindConstructor || k == ids.KindDestructor {
				ctx.report(diag.VirtualCtor, m)
				return false
			}
			if !ctx.Graph.Id(cont.Owner).Has(ids.FlagAbstract) {
				ctx.report(diag.AbstractInNonAbstract, m, ident.NameString())
				return false
			}
			ident.Flags |= ids.FlagVirtual
		default:
			return notApplicable()
		}
		ident.Flags |= ids.FlagAbstract
	case KindSealed:
		if k != ids.KindClass && !k.IsFunction() && k != ids.KindProperty {
			return notApplicable()
		}
		ident.Flags |= ids.FlagSealed
	case KindExtern:
		if !k.IsFunction() && k != ids.KindGlobalVar {
			return notApplicable()
		}
		ident.Flags |= ids.FlagExtern
	case KindReadOnly:
		if !k.IsVariable() || k == ids.KindConstVar {
			return notApplicable()
		}
		ident.Flags |= ids.FlagReadOnly
	case KindConst:
		if k != ids.KindConstVar {
			return notApplicable()
		}
		res.Const = true
	case KindHideBase:
		if cont.Kind != ids.ContainerStructured {
			return notApplicable()
		}
		ident.Flags |= ids.FlagHideBase
	case KindAlign:
		if !k.IsType() && !k.IsVariable() {
			return notApplicable()
		}
		n, err := strconv.Atoi(strings.TrimSpace(m.Value))
		if err != nil || n <= 0 || !datastore.IsPow2(n) {
			ctx.report(diag.InvalidAlign, m, m.Value)
			return false
		}
		ident.Layout.ExplicitAlign = n
	case KindCallConv:
		cc, known := ids.ParseCallConv(m.Value)
		if !k.IsFunction() || !known {
			return notApplicable()
		}
		res.CallConv = cc
	case KindAsmName:
		if !k.IsFunction() && k != ids.KindGlobalVar {
			return notApplicable()
		}
		if ident.Func != nil {
			ident.Func.AsmName = m.Value
		} else if ident.Var != nil {
			ident.Var.AsmName = m.Value
		}
	case KindGuid:
		if !k.IsStructured() {
			return notApplicable()
		}
		if !ValidGUID(m.Value) {
			ctx.report(diag.InvalidGuid, m, m.Value)
			return false
		}
		ident.Struct.GUID = strings.ToLower(strings.Trim(m.Value, "{}"))
	case KindNoDefaultBase:
		if !k.IsStructured() {
			return notApplicable()
		}
		ident.Flags |= ids.FlagNoDefaultBase
	default:
		diag.Unreachable("modifier kind", m.Kind)
	}
	return true
}

// checkCombinations validates pairs of modifiers that are legal alone.
func checkCombinations(ctx Context, seen map[Kind]Modifier, ident *ids.Identifier, cont *ids.Container) bool {
	ok := true
	_, static := seen[KindStatic]
	if static {
		for _, k := range []Kind{KindVirtual, KindOverride, KindAbstract} {
			if m, has := seen[k]; has && ident.Kind != ids.KindClass {
				ctx.report(diag.StaticVirtual, m)
				ok = false
				break
			}
		}
	}
	if abs, has := seen[KindAbstract]; has && ident.Kind != ids.KindClass {
		for _, k := range []Kind{KindStatic, KindOverride, KindSealed, KindExtern} {
			if other, conflict := seen[k]; conflict {
				ctx.report(diag.AbstractIncompatible, abs, other.Text.String())
				ok = false
			}
		}
	}
	if abs, has := seen[KindAbstract]; has && ident.Kind == ids.KindClass {
		if sealed, conflict := seen[KindSealed]; conflict {
			ctx.report(diag.AbstractIncompatible, abs, sealed.Text.String())
			ok = false
		}
	}
	if sealed, has := seen[KindSealed]; has && ident.Kind != ids.KindClass {
		if _, override := seen[KindOverride]; !override {
			ctx.report(diag.ModifierNotApplicable, sealed, sealed.Text.String())
			ok = false
		}
	}
	if m, has := seen[KindAsmName]; has {
		if _, extern := seen[KindExtern]; !extern {
			ctx.report(diag.AsmNameWithoutExtern, m)
			ok = false
		}
	}
	return ok
}

func inClass(g *ids.Graph, cont *ids.Container) bool {
	return cont.Kind == ids.ContainerStructured && g.Kind(cont.Owner) == ids.KindClass
}

// ValidGUID accepts the 8-4-4-4-12 hexadecimal form, optionally braced.
func ValidGUID(s string) bool {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "{") {
		if !strings.HasSuffix(s, "}") {
			return false
		}
		s = s[1 : len(s)-1]
	}
	groups := strings.Split(s, "-")
	want := [...]int{8, 4, 4, 4, 12}
	if len(groups) != len(want) {
		return false
	}
	for i, grp := range groups {
		if len(grp) != want[i] {
			return false
		}
		for j := 0; j < len(grp); j++ {
			if !isHex(grp[j]) {
				return false
			}
		}
	}
	return true
}

func isHex(b byte) bool {
	return b >= '0' && b <= '9' || b >= 'a' && b <= 'f' || b >= 'A' && b <= 'F'
}
