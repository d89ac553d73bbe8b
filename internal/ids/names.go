package ids

import (
	"strconv"
	"strings"
)

// Name renders an identifier for messages. Named identifiers use their
// declared name; structural types get a generated name from their shape.
func (g *Graph) Name(id ID) string {
	var b strings.Builder
	g.writeName(&b, id, 0)
	return b.String()
}

func (g *Graph) writeName(b *strings.Builder, id ID, depth int) {
	ident := g.Id(id)
	if ident == nil {
		b.WriteString("<none>")
		return
	}
	if depth > 32 {
		b.WriteString("...")
		return
	}
	if !ident.Kind.IsStructural() {
		if ident.Name.IsEmpty() {
			b.WriteString("<" + ident.Kind.String() + ">")
			return
		}
		b.WriteString(ident.NameString())
		return
	}
	switch ident.Kind {
	case KindPointer:
		g.writeName(b, ident.Child(0), depth+1)
		b.WriteByte('*')
	case KindReference:
		b.WriteString("ref ")
		g.writeName(b, ident.Child(0), depth+1)
	case KindNonrefArray:
		g.writeName(b, ident.Child(0), depth+1)
		b.WriteString("[" + strconv.Itoa(ident.Type.Length) + "]")
	case KindRefArray:
		g.writeName(b, ident.Child(0), depth+1)
		b.WriteString("[" + strings.Repeat(",", ident.Type.Dimensions-1) + "]")
	case KindPointerAndLength:
		g.writeName(b, ident.Child(0), depth+1)
		b.WriteString("[*]")
	case KindTuple:
		b.WriteByte('(')
		for i, m := range ident.Children {
			if i > 0 {
				b.WriteString(", ")
			}
			member := g.Id(m)
			g.writeName(b, member.TypeOfSelf(), depth+1)
			if n := member.NameString(); n != strconv.Itoa(i) {
				b.WriteString(" " + n)
			}
		}
		b.WriteByte(')')
	case KindFunctionType:
		g.writeName(b, ident.Child(0), depth+1)
		b.WriteByte('(')
		for i, p := range ident.Children[1:] {
			if i > 0 {
				b.WriteString(", ")
			}
			param := g.Id(p)
			if param.Has(FlagParamArray) {
				b.WriteString("params ")
			}
			g.writeName(b, param.TypeOfSelf(), depth+1)
		}
		b.WriteByte(')')
		if ident.Type.CallConv != CallDefault {
			b.WriteString(" " + ident.Type.CallConv.String())
		}
	case KindNonstaticFunctionType:
		b.WriteString("nonstatic ")
		g.writeName(b, ident.Child(0), depth+1)
	}
}

// FullName renders the dotted path of an identifier through the
// namespaces and types that enclose it.
func (g *Graph) FullName(id ID) string {
	ident := g.Id(id)
	if ident == nil {
		return ""
	}
	parts := []string{g.Name(id)}
	for c := ident.Container; c.IsValid(); c = g.C(c).Parent {
		owner := g.Id(g.C(c).Owner)
		if owner == nil || owner.Name.IsEmpty() {
			continue
		}
		parts = append(parts, owner.NameString())
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}
