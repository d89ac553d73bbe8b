package types

import "tessera/internal/ids"

// GetNumberRetType returns the result type of binary arithmetic on a and b:
// float beats integer, equal signedness picks the larger size, and mixed
// signedness picks the signed operand when it is strictly larger or the
// signed type of double the larger size otherwise. NoID if either operand
// is not numeric.
func GetNumberRetType(g *ids.Graph, a, b ids.ID) ids.ID {
	ta, tb := g.Id(g.TypeOf(a)), g.Id(g.TypeOf(b))
	if ta == nil || tb == nil || !ta.Kind.IsNumeric() || !tb.Kind.IsNumeric() {
		return ids.NoID
	}
	switch {
	case ta.Kind == ids.KindFloat && tb.Kind == ids.KindFloat:
		return larger(ta, tb).ID
	case ta.Kind == ids.KindFloat:
		return ta.ID
	case tb.Kind == ids.KindFloat:
		return tb.ID
	case ta.Kind == tb.Kind:
		return larger(ta, tb).ID
	}
	signed, unsigned := ta, tb
	if ta.Kind == ids.KindUnsigned {
		signed, unsigned = tb, ta
	}
	if signed.Type.Size > unsigned.Type.Size {
		return signed.ID
	}
	size := 2 * unsigned.Type.Size
	if size > 8 {
		size = 8
	}
	return g.SignedOfSize(size)
}

func larger(a, b *ids.Identifier) *ids.Identifier {
	if b.Type.Size > a.Type.Size {
		return b
	}
	return a
}
