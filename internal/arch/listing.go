package arch

import (
	"fmt"
	"go/constant"
	"strconv"
	"strings"

	"tessera/internal/ids"
)

type opKind uint8

const (
	opSymbol opKind = iota
	opLabel
	opJump
	opReturn
	opAlign
	opData
	opComment
)

type instr struct {
	kind  opKind
	label Label
	text  string
	n     int
}

// Stats counts what the final passes removed.
type Stats struct {
	Jumps  int
	Labels int
	Dead   int
}

// Listing is a CodeGenerator that renders an assembler-like text. Finish
// drops jumps to the next instruction, code after an unconditional
// transfer and labels nothing jumps to, until none of them applies.
type Listing struct {
	g      *ids.Graph
	code   []instr
	Stats  Stats
	indent string
}

// NewListing creates a listing generator over g.
func NewListing(g *ids.Graph) *Listing {
	return &Listing{g: g, indent: "\t"}
}

func (l *Listing) Align(n int) {
	if n > 1 {
		l.code = append(l.code, instr{kind: opAlign, n: n})
	}
}

func (l *Listing) Symbol(name string) { l.code = append(l.code, instr{kind: opSymbol, text: name}) }
func (l *Listing) Label(lb Label)     { l.code = append(l.code, instr{kind: opLabel, label: lb}) }
func (l *Listing) Jump(lb Label)      { l.code = append(l.code, instr{kind: opJump, label: lb}) }
func (l *Listing) Return()            { l.code = append(l.code, instr{kind: opReturn}) }
func (l *Listing) Comment(text string) {
	l.code = append(l.code, instr{kind: opComment, text: text})
}

// Declare renders one data directive sized by the layout of typ.
func (l *Listing) Declare(typ ids.ID, value constant.Value) {
	g := l.g
	ident := g.Id(g.Real(typ))
	size := 0
	if ident != nil {
		size = ident.Layout.Size
		if !ident.Layout.Calculated {
			size = ident.Type.Size
		}
	}
	dir, scalar := directive(size)
	var text string
	switch {
	case value == nil && scalar:
		text = dir + " 0"
	case value == nil:
		text = "zero " + strconv.Itoa(size)
	case value.Kind() == constant.String && ident != nil && ident.Kind == ids.KindString:
		text = "db " + strconv.Quote(constant.StringVal(value)) + ", 0"
	case value.Kind() == constant.String && ident != nil && ident.Kind == ids.KindNonrefArray:
		// embedded bytes
		text = "db " + strconv.Quote(constant.StringVal(value))
	case value.Kind() == constant.String:
		// a symbol reference such as a function table slot
		text = dir + " " + constant.StringVal(value)
	case value.Kind() == constant.Bool:
		text = dir + " 0"
		if constant.BoolVal(value) {
			text = dir + " 1"
		}
	case value.Kind() == constant.Float:
		f, _ := constant.Float64Val(value)
		text = dir + " " + strconv.FormatFloat(f, 'g', -1, 64)
	default:
		text = dir + " " + value.ExactString()
	}
	if !scalar && value != nil && value.Kind() != constant.String {
		text = fmt.Sprintf("zero %d ; %s", size, value.ExactString())
	}
	l.code = append(l.code, instr{kind: opData, text: text, n: size})
}

func directive(size int) (string, bool) {
	switch size {
	case 1:
		return "db", true
	case 2:
		return "dw", true
	case 4:
		return "dd", true
	case 8:
		return "dq", true
	}
	return "dq", false
}

// Finish optimises and renders the listing.
func (l *Listing) Finish() []byte {
	for l.dropJumpsToNext() || l.dropUnreachable() || l.dropUnusedLabels() {
	}
	var b strings.Builder
	for _, in := range l.code {
		switch in.kind {
		case opSymbol:
			b.WriteString(in.text + ":\n")
		case opLabel:
			b.WriteString(in.label.String() + ":\n")
		case opJump:
			b.WriteString(l.indent + "jmp " + in.label.String() + "\n")
		case opReturn:
			b.WriteString(l.indent + "ret\n")
		case opAlign:
			b.WriteString(l.indent + "align " + strconv.Itoa(in.n) + "\n")
		case opData:
			b.WriteString(l.indent + in.text + "\n")
		case opComment:
			b.WriteString("; " + in.text + "\n")
		}
	}
	return []byte(b.String())
}

// dropJumpsToNext removes a jump whose target is among the labels that
// directly follow it.
func (l *Listing) dropJumpsToNext() bool {
	for i, in := range l.code {
		if in.kind != opJump {
			continue
		}
		for j := i + 1; j < len(l.code); j++ {
			next := l.code[j]
			if next.kind == opComment {
				continue
			}
			if next.kind != opLabel {
				break
			}
			if next.label == in.label {
				l.code = append(l.code[:i], l.code[i+1:]...)
				l.Stats.Jumps++
				return true
			}
		}
	}
	return false
}

// dropUnreachable removes code between an unconditional transfer and the
// next label or symbol.
func (l *Listing) dropUnreachable() bool {
	changed := false
	out := l.code[:0]
	dead := false
	for _, in := range l.code {
		switch in.kind {
		case opLabel, opSymbol:
			dead = false
		case opComment, opAlign:
		default:
			if dead {
				l.Stats.Dead++
				changed = true
				continue
			}
		}
		out = append(out, in)
		if in.kind == opJump || in.kind == opReturn {
			dead = true
		}
	}
	l.code = out
	return changed
}

// dropUnusedLabels removes labels that no jump targets.
func (l *Listing) dropUnusedLabels() bool {
	used := make(map[Label]bool)
	for _, in := range l.code {
		if in.kind == opJump {
			used[in.label] = true
		}
	}
	changed := false
	out := l.code[:0]
	for _, in := range l.code {
		if in.kind == opLabel && !used[in.label] {
			l.Stats.Labels++
			changed = true
			continue
		}
		out = append(out, in)
	}
	l.code = out
	return changed
}
