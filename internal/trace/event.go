package trace

import "time"

// Kind is the type of a trace event.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	KindPoint
)

func (k Kind) String() string {
	switch k {
	case KindSpanBegin:
		return "begin"
	case KindSpanEnd:
		return "end"
	case KindPoint:
		return "point"
	default:
		return "unknown"
	}
}

// Scope is the granularity of an event; lower values are coarser.
type Scope uint8

const (
	// ScopeCompiler covers a whole compilation.
	ScopeCompiler Scope = iota + 1
	// ScopePhase covers preprocess, load, declare, layout, generate and write.
	ScopePhase
	// ScopeUnit covers one source file or one referenced assembly.
	ScopeUnit
	// ScopeIdentifier covers the processing of a single entry.
	ScopeIdentifier
)

func (s Scope) String() string {
	switch s {
	case ScopeCompiler:
		return "compiler"
	case ScopePhase:
		return "phase"
	case ScopeUnit:
		return "unit"
	case ScopeIdentifier:
		return "identifier"
	default:
		return "unknown"
	}
}

// Event is a single trace record.
type Event struct {
	Time     time.Time
	Seq      uint64
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64
	Name     string
	Detail   string
	Extra    map[string]string
}
