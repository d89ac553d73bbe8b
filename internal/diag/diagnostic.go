package diag

import (
	"tessera/internal/source"
)

type Note struct {
	Span source.Span
	Msg  string
}

// Diagnostic is one reported message.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Args     []any
	Primary  source.Span
	Notes    []Note
}

// New builds a diagnostic whose severity comes from the code band and whose
// message is rendered with the default table.
func New(code Code, primary source.Span, args ...any) Diagnostic {
	return Diagnostic{
		Severity: code.Severity(),
		Code:     code,
		Message:  DefaultMessages().Format(code, args...),
		Args:     args,
		Primary:  primary,
	}
}

func (d Diagnostic) WithNote(sp source.Span, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Span: sp, Msg: msg})
	return d
}

// Text renders the message with table, or returns Message when table is nil.
func (d *Diagnostic) Text(table *MessageTable) string {
	if table == nil || d.Code == UnknownCode {
		return d.Message
	}
	return table.Format(d.Code, d.Args...)
}
