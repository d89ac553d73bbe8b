package diag

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"tessera/internal/source"
)

// PrettyOpts configures Pretty.
type PrettyOpts struct {
	Color     bool
	ShowNotes bool
	// Messages re-renders diagnostics in another culture; nil keeps Message.
	Messages *MessageTable
}

// Pretty writes diagnostics in human readable form:
//
//	<path>:<line>:<col>: <SEV> <ID>: <message>
//	<source line>
//	<caret underline>
func Pretty(w io.Writer, diags []Diagnostic, fs *source.FileSet, opts PrettyOpts) error {
	sevColor := map[Severity]*color.Color{
		SevError:   color.New(color.FgRed, color.Bold),
		SevWarning: color.New(color.FgYellow, color.Bold),
		SevInfo:    color.New(color.FgCyan, color.Bold),
	}
	caretColor := color.New(color.FgGreen, color.Bold)
	for _, c := range sevColor {
		setColor(c, opts.Color)
	}
	setColor(caretColor, opts.Color)

	for i := range diags {
		d := &diags[i]
		loc := locate(fs, d.Primary)
		if _, err := fmt.Fprintf(w, "%s: %s %s: %s\n", loc, sevColor[d.Severity].Sprint(d.Severity.String()), d.Code.ID(), d.Text(opts.Messages)); err != nil {
			return err
		}
		if err := writeContext(w, fs, d.Primary, caretColor); err != nil {
			return err
		}
		if !opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			if _, err := fmt.Fprintf(w, "%s: note: %s\n", locate(fs, n.Span), n.Msg); err != nil {
				return err
			}
			if err := writeContext(w, fs, n.Span, caretColor); err != nil {
				return err
			}
		}
	}
	return nil
}

func setColor(c *color.Color, on bool) {
	if on {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
}

func locate(fs *source.FileSet, sp source.Span) string {
	if fs == nil {
		return "<unknown>"
	}
	f := fs.Get(sp.File)
	if f == nil {
		return "<unknown>"
	}
	start, _ := fs.Resolve(sp)
	return fmt.Sprintf("%s:%d:%d", displayPath(fs, f), start.Line, start.Col)
}

func displayPath(fs *source.FileSet, f *source.File) string {
	if f.Flags&source.FileVirtual != 0 || fs.BaseDir() == "" {
		return filepath.ToSlash(f.Path)
	}
	rel, err := source.RelativePath(f.Path, fs.BaseDir())
	if err != nil {
		return filepath.ToSlash(f.Path)
	}
	return rel
}

// writeContext prints the line of sp and a caret underline measured in
// display cells, so wide runes and tabs line up with the source text.
func writeContext(w io.Writer, fs *source.FileSet, sp source.Span, caret *color.Color) error {
	if fs == nil {
		return nil
	}
	f := fs.Get(sp.File)
	if f == nil || len(f.Content) == 0 {
		return nil
	}
	start, end := fs.Resolve(sp)
	line := strings.TrimRight(f.GetLine(start.Line), "\r")
	if line == "" {
		return nil
	}
	prefix := clampPrefix(line, int(start.Col)-1)
	width := 1
	if end.Line == start.Line && end.Col > start.Col {
		marked := clampPrefix(line, int(end.Col)-1)
		width = cellWidth(marked) - cellWidth(prefix)
		if width < 1 {
			width = 1
		}
	}
	underline := strings.Repeat(" ", cellWidth(prefix)) + "^" + strings.Repeat("~", width-1)
	_, err := fmt.Fprintf(w, "  %s\n  %s\n", expandTabs(line), caret.Sprint(underline))
	return err
}

func clampPrefix(line string, n int) string {
	if n < 0 {
		return ""
	}
	if n > len(line) {
		return line
	}
	return line[:n]
}

func cellWidth(s string) int {
	return runewidth.StringWidth(expandTabs(s))
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", "    ")
}

// FormatShort renders diagnostics one per line in a stable order:
//
//	<severity> <ID> <path>:<line>:<col> <message>
func FormatShort(diags []Diagnostic, fs *source.FileSet, includeNotes bool) string {
	type shortLine struct {
		sev, id, loc, msg string
		line, col         uint32
	}
	lines := make([]shortLine, 0, len(diags))
	add := func(sev, id string, sp source.Span, msg string) {
		var line, col uint32
		if fs != nil {
			start, _ := fs.Resolve(sp)
			line, col = start.Line, start.Col
		}
		lines = append(lines, shortLine{sev: sev, id: id, loc: locate(fs, sp), msg: sanitizeMessage(msg), line: line, col: col})
	}
	for i := range diags {
		d := &diags[i]
		add(severityLabel(d.Severity), d.Code.ID(), d.Primary, d.Message)
		if includeNotes {
			for _, n := range d.Notes {
				add("note", d.Code.ID(), n.Span, n.Msg)
			}
		}
	}
	sort.SliceStable(lines, func(i, j int) bool {
		a, b := lines[i], lines[j]
		pa, pb := strings.SplitN(a.loc, ":", 2)[0], strings.SplitN(b.loc, ":", 2)[0]
		if pa != pb {
			return pa < pb
		}
		if a.line != b.line {
			return a.line < b.line
		}
		if a.col != b.col {
			return a.col < b.col
		}
		if a.sev != b.sev {
			return a.sev < b.sev
		}
		return a.id < b.id
	})
	var b strings.Builder
	for i, l := range lines {
		fmt.Fprintf(&b, "%s %s %s %s", l.sev, l.id, l.loc, l.msg)
		if i < len(lines)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func sanitizeMessage(msg string) string {
	msg = strings.ReplaceAll(msg, "\r\n", "\n")
	msg = strings.ReplaceAll(msg, "\r", "\n")
	msg = strings.ReplaceAll(msg, "\n", " ")
	return strings.TrimSpace(msg)
}
