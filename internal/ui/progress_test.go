package ui

import (
	"strings"
	"testing"

	"tessera/internal/compiler"
)

func TestProgressModelEvents(t *testing.T) {
	events := make(chan compiler.Event)
	m := NewProgressModel("app", []string{"a.tess", "geo"}, events).(*progressModel)

	steps := []struct {
		ev     compiler.Event
		unit   int
		status string
	}{
		{compiler.Event{Unit: "a.tess", Stage: compiler.StagePreprocess}, 0, "preprocess"},
		{compiler.Event{Unit: "a.tess", Stage: compiler.StagePreprocess, Status: compiler.StatusDone}, 0, "done"},
		{compiler.Event{Unit: "geo", Stage: compiler.StageLoad, Status: compiler.StatusError}, 1, "error"},
		{compiler.Event{Unit: "unknown", Stage: compiler.StageLoad}, 1, "error"},
	}
	for _, st := range steps {
		m.Update(eventMsg(st.ev))
		if got := m.units[st.unit].status; got != st.status {
			t.Fatalf("after %+v unit %d is %q, want %q", st.ev, st.unit, got, st.status)
		}
	}
	m.Update(eventMsg(compiler.Event{Stage: compiler.StageDeclare}))
	if m.phase != "declare" || !m.failed {
		t.Fatalf("phase %q failed %v", m.phase, m.failed)
	}
	m.Update(doneMsg{})
	view := m.View()
	if !strings.HasPrefix(stripANSI(view), "failed: app (declare)") {
		t.Fatalf("unexpected view:\n%s", view)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"a/very/long/path.tess", 10, "a/very/..."},
		{"abcdef", 2, "ab"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

func stripANSI(s string) string {
	var b strings.Builder
	skip := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			skip = true
		case skip && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'):
			skip = false
		case !skip:
			b.WriteRune(r)
		}
	}
	return b.String()
}
