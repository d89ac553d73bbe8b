package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLevelFilters(t *testing.T) {
	tests := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelOff, ScopeCompiler, false},
		{LevelPhase, ScopePhase, true},
		{LevelPhase, ScopeUnit, false},
		{LevelDetail, ScopeUnit, true},
		{LevelDetail, ScopeIdentifier, false},
		{LevelDebug, ScopeIdentifier, true},
	}
	for _, tt := range tests {
		if got := tt.level.ShouldEmit(tt.scope); got != tt.want {
			t.Fatalf("%s.ShouldEmit(%s) = %v, want %v", tt.level, tt.scope, got, tt.want)
		}
	}
	for _, name := range []string{"off", "PHASE", "Detail", "debug"} {
		if _, err := ParseLevel(name); err != nil {
			t.Fatalf("ParseLevel(%q): %v", name, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("ParseLevel accepted an unknown level")
	}
}

func TestStreamNDJSON(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelDetail, Mode: ModeStream, Format: FormatNDJSON, Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := WithTracer(context.Background(), tr)
	ctx, phase := Start(ctx, ScopePhase, "declare")
	_, unit := Start(ctx, ScopeUnit, "lib.tess")
	unit.WithExtra("ids", "12").End("")
	_, hidden := Start(ctx, ScopeIdentifier, "Geo.Point")
	hidden.End("")
	phase.End("ok")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d events, want 4:\n%s", len(lines), buf.String())
	}
	var ev jsonEvent
	if err := json.Unmarshal([]byte(lines[2]), &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Kind != "end" || ev.Name != "lib.tess" || ev.ParentID != phase.ID() || ev.Extra["ids"] != "12" {
		t.Fatalf("unexpected unit end event %+v", ev)
	}
}

func TestRingWraps(t *testing.T) {
	r := NewRingTracer(3, LevelPhase)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		Point(r, ScopePhase, name, "", 0)
	}
	snap := r.Snapshot()
	if len(snap) != 3 || snap[0].Name != "c" || snap[2].Name != "e" {
		t.Fatalf("snapshot = %+v", snap)
	}
	var buf bytes.Buffer
	if err := r.Dump(&buf, FormatText); err != nil {
		t.Fatalf("dump: %v", err)
	}
	if !strings.Contains(buf.String(), "* e") {
		t.Fatalf("dump lacks last event:\n%s", buf.String())
	}
}

func TestLogTracer(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	tr, err := New(Config{Level: LevelPhase, Mode: ModeLog, Logger: zap.New(core)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s := Begin(tr, ScopePhase, "layout", 0)
	s.End("done")
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want only the span end", len(entries))
	}
	fields := entries[0].ContextMap()
	if entries[0].Message != "layout" || fields["detail"] != "done" || fields["kind"] != "end" {
		t.Fatalf("unexpected entry %+v", entries[0])
	}
}

func TestOffIsNop(t *testing.T) {
	tr, err := New(Config{Level: LevelOff, Mode: ModeStream})
	if err != nil || tr.Enabled() {
		t.Fatalf("New(off) = %v, %v", tr, err)
	}
	if s := Begin(tr, ScopeCompiler, "x", 0); s.End("") != 0 {
		t.Fatalf("inert span reported a duration")
	}
}
