package asmcache

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tessera/internal/assembly"
	"tessera/internal/ids"
)

var fixedTime = time.Date(2001, 2, 3, 4, 5, 6, 0, time.UTC)

func writeEmpty(t *testing.T, dir, name string, signature uint32) string {
	t.Helper()
	g := ids.NewGraph(ids.Options{AssemblyName: name, Signature: signature, PointerSize: 8})
	path := filepath.Join(dir, name+assembly.Ext)
	if err := assembly.WriteFile(g, path); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestScanAndOpen(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	writeEmpty(t, first, "core", 11)
	writeEmpty(t, second, "core", 22)
	writeEmpty(t, second, "geo", 33)
	if err := os.WriteFile(filepath.Join(second, "junk"+assembly.Ext), []byte("nope"), 0o600); err != nil {
		t.Fatalf("write junk: %v", err)
	}

	idxPath := filepath.Join(t.TempDir(), IndexName)
	c, err := Open(idxPath, []string{first, second})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, err := c.Open("geo")
	if err != nil {
		t.Fatalf("Open(geo): %v", err)
	}
	if h, err := assembly.ReadHeader(data); err != nil || h.Name != "geo" {
		t.Fatalf("header = %+v, %v", h, err)
	}
	if e, _ := c.Lookup("core"); e.Signature != 11 {
		t.Fatalf("earlier directory should win, got signature %d", e.Signature)
	}
	if got := len(c.Entries()); got != 2 {
		t.Fatalf("indexed %d entries, want 2", got)
	}
	if _, err := c.Open("missing"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Open(missing) = %v", err)
	}
	if err := c.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reopened, err := Open(idxPath, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if _, err := reopened.Open("geo"); err != nil {
		t.Fatalf("indexed lookup without search dirs: %v", err)
	}
}

func TestStaleEntryRescans(t *testing.T) {
	dir := t.TempDir()
	writeEmpty(t, dir, "core", 1)
	c, err := Open(filepath.Join(dir, IndexName), []string{dir})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := c.Scan(); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	path := writeEmpty(t, dir, "core", 7)
	// The rewritten file has the same size; force a different timestamp.
	if err := os.Chtimes(path, fixedTime, fixedTime); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	data, err := c.Open("core")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if h, _ := assembly.ReadHeader(data); h.Signature != 7 {
		t.Fatalf("served stale descriptor with signature %d", h.Signature)
	}
}

func TestLoaderProvider(t *testing.T) {
	dir := t.TempDir()
	writeEmpty(t, dir, "core", 5)
	c, err := Open(filepath.Join(dir, IndexName), []string{dir})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	g := ids.NewGraph(ids.Options{AssemblyName: "app", PointerSize: 8})
	idx, err := assembly.NewLoader(g, c).LoadByName("core")
	if err != nil {
		t.Fatalf("LoadByName: %v", err)
	}
	if a := g.Assemblies[idx]; a.Name != "core" || a.Signature != 5 || !a.Loaded {
		t.Fatalf("loaded %+v", a)
	}
}
