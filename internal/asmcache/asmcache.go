// Package asmcache keeps an on-disk index from assembly names to the
// descriptor files that hold them, so referenced assemblies are found by
// name without reading every file on the search path.
package asmcache

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"tessera/internal/assembly"
)

// schemaVersion is bumped whenever Entry changes shape.
const schemaVersion uint16 = 1

// IndexName is the file the index is stored in.
const IndexName = "assemblies.idx"

// Entry describes one descriptor file.
type Entry struct {
	Name      string
	Path      string
	Signature uint32
	Size      int64
	ModTime   int64
	Hash      [sha256.Size]byte
}

type index struct {
	Schema  uint16
	Entries map[string]Entry
}

// Cache is the index plus the directories it covers. It implements
// assembly.Provider and is safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	path    string
	dirs    []string
	entries map[string]Entry
	dirty   bool
}

// ErrHashMismatch reports a descriptor that changed without its size or
// modification time changing.
var ErrHashMismatch = errors.New("descriptor content does not match the index")

// Open reads the index at path, if any, for the search directories dirs.
// A missing or outdated index starts empty.
func Open(path string, dirs []string) (*Cache, error) {
	c := &Cache{path: path, dirs: dirs, entries: make(map[string]Entry)}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return c, nil
		}
		return nil, err
	}
	defer f.Close()
	var idx index
	if err := msgpack.NewDecoder(f).Decode(&idx); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if idx.Schema == schemaVersion && idx.Entries != nil {
		c.entries = idx.Entries
	} else {
		c.dirty = true
	}
	return c, nil
}

// Lookup returns the indexed entry of name.
func (c *Cache) Lookup(name string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[name]
	return e, ok
}

// Entries returns the indexed entries sorted by name.
func (c *Cache) Entries() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Open returns the descriptor of name. A stale entry triggers a rescan of
// the search directories.
func (c *Cache) Open(name string) ([]byte, error) {
	if e, ok := c.Lookup(name); ok {
		data, err := c.read(e)
		if err == nil {
			return data, nil
		}
	}
	if err := c.Scan(); err != nil {
		return nil, err
	}
	e, ok := c.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("assembly %q: %w", name, fs.ErrNotExist)
	}
	return c.read(e)
}

// read returns the file of e when it still matches the index.
func (c *Cache) read(e Entry) ([]byte, error) {
	info, err := os.Stat(e.Path)
	if err != nil {
		return nil, err
	}
	if info.Size() != e.Size || info.ModTime().UnixNano() != e.ModTime {
		return nil, fmt.Errorf("%s: %w", e.Path, fs.ErrNotExist)
	}
	data, err := os.ReadFile(e.Path)
	if err != nil {
		return nil, err
	}
	if sha256.Sum256(data) != e.Hash {
		return nil, fmt.Errorf("%s: %w", e.Path, ErrHashMismatch)
	}
	return data, nil
}

// Scan rebuilds the index from the descriptors in the search directories.
// When two directories hold the same assembly the earlier one wins.
// Files that are not valid descriptors are skipped.
func (c *Cache) Scan() error {
	entries := make(map[string]Entry)
	for _, dir := range c.dirs {
		files, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
		for _, f := range files {
			if f.IsDir() || !strings.HasSuffix(f.Name(), assembly.Ext) {
				continue
			}
			e, err := entryFor(filepath.Join(dir, f.Name()))
			if err != nil {
				continue
			}
			if _, seen := entries[e.Name]; !seen {
				entries[e.Name] = e
			}
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = entries
	c.dirty = true
	return nil
}

// Add indexes the descriptor at path, replacing an entry of the same name.
func (c *Cache) Add(path string) (Entry, error) {
	e, err := entryFor(path)
	if err != nil {
		return Entry{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[e.Name] = e
	c.dirty = true
	return e, nil
}

func entryFor(path string) (Entry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Entry{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, err
	}
	h, err := assembly.ReadHeader(data)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		Name:      h.Name,
		Path:      path,
		Signature: h.Signature,
		Size:      info.Size(),
		ModTime:   info.ModTime().UnixNano(),
		Hash:      sha256.Sum256(data),
	}, nil
}

// Save writes the index if it changed, replacing the old file atomically.
func (c *Cache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(c.path), "idx-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp)
	if err := msgpack.NewEncoder(f).Encode(index{Schema: schemaVersion, Entries: c.entries}); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return err
	}
	c.dirty = false
	return nil
}
