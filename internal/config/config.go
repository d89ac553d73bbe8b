// Package config reads the tessera.toml project file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the project file looked up by Find.
const FileName = "tessera.toml"

// Project is the decoded project file. Relative paths are resolved against
// Dir by Load.
type Project struct {
	// Dir is the directory holding the project file.
	Dir string `toml:"-"`

	Name        string   `toml:"name"`
	Description string   `toml:"description"`
	Sources     []string `toml:"sources"`
	Output      string   `toml:"output"`
	Listing     string   `toml:"listing"`

	Target   Target   `toml:"target"`
	Compiler Compiler `toml:"compiler"`

	// Assemblies are referenced assemblies: names found through the
	// search path, or file paths ending in the assembly extension.
	Assemblies []string `toml:"assemblies"`
	SearchPath []string `toml:"search_path"`

	// Binaries become readonly byte arrays named after their key.
	Binaries map[string]string `toml:"binaries"`
}

// Target describes the machine.
type Target struct {
	Arch              string `toml:"arch"`
	// RegisterSize overrides the architecture's register width when set.
	RegisterSize      int    `toml:"register_size"`
	MaxStructPow2Size int    `toml:"max_struct_pow2_size"`
}

// Compiler holds front-end settings.
type Compiler struct {
	Language       string `toml:"language"`
	Culture        string `toml:"culture"`
	Parallel       bool   `toml:"parallel"`
	MaxDiagnostics int    `toml:"max_diagnostics"`
	TupleParams    bool   `toml:"tuple_params"`
}

var (
	// ErrNameMissing reports a project without a name.
	ErrNameMissing = errors.New("missing name")
	// ErrNoSources reports a project without sources.
	ErrNoSources = errors.New("no sources")
)

// FieldError points at an invalid field of a project file.
type FieldError struct {
	Path  string
	Field string
	Err   error
}

func (e *FieldError) Error() string { return fmt.Sprintf("%s: %s: %v", e.Path, e.Field, e.Err) }
func (e *FieldError) Unwrap() error { return e.Err }

// Default returns the settings used without a project file.
func Default() Project {
	return Project{
		Target:   Target{Arch: "generic64"},
		Compiler: Compiler{Language: "tess", Culture: "en", MaxDiagnostics: 100},
	}
}

// Load decodes path over Default and validates it.
func Load(path string) (*Project, error) {
	p := Default()
	meta, err := toml.DecodeFile(path, &p)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, &FieldError{Path: path, Field: undecoded[0].String(), Err: errors.New("unknown key")}
	}
	p.Dir = filepath.Dir(path)
	if err := p.validate(path, meta); err != nil {
		return nil, err
	}
	p.resolvePaths()
	return &p, nil
}

func (p *Project) validate(path string, meta toml.MetaData) error {
	p.Name = strings.TrimSpace(p.Name)
	if !meta.IsDefined("name") || p.Name == "" {
		return &FieldError{Path: path, Field: "name", Err: ErrNameMissing}
	}
	if len(p.Sources) == 0 {
		return &FieldError{Path: path, Field: "sources", Err: ErrNoSources}
	}
	switch p.Target.RegisterSize {
	case 0, 1, 2, 4, 8, 16:
	default:
		return &FieldError{Path: path, Field: "target.register_size",
			Err: fmt.Errorf("%d is not a power of two up to 16", p.Target.RegisterSize)}
	}
	if n := p.Target.MaxStructPow2Size; n != 0 && (n&(n-1) != 0 || n < 0) {
		return &FieldError{Path: path, Field: "target.max_struct_pow2_size",
			Err: fmt.Errorf("%d is not a power of two", n)}
	}
	for name := range p.Binaries {
		if !isIdent(name) {
			return &FieldError{Path: path, Field: "binaries." + name, Err: errors.New("not an identifier")}
		}
	}
	return nil
}

func (p *Project) resolvePaths() {
	abs := func(s string) string {
		if s == "" || filepath.IsAbs(s) {
			return s
		}
		return filepath.Join(p.Dir, filepath.FromSlash(s))
	}
	for i, s := range p.Sources {
		p.Sources[i] = abs(s)
	}
	for i, s := range p.SearchPath {
		p.SearchPath[i] = abs(s)
	}
	for i, s := range p.Assemblies {
		if strings.ContainsAny(s, `/\`) {
			p.Assemblies[i] = abs(s)
		}
	}
	for k, v := range p.Binaries {
		p.Binaries[k] = abs(v)
	}
	p.Output = abs(p.Output)
	p.Listing = abs(p.Listing)
}

// Find walks up from startDir to the nearest project file.
func Find(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false, nil
		}
		dir = parent
	}
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
