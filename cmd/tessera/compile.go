package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tessera/internal/arch"
	"tessera/internal/asmcache"
	"tessera/internal/compiler"
	"tessera/internal/config"
	"tessera/internal/diag"
	"tessera/internal/lang"
	"tessera/internal/source"
	"tessera/internal/trace"
	"tessera/internal/ui"

	_ "tessera/internal/lang/tess"
)

var errCompilationFailed = errors.New("compilation failed")

// compilation is a prepared compiler state and the index its referenced
// assemblies are found through.
type compilation struct {
	state   *compiler.State
	cache   *asmcache.Cache
	project *config.Project
}

// prepareCompilation resolves the architecture and the language of p and
// creates the compiler state. Output and listing are written only when
// write is set.
func prepareCompilation(cmd *cobra.Command, p *config.Project, write bool) (*compilation, error) {
	messages, err := diag.LoadMessages(p.Compiler.Culture)
	if err != nil {
		return nil, err
	}

	setup := diag.NewBag(0)
	reporter := diag.BagReporter{Bag: setup}
	a, ok := arch.Lookup(p.Target.Arch)
	if !ok {
		diag.Report(reporter, diag.UnknownArchitecture, source.Span{}, p.Target.Arch)
	}
	l, ok := lang.Lookup(p.Compiler.Language)
	if !ok {
		diag.Report(reporter, diag.UnknownLanguage, source.Span{}, p.Compiler.Language)
	}
	if setup.HasErrors() {
		if err := printDiagnostics(cmd, setup.Items(), nil, messages); err != nil {
			return nil, err
		}
		return nil, errCompilationFailed
	}
	if reg := p.Target.RegisterSize; reg > 0 && reg != a.RegisterSize() {
		if _, generic := a.(*arch.Generic); !generic {
			return nil, fmt.Errorf("architecture %s has a fixed register size of %d", a.Name(), a.RegisterSize())
		}
		a = arch.NewGeneric(a.Name(), reg)
	}

	cache, err := asmcache.Open(filepath.Join(p.Dir, asmcache.IndexName), searchDirs(p))
	if err != nil {
		return nil, fmt.Errorf("assembly index: %w", err)
	}
	defines, err := readDefines(cmd)
	if err != nil {
		return nil, err
	}

	opts := compiler.Options{
		AssemblyName:      p.Name,
		DescName:          p.Description,
		Arch:              a,
		Lang:              l,
		MaxStructPow2Size: p.Target.MaxStructPow2Size,
		Parallel:          p.Compiler.Parallel,
		MaxDiagnostics:    p.Compiler.MaxDiagnostics,
		Defines:           defines,
		Provider:          cache,
		Logger:            trace.Logger(),
	}
	if write {
		opts.Output = p.Output
		opts.Listing = p.Listing
	}
	s := compiler.New(opts)
	s.Files = source.NewFileSetWithBase(p.Dir)
	s.Messages = messages
	if p.Compiler.TupleParams {
		s.Graph.Opts.ConvertParametersToTuple = true
	}
	return &compilation{state: s, cache: cache, project: p}, nil
}

// readDefines parses the repeated --define NAME[=BODY] flag.
func readDefines(cmd *cobra.Command) (map[string]string, error) {
	values, err := cmd.Flags().GetStringArray("define")
	if err != nil {
		return nil, err
	}
	defines := make(map[string]string, len(values))
	for _, v := range values {
		name, body, _ := strings.Cut(v, "=")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("invalid --define %q", v)
		}
		defines[name] = body
	}
	return defines, nil
}

// run compiles with a progress view when useTUI is set, plain otherwise.
func (c *compilation) run(ctx context.Context, useTUI bool) (bool, error) {
	p := c.project
	if !useTUI {
		return c.state.Compile(ctx, p.Sources, p.Assemblies, p.Binaries), nil
	}

	events := make(chan compiler.Event, 256)
	c.state.Events = events
	done := make(chan bool, 1)
	go func() {
		ok := c.state.Compile(ctx, p.Sources, p.Assemblies, p.Binaries)
		close(events)
		done <- ok
	}()

	units := make([]string, 0, len(p.Sources))
	for _, src := range p.Sources {
		units = append(units, displayPath(p.Dir, src))
	}
	model := ui.NewProgressModel("building "+p.Name, units, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	// the view may quit early; keep the compiler from blocking on events
	go func() {
		for range events {
		}
	}()
	ok := <-done
	return ok, uiErr
}

// report prints the diagnostics of the compilation and, with --timings,
// the phase summary.
func (c *compilation) report(cmd *cobra.Command) error {
	s := c.state
	s.Bag.Sort()
	if err := printDiagnostics(cmd, s.Bag.Items(), s.Files, s.Messages); err != nil {
		return err
	}
	return c.printTimings(cmd)
}

func (c *compilation) printTimings(cmd *cobra.Command) error {
	timings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}
	if timings {
		fmt.Fprint(cmd.ErrOrStderr(), c.state.Timer.Summary())
	}
	return nil
}

func printDiagnostics(cmd *cobra.Command, diags []diag.Diagnostic, fs *source.FileSet, messages *diag.MessageTable) error {
	if len(diags) == 0 {
		return nil
	}
	useColor, err := colorEnabled(cmd, os.Stderr)
	if err != nil {
		return err
	}
	return diag.Pretty(cmd.ErrOrStderr(), diags, fs, diag.PrettyOpts{
		Color:     useColor,
		ShowNotes: true,
		Messages:  messages,
	})
}

// colorEnabled reads --color; auto enables color on terminals.
func colorEnabled(cmd *cobra.Command, f *os.File) (bool, error) {
	value, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return false, fmt.Errorf("failed to get color flag: %w", err)
	}
	switch strings.ToLower(value) {
	case "on":
		return true, nil
	case "off":
		return false, nil
	case "auto", "":
		return isTerminal(f) && !color.NoColor, nil
	}
	return false, fmt.Errorf("invalid --color value %q (expected auto|on|off)", value)
}

func quiet(cmd *cobra.Command) bool {
	v, err := cmd.Root().PersistentFlags().GetBool("quiet")
	return err == nil && v
}

func displayPath(base, path string) string {
	if rel, err := filepath.Rel(base, path); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return filepath.ToSlash(path)
}

func fprintln(w io.Writer, a ...any) {
	if _, err := fmt.Fprintln(w, a...); err != nil {
		panic(err)
	}
}
