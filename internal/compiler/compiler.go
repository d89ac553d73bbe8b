// Package compiler drives a compilation: preprocessing, loading of
// referenced assemblies, declaration, layout, code generation and writing
// of the assembly descriptor.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"go/constant"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tessera/internal/arch"
	"tessera/internal/assembly"
	"tessera/internal/decls"
	"tessera/internal/diag"
	"tessera/internal/ids"
	"tessera/internal/lang"
	"tessera/internal/layout"
	"tessera/internal/observ"
	"tessera/internal/preproc"
	"tessera/internal/source"
	"tessera/internal/trace"
)

// Options configure a compilation.
type Options struct {
	AssemblyName string
	DescName     string
	// Signature of the output; zero picks a random one when writing.
	Signature uint32

	Arch arch.Architecture
	Lang lang.Language
	// MaxStructPow2Size overrides the architecture's value when positive.
	MaxStructPow2Size int
	Parallel          bool
	MaxDiagnostics    int
	// Defines are predefined macros, name to body.
	Defines map[string]string

	// Output is the descriptor path; empty skips writing it.
	Output string
	// Listing is the path of the generated listing; empty skips writing it.
	Listing string

	// Provider finds referenced assemblies by name.
	Provider assembly.Provider
	// Events receives progress; it is not closed by Compile.
	Events chan<- Event
	Logger *zap.Logger
}

// State is one compilation and everything it produced.
type State struct {
	Options
	Files    *source.FileSet
	Graph    *ids.Graph
	Bag      *diag.Bag
	Messages *diag.MessageTable
	Timer    *observ.Timer
	// Macros are the macro tables of the source files in input order.
	Macros preproc.Union
	// Generated is the output of the architecture.
	Generated []byte
}

// New prepares a compilation. Arch and Lang must be set.
func New(opts Options) *State {
	if opts.Logger == nil {
		opts.Logger = trace.Logger()
	}
	bag := diag.NewBag(opts.MaxDiagnostics)
	target := opts.Arch.Target()
	g := ids.NewGraph(ids.Options{
		AssemblyName:             opts.AssemblyName,
		Signature:                opts.Signature,
		PointerSize:              target.PointerSize,
		Reporter:                 diag.NewDedupReporter(diag.BagReporter{Bag: bag}),
		SelfName:                 opts.Lang.SelfName(),
		BaseName:                 opts.Lang.BaseName(),
		Predeclared:              opts.Lang.Predeclared(),
		ConvertParametersToTuple: opts.Lang.Flags()&lang.ConvertParametersToTuple != 0,
	})
	if opts.DescName != "" {
		g.Assemblies[g.Current].DescName = opts.DescName
	}
	return &State{
		Options:  opts,
		Files:    source.NewFileSet(),
		Graph:    g,
		Bag:      bag,
		Messages: diag.DefaultMessages(),
		Timer:    observ.NewTimer(),
	}
}

// Compile runs every phase over the source files, the referenced
// assemblies and the include-binaries (variable name to file path). It
// reports success when no error diagnostic was produced. A cancelled
// context stops it between phases.
func (s *State) Compile(ctx context.Context, files, assemblies []string, incBins map[string]string) bool {
	ctx, span := trace.Start(ctx, trace.ScopeCompiler, "compile "+s.AssemblyName)
	defer span.End("")
	arch.SetParallel(s.Parallel)
	defer arch.SetParallel(false)

	phases := []struct {
		name  string
		stage Stage
		run   func(context.Context) error
	}{
		{"preprocess", StagePreprocess, func(ctx context.Context) error { return s.preprocess(ctx, files) }},
		{"load", StageLoad, func(ctx context.Context) error { return s.loadAssemblies(ctx, assemblies) }},
		{"declare", StageDeclare, func(ctx context.Context) error { return s.declare(ctx, incBins) }},
		{"layout", StageLayout, s.layout},
		{"generate", StageGenerate, s.generate},
		{"write", StageWrite, s.write},
	}
	for _, ph := range phases {
		if err := ctx.Err(); err != nil {
			s.Logger.Info("compilation cancelled", zap.String("phase", ph.name), zap.Error(err))
			return false
		}
		pctx, pspan := trace.Start(ctx, trace.ScopePhase, ph.name)
		s.emit("", ph.stage, StatusWorking)
		err := s.Timer.Measure(ph.name, func() error { return ph.run(pctx) })
		pspan.End("")
		if err != nil {
			s.emit("", ph.stage, StatusError)
			s.Logger.Info("compilation stopped", zap.String("phase", ph.name), zap.Error(err))
			return false
		}
		s.emit("", ph.stage, StatusDone)
		// later phases need a consistent graph
		if s.Bag.HasErrors() {
			break
		}
	}
	ok := !s.Bag.HasErrors()
	s.Logger.Debug("compilation finished", append(s.Timer.Fields(),
		zap.String("assembly", s.AssemblyName),
		zap.Int("errors", s.Bag.Count(diag.SevError)),
		zap.Bool("ok", ok))...)
	return ok
}

func (s *State) report(code diag.Code, args ...any) {
	diag.Report(s.Graph.Reporter, code, source.Span{}, args...)
}

func (s *State) workers() int {
	if !s.Parallel {
		return 1
	}
	return runtime.GOMAXPROCS(0)
}

// preprocess reads the sources and runs the directive pass over each one
// with its own copy of the predefined macros.
func (s *State) preprocess(ctx context.Context, paths []string) error {
	var loaded []*source.File
	for _, p := range paths {
		s.emit(p, StageQueued, StatusWorking)
		id, err := s.Files.Load(p)
		if err != nil {
			s.report(diag.CannotReadFile, p, errText(err))
			s.emit(p, StagePreprocess, StatusError)
			continue
		}
		loaded = append(loaded, s.Files.Get(id))
	}

	base := preproc.New(s.Lang, nil)
	for _, name := range sortedKeys(s.Defines) {
		base.Define(name, s.Defines[name])
	}
	tables := make([]*preproc.Table, len(loaded))
	bags := make([]*diag.Bag, len(loaded))
	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(s.workers())
	for i, f := range loaded {
		eg.Go(func() error {
			if err := ectx.Err(); err != nil {
				return err
			}
			_, span := trace.Start(ectx, trace.ScopeUnit, f.Path)
			defer span.End("")
			s.emit(f.Path, StagePreprocess, StatusWorking)
			bags[i] = diag.NewBag(0)
			pp := base.Clone()
			pp.Reporter = diag.BagReporter{Bag: bags[i]}
			pp.Process(f)
			tables[i] = pp.Macros
			status := StatusDone
			if bags[i].HasErrors() {
				status = StatusError
			}
			s.emit(f.Path, StagePreprocess, status)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	// merge in input order so diagnostics do not depend on scheduling
	for i, b := range bags {
		for _, d := range b.Items() {
			s.Graph.Reporter.Report(d)
		}
		s.Macros = append(s.Macros, tables[i])
		s.Graph.AddCode(s.Graph.Global(), loaded[i].All())
	}
	return nil
}

// loadAssemblies fetches the referenced descriptors concurrently and adds
// them to the graph in the order given.
func (s *State) loadAssemblies(ctx context.Context, refs []string) error {
	data := make([][]byte, len(refs))
	errs := make([]error, len(refs))
	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(s.workers())
	for i, ref := range refs {
		eg.Go(func() error {
			if err := ectx.Err(); err != nil {
				return err
			}
			s.emit(ref, StageLoad, StatusWorking)
			data[i], errs[i] = s.fetch(ref)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	loader := assembly.NewLoader(s.Graph, s.Provider)
	for i, ref := range refs {
		err := errs[i]
		idx := -1
		if err == nil {
			idx, err = loader.Load(data[i])
		}
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				s.report(diag.AssemblyNotFound, ref)
			} else {
				s.report(diag.CannotLoadAssembly, ref, errText(err))
			}
			s.emit(ref, StageLoad, StatusError)
			continue
		}
		if isPath(ref) {
			s.Graph.Assemblies[idx].Path = ref
		}
		s.report(diag.AssemblyLoaded, s.Graph.Assemblies[idx].Name)
		s.Logger.Debug("assembly loaded",
			zap.String("name", s.Graph.Assemblies[idx].Name),
			zap.Uint32("signature", s.Graph.Assemblies[idx].Signature))
		s.emit(ref, StageLoad, StatusDone)
	}
	return nil
}

func (s *State) fetch(ref string) ([]byte, error) {
	if isPath(ref) {
		return os.ReadFile(ref)
	}
	if s.Provider == nil {
		return nil, fmt.Errorf("assembly %q: %w", ref, fs.ErrNotExist)
	}
	return s.Provider.Open(ref)
}

func isPath(ref string) bool {
	return strings.HasSuffix(ref, assembly.Ext) || strings.ContainsRune(ref, filepath.Separator) || strings.ContainsRune(ref, '/')
}

// declare runs the declaration pipeline over the global code, then adds
// the include-binaries.
func (s *State) declare(ctx context.Context, incBins map[string]string) error {
	macros := s.Macros.Merged()
	p := decls.NewPipeline(s.Graph, s.Lang.Recognizer(macros))
	p.Macros = s.Macros
	if err := p.Run(ctx, s.Graph.Global()); err != nil {
		return err
	}
	for _, name := range sortedKeys(incBins) {
		s.declareBinary(name, incBins[name])
	}
	return nil
}

// declareBinary declares name as a global readonly uint8[N] holding the
// bytes of the file at path.
func (s *State) declareBinary(name, path string) {
	id, err := s.Files.LoadBinary(path)
	if err != nil {
		s.report(diag.CannotReadFile, path, errText(err))
		return
	}
	data := s.Files.Get(id).Content
	g := s.Graph
	v := g.New(ids.KindGlobalVar, g.Global(), source.FreeString(name))
	ident := g.Id(v)
	ident.Access = ids.AccessPublic
	ident.Flags |= ids.FlagReadOnly
	ident.Children = []ids.ID{g.ArrayOf(g.Builtins.UInt8, len(data))}
	ident.Var.Const = constant.MakeString(string(data))
	ident.Var.GlobalIndex = s.nextGlobalIndex()
	g.DeclareIdentifier(g.Global(), v)
}

func (s *State) nextGlobalIndex() int {
	next := 0
	g := s.Graph
	for _, id := range g.All() {
		ident := g.Id(id)
		if ident.Var != nil && ident.Assembly == g.Current && ident.Var.GlobalIndex >= next {
			next = ident.Var.GlobalIndex + 1
		}
	}
	return next
}

func (s *State) target() layout.Target {
	t := s.Arch.Target()
	if s.MaxStructPow2Size > 0 {
		t.MaxStructPow2Size = s.MaxStructPow2Size
	}
	return t
}

func (s *State) layout(context.Context) error {
	if err := layout.New(s.target(), s.Graph).CalculateAll(); err != nil {
		var le *layout.Error
		// a layout error without a diagnostic is a compiler fault
		if !errors.As(err, &le) || !s.Bag.HasErrors() {
			return err
		}
		s.Logger.Debug("layout failed", zap.Error(err))
	}
	return nil
}

func (s *State) generate(ctx context.Context) error {
	out, err := s.Arch.Compile(ctx, s.Graph)
	if err != nil {
		return err
	}
	s.Generated = out
	if s.Listing == "" {
		return nil
	}
	if err := writeOutput(s.Listing, out); err != nil {
		s.report(diag.CannotWriteAssembly, s.Listing, errText(err))
	}
	return nil
}

func (s *State) write(context.Context) error {
	if s.Output == "" {
		return nil
	}
	data, err := assembly.Write(s.Graph)
	if err == nil {
		err = writeOutput(s.Output, data)
	}
	if err != nil {
		s.report(diag.CannotWriteAssembly, s.Output, errText(err))
		s.emit(s.Output, StageWrite, StatusError)
		return nil
	}
	s.emit(s.Output, StageWrite, StatusDone)
	return nil
}

func writeOutput(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func errText(err error) string {
	var pe *fs.PathError
	if errors.As(err, &pe) {
		return pe.Err.Error()
	}
	return err.Error()
}

func sortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
