package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"tessera/internal/assembly"
	"tessera/internal/config"
)

const noProjectMessage = "no " + config.FileName + " found; pass a project file, a directory or source files"

// resolveProject builds the project a command works on. The arguments are
// a project file, a directory to search from, or source files compiled
// with the default settings. Without arguments the current directory is
// searched.
func resolveProject(cmd *cobra.Command, args []string) (*config.Project, error) {
	var p *config.Project
	switch {
	case len(args) == 1 && filepath.Base(args[0]) == config.FileName:
		loaded, err := config.Load(args[0])
		if err != nil {
			return nil, err
		}
		p = loaded
	case len(args) == 0 || len(args) == 1 && isDir(args[0]):
		start := "."
		if len(args) == 1 {
			start = args[0]
		}
		path, ok, err := config.Find(start)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errors.New(noProjectMessage)
		}
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		p = loaded
	default:
		adhoc, err := adhocProject(args)
		if err != nil {
			return nil, err
		}
		p = adhoc
	}
	if err := applyOverrides(cmd, p); err != nil {
		return nil, err
	}
	return p, nil
}

func adhocProject(files []string) (*config.Project, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}
	p := config.Default()
	p.Dir = cwd
	p.Name = strings.TrimSuffix(filepath.Base(files[0]), filepath.Ext(files[0]))
	for _, f := range files {
		if !filepath.IsAbs(f) {
			f = filepath.Join(cwd, f)
		}
		p.Sources = append(p.Sources, f)
	}
	return &p, nil
}

// applyOverrides lets command line flags win over the project file.
func applyOverrides(cmd *cobra.Command, p *config.Project) error {
	flags := cmd.Flags()
	if flags.Lookup("arch") != nil && flags.Changed("arch") {
		v, err := flags.GetString("arch")
		if err != nil {
			return err
		}
		p.Target.Arch = v
	}
	if flags.Lookup("parallel") != nil && flags.Changed("parallel") {
		v, err := flags.GetBool("parallel")
		if err != nil {
			return err
		}
		p.Compiler.Parallel = v
	}
	if flags.Lookup("output") != nil && flags.Changed("output") {
		v, err := flags.GetString("output")
		if err != nil {
			return err
		}
		p.Output = v
	}
	if flags.Lookup("listing") != nil && flags.Changed("listing") {
		v, err := flags.GetString("listing")
		if err != nil {
			return err
		}
		p.Listing = v
	}
	if flags.Lookup("ref") != nil && flags.Changed("ref") {
		refs, err := flags.GetStringArray("ref")
		if err != nil {
			return err
		}
		p.Assemblies = append(p.Assemblies, refs...)
	}
	if p.Output == "" && flags.Lookup("output") != nil {
		p.Output = filepath.Join(p.Dir, p.Name+assembly.Ext)
	}

	root := cmd.Root().PersistentFlags()
	maxDiagnostics, err := root.GetInt("max-diagnostics")
	if err != nil {
		return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	if maxDiagnostics > 0 {
		p.Compiler.MaxDiagnostics = maxDiagnostics
	}
	culture, err := root.GetString("lang")
	if err != nil {
		return fmt.Errorf("failed to get lang flag: %w", err)
	}
	if culture != "" {
		p.Compiler.Culture = culture
	}
	return nil
}

// searchDirs lists where referenced assemblies are looked up: the search
// path, then the directory of the output, then the project directory.
func searchDirs(p *config.Project) []string {
	dirs := append([]string(nil), p.SearchPath...)
	if p.Output != "" {
		dirs = append(dirs, filepath.Dir(p.Output))
	}
	return append(dirs, p.Dir)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
