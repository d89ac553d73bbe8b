package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"tessera/internal/asmcache"
	"tessera/internal/assembly"
	"tessera/internal/diag"
	"tessera/internal/ids"
)

var dumpCmd = &cobra.Command{
	Use:   "dump [flags] <file.tasm>",
	Short: "Print the identifiers of an assembly descriptor",
	Args:  cobra.ExactArgs(1),
	RunE:  runDump,
}

func init() {
	dumpCmd.Flags().StringArrayP("search", "I", nil, "directories holding referenced assemblies")
}

func runDump(cmd *cobra.Command, args []string) error {
	path := args[0]
	search, err := cmd.Flags().GetStringArray("search")
	if err != nil {
		return err
	}
	dirs := append(search, filepath.Dir(path))
	cache, err := asmcache.Open(filepath.Join(filepath.Dir(path), asmcache.IndexName), dirs)
	if err != nil {
		return fmt.Errorf("assembly index: %w", err)
	}
	g := ids.NewGraph(ids.Options{AssemblyName: "dump", Reporter: diag.NopReporter{}})
	idx, err := assembly.NewLoader(g, cache).LoadFile(path)
	if err != nil {
		return err
	}
	return dumpAssembly(cmd.OutOrStdout(), g, idx)
}

// dumpAssembly writes the assembly header, its references and one line
// per identifier, indented by nesting.
func dumpAssembly(w io.Writer, g *ids.Graph, idx int) error {
	asm := g.Assemblies[idx]
	if _, err := fmt.Fprintf(w, "assembly %s (%s) signature %08x\n", asm.Name, asm.DescName, asm.Signature); err != nil {
		return err
	}
	for _, child := range asm.Children {
		if _, err := fmt.Fprintf(w, "  references %s\n", g.Assemblies[child].Name); err != nil {
			return err
		}
	}
	return dumpContainer(w, g, asm.Global, 1)
}

func dumpContainer(w io.Writer, g *ids.Graph, c ids.ContainerID, depth int) error {
	for _, id := range g.C(c).Ids {
		if _, err := fmt.Fprintln(w, describe(g, id, depth)); err != nil {
			return err
		}
		if scope := g.Id(id).Scope; scope.IsValid() {
			if err := dumpContainer(w, g, scope, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

func describe(g *ids.Graph, id ids.ID, depth int) string {
	ident := g.Id(id)
	var b strings.Builder
	b.WriteString(strings.Repeat("  ", depth))
	fmt.Fprintf(&b, "%s %s %s", ident.Access, ident.Kind, ident.NameString())
	if t := ident.TypeOfSelf(); t.IsValid() {
		b.WriteString(": " + g.Name(t))
	}
	if flags := ident.Flags.Strings(); len(flags) > 0 {
		b.WriteString(" [" + strings.Join(flags, " ") + "]")
	}
	if ident.Var != nil && ident.Var.Const != nil {
		b.WriteString(" = " + ident.Var.Const.ExactString())
	}
	return b.String()
}
