package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tessera/internal/diag"
)

var diagCmd = &cobra.Command{
	Use:   "diag [flags] [tessera.toml|dir|files...]",
	Short: "Report diagnostics without writing output",
	RunE:  runDiagnose,
}

func init() {
	addCompileFlags(diagCmd)
	diagCmd.Flags().String("format", "pretty", "output format (pretty|short)")
	diagCmd.Flags().Bool("warnings-as-errors", false, "fail when warnings are reported")
	diagCmd.Flags().String("min-severity", "info", "lowest severity printed (info|warning|error)")
}

// runDiagnose compiles without writing anything and prints what was
// reported. It fails when errors, or warnings with --warnings-as-errors,
// were found.
func runDiagnose(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	if format != "pretty" && format != "short" {
		return fmt.Errorf("unsupported format %q (must be pretty or short)", format)
	}
	strict, err := cmd.Flags().GetBool("warnings-as-errors")
	if err != nil {
		return fmt.Errorf("failed to get warnings-as-errors flag: %w", err)
	}

	minValue, err := cmd.Flags().GetString("min-severity")
	if err != nil {
		return fmt.Errorf("failed to get min-severity flag: %w", err)
	}
	minSeverity, err := diag.ParseSeverity(minValue)
	if err != nil {
		return err
	}

	cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	p, err := resolveProject(cmd, args)
	if err != nil {
		return err
	}
	c, err := prepareCompilation(cmd, p, false)
	if err != nil {
		return err
	}
	ok := c.state.Compile(cmd.Context(), p.Sources, p.Assemblies, p.Binaries)

	s := c.state
	s.Bag.Sort()
	shown := diag.AtLeast(s.Bag.Items(), minSeverity)
	if format == "short" {
		if len(shown) > 0 {
			fprintln(cmd.OutOrStdout(), diag.FormatShort(shown, s.Files, false))
		}
	} else if err := printDiagnostics(cmd, shown, s.Files, s.Messages); err != nil {
		return err
	}
	if err := c.printTimings(cmd); err != nil {
		return err
	}

	if !ok || strict && s.Bag.HasWarnings() {
		return errCompilationFailed
	}
	if !quiet(cmd) {
		fprintln(cmd.ErrOrStderr(), fmt.Sprintf("%s: %d warning(s), no errors", p.Name, s.Bag.Count(diag.SevWarning)))
	}
	return nil
}
