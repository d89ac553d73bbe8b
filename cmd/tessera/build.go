package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build [flags] [tessera.toml|dir|files...]",
	Short: "Build an assembly",
	Long: `Build compiles the sources of a project into an assembly descriptor.
The project is read from tessera.toml; source files given directly are
compiled with the default settings.`,
	RunE: buildExecution,
}

func init() {
	addCompileFlags(buildCmd)
	buildCmd.Flags().StringP("output", "o", "", "assembly descriptor to write (default <name>.tasm)")
	buildCmd.Flags().String("listing", "", "write the generated listing to this file")
	buildCmd.Flags().String("progress", "auto", "phase progress while building (auto|view|plain)")
}

// addCompileFlags registers the flags shared by commands that compile.
func addCompileFlags(cmd *cobra.Command) {
	cmd.Flags().String("arch", "", "target architecture (overrides the project)")
	cmd.Flags().Bool("parallel", false, "preprocess and load assemblies in parallel")
	cmd.Flags().StringArrayP("define", "D", nil, "predefine a macro, NAME[=BODY]")
	cmd.Flags().StringArrayP("ref", "r", nil, "reference an assembly by name or path")
}

func buildExecution(cmd *cobra.Command, args []string) error {
	progressValue, err := cmd.Flags().GetString("progress")
	if err != nil {
		return err
	}
	mode, err := parseProgressMode(progressValue)
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
	c, err := prepareCompilation(cmd, p, true)
	if err != nil {
		return err
	}
	ok, runErr := c.run(cmd.Context(), showProgressView(mode, quiet(cmd), os.Stdout))
	if err := c.report(cmd); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}
	if !ok {
		return errCompilationFailed
	}

	// a fresh descriptor is found by name from now on
	if _, err := c.cache.Add(p.Output); err != nil {
		return fmt.Errorf("index %s: %w", p.Output, err)
	}
	if err := c.cache.Save(); err != nil {
		return fmt.Errorf("save assembly index: %w", err)
	}
	if !quiet(cmd) {
		fprintln(cmd.OutOrStdout(), "built", displayPath(p.Dir, p.Output))
	}
	return nil
}
