// Package main implements the tessera CLI.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"tessera/internal/version"
)

var rootCmd = &cobra.Command{
	Use:          "tessera",
	Short:        "Tessera compiler core",
	Long:         `Tessera declares, lays out and packages assemblies of tess sources`,
	SilenceUsage: true,
}

func init() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(diagCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(versionCmd)

	flags := rootCmd.PersistentFlags()
	flags.String("color", "auto", "colorize output (auto|on|off)")
	flags.Bool("quiet", false, "suppress non-essential output")
	flags.Bool("timings", false, "show timing information")
	flags.Int("max-diagnostics", 0, "maximum number of diagnostics to collect (0 uses the project setting)")
	flags.String("lang", "", "culture of diagnostic messages, such as de or en-GB")
	flags.String("log-level", "warn", "compiler log level (debug|info|warn|error)")

	flags.String("trace", "", "trace output file (- for stderr)")
	flags.String("trace-level", "off", "trace level (off|phase|detail|debug)")
	flags.String("trace-mode", "stream", "trace mode (stream|ring|both|log)")
	flags.String("trace-format", "text", "trace format (text|ndjson)")
	flags.Int("trace-ring-size", 4096, "events kept by the ring tracer")
}

// main runs the root command. A failed command exits with status 1.
func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
