package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tessera/internal/arch"
	"tessera/internal/lang"
	"tessera/internal/version"
)

type versionPayload struct {
	Tool          string   `json:"tool"`
	Version       string   `json:"version"`
	GitCommit     string   `json:"git_commit,omitempty"`
	BuildDate     string   `json:"build_date,omitempty"`
	Architectures []string `json:"architectures"`
	Languages     []string `json:"languages"`
}

var (
	versionFormat string
	versionFull   bool
)

func init() {
	versionCmd.Flags().StringVar(&versionFormat, "format", "pretty", "output format (pretty|json)")
	versionCmd.Flags().BoolVar(&versionFull, "full", false, "also list architectures and languages")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show tessera build information",
	RunE: func(cmd *cobra.Command, args []string) error {
		switch strings.ToLower(versionFormat) {
		case "json":
			return renderVersionJSON(cmd.OutOrStdout())
		case "pretty":
			useColor, err := colorEnabled(cmd, os.Stdout)
			if err != nil {
				return err
			}
			color.NoColor = !useColor
			return renderVersionPretty(cmd.OutOrStdout(), versionFull)
		}
		return fmt.Errorf("unsupported format %q (must be pretty or json)", versionFormat)
	},
}

func renderVersionPretty(out io.Writer, full bool) error {
	if _, err := fmt.Fprintln(out, version.String()); err != nil {
		return err
	}
	if !full {
		return nil
	}
	_, err := fmt.Fprintf(out, "architectures: %s\nlanguages: %s\n",
		strings.Join(arch.Names(), ", "), strings.Join(lang.Names(), ", "))
	return err
}

func renderVersionJSON(out io.Writer) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(versionPayload{
		Tool:          "tessera",
		Version:       version.Version,
		GitCommit:     version.GitCommit,
		BuildDate:     version.BuildDate,
		Architectures: arch.Names(),
		Languages:     lang.Names(),
	})
}
