package main

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var exportFormat string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Dump the whole registry",
	Long: `Print every user (with permissions) and every environment (with its
access history) in a structured format.

Examples:
  gatehouse export
  gatehouse export --format yaml > registry.yaml`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "Output format: json, yaml, toml")
}

func runExport(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), false, func(a *app) error {
		snap := a.registry.Snapshot()
		out := cmd.OutOrStdout()

		switch exportFormat {
		case "json":
			return writeJSON(out, snap)
		case "yaml", "yml":
			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			if err := enc.Encode(snap); err != nil {
				return fmt.Errorf("encoding yaml: %w", err)
			}
			return enc.Close()
		case "toml":
			if err := toml.NewEncoder(out).Encode(snap); err != nil {
				return fmt.Errorf("encoding toml: %w", err)
			}
			return nil
		default:
			return fmt.Errorf("unsupported format %q: use json, yaml or toml", exportFormat)
		}
	})
}
