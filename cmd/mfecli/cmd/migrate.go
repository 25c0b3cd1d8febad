package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/GoCodeAlone/mfekernel/modules/manifest"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "migrate <file>",
		Short: "Convert a legacy manifest to the structured format",
		Long: `Convert a legacy manifest to the structured format and print it.
Shared framework packages become peer dependencies, everything else becomes
a runtime dependency, and the container range is set to "*".
Structured manifests are printed back unchanged apart from normalization.

Examples:
  mfecli migrate legacy.json > mfe.json
  mfecli migrate --output yaml legacy.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, args[0], output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "json", "Output format (json, yaml)")
	return cmd
}

func runMigrate(cmd *cobra.Command, path, output string) error {
	doc, err := manifest.LoadFile(path)
	if err != nil {
		return err
	}
	if manifest.IsStructuredManifest(doc) {
		printf(cmd.ErrOrStderr(), "%s is already a structured manifest\n", path)
	}
	m, err := manifest.Decode(doc)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch output {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	case "yaml":
		// Go through the document form so YAML keys match the JSON names.
		structured, err := m.Document()
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(map[string]any(structured)); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedOutput, output)
	}
}
