package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/GoCodeAlone/mfekernel/modules/manifest"
	"github.com/spf13/cobra"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a manifest file",
		Long: `Validate a JSON, YAML or TOML manifest. Structured manifests are checked
against the manifest schema; legacy manifests get the legacy field checks
and a migration warning.

Exits non-zero when the manifest is invalid or cannot be read.

Examples:
  mfecli validate mfe.json
  mfecli validate --output json mfe.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args[0], output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format (text, json)")
	return cmd
}

func runValidate(cmd *cobra.Command, path, output string) error {
	if output != "text" && output != "json" {
		return fmt.Errorf("%w: %s", ErrUnsupportedOutput, output)
	}
	doc, err := manifest.LoadFile(path)
	if err != nil {
		return err
	}
	v, err := manifest.NewValidator()
	if err != nil {
		return err
	}
	result := v.Validate(doc)

	out := cmd.OutOrStdout()
	if output == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		printf(out, "%s: %s\n", path, result.Summary())
	}

	if !result.Valid {
		return fmt.Errorf("%w: %s", ErrInvalidManifest, path)
	}
	return nil
}
