package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/GoCodeAlone/mfekernel"
	"github.com/spf13/cobra"
)

// Version information
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// OsExit is replaced in tests.
var OsExit = os.Exit

// PrintVersion returns the version line.
func PrintVersion() string {
	return fmt.Sprintf("MFE kernel CLI v%s (commit: %s, built on: %s)", Version, Commit, Date)
}

// NewRootCommand creates the root command for the mfecli application.
func NewRootCommand() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "mfecli",
		Short: "MFE kernel CLI - validate, check and migrate plugin module manifests",
		Long: `mfecli works with plugin module manifests for the MFE kernel.
It validates manifests against the structured schema, checks whole
registries for compatibility with a host, migrates legacy manifests and
watches a manifest directory for changes.`,
		Version:       PrintVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.SetVersionTemplate("{{.Version}}\n")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging on stderr")

	logger := func(c *cobra.Command) mfekernel.Logger {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		return slog.New(slog.NewTextHandler(c.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	}

	cmd.AddCommand(NewValidateCommand())
	cmd.AddCommand(NewCheckCommand(logger))
	cmd.AddCommand(NewMigrateCommand())
	cmd.AddCommand(NewWatchCommand(logger))

	return cmd
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
