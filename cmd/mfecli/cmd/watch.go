package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/GoCodeAlone/mfekernel"
	"github.com/GoCodeAlone/mfekernel/host"
	"github.com/GoCodeAlone/mfekernel/modules/debugapi"
	"github.com/GoCodeAlone/mfekernel/modules/eventbus"
	"github.com/GoCodeAlone/mfekernel/modules/manifest"
	"github.com/spf13/cobra"
)

type watchOptions struct {
	configFile string
	envFile    string
	debounce   time.Duration
	debugAddr  string
	debugToken string
}

// NewWatchCommand creates the watch command. logger builds the command's
// logger once flags are parsed.
func NewWatchCommand(logger func(*cobra.Command) mfekernel.Logger) *cobra.Command {
	var opts watchOptions

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Revalidate manifests in a directory as they change",
		Long: `Validate every manifest in a directory, then revalidate each file as it is
written, renamed or removed, until interrupted. Invalid manifests are filed
with the error reporter; with --debug-addr the debug API serves the
reports, the manifest:changed history and Prometheus metrics.

Examples:
  mfecli watch ./manifests
  mfecli watch --debug-addr 127.0.0.1:9090 ./manifests`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runWatch(ctx, cmd, args[0], opts, logger(cmd))
		},
	}
	cmd.Flags().StringVarP(&opts.configFile, "config", "c", "", "Host configuration file (yaml, json or toml)")
	cmd.Flags().StringVar(&opts.envFile, "env-file", "", "A .env file with MFE_* overrides")
	cmd.Flags().DurationVar(&opts.debounce, "debounce", manifest.DefaultDebounce, "Quiet period before a changed file is revalidated")
	cmd.Flags().StringVar(&opts.debugAddr, "debug-addr", "", "Serve the debug API on this address")
	cmd.Flags().StringVar(&opts.debugToken, "debug-token", "", "Bearer token required by the debug API")
	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, dir string, opts watchOptions, logger mfekernel.Logger) error {
	cfg, err := loadHostConfig(opts.configFile, opts.envFile, logger)
	if err != nil {
		return err
	}
	h, err := host.New(cfg, host.WithLogger(logger))
	if err != nil {
		return err
	}
	defer func() {
		if err := h.Shutdown(context.Background()); err != nil {
			logger.Error("Host shutdown failed", "error", err)
		}
	}()

	out := cmd.OutOrStdout()
	_, err = h.Bus().On(eventbus.EventTypeManifestChanged, func(_ context.Context, p eventbus.Payload) error {
		change, ok := p.Data.(host.ManifestChange)
		if !ok {
			return nil
		}
		switch {
		case change.Removed:
			printf(out, "%s: removed\n", change.Path)
		case change.Valid:
			printf(out, "%s: valid", change.Path)
			if len(change.Warnings) > 0 {
				printf(out, " (%s)", strings.Join(change.Warnings, "; "))
			}
			printf(out, "\n")
		default:
			printf(out, "%s: invalid: %s\n", change.Path, strings.Join(change.Errors, "; "))
		}
		return nil
	})
	if err != nil {
		return err
	}

	if opts.debugAddr != "" {
		srv, err := serveDebug(h, opts, logger)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	return h.WatchManifests(ctx, dir, manifest.WithDebounce(opts.debounce))
}

func serveDebug(h *host.Host, opts watchOptions, logger mfekernel.Logger) (*http.Server, error) {
	cfg := debugapi.DefaultConfig()
	cfg.AuthToken = opts.debugToken
	handler, err := h.DebugHandler(cfg)
	if err != nil {
		return nil, err
	}

	ln, err := net.Listen("tcp", opts.debugAddr)
	if err != nil {
		return nil, err
	}
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Debug server failed", "error", err)
		}
	}()
	logger.Info("Debug API listening", "addr", ln.Addr().String(), "basePath", cfg.BasePath)
	return srv, nil
}
