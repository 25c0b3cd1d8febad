package host

import (
	"context"
	"fmt"

	"github.com/GoCodeAlone/mfekernel/modules/debugapi"
	"github.com/GoCodeAlone/mfekernel/modules/errorreporter"
	"github.com/GoCodeAlone/mfekernel/modules/eventbus"
	"github.com/GoCodeAlone/mfekernel/modules/manifest"
)

// ManifestChange is the data of manifest:changed events.
type ManifestChange struct {
	Path     string   `json:"path"`
	Name     string   `json:"name,omitempty"`
	Removed  bool     `json:"removed"`
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// HandleManifestChange publishes change on the bus. Manifests that cannot
// be read or fail validation are also filed as load errors.
func (h *Host) HandleManifestChange(ctx context.Context, change manifest.Change) ManifestChange {
	mc := ManifestChange{Path: change.Path, Removed: change.Removed}
	if name, ok := change.Document["name"].(string); ok {
		mc.Name = name
	}
	reportAs := mc.Name
	if reportAs == "" {
		reportAs = change.Path
	}

	switch {
	case change.Removed:
		mc.Valid = true
	case change.Err != nil:
		mc.Errors = []string{change.Err.Error()}
		h.reporter.ReportError(reportAs, change.Err, errorreporter.KindLoad, map[string]any{"path": change.Path})
	default:
		mc.Valid = change.Result.Valid
		mc.Warnings = change.Result.Warnings
		for _, e := range change.Result.Errors {
			mc.Errors = append(mc.Errors, e.Error())
		}
		if !mc.Valid {
			h.reporter.ReportError(reportAs, fmt.Errorf("%w: %s", ErrInvalidManifest, change.Result.Summary()), errorreporter.KindLoad,
				map[string]any{"path": change.Path})
		}
	}

	h.bus.Emit(ctx, eventbus.EventTypeManifestChanged, mc, eventbus.WithSource(ModuleEventSource))
	return mc
}

// WatchManifests revalidates the manifests in dir until ctx ends, feeding
// every change to HandleManifestChange.
func (h *Host) WatchManifests(ctx context.Context, dir string, opts ...manifest.WatcherOption) error {
	opts = append([]manifest.WatcherOption{manifest.WithWatcherLogger(h.logger)}, opts...)
	w, err := manifest.NewWatcher(dir, h.validator, func(change manifest.Change) {
		h.HandleManifestChange(ctx, change)
	}, opts...)
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

// DebugHandler builds the debug API over the host's services. The /modules
// route lists the loaded modules.
func (h *Host) DebugHandler(cfg debugapi.Config) (*debugapi.Handler, error) {
	return debugapi.New(cfg, h.container, h.bus, h.reporter,
		debugapi.WithLogger(h.logger),
		debugapi.WithModules(func() any { return h.Modules() }))
}
