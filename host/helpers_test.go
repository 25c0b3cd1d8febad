package host

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/GoCodeAlone/mfekernel/modules/eventbus"
	"github.com/GoCodeAlone/mfekernel/modules/manifest"
	"github.com/stretchr/testify/require"
)

type captureLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *captureLogger) log(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+": "+msg)
}

func (l *captureLogger) Info(msg string, _ ...any)  { l.log("INFO", msg) }
func (l *captureLogger) Error(msg string, _ ...any) { l.log("ERROR", msg) }
func (l *captureLogger) Warn(msg string, _ ...any)  { l.log("WARN", msg) }
func (l *captureLogger) Debug(msg string, _ ...any) { l.log("DEBUG", msg) }

func (l *captureLogger) has(line string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, got := range l.lines {
		if got == line {
			return true
		}
	}
	return false
}

// buildManifestDoc builds a structured manifest for name. extra is a JSON
// object fragment merged at the top level, e.g.
// `"compatibility": {"container": "^2.0.0"}`.
func buildManifestDoc(name, extra string) (manifest.Document, error) {
	if extra != "" {
		extra = "," + extra
	}
	data := fmt.Sprintf(`{
  "name": %q,
  "version": "1.0.0",
  "url": "/mfe/%s/remoteEntry.js",
  "dependencies": {"runtime": {}, "peer": {}}%s
}`, name, name, extra)
	return manifest.Parse([]byte(data), manifest.FormatJSON)
}

func manifestDoc(t testing.TB, name, extra string) manifest.Document {
	t.Helper()
	doc, err := buildManifestDoc(name, extra)
	require.NoError(t, err)
	return doc
}

func newTestHost(t testing.TB, opts ...Option) *Host {
	t.Helper()
	cfg := DefaultConfig()
	cfg.JanitorSchedule = ""
	h, err := New(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Shutdown(context.Background()) })
	return h
}

// recordingModule remembers what it was mounted with.
type recordingModule struct {
	mu        sync.Mutex
	mounted   *MountContext
	unmounted int
	mountErr  error
	unmountFn func() error
	onMount   func(mc *MountContext) error
}

func (m *recordingModule) Mount(_ context.Context, mc *MountContext) error {
	m.mu.Lock()
	m.mounted = mc
	m.mu.Unlock()
	if m.onMount != nil {
		if err := m.onMount(mc); err != nil {
			return err
		}
	}
	return m.mountErr
}

func (m *recordingModule) Unmount(context.Context) error {
	m.mu.Lock()
	m.unmounted++
	fn := m.unmountFn
	m.mu.Unlock()
	if fn != nil {
		return fn()
	}
	return nil
}

func historyTypes(b *eventbus.Bus) []string {
	var types []string
	for _, p := range b.EventHistory(0) {
		types = append(types, p.Type)
	}
	return types
}

var errBoom = errors.New("boom")
