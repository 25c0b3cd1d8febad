package cmd_test

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/GoCodeAlone/mfekernel/cmd/mfecli/cmd"
	"github.com/stretchr/testify/require"
)

const validManifest = `{
  "name": "checkout",
  "version": "2.1.0",
  "url": "https://cdn.example.com/checkout/remoteEntry.js",
  "dependencies": {"runtime": {}, "peer": {"react": "^18.0.0"}},
  "compatibility": {"container": "^1.0.0", "frameworks": {"react": "^18.0.0"}},
  "requirements": {"services": [{"name": "eventBus", "version": "^1.0.0"}]}
}`

const legacyManifest = `{
  "name": "profile",
  "version": "1.4.0",
  "url": "https://cdn.example.com/profile/main.js",
  "dependencies": ["react@^18.2.0", "date-fns@^3.0.0"]
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// syncBuffer is written by the watch command's goroutines while the test
// reads it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := cmd.NewRootCommand()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}
