package manifest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/GoCodeAlone/mfekernel"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the bursts of writes editors produce on save.
const DefaultDebounce = 100 * time.Millisecond

// Change is delivered for every manifest file that appeared, changed or
// disappeared in a watched directory.
type Change struct {
	Path     string
	Removed  bool
	Document Document
	Result   ValidationResult
	Err      error
}

// Watcher revalidates manifest files in a directory as they change.
type Watcher struct {
	dir       string
	validator *Validator
	onChange  func(Change)
	debounce  time.Duration
	logger    mfekernel.Logger

	mu      sync.Mutex
	timers  map[string]*time.Timer
	running bool
	closed  bool
	done    chan struct{}

	// deliverMu keeps onChange calls sequential.
	deliverMu sync.Mutex
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the quiet period before a changed file is revalidated.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithWatcherLogger sets the watcher logger.
func WithWatcherLogger(logger mfekernel.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWatcher creates a watcher for dir. Run starts it.
func NewWatcher(dir string, validator *Validator, onChange func(Change), opts ...WatcherOption) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot watch %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("cannot watch %s: not a directory", dir)
	}
	w := &Watcher{
		dir:       dir,
		validator: validator,
		onChange:  onChange,
		debounce:  DefaultDebounce,
		logger:    mfekernel.NopLogger(),
		timers:    make(map[string]*time.Timer),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run validates every manifest already in the directory, then reports
// changes until ctx ends or Close is called. A watcher runs once.
func (w *Watcher) Run(ctx context.Context) error {
	w.mu.Lock()
	switch {
	case w.closed:
		w.mu.Unlock()
		return ErrWatcherClosed
	case w.running:
		w.mu.Unlock()
		return ErrWatcherRunning
	}
	w.running = true
	w.mu.Unlock()
	defer w.stop()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	w.logger.Info("Watching manifests", "dir", w.dir)

	if err := w.scan(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.done:
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !isManifestFile(event.Name) {
				continue
			}
			if event.Op.Has(fsnotify.Chmod) && !event.Op.Has(fsnotify.Write) {
				continue
			}
			w.schedule(event.Name)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("Manifest watcher error", "dir", w.dir, "error", err)
		}
	}
}

func (w *Watcher) scan() error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", w.dir, err)
	}
	for _, entry := range entries {
		path := filepath.Join(w.dir, entry.Name())
		if entry.IsDir() || !isManifestFile(path) {
			continue
		}
		w.process(path)
	}
	return nil
}

// schedule (re)starts the debounce timer for path.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if t, ok := w.timers[path]; ok {
		t.Reset(w.debounce)
		return
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		closed := w.closed
		w.mu.Unlock()
		if !closed {
			w.process(path)
		}
	})
}

func (w *Watcher) process(path string) {
	change := Change{Path: path}
	doc, err := LoadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		change.Removed = true
	case err != nil:
		change.Err = err
	default:
		change.Document = doc
		change.Result = w.validator.Validate(doc)
	}

	w.logger.Debug("Manifest changed",
		"path", path,
		"removed", change.Removed,
		"valid", change.Err == nil && change.Result.Valid)

	w.deliverMu.Lock()
	defer w.deliverMu.Unlock()
	// A timer may have fired just before Close.
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Manifest change callback panicked", "path", path, "panic", fmt.Sprint(r))
		}
	}()
	w.onChange(change)
}

// Close stops the watcher and drops pending revalidations.
func (w *Watcher) Close() error {
	w.stop()
	return nil
}

func (w *Watcher) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	close(w.done)
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}

func isManifestFile(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	_, err := FormatFromPath(path)
	return err == nil
}
