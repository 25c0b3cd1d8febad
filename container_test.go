package mfekernel

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingFactory struct {
	mu    sync.Mutex
	calls map[string]int
	order []string
}

func newCountingFactory() *countingFactory {
	return &countingFactory{calls: make(map[string]int)}
}

func (f *countingFactory) provider(name string, deps ...string) ServiceProvider {
	return ServiceProvider{
		Name:         name,
		Version:      "1.0.0",
		Dependencies: deps,
		Create: func(ctx context.Context, l ServiceLocator) (any, error) {
			f.mu.Lock()
			f.calls[name]++
			f.order = append(f.order, name)
			f.mu.Unlock()
			return &struct{ name string }{name: name}, nil
		},
	}
}

func (f *countingFactory) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func TestContainerRegister(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(c *Container)
		p       ServiceProvider
		wantErr error
	}{
		{
			name: "valid provider",
			p:    ValueProvider("logger", "1.0.0", "log"),
		},
		{
			name:    "empty name",
			p:       ServiceProvider{Create: func(context.Context, ServiceLocator) (any, error) { return nil, nil }},
			wantErr: ErrInvalidServiceProvider,
		},
		{
			name:    "missing create",
			p:       ServiceProvider{Name: "x"},
			wantErr: ErrInvalidServiceProvider,
		},
		{
			name: "self dependency",
			p:    ServiceProvider{Name: "x", Dependencies: []string{"x"}, Create: func(context.Context, ServiceLocator) (any, error) { return 1, nil }},
		},
		{
			name: "duplicate",
			setup: func(c *Container) {
				require.NoError(t, c.Register(ValueProvider("logger", "1.0.0", "log")))
			},
			p:       ValueProvider("logger", "2.0.0", "other"),
			wantErr: ErrServiceAlreadyRegistered,
		},
		{
			name: "after dispose",
			setup: func(c *Container) {
				require.NoError(t, c.Dispose(context.Background()))
			},
			p:       ValueProvider("logger", "1.0.0", "log"),
			wantErr: ErrContainerDisposed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewContainer()
			if tt.setup != nil {
				tt.setup(c)
			}
			err := c.Register(tt.p)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.True(t, c.Has(tt.p.Name))
		})
	}
}

func TestContainerGetUnregistered(t *testing.T) {
	c := NewContainer()

	svc, ok := c.Get(context.Background(), "missing")
	assert.False(t, ok)
	assert.Nil(t, svc)

	_, err := c.Require(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrServiceNotFound)
}

func TestContainerSingleton(t *testing.T) {
	ctx := context.Background()
	f := newCountingFactory()
	c := NewContainer()
	require.NoError(t, c.Register(f.provider("a")))
	require.NoError(t, c.Register(f.provider("b", "a")))
	require.NoError(t, c.Register(f.provider("c", "a", "b")))

	first, err := c.Require(ctx, "c")
	require.NoError(t, err)
	second, err := c.Require(ctx, "c")
	require.NoError(t, err)
	viaGet, ok := c.Get(ctx, "c")
	require.True(t, ok)

	assert.Same(t, first, second)
	assert.Same(t, first, viaGet)
	assert.Equal(t, 1, f.count("a"))
	assert.Equal(t, 1, f.count("b"))
	assert.Equal(t, 1, f.count("c"))
	assert.Equal(t, []string{"a", "b", "c"}, c.Created())
}

func TestContainerDependencyOrder(t *testing.T) {
	ctx := context.Background()
	f := newCountingFactory()
	c := NewContainer()
	require.NoError(t, c.Register(f.provider("B", "A")))
	require.NoError(t, c.Register(f.provider("A")))

	_, err := c.Require(ctx, "B")
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, f.order)
	assert.Equal(t, 1, f.count("A"))
	assert.Equal(t, 1, f.count("B"))
}

func TestContainerCircularDependency(t *testing.T) {
	ctx := context.Background()
	f := newCountingFactory()
	c := NewContainer()
	require.NoError(t, c.Register(f.provider("A", "B")))
	require.NoError(t, c.Register(f.provider("B", "A")))

	for _, name := range []string{"A", "B"} {
		t.Run(name, func(t *testing.T) {
			_, err := c.Require(ctx, name)
			require.Error(t, err)
			assert.True(t, IsErrCircularDependency(err))

			var cycleErr *CircularDependencyError
			require.ErrorAs(t, err, &cycleErr)
			assert.Equal(t, name, cycleErr.Path[0])
			assert.Equal(t, name, cycleErr.Path[len(cycleErr.Path)-1])
			assert.Contains(t, err.Error(), "cycle:")
		})
	}

	assert.Zero(t, f.count("A"))
	assert.Zero(t, f.count("B"))
}

func TestContainerSelfDependency(t *testing.T) {
	ctx := context.Background()
	f := newCountingFactory()
	c := NewContainer()
	require.NoError(t, c.Register(f.provider("A", "A")))

	_, err := c.Require(ctx, "A")
	require.Error(t, err)
	assert.True(t, IsErrCircularDependency(err))

	var cycleErr *CircularDependencyError
	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, []string{"A", "A"}, cycleErr.Path)
	assert.Zero(t, f.count("A"))
}

func TestContainerCycleNoPartialCreation(t *testing.T) {
	ctx := context.Background()
	f := newCountingFactory()
	c := NewContainer()
	require.NoError(t, c.Register(f.provider("leaf")))
	require.NoError(t, c.Register(f.provider("A", "leaf", "B")))
	require.NoError(t, c.Register(f.provider("B", "C")))
	require.NoError(t, c.Register(f.provider("C", "A")))

	_, err := c.Require(ctx, "A")
	require.ErrorIs(t, err, ErrCircularDependency)
	assert.Equal(t, "circular dependency detected: cycle: A -> B -> C -> A", err.Error())
	assert.Zero(t, f.count("leaf"), "plan must fail before any creation")
}

func TestContainerCycleThroughCreateLookup(t *testing.T) {
	ctx := context.Background()
	c := NewContainer()
	require.NoError(t, c.Register(ServiceProvider{
		Name: "A",
		Create: func(ctx context.Context, l ServiceLocator) (any, error) {
			return l.Require(ctx, "B")
		},
	}))
	require.NoError(t, c.Register(ServiceProvider{
		Name:         "B",
		Dependencies: []string{"A"},
		Create: func(context.Context, ServiceLocator) (any, error) {
			return "b", nil
		},
	}))

	_, err := c.Require(ctx, "A")
	var cycleErr *CircularDependencyError
	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, []string{"A", "B", "A"}, cycleErr.Path)
}

func TestContainerMissingDependency(t *testing.T) {
	c := NewContainer()
	f := newCountingFactory()
	require.NoError(t, c.Register(f.provider("consumer", "authz")))

	_, err := c.Require(context.Background(), "consumer")
	require.ErrorIs(t, err, ErrServiceNotFound)
	assert.Contains(t, err.Error(), "authz")
	assert.Contains(t, err.Error(), "required by consumer")
	assert.Zero(t, f.count("consumer"))
}

func TestContainerCreateFailure(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("connection refused")
	attempts := 0
	c := NewContainer()
	require.NoError(t, c.Register(ServiceProvider{
		Name: "db",
		Create: func(context.Context, ServiceLocator) (any, error) {
			attempts++
			if attempts == 1 {
				return nil, boom
			}
			return "conn", nil
		},
	}))

	_, err := c.Require(ctx, "db")
	require.ErrorIs(t, err, ErrServiceCreateFailed)
	assert.ErrorIs(t, err, boom)

	svc, err := c.Require(ctx, "db")
	require.NoError(t, err, "failed creations are not cached")
	assert.Equal(t, "conn", svc)
}

func TestContainerCreatePanic(t *testing.T) {
	c := NewContainer()
	require.NoError(t, c.Register(ServiceProvider{
		Name: "broken",
		Create: func(context.Context, ServiceLocator) (any, error) {
			panic("nil map write")
		},
	}))

	_, err := c.Require(context.Background(), "broken")
	require.ErrorIs(t, err, ErrServiceCreateFailed)
	assert.Contains(t, err.Error(), "nil map write")

	_, ok := c.Get(context.Background(), "broken")
	assert.False(t, ok)
}

func TestContainerGetAllServices(t *testing.T) {
	ctx := context.Background()
	f := newCountingFactory()
	c := NewContainer()
	require.NoError(t, c.Register(f.provider("logger")))
	require.NoError(t, c.Register(f.provider("eventBus", "logger")))
	require.NoError(t, c.Register(ValueProvider("modal", "1.0.0", "modal-service")))

	view, err := c.GetAllServices(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"eventBus", "logger", "modal"}, view.Names())
	assert.Equal(t, 3, view.Len())
	modal, ok := LookupService[string](view, "modal")
	require.True(t, ok)
	assert.Equal(t, "modal-service", modal)
	assert.Equal(t, 1, f.count("logger"))

	_, ok = view.Lookup("missing")
	assert.False(t, ok)
}

func TestContainerConcurrentRequire(t *testing.T) {
	ctx := context.Background()
	var creations atomic.Int32
	c := NewContainer()
	require.NoError(t, c.Register(ServiceProvider{
		Name: "shared",
		Create: func(context.Context, ServiceLocator) (any, error) {
			creations.Add(1)
			return &struct{}{}, nil
		},
	}))

	var wg sync.WaitGroup
	results := make([]any, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = c.Require(ctx, "shared")
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), creations.Load())
	for _, r := range results {
		assert.Same(t, results[0], r)
	}
}

func TestContainerStoredLocatorKeepsSingleton(t *testing.T) {
	ctx := context.Background()
	var yCreations atomic.Int32
	var stored ServiceLocator
	c := NewContainer()
	require.NoError(t, c.Register(ServiceProvider{
		Name: "X",
		Create: func(_ context.Context, l ServiceLocator) (any, error) {
			stored = l
			return &struct{}{}, nil
		},
	}))
	require.NoError(t, c.Register(ServiceProvider{
		Name: "Y",
		Create: func(context.Context, ServiceLocator) (any, error) {
			yCreations.Add(1)
			time.Sleep(50 * time.Millisecond)
			return &struct{}{}, nil
		},
	}))

	_, err := c.Require(ctx, "X")
	require.NoError(t, err)
	require.NotNil(t, stored)

	var wg sync.WaitGroup
	results := make([]any, 2)
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		results[0], errs[0] = stored.Require(ctx, "Y")
	}()
	go func() {
		defer wg.Done()
		results[1], errs[1] = c.Require(ctx, "Y")
	}()
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, int32(1), yCreations.Load())
	assert.Same(t, results[0], results[1])
	assert.Equal(t, []string{"X", "Y"}, c.Created())

	view, err := stored.GetAllServices(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"X", "Y"}, view.Names())
	svc, ok := stored.Get(ctx, "Y")
	require.True(t, ok)
	assert.Same(t, results[0], svc)
}

type closer struct {
	name  string
	log   *[]string
	fails bool
}

func (c *closer) Dispose(context.Context) error {
	*c.log = append(*c.log, c.name)
	if c.fails {
		return errors.New("close failed")
	}
	return nil
}

func TestContainerDispose(t *testing.T) {
	ctx := context.Background()
	var disposed []string
	c := NewContainer()

	require.NoError(t, c.Register(ServiceProvider{
		Name: "a",
		Create: func(context.Context, ServiceLocator) (any, error) {
			return &closer{name: "a", log: &disposed}, nil
		},
	}))
	require.NoError(t, c.Register(ServiceProvider{
		Name:         "b",
		Dependencies: []string{"a"},
		Create: func(context.Context, ServiceLocator) (any, error) {
			return &closer{name: "b", log: &disposed, fails: true}, nil
		},
	}))
	require.NoError(t, c.Register(ServiceProvider{
		Name:         "c",
		Dependencies: []string{"b"},
		Create: func(context.Context, ServiceLocator) (any, error) {
			return "c", nil
		},
		Dispose: func(context.Context, any) error {
			disposed = append(disposed, "c")
			panic("teardown exploded")
		},
	}))
	require.NoError(t, c.Register(ValueProvider("never-created", "1.0.0", &closer{name: "x", log: &disposed})))

	_, err := c.Require(ctx, "c")
	require.NoError(t, err)

	err = c.Dispose(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServiceDisposeFailed)
	assert.Contains(t, err.Error(), "teardown exploded")
	assert.Contains(t, err.Error(), "close failed")
	assert.Equal(t, []string{"c", "b", "a"}, disposed)

	_, err = c.Require(ctx, "a")
	assert.ErrorIs(t, err, ErrContainerDisposed)
	assert.NoError(t, c.Dispose(ctx), "second dispose is a no-op")
}

func TestRequireServiceTyped(t *testing.T) {
	ctx := context.Background()
	c := NewContainer()
	require.NoError(t, c.Register(ValueProvider("answer", "1.0.0", 42)))
	require.NoError(t, c.Register(ValueProvider("nothing", "1.0.0", nil)))

	n, err := RequireService[int](ctx, c, "answer")
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	_, err = RequireService[string](ctx, c, "answer")
	assert.ErrorIs(t, err, ErrServiceWrongType)

	_, err = RequireService[string](ctx, c, "nothing")
	assert.ErrorIs(t, err, ErrServiceNil)

	got, ok := GetService[int](ctx, c, "answer")
	assert.True(t, ok)
	assert.Equal(t, 42, got)

	_, ok = GetService[string](ctx, c, "answer")
	assert.False(t, ok)
}

func TestContainerVersions(t *testing.T) {
	c := NewContainer()
	require.NoError(t, c.Register(ValueProvider("logger", "1.2.0", nil)))
	require.NoError(t, c.Register(ValueProvider("eventBus", "2.0.0", nil)))

	assert.Equal(t, map[string]string{"logger": "1.2.0", "eventBus": "2.0.0"}, c.Versions())
	assert.Equal(t, []string{"eventBus", "logger"}, c.Names())

	p, ok := c.Provider("logger")
	require.True(t, ok)
	assert.Equal(t, "1.2.0", p.Version)
}

func TestScopedLogger(t *testing.T) {
	rec := &recordingLogger{}
	l := NewScopedLogger(rec, "mfe", "checkout")
	l.Info("mounted", "ms", 12)
	l.Error("crashed")

	require.Len(t, rec.entries, 2)
	assert.Equal(t, []any{"mfe", "checkout", "ms", 12}, rec.entries[0].args)
	assert.Equal(t, []any{"mfe", "checkout"}, rec.entries[1].args)
	assert.Same(t, rec, l.Inner())
}

type logEntry struct {
	level string
	msg   string
	args  []any
}

type recordingLogger struct {
	entries []logEntry
}

func (l *recordingLogger) Info(msg string, args ...any) {
	l.entries = append(l.entries, logEntry{"info", msg, args})
}
func (l *recordingLogger) Error(msg string, args ...any) {
	l.entries = append(l.entries, logEntry{"error", msg, args})
}
func (l *recordingLogger) Warn(msg string, args ...any) {
	l.entries = append(l.entries, logEntry{"warn", msg, args})
}
func (l *recordingLogger) Debug(msg string, args ...any) {
	l.entries = append(l.entries, logEntry{"debug", msg, args})
}
