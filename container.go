package mfekernel

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
)

// Container is the kernel's capability registry. Services are registered as
// providers and instantiated lazily, at most once, the first time they (or a
// service depending on them) are requested.
type Container struct {
	// mu guards the maps below; resolveMu serializes resolutions so a
	// provider is never created twice by concurrent callers.
	mu        sync.Mutex
	resolveMu sync.Mutex

	providers map[string]ServiceProvider
	instances map[string]any
	created   []string
	disposed  bool
	logger    Logger
}

// ContainerOption configures a Container.
type ContainerOption func(*Container)

// WithLogger sets the logger used for resolution and disposal diagnostics.
func WithLogger(logger Logger) ContainerOption {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewContainer creates an empty container.
func NewContainer(opts ...ContainerOption) *Container {
	c := &Container{
		providers: make(map[string]ServiceProvider),
		instances: make(map[string]any),
		logger:    NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register adds a provider. Names are unique for the container's lifetime.
func (c *Container) Register(p ServiceProvider) error {
	if err := p.validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return ErrContainerDisposed
	}
	if _, exists := c.providers[p.Name]; exists {
		return fmt.Errorf("%w: %s", ErrServiceAlreadyRegistered, p.Name)
	}
	p.Dependencies = slices.Clone(p.Dependencies)
	c.providers[p.Name] = p
	c.logger.Debug("Registered service", "name", p.Name, "version", p.Version, "dependencies", p.Dependencies)
	return nil
}

// Has reports whether a provider is registered under name.
func (c *Container) Has(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.providers[name]
	return ok
}

// Names returns registered service names in sorted order.
func (c *Container) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Sorted(maps.Keys(c.providers))
}

// Provider returns the registered descriptor for name.
func (c *Container) Provider(name string) (ServiceProvider, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.providers[name]
	return p, ok
}

// Versions returns the declared version of every registered service.
func (c *Container) Versions() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	versions := make(map[string]string, len(c.providers))
	for name, p := range c.providers {
		versions[name] = p.Version
	}
	return versions
}

// Created returns the names of instantiated services in creation order.
func (c *Container) Created() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.created)
}

// Get returns the named service, or false when it is not registered or
// cannot be resolved. Resolution failures are logged; use Require to get
// the error itself.
func (c *Container) Get(ctx context.Context, name string) (any, bool) {
	svc, err := c.Require(ctx, name)
	if err != nil {
		if !errors.Is(err, ErrServiceNotFound) || c.Has(name) {
			c.logger.Error("Failed to resolve service", "name", name, "error", err)
		}
		return nil, false
	}
	return svc, true
}

// Require returns the named service, creating it and its dependencies if
// needed.
func (c *Container) Require(ctx context.Context, name string) (any, error) {
	if svc, ok, err := c.cached(name); err != nil || ok {
		return svc, err
	}

	c.resolveMu.Lock()
	defer c.resolveMu.Unlock()

	r := newResolution(c)
	defer r.finish()
	return r.resolve(ctx, name)
}

// GetAllServices resolves every registered service and returns a read-only
// view of them.
func (c *Container) GetAllServices(ctx context.Context) (ServiceView, error) {
	c.resolveMu.Lock()
	defer c.resolveMu.Unlock()

	r := newResolution(c)
	defer r.finish()
	return r.all(ctx)
}

// Dispose tears down created services in reverse creation order. Every
// disposer runs even if an earlier one fails; failures are logged and
// returned joined. The container cannot be used afterwards.
func (c *Container) Dispose(ctx context.Context) error {
	c.resolveMu.Lock()
	defer c.resolveMu.Unlock()

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return nil
	}
	c.disposed = true
	created := c.created
	instances := c.instances
	providers := c.providers
	c.created = nil
	c.instances = make(map[string]any)
	c.mu.Unlock()

	var errs []error
	for _, name := range slices.Backward(created) {
		if err := disposeOne(ctx, providers[name], instances[name]); err != nil {
			c.logger.Error("Error disposing service", "name", name, "error", err)
			errs = append(errs, err)
			continue
		}
		c.logger.Debug("Disposed service", "name", name)
	}
	return errors.Join(errs...)
}

func disposeOne(ctx context.Context, p ServiceProvider, instance any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: panic: %v", ErrServiceDisposeFailed, p.Name, r)
		}
	}()

	switch {
	case p.Dispose != nil:
		err = p.Dispose(ctx, instance)
	default:
		if d, ok := instance.(Disposer); ok {
			err = d.Dispose(ctx)
		}
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrServiceDisposeFailed, p.Name, err)
	}
	return nil
}

// cached returns an already-created instance without taking resolveMu.
func (c *Container) cached(name string) (any, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return nil, false, ErrContainerDisposed
	}
	if _, registered := c.providers[name]; !registered {
		return nil, false, fmt.Errorf("%w: %s", ErrServiceNotFound, name)
	}
	svc, ok := c.instances[name]
	return svc, ok, nil
}

// resolution is a single top-level resolve pass. It is also the locator
// handed to Create functions, so nested lookups share its in-flight stack.
// Once the pass returns, a locator kept by a service goes through the
// container like any other caller.
type resolution struct {
	c      *Container
	stack  []string
	active atomic.Bool
}

func newResolution(c *Container) *resolution {
	r := &resolution{c: c}
	r.active.Store(true)
	return r
}

func (r *resolution) finish() {
	r.active.Store(false)
}

func (r *resolution) Get(ctx context.Context, name string) (any, bool) {
	if !r.active.Load() {
		return r.c.Get(ctx, name)
	}
	svc, err := r.Require(ctx, name)
	if err != nil {
		if !errors.Is(err, ErrServiceNotFound) || r.c.Has(name) {
			r.c.logger.Error("Failed to resolve service", "name", name, "error", err)
		}
		return nil, false
	}
	return svc, true
}

func (r *resolution) Require(ctx context.Context, name string) (any, error) {
	if !r.active.Load() {
		return r.c.Require(ctx, name)
	}
	if svc, ok, err := r.c.cached(name); err != nil || ok {
		return svc, err
	}
	return r.resolve(ctx, name)
}

func (r *resolution) GetAllServices(ctx context.Context) (ServiceView, error) {
	if !r.active.Load() {
		return r.c.GetAllServices(ctx)
	}
	return r.all(ctx)
}

func (r *resolution) all(ctx context.Context) (ServiceView, error) {
	services := make(map[string]any)
	for _, name := range r.c.Names() {
		svc, err := r.Require(ctx, name)
		if err != nil {
			return ServiceView{}, err
		}
		services[name] = svc
	}
	return ServiceView{services: services}, nil
}

func (r *resolution) resolve(ctx context.Context, name string) (any, error) {
	order, err := r.plan(name)
	if err != nil {
		return nil, err
	}
	r.c.logger.Debug("Service resolution order", "service", name, "order", order)

	for _, n := range order {
		if _, err := r.instantiate(ctx, n); err != nil {
			return nil, err
		}
	}

	svc, _, err := r.c.cached(name)
	return svc, err
}

// plan walks declared dependencies depth-first and returns the services that
// still need creating, dependencies first. Cycles and missing dependencies
// are reported before any Create function runs.
func (r *resolution) plan(name string) ([]string, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()

	var order []string
	visited := make(map[string]bool)
	stack := slices.Clone(r.stack)

	var visit func(node, requiredBy string) error
	visit = func(node, requiredBy string) error {
		if slices.Contains(stack, node) {
			return newCircularDependencyError(stack, node)
		}
		if visited[node] {
			return nil
		}
		p, ok := r.c.providers[node]
		if !ok {
			if requiredBy != "" {
				return fmt.Errorf("%w: %s (required by %s)", ErrServiceNotFound, node, requiredBy)
			}
			return fmt.Errorf("%w: %s", ErrServiceNotFound, node)
		}
		if _, done := r.c.instances[node]; done {
			visited[node] = true
			return nil
		}

		stack = append(stack, node)
		for _, dep := range p.Dependencies {
			if err := visit(dep, node); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]

		visited[node] = true
		order = append(order, node)
		return nil
	}

	if err := visit(name, ""); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *resolution) instantiate(ctx context.Context, name string) (any, error) {
	r.c.mu.Lock()
	if r.c.disposed {
		r.c.mu.Unlock()
		return nil, ErrContainerDisposed
	}
	if svc, ok := r.c.instances[name]; ok {
		r.c.mu.Unlock()
		return svc, nil
	}
	p := r.c.providers[name]
	r.c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrServiceCreateFailed, name, err)
	}

	r.stack = append(r.stack, name)
	svc, err := r.create(ctx, p)
	r.stack = r.stack[:len(r.stack)-1]
	if err != nil {
		return nil, err
	}

	r.c.mu.Lock()
	r.c.instances[name] = svc
	r.c.created = append(r.c.created, name)
	r.c.mu.Unlock()

	r.c.logger.Info("Created service", "name", name, "version", p.Version)
	return svc, nil
}

func (r *resolution) create(ctx context.Context, p ServiceProvider) (svc any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			svc = nil
			err = fmt.Errorf("%w: %s: panic: %v", ErrServiceCreateFailed, p.Name, rec)
		}
	}()

	svc, err = p.Create(ctx, r)
	if err != nil {
		// Contract violations from nested lookups keep their identity.
		if errors.Is(err, ErrCircularDependency) || errors.Is(err, ErrServiceNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrServiceCreateFailed, p.Name, err)
	}
	return svc, nil
}
