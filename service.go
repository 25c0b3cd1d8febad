package mfekernel

import (
	"context"
	"fmt"
	"maps"
	"reflect"
	"slices"
)

// ServiceProvider declares one capability the container can instantiate.
//
// Create is invoked at most once per container lifetime, after every name in
// Dependencies has been resolved. The locator passed to Create is scoped to
// the current resolution: lookups made through it take part in cycle
// detection. Create must not call back into the owning *Container directly.
type ServiceProvider struct {
	Name         string
	Version      string
	Description  string
	Dependencies []string
	Create       func(ctx context.Context, locator ServiceLocator) (any, error)

	// Dispose is optional. When nil and the instance implements Disposer,
	// the instance's Dispose method is used instead.
	Dispose func(ctx context.Context, instance any) error
}

func (p ServiceProvider) validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidServiceProvider)
	}
	if p.Create == nil {
		return fmt.Errorf("%w: %s has no create function", ErrInvalidServiceProvider, p.Name)
	}
	return nil
}

// ValueProvider wraps an already-built instance in a provider.
func ValueProvider(name, version string, instance any) ServiceProvider {
	return ServiceProvider{
		Name:    name,
		Version: version,
		Create: func(context.Context, ServiceLocator) (any, error) {
			return instance, nil
		},
	}
}

// Disposer is implemented by service instances that own resources.
type Disposer interface {
	Dispose(ctx context.Context) error
}

// ServiceLocator is the contract plugin modules and service factories use to
// reach host capabilities. It exposes plain values only, so modules built with
// any UI framework can consume the same services.
type ServiceLocator interface {
	// Get returns the service or false when it is unknown or cannot be built.
	Get(ctx context.Context, name string) (any, bool)

	// Require returns the service or fails with ErrServiceNotFound,
	// ErrCircularDependency or ErrServiceCreateFailed.
	Require(ctx context.Context, name string) (any, error)

	// GetAllServices resolves every registered service into a read-only view.
	GetAllServices(ctx context.Context) (ServiceView, error)
}

// ServiceView is an immutable name -> implementation snapshot.
type ServiceView struct {
	services map[string]any
}

// NewServiceView copies services into a view.
func NewServiceView(services map[string]any) ServiceView {
	return ServiceView{services: maps.Clone(services)}
}

// Lookup returns the named implementation.
func (v ServiceView) Lookup(name string) (any, bool) {
	svc, ok := v.services[name]
	return svc, ok
}

// Names returns the service names in sorted order.
func (v ServiceView) Names() []string {
	return slices.Sorted(maps.Keys(v.services))
}

// Len returns the number of services in the view.
func (v ServiceView) Len() int {
	return len(v.services)
}

// Each calls fn for every service in name order.
func (v ServiceView) Each(fn func(name string, svc any)) {
	for _, name := range v.Names() {
		fn(name, v.services[name])
	}
}

// GetService retrieves a service by name and asserts its type.
func GetService[T any](ctx context.Context, l ServiceLocator, name string) (T, bool) {
	var zero T
	svc, ok := l.Get(ctx, name)
	if !ok {
		return zero, false
	}
	typed, ok := svc.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// RequireService retrieves a service by name and asserts its type, failing
// with ErrServiceWrongType when the instance has a different type.
func RequireService[T any](ctx context.Context, l ServiceLocator, name string) (T, error) {
	var zero T
	svc, err := l.Require(ctx, name)
	if err != nil {
		return zero, err
	}
	if svc == nil {
		return zero, fmt.Errorf("%w: %s", ErrServiceNil, name)
	}
	typed, ok := svc.(T)
	if !ok {
		return zero, fmt.Errorf("%w: service '%s' of type %T is not %v", ErrServiceWrongType, name, svc, reflect.TypeFor[T]())
	}
	return typed, nil
}

// LookupService asserts the type of a service held in a view.
func LookupService[T any](v ServiceView, name string) (T, bool) {
	var zero T
	svc, ok := v.Lookup(name)
	if !ok {
		return zero, false
	}
	typed, ok := svc.(T)
	return typed, ok
}
