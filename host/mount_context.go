package host

import (
	"context"
	"sync"

	"github.com/GoCodeAlone/mfekernel"
	"github.com/GoCodeAlone/mfekernel/modules/errorreporter"
	"github.com/GoCodeAlone/mfekernel/modules/eventbus"
	"github.com/GoCodeAlone/mfekernel/modules/manifest"
)

// MountContext is what a module receives when it is mounted. Subscriptions
// made through it are removed when the module unmounts.
type MountContext struct {
	Name     string
	Manifest *manifest.Manifest
	Services mfekernel.ServiceView
	Bus      *eventbus.Bus
	Logger   mfekernel.Logger

	host *Host

	mu   sync.Mutex
	subs []*eventbus.Subscription
}

func newMountContext(name string, m *manifest.Manifest, services mfekernel.ServiceView, h *Host) *MountContext {
	return &MountContext{
		Name:     name,
		Manifest: m,
		Services: services,
		Bus:      h.bus,
		Logger:   mfekernel.NewScopedLogger(h.logger, "mfe", name),
		host:     h,
	}
}

// On subscribes handler for the module's lifetime. Handler faults are
// attributed to the module as runtime errors.
func (mc *MountContext) On(eventType string, handler eventbus.Handler) (*eventbus.Subscription, error) {
	return mc.track(mc.Bus.On(eventType, mc.guarded(handler)))
}

// Once subscribes handler for a single delivery.
func (mc *MountContext) Once(eventType string, handler eventbus.Handler) (*eventbus.Subscription, error) {
	return mc.track(mc.Bus.Once(eventType, mc.guarded(handler)))
}

// Emit publishes an event with the module as its source.
func (mc *MountContext) Emit(ctx context.Context, eventType string, data any, opts ...eventbus.EmitOption) eventbus.Payload {
	opts = append([]eventbus.EmitOption{eventbus.WithSource(mc.Name)}, opts...)
	return mc.Bus.Emit(ctx, eventType, data, opts...)
}

// Report files a fault on behalf of the module.
func (mc *MountContext) Report(err error, kind errorreporter.ErrorKind, context map[string]any) *errorreporter.Report {
	return mc.host.reporter.ReportError(mc.Name, err, kind, context)
}

// Guard runs fn in the module's fault boundary.
func (mc *MountContext) Guard(kind errorreporter.ErrorKind, fn func() error) error {
	return mc.host.Guard(mc.Name, kind, fn)
}

// Modals returns the shared modal stack.
func (mc *MountContext) Modals() ModalService {
	return mc.host.modals
}

// OpenModal pushes a modal owned by the module.
func (mc *MountContext) OpenModal(props map[string]any) Modal {
	return mc.host.modals.Push(mc.Name, props)
}

func (mc *MountContext) guarded(handler eventbus.Handler) eventbus.Handler {
	if handler == nil {
		return nil
	}
	return func(ctx context.Context, event eventbus.Payload) error {
		return mc.Guard(errorreporter.KindRuntime, func() error {
			return handler(ctx, event)
		})
	}
}

func (mc *MountContext) track(sub *eventbus.Subscription, err error) (*eventbus.Subscription, error) {
	if err != nil {
		return nil, err
	}
	mc.mu.Lock()
	mc.subs = append(mc.subs, sub)
	mc.mu.Unlock()
	return sub, nil
}

// release removes every subscription still held by the module.
func (mc *MountContext) release() int {
	mc.mu.Lock()
	subs := mc.subs
	mc.subs = nil
	mc.mu.Unlock()

	n := 0
	for _, sub := range subs {
		if sub.Active() {
			n++
		}
		mc.Bus.Off(sub)
	}
	return n
}
