// Package host is the composition root: it owns the service container, the
// event bus and the error reporter, admits plugin modules whose manifests
// pass validation and compatibility checks, and mounts them inside a fault
// boundary so one failing module never takes the host down.
package host

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/GoCodeAlone/mfekernel"
	"github.com/GoCodeAlone/mfekernel/modules/errorreporter"
	"github.com/GoCodeAlone/mfekernel/modules/eventbus"
	"github.com/GoCodeAlone/mfekernel/modules/manifest"
)

// LoggerVersion is the contract version of the logger service.
const LoggerVersion = "1.0.0"

// Module is a plugin module the host can mount.
type Module interface {
	Mount(ctx context.Context, mc *MountContext) error
}

// Unmounter is implemented by modules that need teardown.
type Unmounter interface {
	Unmount(ctx context.Context) error
}

// ModuleFunc adapts a function to Module.
type ModuleFunc func(ctx context.Context, mc *MountContext) error

func (f ModuleFunc) Mount(ctx context.Context, mc *MountContext) error {
	return f(ctx, mc)
}

// ModuleStatus is the lifecycle state of a loaded module.
type ModuleStatus string

const (
	StatusLoaded   ModuleStatus = "loaded"
	StatusMounted  ModuleStatus = "mounted"
	StatusFailed   ModuleStatus = "failed"
	StatusRejected ModuleStatus = "rejected"
)

// ModuleInfo describes a module known to the host.
type ModuleInfo struct {
	Name          string                       `json:"name"`
	Version       string                       `json:"version"`
	Status        ModuleStatus                 `json:"status"`
	Manifest      *manifest.Manifest           `json:"manifest,omitempty"`
	Compatibility manifest.CompatibilityResult `json:"compatibility"`
	LoadedAt      time.Time                    `json:"loadedAt"`
	Error         string                       `json:"error,omitempty"`
}

// ModuleEvent is the data of the mfe:* lifecycle events.
type ModuleEvent struct {
	Name    string   `json:"name"`
	Version string   `json:"version,omitempty"`
	Reasons []string `json:"reasons,omitempty"`
}

type loadedModule struct {
	info   ModuleInfo
	module Module
	mc     *MountContext
}

// Host runs plugin modules against a shared set of services.
type Host struct {
	cfg       Config
	logger    mfekernel.Logger
	container *mfekernel.Container
	bus       *eventbus.Bus
	reporter  *errorreporter.Reporter
	modals    *ModalStack
	validator *manifest.Validator

	mu       sync.Mutex
	modules  map[string]*loadedModule
	order    []string
	shutdown bool
}

// Option configures a Host.
type Option func(*hostOptions)

type hostOptions struct {
	logger    mfekernel.Logger
	services  []mfekernel.ServiceProvider
	validator *manifest.Validator
}

// WithLogger sets the host logger. It is also registered as the "logger"
// service.
func WithLogger(logger mfekernel.Logger) Option {
	return func(o *hostOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithServices registers extra providers before the core services resolve.
func WithServices(providers ...mfekernel.ServiceProvider) Option {
	return func(o *hostOptions) {
		o.services = append(o.services, providers...)
	}
}

// WithValidator replaces the default manifest validator.
func WithValidator(v *manifest.Validator) Option {
	return func(o *hostOptions) {
		o.validator = v
	}
}

// New builds a host from cfg. The container is populated with the logger,
// eventBus, errorReporter and modal services, and the core services are
// created eagerly.
func New(cfg Config, opts ...Option) (*Host, error) {
	o := hostOptions{logger: mfekernel.NopLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid host configuration: %w", err)
	}

	h := &Host{
		cfg:       cfg,
		logger:    o.logger,
		container: mfekernel.NewContainer(mfekernel.WithLogger(o.logger)),
		modules:   make(map[string]*loadedModule),
		validator: o.validator,
	}

	providers := []mfekernel.ServiceProvider{
		mfekernel.ValueProvider(eventbus.LoggerServiceName, LoggerVersion, o.logger),
		eventbus.Provider(eventbus.WithConfig(cfg.EventBus)),
		errorreporter.Provider(cfg.ErrorReporter, cfg.JanitorSchedule, errorreporter.WithOnError(h.publishReport)),
		modalProvider(),
	}
	for _, p := range append(providers, o.services...) {
		if err := h.container.Register(p); err != nil {
			return nil, err
		}
	}

	ctx := context.Background()
	var err error
	if h.bus, err = mfekernel.RequireService[*eventbus.Bus](ctx, h.container, eventbus.ServiceName); err != nil {
		return nil, err
	}
	if h.reporter, err = mfekernel.RequireService[*errorreporter.Reporter](ctx, h.container, errorreporter.ServiceName); err != nil {
		return nil, err
	}
	if h.modals, err = mfekernel.RequireService[*ModalStack](ctx, h.container, ModalServiceName); err != nil {
		return nil, err
	}
	if h.validator == nil {
		if h.validator, err = manifest.NewValidator(); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func modalProvider() mfekernel.ServiceProvider {
	return mfekernel.ServiceProvider{
		Name:         ModalServiceName,
		Version:      ModalVersion,
		Description:  "modal stack shared by plugin modules",
		Dependencies: []string{eventbus.ServiceName},
		Create: func(ctx context.Context, l mfekernel.ServiceLocator) (any, error) {
			bus, err := mfekernel.RequireService[*eventbus.Bus](ctx, l, eventbus.ServiceName)
			if err != nil {
				return nil, err
			}
			return NewModalStack(bus), nil
		},
	}
}

// publishReport re-broadcasts accepted reports so modules and dashboards can
// react to faults elsewhere.
func (h *Host) publishReport(r errorreporter.Report) {
	if h.bus == nil {
		return
	}
	h.bus.Emit(context.Background(), eventbus.EventTypeModuleError, r,
		eventbus.WithSource(errorreporter.ServiceName))
}

// Register adds a service provider modules can depend on.
func (h *Host) Register(p mfekernel.ServiceProvider) error {
	return h.container.Register(p)
}

// HostInfo is the host description manifests are checked against: the
// configured values plus every registered service and its version.
func (h *Host) HostInfo() manifest.HostInfo {
	info := h.cfg.Host
	if info.ContainerVersion == "" {
		info.ContainerVersion = DefaultContainerVersion
	}
	info.Frameworks = maps.Clone(info.Frameworks)

	services := slices.Clone(info.Services)
	for _, name := range h.container.Names() {
		if !slices.Contains(services, name) {
			services = append(services, name)
		}
	}
	slices.Sort(services)
	info.Services = services

	versions := make(map[string]string)
	maps.Copy(versions, info.ServiceVersions)
	for name, v := range h.container.Versions() {
		if v != "" {
			versions[name] = v
		}
	}
	info.ServiceVersions = versions
	return info
}

// Load admits and mounts a module. A manifest that fails validation or
// compatibility checks is rejected with ErrModuleRejected. A module that
// fails while mounting is reported and marked failed; Load still returns a
// nil error for it.
func (h *Host) Load(ctx context.Context, doc manifest.Document, module Module) (ModuleInfo, error) {
	if module == nil {
		return ModuleInfo{}, ErrModuleNil
	}
	if h.isShutdown() {
		return ModuleInfo{}, ErrHostShutdown
	}

	name, _ := doc["name"].(string)
	result := h.validator.Validate(doc)
	if !result.Valid {
		reasons := make([]string, 0, len(result.Errors))
		for _, e := range result.Errors {
			reasons = append(reasons, e.Error())
		}
		return h.reject(ctx, ModuleInfo{Name: name}, reasons)
	}

	m, err := manifest.Decode(doc)
	if err != nil {
		return h.reject(ctx, ModuleInfo{Name: name}, []string{err.Error()})
	}
	info := ModuleInfo{Name: m.Name, Version: m.Version, Manifest: m}
	info.Compatibility = manifest.NewChecker(h.HostInfo()).Check(m)
	if !info.Compatibility.Compatible {
		return h.reject(ctx, info, info.Compatibility.Errors)
	}

	entry, err := h.admit(info, module)
	if err != nil {
		return ModuleInfo{}, err
	}
	h.bus.Emit(ctx, eventbus.EventTypeModuleLoaded, ModuleEvent{Name: m.Name, Version: m.Version},
		eventbus.WithSource(m.Name))

	h.mount(ctx, entry)
	return h.snapshot(entry), nil
}

func (h *Host) admit(info ModuleInfo, module Module) (*loadedModule, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.shutdown {
		return nil, ErrHostShutdown
	}
	if existing, ok := h.modules[info.Name]; ok {
		if existing.info.Status != StatusFailed {
			return nil, fmt.Errorf("%w: %s", ErrModuleAlreadyLoaded, info.Name)
		}
		h.order = slices.DeleteFunc(h.order, func(n string) bool { return n == info.Name })
	}

	info.Status = StatusLoaded
	info.LoadedAt = time.Now()
	entry := &loadedModule{info: info, module: module}
	h.modules[info.Name] = entry
	h.order = append(h.order, info.Name)
	return entry, nil
}

func (h *Host) mount(ctx context.Context, entry *loadedModule) {
	name := entry.info.Name
	services, err := h.serviceView(ctx, entry.info.Manifest)
	if err != nil {
		h.reporter.ReportError(name, err, errorreporter.KindMount, map[string]any{"phase": "services"})
		h.setStatus(entry, StatusFailed, err)
		return
	}

	mc := newMountContext(name, entry.info.Manifest, services, h)
	entry.mc = mc

	err = h.Guard(name, errorreporter.KindMount, func() error {
		return entry.module.Mount(ctx, mc)
	})
	if err != nil {
		mc.release()
		h.modals.RemoveOwner(name)
		h.setStatus(entry, StatusFailed, err)
		h.logger.Error("Module failed to mount", "mfe", name, "error", err)
		return
	}

	h.setStatus(entry, StatusMounted, nil)
	h.logger.Info("Module mounted", "mfe", name, "version", entry.info.Version)
	h.bus.Emit(ctx, eventbus.EventTypeModuleMounted, ModuleEvent{Name: name, Version: entry.info.Version},
		eventbus.WithSource(name))
}

// coreServices are handed to every module whatever its manifest declares.
var coreServices = []string{
	eventbus.LoggerServiceName,
	eventbus.ServiceName,
	errorreporter.ServiceName,
	ModalServiceName,
}

// serviceView resolves the core services plus the services m requires.
// Other registered providers are left untouched. An optional service that
// cannot be resolved is left out of the view.
func (h *Host) serviceView(ctx context.Context, m *manifest.Manifest) (mfekernel.ServiceView, error) {
	services := make(map[string]any, len(coreServices))
	for _, name := range coreServices {
		svc, err := h.container.Require(ctx, name)
		if err != nil {
			return mfekernel.ServiceView{}, err
		}
		services[name] = svc
	}
	if m == nil {
		return mfekernel.NewServiceView(services), nil
	}
	for _, req := range m.Requirements.Services {
		if _, done := services[req.Name]; done {
			continue
		}
		if req.Optional {
			if svc, ok := h.container.Get(ctx, req.Name); ok {
				services[req.Name] = svc
			}
			continue
		}
		svc, err := h.container.Require(ctx, req.Name)
		if err != nil {
			return mfekernel.ServiceView{}, err
		}
		services[req.Name] = svc
	}
	return mfekernel.NewServiceView(services), nil
}

func (h *Host) reject(ctx context.Context, info ModuleInfo, reasons []string) (ModuleInfo, error) {
	info.Status = StatusRejected
	err := fmt.Errorf("%w: %s: %s", ErrModuleRejected, info.Name, strings.Join(reasons, "; "))
	info.Error = err.Error()

	h.logger.Warn("Module rejected", "mfe", info.Name, "reasons", reasons)
	h.bus.Emit(ctx, eventbus.EventTypeModuleRejected,
		ModuleEvent{Name: info.Name, Version: info.Version, Reasons: reasons},
		eventbus.WithSource(ModuleEventSource))
	h.reporter.ReportError(info.Name, err, errorreporter.KindLoad, map[string]any{"reasons": reasons})
	return info, err
}

// ModuleEventSource is the source of lifecycle events the host publishes on
// behalf of modules that were never admitted.
const ModuleEventSource = "host"

// Unmount tears a module down and forgets it. Teardown faults are reported
// as unmount-error and do not stop the module from being removed.
func (h *Host) Unmount(ctx context.Context, name string) error {
	h.mu.Lock()
	entry, ok := h.modules[name]
	if ok {
		delete(h.modules, name)
		h.order = slices.DeleteFunc(h.order, func(n string) bool { return n == name })
	}
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrModuleNotLoaded, name)
	}

	h.teardown(ctx, entry)
	return nil
}

func (h *Host) teardown(ctx context.Context, entry *loadedModule) {
	name := entry.info.Name
	if u, ok := entry.module.(Unmounter); ok && h.statusOf(entry) == StatusMounted {
		if err := h.Guard(name, errorreporter.KindUnmount, func() error { return u.Unmount(ctx) }); err != nil {
			h.logger.Warn("Module unmount failed", "mfe", name, "error", err)
		}
	}
	released := 0
	if entry.mc != nil {
		released = entry.mc.release()
	}
	closed := h.modals.RemoveOwner(name)

	h.logger.Info("Module unmounted", "mfe", name, "subscriptions", released, "modals", closed)
	h.bus.Emit(ctx, eventbus.EventTypeModuleUnmounted, ModuleEvent{Name: name, Version: entry.info.Version},
		eventbus.WithSource(name))
}

// Guard runs fn inside a fault boundary for the named module. A returned
// error or a panic is filed with the reporter as kind and returned; the
// panic itself never escapes.
func (h *Host) Guard(name string, kind errorreporter.ErrorKind, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			h.reporter.ReportPanic(name, r, kind, nil)
			err = errorreporter.PanicError(r)
		}
	}()

	if err = fn(); err != nil {
		h.reporter.ReportError(name, err, kind, nil)
	}
	return err
}

// Modules returns every known module in load order.
func (h *Host) Modules() []ModuleInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	infos := make([]ModuleInfo, 0, len(h.order))
	for _, name := range h.order {
		infos = append(infos, h.modules[name].info)
	}
	return infos
}

// Module returns the named module.
func (h *Host) Module(name string) (ModuleInfo, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	entry, ok := h.modules[name]
	if !ok {
		return ModuleInfo{}, false
	}
	return entry.info, true
}

// Shutdown unmounts every module in reverse load order and disposes the
// container. It is safe to call more than once.
func (h *Host) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	if h.shutdown {
		h.mu.Unlock()
		return nil
	}
	h.shutdown = true
	entries := make([]*loadedModule, 0, len(h.order))
	for _, name := range slices.Backward(h.order) {
		entries = append(entries, h.modules[name])
	}
	h.modules = make(map[string]*loadedModule)
	h.order = nil
	h.mu.Unlock()

	for _, entry := range entries {
		h.teardown(ctx, entry)
	}

	if err := h.container.Dispose(ctx); err != nil {
		return errors.Join(ErrHostShutdown, err)
	}
	h.logger.Info("Host shut down", "modules", len(entries))
	return nil
}

// Container returns the service container.
func (h *Host) Container() *mfekernel.Container { return h.container }

// Bus returns the event bus.
func (h *Host) Bus() *eventbus.Bus { return h.bus }

// Reporter returns the error reporter.
func (h *Host) Reporter() *errorreporter.Reporter { return h.reporter }

// Modals returns the modal stack.
func (h *Host) Modals() *ModalStack { return h.modals }

// Validator returns the manifest validator.
func (h *Host) Validator() *manifest.Validator { return h.validator }

func (h *Host) isShutdown() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.shutdown
}

func (h *Host) setStatus(entry *loadedModule, status ModuleStatus, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	entry.info.Status = status
	entry.info.Error = ""
	if err != nil {
		entry.info.Error = err.Error()
	}
}

func (h *Host) statusOf(entry *loadedModule) ModuleStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return entry.info.Status
}

func (h *Host) snapshot(entry *loadedModule) ModuleInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	return entry.info
}
