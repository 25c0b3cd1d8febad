// Package debugapi exposes the kernel's diagnostic state over HTTP: error
// reports, event history and counters, registered services and Prometheus
// metrics.
package debugapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/GoCodeAlone/mfekernel"
	"github.com/GoCodeAlone/mfekernel/modules/errorreporter"
	"github.com/GoCodeAlone/mfekernel/modules/eventbus"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServiceInfo is one entry of the /services response.
type ServiceInfo struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Description  string   `json:"description,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
	Created      bool     `json:"created"`
}

// Handler serves the debug routes.
type Handler struct {
	cfg       Config
	container *mfekernel.Container
	bus       *eventbus.Bus
	reporter  *errorreporter.Reporter
	modules   func() any
	logger    mfekernel.Logger
	registry  *prometheus.Registry
	router    chi.Router
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger used for encoding failures.
func WithLogger(logger mfekernel.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithModules adds a /modules route serving whatever fn returns.
func WithModules(fn func() any) Option {
	return func(h *Handler) {
		h.modules = fn
	}
}

// New builds the handler. container, bus and reporter may each be nil; the
// routes backed by a nil dependency answer 404.
func New(cfg Config, container *mfekernel.Container, bus *eventbus.Bus, reporter *errorreporter.Reporter, opts ...Option) (*Handler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	def := DefaultConfig()
	if cfg.DefaultHistoryLimit < 1 {
		cfg.DefaultHistoryLimit = def.DefaultHistoryLimit
	}
	if cfg.MetricsNamespace == "" {
		cfg.MetricsNamespace = def.MetricsNamespace
	}

	h := &Handler{
		cfg:       cfg,
		container: container,
		bus:       bus,
		reporter:  reporter,
		logger:    mfekernel.NopLogger(),
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(h)
	}

	if bus != nil {
		if err := h.registry.Register(eventbus.NewPrometheusCollector(bus, cfg.MetricsNamespace+"_eventbus")); err != nil {
			return nil, err
		}
	}
	if reporter != nil {
		if err := h.registry.Register(errorreporter.NewPrometheusCollector(reporter, cfg.MetricsNamespace+"_errors")); err != nil {
			return nil, err
		}
	}

	h.router = h.routes()
	return h, nil
}

// Registry returns the registry /metrics is served from, so callers can add
// their own collectors.
func (h *Handler) Registry() *prometheus.Registry {
	return h.registry
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) routes() chi.Router {
	r := chi.NewRouter()
	mount := func(r chi.Router) {
		r.Use(h.checkAuth)

		if h.reporter != nil {
			r.Get("/errors", h.handleErrors)
			r.Get("/errors/summary", h.handleErrorSummary)
			r.Get("/errors/stats", h.handleErrorStats)
			r.Delete("/errors", h.handleClearErrors)
		}
		if h.bus != nil {
			r.Get("/events/history", h.handleEventHistory)
			r.Delete("/events/history", h.handleClearHistory)
			r.Get("/events/stats", h.handleEventStats)
		}
		if h.container != nil {
			r.Get("/services", h.handleServices)
		}
		if h.modules != nil {
			r.Get("/modules", h.handleModules)
		}
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{}))
	}
	if h.cfg.BasePath == "" {
		r.Group(mount)
	} else {
		r.Route(h.cfg.BasePath, mount)
	}
	return r
}

func (h *Handler) checkAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.cfg.AuthToken == "" {
			next.ServeHTTP(w, r)
			return
		}
		header := r.Header.Get("Authorization")
		if header == "" {
			w.Header().Set("WWW-Authenticate", "Bearer")
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}
		if header != "Bearer "+h.cfg.AuthToken {
			http.Error(w, "Invalid authentication token", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) handleErrors(w http.ResponseWriter, r *http.Request) {
	reports := h.reporter.Errors()
	if mfe := r.URL.Query().Get("mfe"); mfe != "" {
		reports = h.reporter.ErrorsByMFE(mfe)
	}
	if reports == nil {
		reports = []errorreporter.Report{}
	}
	h.writeJSON(w, reports)
}

func (h *Handler) handleErrorSummary(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, h.reporter.Summary())
}

func (h *Handler) handleErrorStats(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, h.reporter.Stats())
}

func (h *Handler) handleClearErrors(w http.ResponseWriter, _ *http.Request) {
	h.reporter.ClearErrors()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleEventHistory(w http.ResponseWriter, r *http.Request) {
	limit := h.cfg.DefaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	history := h.bus.EventHistory(limit)

	if strings.EqualFold(r.URL.Query().Get("format"), "cloudevents") {
		events, err := eventbus.CloudEvents(history)
		if err != nil {
			h.logger.Error("Failed to convert event history", "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/cloudevents-batch+json")
		h.encode(w, events)
		return
	}
	if history == nil {
		history = []eventbus.Payload{}
	}
	h.writeJSON(w, history)
}

func (h *Handler) handleClearHistory(w http.ResponseWriter, _ *http.Request) {
	h.bus.ClearEventHistory()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleEventStats(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, h.bus.EventStats())
}

func (h *Handler) handleServices(w http.ResponseWriter, _ *http.Request) {
	created := make(map[string]bool)
	for _, name := range h.container.Created() {
		created[name] = true
	}
	services := make([]ServiceInfo, 0)
	for _, name := range h.container.Names() {
		p, ok := h.container.Provider(name)
		if !ok {
			continue
		}
		services = append(services, ServiceInfo{
			Name:         name,
			Version:      p.Version,
			Description:  p.Description,
			Dependencies: p.Dependencies,
			Created:      created[name],
		})
	}
	h.writeJSON(w, services)
}

func (h *Handler) handleModules(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, h.modules())
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	h.encode(w, v)
}

func (h *Handler) encode(w http.ResponseWriter, v any) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode debug response", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
