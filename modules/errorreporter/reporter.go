// Package errorreporter collects, classifies and throttles plugin module
// faults so that one misbehaving module never takes down the host.
package errorreporter

import (
	"errors"
	"fmt"
	"maps"
	"runtime/debug"
	"slices"
	"sync"
	"time"

	"github.com/GoCodeAlone/mfekernel"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// Reporter aggregates fault reports for a host session.
type Reporter struct {
	mu        sync.Mutex
	cfg       Config
	reports   []Report
	throttle  map[throttleKey]time.Time
	capWarned bool
	throttled uint64
	dropped   uint64

	logger  mfekernel.Logger
	onError func(Report)
	now     func() time.Time

	janitorMu sync.Mutex
	janitor   *cron.Cron
}

type throttleKey struct {
	mfe     string
	message string
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithLogger sets the logger used for console mirroring and warnings.
func WithLogger(logger mfekernel.Logger) Option {
	return func(r *Reporter) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithOnError registers a callback invoked synchronously for every accepted
// report. A panicking callback is logged; the report is kept.
func WithOnError(fn func(Report)) Option {
	return func(r *Reporter) {
		r.onError = fn
	}
}

// WithClock replaces time.Now, mainly for throttle tests.
func WithClock(now func() time.Time) Option {
	return func(r *Reporter) {
		if now != nil {
			r.now = now
		}
	}
}

// New creates a reporter.
func New(cfg Config, opts ...Option) (*Reporter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Reporter{
		cfg:      cfg,
		throttle: make(map[throttleKey]time.Time),
		logger:   mfekernel.NopLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// ReportError records a fault raised by the named module. It returns nil when
// the report is a duplicate within the throttle window or the session cap has
// been reached; neither case has any other effect.
func (r *Reporter) ReportError(mfeName string, err error, kind ErrorKind, context map[string]any) *Report {
	return r.report(mfeName, err, "", kind, context)
}

// ReportPanic records a value recovered from a panic, with the current stack.
func (r *Reporter) ReportPanic(mfeName string, recovered any, kind ErrorKind, context map[string]any) *Report {
	return r.report(mfeName, PanicError(recovered), string(debug.Stack()), kind, context)
}

// PanicError converts a recovered value into an error, keeping it when it
// already is one.
func PanicError(recovered any) error {
	if err, ok := recovered.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", recovered)
}

func (r *Reporter) report(mfeName string, err error, stack string, kind ErrorKind, context map[string]any) *Report {
	if err == nil {
		err = errors.New("unknown error")
	}
	if kind == "" {
		kind = KindUnknown
	}
	message := err.Error()

	r.mu.Lock()
	now := r.now()
	key := throttleKey{mfe: mfeName, message: message}
	if last, seen := r.throttle[key]; seen && r.cfg.ErrorThrottle > 0 && now.Sub(last) < r.cfg.ErrorThrottle {
		r.throttled++
		r.mu.Unlock()
		return nil
	}
	if len(r.reports) >= r.cfg.MaxErrorsPerSession {
		r.dropped++
		warn := !r.capWarned
		r.capWarned = true
		r.mu.Unlock()
		if warn {
			r.logger.Warn("Maximum errors per session reached, dropping further reports",
				"max", r.cfg.MaxErrorsPerSession)
		}
		return nil
	}

	report := Report{
		ID:        uuid.New().String(),
		MFEName:   mfeName,
		Error:     ErrorInfo{Message: message, Stack: stack},
		Type:      kind,
		Severity:  Classify(kind, err),
		Context:   maps.Clone(context),
		Timestamp: now,
		cause:     err,
	}
	r.throttle[key] = now
	r.reports = append(r.reports, report)
	r.mu.Unlock()

	if r.cfg.EnableConsoleLogging {
		r.logger.Error("MFE error reported",
			"mfe", mfeName,
			"type", string(kind),
			"severity", string(report.Severity),
			"error", message)
	}
	r.notify(report)

	out := report.clone()
	return &out
}

func (r *Reporter) notify(report Report) {
	if r.onError == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Error callback panicked", "mfe", report.MFEName, "panic", fmt.Sprint(rec))
		}
	}()
	r.onError(report.clone())
}

// Errors returns every accepted report in acceptance order.
func (r *Reporter) Errors() []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneReports(r.reports)
}

// ErrorsByMFE returns the accepted reports raised by one module.
func (r *Reporter) ErrorsByMFE(mfeName string) []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Report
	for _, report := range r.reports {
		if report.MFEName == mfeName {
			out = append(out, report.clone())
		}
	}
	return out
}

// ErrorCounts returns the number of accepted reports per module.
func (r *Reporter) ErrorCounts() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]int)
	for _, report := range r.reports {
		counts[report.MFEName]++
	}
	return counts
}

// Summary aggregates the accepted reports. RecentErrors holds the newest
// reports, newest first, up to the configured limit.
func (r *Reporter) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Summary{
		TotalErrors:      len(r.reports),
		ErrorsByType:     make(map[ErrorKind]int),
		ErrorsBySeverity: make(map[Severity]int),
		ErrorsByMFE:      make(map[string]int),
		RecentErrors:     []Report{},
	}
	for _, report := range r.reports {
		s.ErrorsByType[report.Type]++
		s.ErrorsBySeverity[report.Severity]++
		s.ErrorsByMFE[report.MFEName]++
	}
	for _, report := range slices.Backward(r.reports) {
		if len(s.RecentErrors) >= r.cfg.RecentLimit {
			break
		}
		s.RecentErrors = append(s.RecentErrors, report.clone())
	}
	return s
}

// ClearErrors drops every report and throttle key and re-arms the session
// cap warning.
func (r *Reporter) ClearErrors() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = nil
	clear(r.throttle)
	r.capWarned = false
}

// PruneThrottle forgets throttle keys whose window has passed and returns
// how many were removed. Expired keys never suppress anything, so pruning
// only bounds memory.
func (r *Reporter) PruneThrottle() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	removed := 0
	for key, last := range r.throttle {
		if now.Sub(last) >= r.cfg.ErrorThrottle {
			delete(r.throttle, key)
			removed++
		}
	}
	return removed
}

// Stats is a snapshot of reporter counters.
type Stats struct {
	Accepted     int    `json:"accepted"`
	Throttled    uint64 `json:"throttled"`
	Dropped      uint64 `json:"dropped"`
	ThrottleKeys int    `json:"throttleKeys"`
}

// Stats returns the reporter counters.
func (r *Reporter) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		Accepted:     len(r.reports),
		Throttled:    r.throttled,
		Dropped:      r.dropped,
		ThrottleKeys: len(r.throttle),
	}
}

func (rep Report) clone() Report {
	rep.Context = maps.Clone(rep.Context)
	return rep
}

func cloneReports(reports []Report) []Report {
	out := make([]Report, len(reports))
	for i, report := range reports {
		out[i] = report.clone()
	}
	return out
}
