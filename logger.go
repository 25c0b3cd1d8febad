package mfekernel

import "log/slog"

// Logger defines the interface for kernel logging.
// The kernel uses structured logging with key-value pairs so that every
// component (container, event bus, error reporter, manifest checks) produces
// consistent, parseable output.
//
// The interface uses variadic arguments in key-value pairs:
//
//	logger.Info("message", "key1", "value1", "key2", "value2")
//
// A *slog.Logger satisfies Logger directly, which is what the kernel uses
// unless a host supplies its own implementation.
type Logger interface {
	// Info logs an informational message, e.g. a service being created.
	Info(msg string, args ...any)

	// Error logs a failure that the kernel recovered from, e.g. a handler panic.
	Error(msg string, args ...any)

	// Warn logs an unusual condition, e.g. a malformed event payload.
	Warn(msg string, args ...any)

	// Debug logs detailed diagnostics such as resolution order.
	Debug(msg string, args ...any)
}

// NopLogger returns a logger that discards everything.
func NopLogger() Logger {
	return slog.New(slog.DiscardHandler)
}

// ScopedLogger injects a fixed set of key-value pairs into every log call.
// The host gives each plugin module a logger scoped to the module name so
// lines produced by different modules can be told apart.
type ScopedLogger struct {
	inner Logger
	args  []any
}

// NewScopedLogger wraps inner so that args are prepended to every call.
func NewScopedLogger(inner Logger, args ...any) *ScopedLogger {
	if inner == nil {
		inner = NopLogger()
	}
	return &ScopedLogger{inner: inner, args: args}
}

// Inner returns the wrapped logger.
func (l *ScopedLogger) Inner() Logger {
	return l.inner
}

func (l *ScopedLogger) combine(args []any) []any {
	if len(l.args) == 0 {
		return args
	}
	combined := make([]any, 0, len(l.args)+len(args))
	combined = append(combined, l.args...)
	return append(combined, args...)
}

func (l *ScopedLogger) Info(msg string, args ...any) {
	l.inner.Info(msg, l.combine(args)...)
}

func (l *ScopedLogger) Error(msg string, args ...any) {
	l.inner.Error(msg, l.combine(args)...)
}

func (l *ScopedLogger) Warn(msg string, args ...any) {
	l.inner.Warn(msg, l.combine(args)...)
}

func (l *ScopedLogger) Debug(msg string, args ...any) {
	l.inner.Debug(msg, l.combine(args)...)
}
