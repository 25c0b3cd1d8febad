package errorreporter

import (
	"time"
)

// ErrorKind is the surface category of a plugin module fault.
type ErrorKind string

const (
	KindNetwork ErrorKind = "network-error"
	KindTimeout ErrorKind = "timeout-error"
	KindLoad    ErrorKind = "load-error"
	KindMount   ErrorKind = "mount-error"
	KindUnmount ErrorKind = "unmount-error"
	KindRuntime ErrorKind = "runtime-error"
	KindUnknown ErrorKind = "unknown-error"
)

// Severity ranks reports for dashboards and recovery UI.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ErrorInfo is the message and stack captured from a fault.
type ErrorInfo struct {
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

// Report is one accepted fault. Reports are append-only until cleared.
type Report struct {
	ID        string         `json:"id"`
	MFEName   string         `json:"mfeName"`
	Error     ErrorInfo      `json:"error"`
	Type      ErrorKind      `json:"type"`
	Severity  Severity       `json:"severity"`
	Context   map[string]any `json:"context,omitempty"`
	Timestamp time.Time      `json:"timestamp"`

	// cause is the original error, kept for errors.Is checks by callers.
	cause error
}

// Unwrap returns the error the report was created from, if any.
func (r *Report) Unwrap() error {
	return r.cause
}

// Summary is the aggregate shape dashboards read.
type Summary struct {
	TotalErrors      int               `json:"totalErrors"`
	ErrorsByType     map[ErrorKind]int `json:"errorsByType"`
	ErrorsBySeverity map[Severity]int  `json:"errorsBySeverity"`
	ErrorsByMFE      map[string]int    `json:"errorsByMfe"`
	RecentErrors     []Report          `json:"recentErrors"`
}
