package errorreporter

import (
	"errors"
	"runtime"
)

var kindSeverity = map[ErrorKind]Severity{
	KindNetwork: SeverityMedium,
	KindTimeout: SeverityLow,
	KindLoad:    SeverityHigh,
	KindMount:   SeverityHigh,
	KindUnmount: SeverityLow,
	KindRuntime: SeverityMedium,
	KindUnknown: SeverityMedium,
}

// Classify derives a severity from the fault kind and the error's runtime
// class. A type-confusion failure (a *runtime.TypeAssertionError or
// ErrTypeConfusion anywhere in the chain) is critical whatever the kind;
// no other error class overrides the kind mapping.
func Classify(kind ErrorKind, err error) Severity {
	if IsTypeConfusion(err) {
		return SeverityCritical
	}
	if s, ok := kindSeverity[kind]; ok {
		return s
	}
	return SeverityMedium
}

// IsTypeConfusion reports whether err stems from a type assertion failure.
func IsTypeConfusion(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTypeConfusion) {
		return true
	}
	var tae *runtime.TypeAssertionError
	return errors.As(err, &tae)
}
