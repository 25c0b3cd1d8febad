package errorreporter

import "errors"

var (
	// ErrTypeConfusion marks a failure caused by using a value as the wrong
	// type. Reports whose error chain contains it are always critical.
	ErrTypeConfusion = errors.New("type confusion")

	ErrInvalidSessionCap  = errors.New("max errors per session must be positive")
	ErrInvalidThrottle    = errors.New("error throttle must not be negative")
	ErrInvalidRecentLimit = errors.New("recent error limit must not be negative")
	ErrJanitorRunning     = errors.New("janitor already running")
	ErrInvalidJanitorSpec = errors.New("invalid janitor schedule")
)
