package errorreporter

import (
	"fmt"
	"time"
)

const (
	DefaultMaxErrorsPerSession = 100
	DefaultErrorThrottle       = 5 * time.Second
	DefaultRecentLimit         = 10
)

// Config defines the configuration for the error reporter.
//
// Example YAML configuration:
//
//	errorReporter:
//	  maxErrorsPerSession: 50
//	  errorThrottle: 2s
//	  enableConsoleLogging: true
type Config struct {
	// MaxErrorsPerSession caps accepted reports; later reports are dropped.
	MaxErrorsPerSession int `json:"maxErrorsPerSession" yaml:"maxErrorsPerSession" toml:"maxErrorsPerSession" env:"MAX_ERRORS_PER_SESSION"`

	// ErrorThrottle suppresses repeats of the same (module, message) pair
	// reported within the window. Zero disables throttling.
	ErrorThrottle time.Duration `json:"errorThrottle" yaml:"errorThrottle" toml:"errorThrottle" env:"ERROR_THROTTLE"`

	// EnableConsoleLogging mirrors accepted reports to the logger.
	EnableConsoleLogging bool `json:"enableConsoleLogging" yaml:"enableConsoleLogging" toml:"enableConsoleLogging" env:"ENABLE_CONSOLE_LOGGING"`

	// RecentLimit is how many reports Summary lists as recent.
	RecentLimit int `json:"recentLimit" yaml:"recentLimit" toml:"recentLimit" env:"RECENT_LIMIT"`
}

// DefaultConfig returns the reporter defaults.
func DefaultConfig() Config {
	return Config{
		MaxErrorsPerSession:  DefaultMaxErrorsPerSession,
		ErrorThrottle:        DefaultErrorThrottle,
		EnableConsoleLogging: true,
		RecentLimit:          DefaultRecentLimit,
	}
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	if c.MaxErrorsPerSession < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidSessionCap, c.MaxErrorsPerSession)
	}
	if c.ErrorThrottle < 0 {
		return fmt.Errorf("%w: got %s", ErrInvalidThrottle, c.ErrorThrottle)
	}
	if c.RecentLimit < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidRecentLimit, c.RecentLimit)
	}
	return nil
}
