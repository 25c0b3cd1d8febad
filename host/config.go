package host

import (
	"errors"
	"fmt"

	"github.com/GoCodeAlone/mfekernel/feeders"
	"github.com/GoCodeAlone/mfekernel/modules/errorreporter"
	"github.com/GoCodeAlone/mfekernel/modules/eventbus"
	"github.com/GoCodeAlone/mfekernel/modules/manifest"
	"github.com/Masterminds/semver/v3"
)

// DefaultContainerVersion is the kernel version reported to compatibility
// checks when none is configured.
const DefaultContainerVersion = "1.0.0"

// Config is the composition root configuration.
//
// Example YAML configuration:
//
//	eventBus:
//	  historySize: 200
//	errorReporter:
//	  maxErrorsPerSession: 50
//	  errorThrottle: 2s
//	host:
//	  containerVersion: 1.3.0
//	  frameworks:
//	    react: 18.2.0
//	janitorSchedule: "@every 5m"
type Config struct {
	EventBus      eventbus.Config      `json:"eventBus" yaml:"eventBus" toml:"eventBus" env:"EVENT_BUS"`
	ErrorReporter errorreporter.Config `json:"errorReporter" yaml:"errorReporter" toml:"errorReporter" env:"ERROR_REPORTER"`
	Host          manifest.HostInfo    `json:"host" yaml:"host" toml:"host" env:"HOST"`

	// JanitorSchedule prunes expired error throttle keys; empty disables it.
	JanitorSchedule string `json:"janitorSchedule" yaml:"janitorSchedule" toml:"janitorSchedule" env:"JANITOR_SCHEDULE"`
}

// DefaultConfig returns the host defaults.
func DefaultConfig() Config {
	return Config{
		EventBus:        eventbus.DefaultConfig(),
		ErrorReporter:   errorreporter.DefaultConfig(),
		Host:            manifest.HostInfo{ContainerVersion: DefaultContainerVersion},
		JanitorSchedule: errorreporter.DefaultJanitorSchedule,
	}
}

// Validate checks every section and returns all problems joined.
func (c Config) Validate() error {
	var errs []error
	if err := c.EventBus.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("eventBus: %w", err))
	}
	if err := c.ErrorReporter.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("errorReporter: %w", err))
	}
	if v := c.Host.ContainerVersion; v != "" {
		if _, err := semver.NewVersion(v); err != nil {
			errs = append(errs, fmt.Errorf("%w %q: %w", ErrInvalidHostVersion, v, err))
		}
	}
	return errors.Join(errs...)
}

// LoadConfig applies feeders to cfg in order, later feeders overriding
// earlier ones, then validates the result.
func LoadConfig(cfg *Config, sources ...feeders.Feeder) error {
	for _, f := range sources {
		if err := f.Feed(cfg); err != nil {
			return fmt.Errorf("failed to load host configuration: %w", err)
		}
	}
	return cfg.Validate()
}
