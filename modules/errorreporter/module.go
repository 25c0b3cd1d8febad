package errorreporter

import (
	"context"

	"github.com/GoCodeAlone/mfekernel"
)

// ServiceName is the container name under which the reporter is registered.
const ServiceName = "errorReporter"

// LoggerServiceName is the logger service the reporter depends on.
const LoggerServiceName = "logger"

// Version is the reporter contract version reported to compatibility checks.
const Version = "1.0.0"

// Provider returns a container descriptor for a reporter built from cfg and
// wired to the container's "logger" service. A non-empty janitorSchedule
// starts the throttle janitor on creation.
func Provider(cfg Config, janitorSchedule string, opts ...Option) mfekernel.ServiceProvider {
	return mfekernel.ServiceProvider{
		Name:         ServiceName,
		Version:      Version,
		Description:  "classifies, throttles and aggregates plugin module faults",
		Dependencies: []string{LoggerServiceName},
		Create: func(ctx context.Context, l mfekernel.ServiceLocator) (any, error) {
			logger, err := mfekernel.RequireService[mfekernel.Logger](ctx, l, LoggerServiceName)
			if err != nil {
				return nil, err
			}
			r, err := New(cfg, append([]Option{WithLogger(logger)}, opts...)...)
			if err != nil {
				return nil, err
			}
			if janitorSchedule != "" {
				if err := r.StartJanitor(janitorSchedule); err != nil {
					return nil, err
				}
			}
			return r, nil
		},
	}
}
