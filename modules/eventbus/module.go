package eventbus

import (
	"context"

	"github.com/GoCodeAlone/mfekernel"
)

// ServiceName is the container name under which the bus is registered.
const ServiceName = "eventBus"

// LoggerServiceName is the optional logger service the provider picks up.
const LoggerServiceName = "logger"

// Version is the bus contract version reported to compatibility checks.
const Version = "1.0.0"

// Provider returns a container descriptor that builds a Bus lazily. When a
// "logger" service is registered it is used unless opts set a logger.
func Provider(opts ...Option) mfekernel.ServiceProvider {
	return mfekernel.ServiceProvider{
		Name:        ServiceName,
		Version:     Version,
		Description: "publish/subscribe bus for cross-module messaging",
		Create: func(ctx context.Context, l mfekernel.ServiceLocator) (any, error) {
			all := opts
			if logger, ok := mfekernel.GetService[mfekernel.Logger](ctx, l, LoggerServiceName); ok {
				all = append([]Option{WithLogger(logger)}, opts...)
			}
			return New(all...), nil
		},
		Dispose: func(_ context.Context, instance any) error {
			if b, ok := instance.(*Bus); ok {
				b.RemoveAllListeners()
				b.ClearEventHistory()
			}
			return nil
		},
	}
}
