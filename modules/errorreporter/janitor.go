package errorreporter

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
)

// DefaultJanitorSchedule prunes expired throttle keys once a minute.
const DefaultJanitorSchedule = "@every 1m"

// StartJanitor schedules PruneThrottle using a standard cron expression or
// descriptor such as "@every 30s".
func (r *Reporter) StartJanitor(schedule string) error {
	if schedule == "" {
		schedule = DefaultJanitorSchedule
	}

	r.janitorMu.Lock()
	defer r.janitorMu.Unlock()
	if r.janitor != nil {
		return ErrJanitorRunning
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if n := r.PruneThrottle(); n > 0 {
			r.logger.Debug("Pruned throttle keys", "count", n)
		}
	}); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidJanitorSpec, schedule, err)
	}
	c.Start()
	r.janitor = c
	r.logger.Debug("Started throttle janitor", "schedule", schedule)
	return nil
}

// StopJanitor stops the janitor and waits for a running prune to finish or
// for ctx to end. Stopping a reporter without a janitor is a no-op.
func (r *Reporter) StopJanitor(ctx context.Context) error {
	r.janitorMu.Lock()
	c := r.janitor
	r.janitor = nil
	r.janitorMu.Unlock()
	if c == nil {
		return nil
	}

	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dispose stops background work. It lets the container tear the reporter
// down through the mfekernel.Disposer contract.
func (r *Reporter) Dispose(ctx context.Context) error {
	return r.StopJanitor(ctx)
}
