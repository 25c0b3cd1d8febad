// Package eventbus provides the kernel's synchronous publish/subscribe bus.
//
// Plugin modules address each other only through namespaced event types
// ("domain:action"). Dispatch is synchronous: every matching handler has run
// (or failed in isolation) before Emit returns, and handlers may emit
// further events from inside their own invocation.
package eventbus

import (
	"context"
	"fmt"
	"maps"
	"runtime/debug"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GoCodeAlone/mfekernel"
)

// Bus is an in-process event bus with debugging instrumentation.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]*Subscription
	history  *history

	totalEmitted    uint64
	eventCounts     map[string]uint64
	handlerFailures uint64

	logging    atomic.Bool
	validation atomic.Bool

	source string
	logger mfekernel.Logger
	now    func() time.Time
}

// Stats is a snapshot of the bus counters.
type Stats struct {
	TotalEmitted    uint64            `json:"totalEmitted"`
	EventCounts     map[string]uint64 `json:"eventCounts"`
	HandlerCounts   map[string]int    `json:"handlerCounts"`
	HandlerFailures uint64            `json:"handlerFailures"`
	HistorySize     int               `json:"historySize"`
	HistoryCapacity int               `json:"historyCapacity"`
}

// Option configures a Bus.
type Option func(*busOptions)

type busOptions struct {
	cfg    Config
	logger mfekernel.Logger
	now    func() time.Time
}

// WithConfig applies a full configuration.
func WithConfig(cfg Config) Option {
	return func(o *busOptions) {
		o.cfg = cfg
	}
}

// WithLogger sets the logger used for handler failures, validation warnings
// and emit logging.
func WithLogger(logger mfekernel.Logger) Option {
	return func(o *busOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithHistorySize sets the history buffer capacity.
func WithHistorySize(size int) Option {
	return func(o *busOptions) {
		o.cfg.HistorySize = size
	}
}

// WithDefaultSource sets the source stamped on payloads without one.
func WithDefaultSource(source string) Option {
	return func(o *busOptions) {
		o.cfg.Source = source
	}
}

// WithValidation enables payload shape validation.
func WithValidation(enabled bool) Option {
	return func(o *busOptions) {
		o.cfg.EnableValidation = enabled
	}
}

// WithLogging enables per-emit logging.
func WithLogging(enabled bool) Option {
	return func(o *busOptions) {
		o.cfg.EnableLogging = enabled
	}
}

// WithClock replaces time.Now for payload timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *busOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// New creates a bus. Invalid configuration values fall back to defaults.
func New(opts ...Option) *Bus {
	o := busOptions{
		cfg:    DefaultConfig(),
		logger: mfekernel.NopLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.cfg.Validate(); err != nil {
		o.logger.Warn("Invalid event bus configuration, using defaults", "error", err)
		def := DefaultConfig()
		if o.cfg.HistorySize < 1 {
			o.cfg.HistorySize = def.HistorySize
		}
		if o.cfg.Source == "" {
			o.cfg.Source = def.Source
		}
	}

	b := &Bus{
		handlers:    make(map[string][]*Subscription),
		history:     newHistory(o.cfg.HistorySize),
		eventCounts: make(map[string]uint64),
		source:      o.cfg.Source,
		logger:      o.logger,
		now:         o.now,
	}
	b.logging.Store(o.cfg.EnableLogging)
	b.validation.Store(o.cfg.EnableValidation)
	return b
}

// Emit builds a payload from an event type and data and publishes it.
func (b *Bus) Emit(ctx context.Context, eventType string, data any, opts ...EmitOption) Payload {
	p := Payload{Type: eventType, Data: data}
	for _, opt := range opts {
		opt(&p)
	}
	return b.Publish(ctx, p)
}

// Publish dispatches a fully formed payload and returns its normalized form.
// Publish never fails: malformed payloads are logged when validation is
// enabled and dispatched anyway.
func (b *Bus) Publish(ctx context.Context, event Payload) Payload {
	p := b.normalize(event)

	if b.validation.Load() {
		for _, issue := range ValidatePayload(p) {
			b.logger.Warn("Invalid event payload", "type", p.Type, "source", p.Source, "issue", issue)
		}
	}

	b.record(p)
	specific, wildcard := b.snapshot(p.Type)

	if b.logging.Load() {
		b.logger.Info("Event emitted",
			"type", p.Type,
			"source", p.Source,
			"id", p.ID,
			"listeners", len(specific)+len(wildcard))
	}

	for _, sub := range specific {
		b.invoke(ctx, sub, p)
	}
	for _, sub := range wildcard {
		b.invoke(ctx, sub, p)
	}
	return p
}

// On subscribes handler to eventType. Use Wildcard to receive every payload.
func (b *Bus) On(eventType string, handler Handler) (*Subscription, error) {
	return b.subscribe(eventType, handler, false)
}

// Once subscribes handler for a single delivery. The subscription removes
// itself before the handler runs.
func (b *Bus) Once(eventType string, handler Handler) (*Subscription, error) {
	return b.subscribe(eventType, handler, true)
}

func (b *Bus) subscribe(eventType string, handler Handler, once bool) (*Subscription, error) {
	if eventType == "" {
		return nil, ErrEventTypeEmpty
	}
	if handler == nil {
		return nil, ErrEventHandlerNil
	}

	sub := newSubscription(b, eventType, handler, once)

	b.mu.Lock()
	b.handlers[eventType] = append(b.handlers[eventType], sub)
	b.mu.Unlock()

	if b.logging.Load() {
		b.logger.Debug("Subscribed", "type", eventType, "subscription", sub.id, "once", once)
	}
	return sub, nil
}

// Off removes a subscription. Removing one that is already gone is a no-op.
func (b *Bus) Off(sub *Subscription) {
	if sub == nil || sub.bus != b {
		return
	}
	if !sub.active.CompareAndSwap(true, false) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.detach(sub)
}

// detach removes sub from the handler table. Callers hold b.mu.
func (b *Bus) detach(sub *Subscription) {
	subs := b.handlers[sub.eventType]
	idx := slices.Index(subs, sub)
	if idx < 0 {
		return
	}
	subs = slices.Delete(subs, idx, idx+1)
	if len(subs) == 0 {
		delete(b.handlers, sub.eventType)
		return
	}
	b.handlers[sub.eventType] = subs
}

// RemoveAllListeners removes every subscription for the given event types,
// or for all types when none are given.
func (b *Bus) RemoveAllListeners(eventTypes ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(eventTypes) == 0 {
		eventTypes = slices.Collect(maps.Keys(b.handlers))
	}
	for _, eventType := range eventTypes {
		for _, sub := range b.handlers[eventType] {
			sub.active.Store(false)
		}
		delete(b.handlers, eventType)
	}
}

// ListenerCount returns the number of active subscriptions for eventType.
func (b *Bus) ListenerCount(eventType string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[eventType])
}

// EventTypes returns every event type with at least one subscription.
func (b *Bus) EventTypes() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Sorted(maps.Keys(b.handlers))
}

// EnableLogging toggles per-emit logging.
func (b *Bus) EnableLogging(enabled bool) {
	b.logging.Store(enabled)
}

// EnableValidation toggles payload shape validation.
func (b *Bus) EnableValidation(enabled bool) {
	b.validation.Store(enabled)
}

// EventHistory returns up to limit of the most recent payloads, oldest
// first. A limit <= 0 returns the whole buffer.
func (b *Bus) EventHistory(limit int) []Payload {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.history.last(limit)
}

// ClearEventHistory empties the history buffer. Counters are kept.
func (b *Bus) ClearEventHistory() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history.reset()
}

// EventStats returns a snapshot of the bus counters.
func (b *Bus) EventStats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	handlerCounts := make(map[string]int, len(b.handlers))
	for eventType, subs := range b.handlers {
		handlerCounts[eventType] = len(subs)
	}
	return Stats{
		TotalEmitted:    b.totalEmitted,
		EventCounts:     maps.Clone(b.eventCounts),
		HandlerCounts:   handlerCounts,
		HandlerFailures: b.handlerFailures,
		HistorySize:     b.history.len(),
		HistoryCapacity: b.history.capacity(),
	}
}

// record updates history and counters whether or not anyone listens.
func (b *Bus) record(p Payload) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history.push(p)
	b.totalEmitted++
	b.eventCounts[p.Type]++
}

// snapshot copies the handler lists so dispatch runs without holding the
// lock; handlers are free to subscribe, unsubscribe or emit.
func (b *Bus) snapshot(eventType string) (specific, wildcard []*Subscription) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if eventType != Wildcard {
		specific = slices.Clone(b.handlers[eventType])
	}
	wildcard = slices.Clone(b.handlers[Wildcard])
	return specific, wildcard
}

// invoke runs one handler inside its own failure boundary.
func (b *Bus) invoke(ctx context.Context, sub *Subscription, p Payload) {
	// A handler earlier in this dispatch may have removed sub.
	if !sub.Active() || !sub.claim() {
		return
	}
	if sub.once {
		b.Off(sub)
	}

	defer func() {
		if r := recover(); r != nil {
			b.recordFailure()
			b.logger.Error("Event handler panicked",
				"type", p.Type,
				"subscription", sub.id,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
		}
	}()

	if err := sub.handler(ctx, p.clone()); err != nil {
		b.recordFailure()
		b.logger.Error("Event handler failed", "type", p.Type, "subscription", sub.id, "error", err)
	}
}

func (b *Bus) recordFailure() {
	b.mu.Lock()
	b.handlerFailures++
	b.mu.Unlock()
}
