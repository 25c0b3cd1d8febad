package eventbus

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Subscription is a handler registered for one event type. Unsubscribing is
// idempotent and only affects future dispatches.
type Subscription struct {
	id        string
	eventType string
	handler   Handler
	once      bool
	bus       *Bus

	active atomic.Bool
	fired  atomic.Bool
}

func newSubscription(bus *Bus, eventType string, handler Handler, once bool) *Subscription {
	s := &Subscription{
		id:        uuid.New().String(),
		eventType: eventType,
		handler:   handler,
		once:      once,
		bus:       bus,
	}
	s.active.Store(true)
	return s
}

// ID returns the unique subscription identifier.
func (s *Subscription) ID() string {
	return s.id
}

// Type returns the subscribed event type, possibly Wildcard.
func (s *Subscription) Type() string {
	return s.eventType
}

// Once reports whether the subscription delivers at most one payload.
func (s *Subscription) Once() bool {
	return s.once
}

// Active reports whether the subscription still receives payloads.
func (s *Subscription) Active() bool {
	return s.active.Load()
}

// Unsubscribe removes the subscription from its bus. Calling it again is a
// no-op.
func (s *Subscription) Unsubscribe() {
	s.bus.Off(s)
}

// claim marks a once-subscription as delivered. Only the first caller wins,
// which holds even when the handler re-emits the same type.
func (s *Subscription) claim() bool {
	if !s.once {
		return true
	}
	return s.fired.CompareAndSwap(false, true)
}
