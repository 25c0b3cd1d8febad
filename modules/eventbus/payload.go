package eventbus

import (
	"context"
	"maps"
	"time"

	"github.com/google/uuid"
)

// Wildcard is the reserved event type whose handlers receive every payload.
// It must not be emitted as a concrete event type.
const Wildcard = "*"

// Payload is the canonical event representation. Every emit, whatever its
// call style, is normalized into one Payload before history, stats or
// handlers see it.
type Payload struct {
	// ID uniquely identifies the payload; generated when empty.
	ID string `json:"id"`

	// Type is the namespaced addressing unit, e.g. "user:login".
	Type string `json:"type"`

	// Data is the event body. The bus never inspects it.
	Data any `json:"data,omitempty"`

	// Timestamp is set at emit time when zero.
	Timestamp time.Time `json:"timestamp"`

	// Source names the emitter; defaults to the bus source.
	Source string `json:"source"`

	// Metadata carries optional context such as correlation ids.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// clone returns a copy whose metadata map is not shared.
func (p Payload) clone() Payload {
	p.Metadata = maps.Clone(p.Metadata)
	return p
}

// Handler receives dispatched payloads. A returned error or a panic is
// logged and counted; it never reaches the emitter or sibling handlers.
type Handler func(ctx context.Context, event Payload) error

// EmitOption adjusts a payload built by Emit.
type EmitOption func(*Payload)

// WithSource overrides the payload source.
func WithSource(source string) EmitOption {
	return func(p *Payload) {
		p.Source = source
	}
}

// WithMetadata attaches metadata to the payload.
func WithMetadata(metadata map[string]any) EmitOption {
	return func(p *Payload) {
		p.Metadata = metadata
	}
}

// WithID sets an explicit payload id.
func WithID(id string) EmitOption {
	return func(p *Payload) {
		p.ID = id
	}
}

// normalize fills defaults and detaches the metadata map from the caller.
func (b *Bus) normalize(p Payload) Payload {
	p = p.clone()
	if p.ID == "" {
		p.ID = newEventID()
	}
	if p.Timestamp.IsZero() {
		p.Timestamp = b.now()
	}
	if p.Source == "" {
		p.Source = b.source
	}
	return p
}

// newEventID generates a time-ordered UUIDv7, falling back to v4.
func newEventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return id.String()
}
