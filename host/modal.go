package host

import (
	"context"
	"slices"
	"sync"

	"github.com/GoCodeAlone/mfekernel/modules/eventbus"
	"github.com/google/uuid"
)

// ModalServiceName is the container name of the modal stack.
const ModalServiceName = "modal"

// ModalVersion is the contract version of the modal service.
const ModalVersion = "1.0.0"

// ModalService is the capability modules use to open and close modals. The
// host rendering layer follows the stack through modal:changed events
// instead of each modal wiring its own global listeners.
type ModalService interface {
	Push(owner string, props map[string]any) Modal
	Pop() (Modal, bool)
	Remove(id string) error
	Top() (Modal, bool)
	Len() int
}

// Modal is one entry of the stack.
type Modal struct {
	ID    string         `json:"id"`
	Owner string         `json:"owner"`
	Props map[string]any `json:"props,omitempty"`
}

// ModalAction names a stack transition.
type ModalAction string

const (
	ModalPushed  ModalAction = "push"
	ModalPopped  ModalAction = "pop"
	ModalRemoved ModalAction = "remove"
)

// ModalChange is the data of every modal:changed event.
type ModalChange struct {
	Action ModalAction `json:"action"`
	Modal  Modal       `json:"modal"`
	Depth  int         `json:"depth"`
}

// ModalStack is an ordered modal list; the last entry is on top.
type ModalStack struct {
	mu    sync.Mutex
	stack []Modal
	bus   *eventbus.Bus
}

// NewModalStack creates a stack publishing changes on bus. bus may be nil.
func NewModalStack(bus *eventbus.Bus) *ModalStack {
	return &ModalStack{bus: bus}
}

// Push opens a modal on top of the stack.
func (s *ModalStack) Push(owner string, props map[string]any) Modal {
	m := Modal{ID: uuid.New().String(), Owner: owner, Props: props}
	s.mu.Lock()
	s.stack = append(s.stack, m)
	depth := len(s.stack)
	s.mu.Unlock()

	s.notify(ModalPushed, m, depth)
	return m
}

// Pop closes the top modal.
func (s *ModalStack) Pop() (Modal, bool) {
	s.mu.Lock()
	if len(s.stack) == 0 {
		s.mu.Unlock()
		return Modal{}, false
	}
	m := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	depth := len(s.stack)
	s.mu.Unlock()

	s.notify(ModalPopped, m, depth)
	return m, true
}

// Remove closes a modal anywhere in the stack.
func (s *ModalStack) Remove(id string) error {
	s.mu.Lock()
	idx := slices.IndexFunc(s.stack, func(m Modal) bool { return m.ID == id })
	if idx < 0 {
		s.mu.Unlock()
		return ErrModalNotFound
	}
	m := s.stack[idx]
	s.stack = slices.Delete(s.stack, idx, idx+1)
	depth := len(s.stack)
	s.mu.Unlock()

	s.notify(ModalRemoved, m, depth)
	return nil
}

// RemoveOwner closes every modal opened by owner and returns how many were
// closed. The host calls it when a module unmounts.
func (s *ModalStack) RemoveOwner(owner string) int {
	s.mu.Lock()
	var removed []Modal
	s.stack = slices.DeleteFunc(s.stack, func(m Modal) bool {
		if m.Owner == owner {
			removed = append(removed, m)
			return true
		}
		return false
	})
	depth := len(s.stack)
	s.mu.Unlock()

	for _, m := range removed {
		s.notify(ModalRemoved, m, depth)
	}
	return len(removed)
}

// Top returns the modal on top of the stack.
func (s *ModalStack) Top() (Modal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.stack) == 0 {
		return Modal{}, false
	}
	return s.stack[len(s.stack)-1], true
}

// Len returns the stack depth.
func (s *ModalStack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stack)
}

// List returns the stack bottom to top.
func (s *ModalStack) List() []Modal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.stack)
}

func (s *ModalStack) notify(action ModalAction, m Modal, depth int) {
	if s.bus == nil {
		return
	}
	s.bus.Emit(context.Background(), eventbus.EventTypeModalChanged,
		ModalChange{Action: action, Modal: m, Depth: depth},
		eventbus.WithSource(ModalServiceName))
}
