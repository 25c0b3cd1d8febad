package host

import (
	"context"
	"testing"

	"github.com/GoCodeAlone/mfekernel/modules/eventbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModalStack(t *testing.T) {
	bus := eventbus.New()
	var changes []ModalChange
	_, err := bus.On(eventbus.EventTypeModalChanged, func(_ context.Context, p eventbus.Payload) error {
		changes = append(changes, p.Data.(ModalChange))
		return nil
	})
	require.NoError(t, err)

	s := NewModalStack(bus)
	_, ok := s.Top()
	assert.False(t, ok)

	first := s.Push("cart", map[string]any{"title": "Cart"})
	second := s.Push("checkout", nil)
	third := s.Push("cart", nil)
	assert.NotEqual(t, first.ID, second.ID)

	top, ok := s.Top()
	require.True(t, ok)
	assert.Equal(t, third.ID, top.ID)

	require.NoError(t, s.Remove(second.ID))
	assert.ErrorIs(t, s.Remove(second.ID), ErrModalNotFound)
	assert.Equal(t, []Modal{first, third}, s.List())

	popped, ok := s.Pop()
	require.True(t, ok)
	assert.Equal(t, third.ID, popped.ID)

	assert.Equal(t, 1, s.RemoveOwner("cart"))
	assert.Equal(t, 0, s.Len())
	_, ok = s.Pop()
	assert.False(t, ok)

	actions := make([]ModalAction, 0, len(changes))
	for _, c := range changes {
		actions = append(actions, c.Action)
	}
	assert.Equal(t, []ModalAction{
		ModalPushed, ModalPushed, ModalPushed, ModalRemoved, ModalPopped, ModalRemoved,
	}, actions)
	assert.Equal(t, 0, changes[len(changes)-1].Depth)
	assert.Equal(t, 3, changes[2].Depth)
}

func TestModalStack_WithoutBus(t *testing.T) {
	s := NewModalStack(nil)
	m := s.Push("nav", nil)
	require.NoError(t, s.Remove(m.ID))
	assert.Equal(t, 0, s.Len())
}

func TestModalStack_IsAContainerService(t *testing.T) {
	h := newTestHost(t)
	var svc ModalService
	mod := ModuleFunc(func(_ context.Context, mc *MountContext) error {
		raw, ok := mc.Services.Lookup(ModalServiceName)
		if ok {
			svc, _ = raw.(ModalService)
		}
		return nil
	})
	_, err := h.Load(context.Background(), manifestDoc(t, "dialogs", ""), mod)
	require.NoError(t, err)
	require.NotNil(t, svc)
	assert.Same(t, h.Modals(), svc)
}
