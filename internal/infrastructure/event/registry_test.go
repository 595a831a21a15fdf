package event

import (
	"context"
	"testing"

	"github.com/clubdeportivo/backend/internal/domain/billing"
	"github.com/clubdeportivo/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

type stubHandler struct {
	eventTypes []string
}

func (h *stubHandler) Handle(ctx context.Context, event shared.DomainEvent) error { return nil }

func (h *stubHandler) EventTypes() []string { return h.eventTypes }

func TestHandlerRegistry_Register_SpecificTypes(t *testing.T) {
	registry := NewHandlerRegistry()
	handler := &stubHandler{}

	registry.Register(handler, billing.EventTypeInstallmentCreated, billing.EventTypeInstallmentPaid)

	assert.Len(t, registry.GetHandlers(billing.EventTypeInstallmentCreated), 1)
	assert.Len(t, registry.GetHandlers(billing.EventTypeInstallmentPaid), 1)
	assert.Empty(t, registry.GetHandlers(billing.EventTypeInstallmentDeleted))
}

func TestHandlerRegistry_Register_Wildcard(t *testing.T) {
	registry := NewHandlerRegistry()
	handler := &stubHandler{}

	registry.Register(handler)

	handlers := registry.GetHandlers(billing.EventTypeInstallmentRestored)
	assert.Len(t, handlers, 1)
	assert.Same(t, handler, handlers[0])
}

func TestHandlerRegistry_Register_Twice(t *testing.T) {
	registry := NewHandlerRegistry()
	handler := &stubHandler{}

	registry.Register(handler, billing.EventTypeInstallmentPaid)
	registry.Register(handler, billing.EventTypeInstallmentPaid)
	registry.Register(handler)

	assert.Len(t, registry.GetHandlers(billing.EventTypeInstallmentPaid), 1)
	assert.Len(t, registry.GetAllHandlers(), 1)
}

func TestHandlerRegistry_GetHandlers_TypedBeforeWildcard(t *testing.T) {
	registry := NewHandlerRegistry()
	typed := &stubHandler{}
	wildcard := &stubHandler{}

	registry.Register(wildcard)
	registry.Register(typed, billing.EventTypeInstallmentUpdated)

	handlers := registry.GetHandlers(billing.EventTypeInstallmentUpdated)
	assert.Len(t, handlers, 2)
	assert.Same(t, typed, handlers[0])
	assert.Same(t, wildcard, handlers[1])
}

func TestHandlerRegistry_Unregister(t *testing.T) {
	registry := NewHandlerRegistry()
	first := &stubHandler{}
	second := &stubHandler{}

	registry.Register(first, billing.EventTypeInstallmentCreated)
	registry.Register(second, billing.EventTypeInstallmentCreated)
	registry.Register(first)

	registry.Unregister(first)

	handlers := registry.GetHandlers(billing.EventTypeInstallmentCreated)
	assert.Len(t, handlers, 1)
	assert.Same(t, second, handlers[0])
	assert.Len(t, registry.GetAllHandlers(), 1)

	registry.Unregister(second)
	assert.Empty(t, registry.GetHandlers(billing.EventTypeInstallmentCreated))
	assert.Empty(t, registry.GetAllHandlers())
}
