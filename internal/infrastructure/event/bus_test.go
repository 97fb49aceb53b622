package event

import (
	"context"
	"errors"
	"testing"

	"github.com/channelsync/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// panickingHandler always panics inside Handle
type panickingHandler struct{}

func (panickingHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	panic("handler exploded")
}

func (panickingHandler) EventTypes() []string {
	return []string{"test.event"}
}

func TestInMemoryEventBus_PublishDeliversToSubscribers(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	require.NoError(t, bus.Start(context.Background()))
	defer bus.Stop(context.Background())

	handler := new(MockEventHandler)
	handler.On("EventTypes").Return([]string{"test.event"})

	event := newIdempotencyTestEvent()
	handler.On("Handle", mock.Anything, event).Return(nil).Once()

	bus.Subscribe(handler)
	err := bus.Publish(context.Background(), event)

	assert.NoError(t, err)
	handler.AssertExpectations(t)
}

func TestInMemoryEventBus_PublishWithExplicitEventTypes(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := new(MockEventHandler)
	bus.Subscribe(handler, "other.event")

	// No expectation set; delivery would fail the test.
	err := bus.Publish(context.Background(), newIdempotencyTestEvent())

	assert.NoError(t, err)
	handler.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything)
}

func TestInMemoryEventBus_HandlerErrorDoesNotFailPublish(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	failing := new(MockEventHandler)
	failing.On("EventTypes").Return([]string{"test.event"})

	healthy := new(MockEventHandler)
	healthy.On("EventTypes").Return([]string{"test.event"})

	event := newIdempotencyTestEvent()
	failing.On("Handle", mock.Anything, event).Return(errors.New("boom")).Once()
	healthy.On("Handle", mock.Anything, event).Return(nil).Once()

	bus.Subscribe(failing)
	bus.Subscribe(healthy)

	err := bus.Publish(context.Background(), event)

	assert.NoError(t, err)
	failing.AssertExpectations(t)
	healthy.AssertExpectations(t)
}

func TestInMemoryEventBus_RecoversHandlerPanic(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	trailing := new(MockEventHandler)
	trailing.On("EventTypes").Return([]string{"test.event"})

	event := newIdempotencyTestEvent()
	trailing.On("Handle", mock.Anything, event).Return(nil).Once()

	bus.Subscribe(panickingHandler{})
	bus.Subscribe(trailing)

	assert.NotPanics(t, func() {
		err := bus.Publish(context.Background(), event)
		assert.NoError(t, err)
	})
	trailing.AssertExpectations(t)
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := new(MockEventHandler)
	handler.On("EventTypes").Return([]string{"test.event"})
	handler.On("Handle", mock.Anything, mock.Anything).Return(nil).Once()

	bus.Subscribe(handler)
	require.NoError(t, bus.Publish(context.Background(), newIdempotencyTestEvent()))

	bus.Unsubscribe(handler)
	require.NoError(t, bus.Publish(context.Background(), newIdempotencyTestEvent()))

	handler.AssertExpectations(t)
}

func TestInMemoryEventBus_PublishMultipleEvents(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := new(MockEventHandler)
	handler.On("EventTypes").Return([]string{"test.event"})
	handler.On("Handle", mock.Anything, mock.Anything).Return(nil).Times(3)

	bus.Subscribe(handler)
	err := bus.Publish(context.Background(),
		newIdempotencyTestEvent(), newIdempotencyTestEvent(), newIdempotencyTestEvent())

	assert.NoError(t, err)
	handler.AssertExpectations(t)
}
