package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBusDeliversInPublishOrder(t *testing.T) {
	bus := NewBus(zap.NewNop(), 64)

	var mu sync.Mutex
	var got []string
	bus.SubscribeFunc(TransactionSubmitted, func(_ context.Context, e Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e.(TransactionSubmittedEvent).Signature)
		return nil
	})

	want := []string{"a", "b", "c", "d", "e"}
	for _, sig := range want {
		require.NoError(t, bus.Publish(TransactionSubmittedEvent{
			BaseEvent: NewBaseEvent(TransactionSubmitted),
			Signature: sig,
		}))
	}
	require.NoError(t, bus.Shutdown(context.Background()))

	assert.Equal(t, want, got)
}

func TestBusHandlersRunInSubscriptionOrder(t *testing.T) {
	bus := NewBus(zap.NewNop(), 8)
	defer bus.Shutdown(context.Background())

	var order []int
	for i := 0; i < 3; i++ {
		i := i
		bus.SubscribeFunc(AlertChanged, func(context.Context, Event) error {
			order = append(order, i)
			return nil
		})
	}

	require.NoError(t, bus.PublishSync(context.Background(), AlertChangedEvent{BaseEvent: NewBaseEvent(AlertChanged)}))
	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus(zap.NewNop(), 8)
	defer bus.Shutdown(context.Background())

	calls := 0
	sub := bus.SubscribeFunc(TransactionConfirmed, func(context.Context, Event) error {
		calls++
		return nil
	})
	event := TransactionConfirmedEvent{BaseEvent: NewBaseEvent(TransactionConfirmed)}

	require.NoError(t, bus.PublishSync(context.Background(), event))
	sub.Unsubscribe()
	require.NoError(t, bus.PublishSync(context.Background(), event))

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, bus.Stats()["event_types"])
}

func TestBusJoinsHandlerErrors(t *testing.T) {
	bus := NewBus(zap.NewNop(), 8)
	defer bus.Shutdown(context.Background())

	errA := errors.New("a")
	errB := errors.New("b")
	bus.SubscribeFunc(TransactionFailed, func(context.Context, Event) error { return errA })
	bus.SubscribeFunc(TransactionFailed, func(context.Context, Event) error { return errB })

	err := bus.PublishSync(context.Background(), TransactionFailedEvent{BaseEvent: NewBaseEvent(TransactionFailed)})
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
}

func TestBusRejectsAfterShutdown(t *testing.T) {
	bus := NewBus(zap.NewNop(), 1)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, bus.Shutdown(ctx))

	err := bus.Publish(AlertChangedEvent{BaseEvent: NewBaseEvent(AlertChanged)})
	assert.Error(t, err)
}

func TestOnFiltersByEventStruct(t *testing.T) {
	var slots []uint64
	h := On(func(_ context.Context, e TransactionConfirmedEvent) error {
		slots = append(slots, e.Slot)
		return nil
	})

	require.NoError(t, h.Handle(context.Background(), TransactionConfirmedEvent{BaseEvent: NewBaseEvent(TransactionConfirmed), Slot: 7}))
	require.NoError(t, h.Handle(context.Background(), AlertChangedEvent{BaseEvent: NewBaseEvent(AlertChanged)}))
	assert.Equal(t, []uint64{7}, slots)
}
