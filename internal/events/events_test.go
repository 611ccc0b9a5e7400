package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBusPublishJSON(t *testing.T) {
	bus := NewEventBus()

	var received []BookingEventPayload
	bus.Subscribe(EventBookingCreated, func(ev *Event) error {
		var payload BookingEventPayload
		require.NoError(t, json.Unmarshal(ev.Payload, &payload))
		received = append(received, payload)
		return nil
	})

	payload := BookingEventPayload{
		BookingID: 7,
		Reference: "abc",
		Slot:      "3:00 PM",
		Date:      "2024-06-10",
	}
	require.NoError(t, bus.PublishJSON(EventBookingCreated, payload))

	require.Len(t, received, 1)
	assert.Equal(t, int64(7), received[0].BookingID)
	assert.Equal(t, "3:00 PM", received[0].Slot)
}

func TestEventBusMultipleSubscribers(t *testing.T) {
	bus := NewEventBus()

	calls := 0
	handler := func(ev *Event) error {
		calls++
		return nil
	}
	bus.Subscribe(EventBookingCreated, handler)
	bus.Subscribe(EventBookingCreated, handler)
	bus.Subscribe("unrelated", handler)

	require.NoError(t, bus.PublishJSON(EventBookingCreated, map[string]int{"x": 1}))
	assert.Equal(t, 2, calls)
}

func TestNilBusPublishIsNoop(t *testing.T) {
	var bus *EventBus
	assert.NoError(t, bus.PublishJSON(EventBookingCreated, nil))
}
