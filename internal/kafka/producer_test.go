package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ParkPal-co/parking-app-sub000/internal/domain"
	"github.com/ParkPal-co/parking-app-sub000/internal/lib/logger/handlers/slogdiscard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBookingEvent(t *testing.T) {
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	b := &domain.Booking{
		ID:            "b-1",
		ParkingSpotID: "spot-1",
		RenterID:      "renter",
		HostID:        "host",
		Status:        domain.BookingStatusConfirmed,
		TotalPrice:    40,
		SagaID:        "saga-1",
	}

	event := NewBookingEvent(EventBookingCreated, b, at)

	assert.Equal(t, EventBookingCreated, event.Type)
	assert.Equal(t, "b-1", event.BookingID)
	assert.Equal(t, "confirmed", event.Status)
	assert.Equal(t, "spot-1", event.Key())
	assert.Equal(t, at, event.OccurredAt)

	data, err := json.Marshal(event)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"booking_created"`)
}

func TestCheckConnection_NoBrokers(t *testing.T) {
	p := NewProducer(nil, slogdiscard.NewDiscardLogger())
	defer p.Close()

	assert.Error(t, p.CheckConnection(context.Background()))
}

func TestConsumer_CloseNil(t *testing.T) {
	var c *Consumer
	assert.NoError(t, c.Close())
}
