package rabbitmq

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bookstore-service/config"
	"bookstore-service/models"
)

func TestPriorityFor(t *testing.T) {
	tests := []struct {
		name  string
		event models.OrderEvent
		want  uint8
	}{
		{"small created", models.OrderEvent{Type: models.EventCreated, Total: decimal.RequireFromString("35.50")}, 5},
		{"exactly threshold", models.OrderEvent{Type: models.EventCreated, Total: decimal.NewFromInt(1000)}, 5},
		{"large created", models.OrderEvent{Type: models.EventCreated, Total: decimal.RequireFromString("1000.01")}, 9},
		{"cancelled", models.OrderEvent{Type: models.EventStatusUpdated, Status: models.StatusCancelled, Total: decimal.NewFromInt(5000)}, 8},
		{"shipped", models.OrderEvent{Type: models.EventStatusUpdated, Status: models.StatusShipped, Total: decimal.NewFromInt(10)}, 5},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, priorityFor(tc.event))
		})
	}
}

func TestNewPublishingEncodesJSON(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	event := models.OrderEvent{OrderID: 1234, UserID: 9, Type: models.EventPaid, Status: models.StatusPaymentSucceeded, Total: decimal.RequireFromString("20.00"), Occurred: now}

	msg, err := newPublishing(event, now)
	require.NoError(t, err)

	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, models.EventPaid, msg.Type)

	var decoded models.OrderEvent
	require.NoError(t, json.Unmarshal(msg.Body, &decoded))
	assert.Equal(t, int64(1234), decoded.OrderID)
	assert.True(t, decoded.Total.Equal(event.Total))
}

func TestPublishDelayedEventWithoutDelayedExchange(t *testing.T) {
	r := &RabbitMQ{Cfg: &config.Config{DelayExchange: "order_delay_exchange"}, logger: zap.NewNop()}
	require.False(t, r.DelayedEnabled())

	event := models.OrderEvent{OrderID: 7, Type: models.EventPaymentCheck, Occurred: time.Now()}
	err := r.PublishDelayedEvent(context.Background(), event, time.Minute)
	assert.ErrorIs(t, err, ErrDelayedUnsupported)
}
