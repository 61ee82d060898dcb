package services

import (
	"context"
	"time"

	"bookstore-service/models"
)

// OrderEventPublisher forwards order lifecycle events to downstream consumers.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event models.OrderEvent) error
	PublishDelayedEvent(ctx context.Context, event models.OrderEvent, delay time.Duration) error
}

type noopPublisher struct{}

func (noopPublisher) PublishOrderEvent(context.Context, models.OrderEvent) error { return nil }

func (noopPublisher) PublishDelayedEvent(context.Context, models.OrderEvent, time.Duration) error {
	return nil
}
