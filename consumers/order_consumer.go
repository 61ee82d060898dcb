package consumers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"bookstore-service/config"
	"bookstore-service/models"
	"bookstore-service/services"
)

// OrderCanceller is satisfied by services.OrderService.
type OrderCanceller interface {
	CancelIfUnpaid(ctx context.Context, orderID int64) (bool, error)
}

type OrderConsumer struct {
	orders OrderCanceller
	logger *zap.Logger
}

func NewOrderConsumer(orders OrderCanceller, logger *zap.Logger) *OrderConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderConsumer{orders: orders, logger: logger}
}

// Start consumes the order queue and its dead-letter queue until ctx is
// cancelled or the channel closes.
func (oc *OrderConsumer) Start(ctx context.Context, ch *amqp.Channel, cfg *config.Config) error {
	msgs, err := ch.Consume(cfg.OrderQueue, "bookstore-service", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", cfg.OrderQueue, err)
	}
	go oc.drain(ctx, msgs, oc.processOrderMessage)

	dlqMsgs, err := ch.Consume(cfg.DeadLetterQueue, "bookstore-service-dlq", false, false, false, false, nil)
	if err != nil {
		oc.logger.Warn("dead-letter consumer not registered", zap.Error(err))
		return nil
	}
	go oc.drain(ctx, dlqMsgs, oc.processDeadLetterMessage)
	return nil
}

func (oc *OrderConsumer) drain(ctx context.Context, msgs <-chan amqp.Delivery, handle func(context.Context, amqp.Delivery)) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			handle(ctx, msg)
		}
	}
}

func (oc *OrderConsumer) processOrderMessage(ctx context.Context, msg amqp.Delivery) {
	defer func() {
		if r := recover(); r != nil {
			oc.logger.Error("panic while processing order message", zap.Any("panic", r))
			oc.settle(msg, msg.Nack(false, false))
		}
	}()

	var event models.OrderEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil || event.OrderID <= 0 {
		oc.logger.Warn("invalid order message", zap.ByteString("body", msg.Body), zap.Error(err))
		oc.settle(msg, msg.Nack(false, false))
		return
	}

	log := oc.logger.With(zap.Int64("order_id", event.OrderID), zap.String("type", event.Type))
	switch event.Type {
	case models.EventCreated, models.EventPaid, models.EventStatusUpdated:
		log.Info("order event received", zap.String("status", string(event.Status)))
	case models.EventPaymentCheck:
		if err := oc.handlePaymentCheck(ctx, event.OrderID); err != nil {
			// Retry once, then let the queue dead-letter it.
			log.Error("payment check failed", zap.Bool("redelivered", msg.Redelivered), zap.Error(err))
			oc.settle(msg, msg.Nack(false, !msg.Redelivered))
			return
		}
	default:
		log.Warn("unknown order event type")
	}

	oc.settle(msg, msg.Ack(false))
}

func (oc *OrderConsumer) handlePaymentCheck(ctx context.Context, orderID int64) error {
	cancelled, err := oc.orders.CancelIfUnpaid(ctx, orderID)
	if errors.Is(err, services.ErrOrderNotFound) {
		oc.logger.Warn("payment check for missing order", zap.Int64("order_id", orderID))
		return nil
	}
	if err != nil {
		return err
	}
	if cancelled {
		oc.logger.Info("auto-cancelled order due to non-payment", zap.Int64("order_id", orderID))
	}
	return nil
}

func (oc *OrderConsumer) processDeadLetterMessage(_ context.Context, msg amqp.Delivery) {
	fields := []zap.Field{zap.ByteString("body", msg.Body), zap.String("type", msg.Type)}
	if deaths, ok := msg.Headers["x-death"].([]interface{}); ok {
		fields = append(fields, zap.Int("deaths", len(deaths)))
	}
	oc.logger.Error("dead-lettered order message", fields...)
	oc.settle(msg, msg.Ack(false))
}

func (oc *OrderConsumer) settle(msg amqp.Delivery, err error) {
	if err != nil {
		oc.logger.Warn("failed to settle delivery", zap.Uint64("delivery_tag", msg.DeliveryTag), zap.Error(err))
	}
}
