package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"bookstore-service/config"
	"bookstore-service/models"
)

const (
	priorityDefault   uint8 = 5
	priorityCancelled uint8 = 8
	priorityLarge     uint8 = 9
)

// ErrDelayedUnsupported is returned by PublishDelayedEvent when the broker has
// no delayed message exchange.
var ErrDelayedUnsupported = errors.New("rabbitmq: delayed exchange not declared")

// largeOrderTotal marks orders whose events jump the queue.
var largeOrderTotal = decimal.NewFromInt(1000)

type RabbitMQ struct {
	Conn    *amqp.Connection
	Channel *amqp.Channel
	Cfg     *config.Config

	logger  *zap.Logger
	mu      sync.Mutex
	delayed bool
}

func NewRabbitMQ(cfg *config.Config, logger *zap.Logger) (*RabbitMQ, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	return &RabbitMQ{
		Conn:    conn,
		Channel: ch,
		Cfg:     cfg,
		logger:  logger,
	}, nil
}

func (r *RabbitMQ) deadLetterExchange() string {
	return r.Cfg.DeadLetterQueue + "_exchange"
}

// SetupQueues declares the order exchange, the priority order queue with its
// dead-letter route, and the delayed exchange used for payment checks.
func (r *RabbitMQ) SetupQueues() error {
	if err := r.Channel.ExchangeDeclare(r.deadLetterExchange(), "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare dead-letter exchange: %w", err)
	}
	if _, err := r.Channel.QueueDeclare(r.Cfg.DeadLetterQueue, true, false, false, false, amqp.Table{
		"x-queue-type": "classic",
	}); err != nil {
		return fmt.Errorf("declare dead-letter queue: %w", err)
	}
	if err := r.Channel.QueueBind(r.Cfg.DeadLetterQueue, r.Cfg.DeadLetterQueue, r.deadLetterExchange(), false, nil); err != nil {
		return fmt.Errorf("bind dead-letter queue: %w", err)
	}

	if err := r.Channel.ExchangeDeclare(r.Cfg.OrderExchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare order exchange: %w", err)
	}
	if _, err := r.Channel.QueueDeclare(r.Cfg.OrderQueue, true, false, false, false, amqp.Table{
		"x-max-priority":            r.Cfg.MaxPriority,
		"x-dead-letter-exchange":    r.deadLetterExchange(),
		"x-dead-letter-routing-key": r.Cfg.DeadLetterQueue,
	}); err != nil {
		return fmt.Errorf("declare order queue: %w", err)
	}
	if err := r.Channel.QueueBind(r.Cfg.OrderQueue, "", r.Cfg.OrderExchange, false, nil); err != nil {
		return fmt.Errorf("bind order queue: %w", err)
	}

	// Needs the rabbitmq_delayed_message_exchange plugin.
	if err := r.Channel.ExchangeDeclare(r.Cfg.DelayExchange, "x-delayed-message", true, false, false, false, amqp.Table{
		"x-delayed-type": "direct",
	}); err != nil {
		r.logger.Warn("delayed exchange not supported, payment checks disabled", zap.Error(err))
		return nil
	}
	if err := r.Channel.QueueBind(r.Cfg.OrderQueue, "", r.Cfg.DelayExchange, false, nil); err != nil {
		return fmt.Errorf("bind order queue to delay exchange: %w", err)
	}
	r.delayed = true
	return nil
}

// DelayedEnabled reports whether SetupQueues declared the delayed exchange.
func (r *RabbitMQ) DelayedEnabled() bool {
	return r.delayed
}

// PublishOrderEvent sends event to the order exchange. Large orders and
// cancellations get a higher priority.
func (r *RabbitMQ) PublishOrderEvent(ctx context.Context, event models.OrderEvent) error {
	msg, err := newPublishing(event, time.Now())
	if err != nil {
		return err
	}
	return r.publish(ctx, r.Cfg.OrderExchange, msg)
}

// PublishDelayedEvent sends event through the delayed exchange so it reaches
// the order queue after delay.
func (r *RabbitMQ) PublishDelayedEvent(ctx context.Context, event models.OrderEvent, delay time.Duration) error {
	if !r.delayed {
		return ErrDelayedUnsupported
	}
	msg, err := newPublishing(event, time.Now())
	if err != nil {
		return err
	}
	msg.Headers = amqp.Table{"x-delay": delay.Milliseconds()}
	return r.publish(ctx, r.Cfg.DelayExchange, msg)
}

func (r *RabbitMQ) publish(ctx context.Context, exchange string, msg amqp.Publishing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.Channel.PublishWithContext(ctx, exchange, "", false, false, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", exchange, err)
	}
	return nil
}

func newPublishing(event models.OrderEvent, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode order event: %w", err)
	}
	return amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Timestamp:    now,
		ContentType:  "application/json",
		Type:         event.Type,
		Body:         body,
		Priority:     priorityFor(event),
	}, nil
}

func priorityFor(event models.OrderEvent) uint8 {
	switch {
	case event.Type == models.EventStatusUpdated && event.Status == models.StatusCancelled:
		return priorityCancelled
	case event.Total.GreaterThan(largeOrderTotal):
		return priorityLarge
	default:
		return priorityDefault
	}
}

func (r *RabbitMQ) Close() {
	if r.Channel != nil {
		if err := r.Channel.Close(); err != nil {
			r.logger.Warn("close rabbitmq channel", zap.Error(err))
		}
	}
	if r.Conn != nil {
		if err := r.Conn.Close(); err != nil {
			r.logger.Warn("close rabbitmq connection", zap.Error(err))
		}
	}
}
