package services

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"bookstore-service/models"
)

// IDGenerator yields payment intent identifiers.
type IDGenerator interface {
	Next() string
}

type IDGeneratorFunc func() string

func (f IDGeneratorFunc) Next() string { return f() }

// MockIntentIDs produces pi_mock_<ulid>; ULIDs are time ordered and unique
// within the process.
var MockIntentIDs IDGenerator = IDGeneratorFunc(func() string {
	return "pi_mock_" + ulid.Make().String()
})

type PaymentIntent struct {
	ID           string
	ClientSecret string
}

// PaymentGateway issues payment intents for orders.
type PaymentGateway interface {
	CreatePaymentIntent(ctx context.Context, order models.Order) (PaymentIntent, error)
}

// MockGateway stands in for a card processor. Nothing is charged.
type MockGateway struct {
	ids   IDGenerator
	delay time.Duration
	clock func() time.Time
}

type MockGatewayOption func(*MockGateway)

func WithIDGenerator(ids IDGenerator) MockGatewayOption {
	return func(g *MockGateway) {
		if ids != nil {
			g.ids = ids
		}
	}
}

// WithDelay simulates processor latency.
func WithDelay(delay time.Duration) MockGatewayOption {
	return func(g *MockGateway) {
		if delay >= 0 {
			g.delay = delay
		}
	}
}

func WithGatewayClock(clock func() time.Time) MockGatewayOption {
	return func(g *MockGateway) {
		if clock != nil {
			g.clock = clock
		}
	}
}

func NewMockGateway(opts ...MockGatewayOption) *MockGateway {
	g := &MockGateway{
		ids:   MockIntentIDs,
		delay: 100 * time.Millisecond,
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *MockGateway) CreatePaymentIntent(ctx context.Context, order models.Order) (PaymentIntent, error) {
	if g.delay > 0 {
		timer := time.NewTimer(g.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return PaymentIntent{}, ctx.Err()
		case <-timer.C:
		}
	}

	return PaymentIntent{
		ID:           g.ids.Next(),
		ClientSecret: fmt.Sprintf("mock_client_secret_%d_%d", order.ID, g.clock().UnixMilli()),
	}, nil
}
