package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"bookstore-service/models"
	"bookstore-service/repositories/memory"
)

type captureEvents struct {
	mu      sync.Mutex
	events  []models.OrderEvent
	delayed []models.OrderEvent
	delays  []time.Duration
}

func (c *captureEvents) PublishOrderEvent(_ context.Context, event models.OrderEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *captureEvents) PublishDelayedEvent(_ context.Context, event models.OrderEvent, delay time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delayed = append(c.delayed, event)
	c.delays = append(c.delays, delay)
	return nil
}

func (c *captureEvents) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	store  *memory.Store
	svc    *OrderService
	events *captureEvents
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:  memory.NewStore(),
		events: &captureEvents{},
		now:    time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }

	svc, err := NewOrderService(OrderServiceDeps{
		Books:      memory.NewBookRepository(f.store),
		Orders:     memory.NewOrderRepository(f.store),
		Stats:      memory.NewStatsRepository(f.store),
		UnitOfWork: f.store,
		Payments: NewMockGateway(
			WithDelay(0),
			WithIDGenerator(IDGeneratorFunc(func() string { return "pi_mock_test" })),
			WithGatewayClock(clock),
		),
		Events:            f.events,
		Clock:             clock,
		PaymentCheckDelay: 15 * time.Minute,
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) addBook(title, price string, stock int) models.Book {
	return f.store.AddBook(models.Book{
		Title:         title,
		Author:        "Author",
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
	})
}

func (f *fixture) stock(t *testing.T, id int64) int {
	t.Helper()
	book, ok := f.store.Book(id)
	require.True(t, ok)
	return book.StockQuantity
}

func items(pairs ...int64) []any {
	out := make([]any, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, map[string]any{"bookId": float64(pairs[i]), "quantity": float64(pairs[i+1])})
	}
	return out
}

func (f *fixture) createOrder(t *testing.T, userID int64, lines []any) models.Order {
	t.Helper()
	order, err := f.svc.CreateOrder(context.Background(), CreateOrderCommand{
		UserID:          userID,
		OrderItems:      lines,
		ShippingAddress: "742 Evergreen Terrace, Springfield",
		PaymentMethod:   "Credit Card",
	})
	require.NoError(t, err)
	return order
}
