package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookstore-service/models"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to models.OrderStatus
		want     bool
	}{
		{models.StatusProcessing, models.StatusPaymentSucceeded, true},
		{models.StatusProcessing, models.StatusShipped, true},
		{models.StatusProcessing, models.StatusCancelled, true},
		{models.StatusPaymentSucceeded, models.StatusShipped, true},
		{models.StatusShipped, models.StatusDelivered, true},
		{models.StatusShipped, models.StatusCancelled, true},
		{models.StatusDelivered, models.StatusDelivered, true},
		{models.StatusProcessing, models.StatusDelivered, false},
		{models.StatusDelivered, models.StatusShipped, false},
		{models.StatusDelivered, models.StatusCancelled, false},
		{models.StatusCancelled, models.StatusProcessing, false},
		{models.StatusPaymentSucceeded, models.StatusProcessing, false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestUpdateOrderStatusDeliveredStampsOnce(t *testing.T) {
	f := newFixture(t)
	book := f.addBook("Dune", "10.00", 5)
	order := f.createOrder(t, 1, items(book.ID, 1))
	ctx := context.Background()

	_, err := f.svc.SettlePayment(ctx, order.ID, 1)
	require.NoError(t, err)

	shipped, err := f.svc.UpdateOrderStatus(ctx, order.ID, "Shipped")
	require.NoError(t, err)
	assert.Equal(t, models.StatusShipped, shipped.OrderStatus)
	assert.False(t, shipped.IsDelivered)
	assert.Nil(t, shipped.DeliveredAt)

	deliveredAt := f.now.Add(time.Hour)
	f.now = deliveredAt
	delivered, err := f.svc.UpdateOrderStatus(ctx, order.ID, "Delivered")
	require.NoError(t, err)
	assert.True(t, delivered.IsDelivered)
	require.NotNil(t, delivered.DeliveredAt)
	assert.Equal(t, deliveredAt, *delivered.DeliveredAt)

	f.now = f.now.Add(24 * time.Hour)
	again, err := f.svc.UpdateOrderStatus(ctx, order.ID, "Delivered")
	require.NoError(t, err)
	require.NotNil(t, again.DeliveredAt)
	assert.Equal(t, deliveredAt, *again.DeliveredAt)
	assert.Equal(t, f.now, again.UpdatedAt)
}

func TestUpdateOrderStatusAnyOwner(t *testing.T) {
	f := newFixture(t)
	book := f.addBook("Dune", "10.00", 5)
	order := f.createOrder(t, 42, items(book.ID, 1))

	updated, err := f.svc.UpdateOrderStatus(context.Background(), order.ID, "Cancelled")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, updated.OrderStatus)
	assert.Contains(t, f.events.types(), models.EventStatusUpdated)
}

func TestUpdateOrderStatusFailures(t *testing.T) {
	f := newFixture(t)
	book := f.addBook("Dune", "10.00", 5)
	order := f.createOrder(t, 1, items(book.ID, 1))
	ctx := context.Background()

	_, err := f.svc.UpdateOrderStatus(ctx, 999, "Shipped")
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = f.svc.UpdateOrderStatus(ctx, order.ID, "Lost in transit")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = f.svc.UpdateOrderStatus(ctx, order.ID, "Delivered")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	stored, err := f.svc.GetMyOrder(ctx, order.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, stored.OrderStatus)
	assert.False(t, stored.IsDelivered)
}
