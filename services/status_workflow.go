package services

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"bookstore-service/models"
	"bookstore-service/repositories"
)

var orderStatusTransitions = map[models.OrderStatus][]models.OrderStatus{
	models.StatusProcessing:       {models.StatusPaymentSucceeded, models.StatusShipped, models.StatusCancelled},
	models.StatusPaymentSucceeded: {models.StatusShipped, models.StatusCancelled},
	models.StatusShipped:          {models.StatusDelivered, models.StatusCancelled},
}

// CanTransition reports whether an order may move from one status to another.
// Re-applying the current status is always allowed.
func CanTransition(from, to models.OrderStatus) bool {
	if from == to {
		return true
	}
	if from.Terminal() {
		return false
	}
	return slices.Contains(orderStatusTransitions[from], to)
}

// UpdateOrderStatus applies an administrative status change to any order.
// The first move to Delivered stamps DeliveredAt; later ones keep it.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID int64, rawStatus string) (models.Order, error) {
	status, ok := models.ParseOrderStatus(strings.TrimSpace(rawStatus))
	if !ok {
		return models.Order{}, newOrderError(CodeInvalidStatus, "Invalid order status %q.", rawStatus)
	}

	var updated models.Order
	err := s.unitOfWork.RunInTx(ctx, func(ctx context.Context) error {
		order, err := s.findOrder(ctx, orderID, repositories.AnyOwner)
		if err != nil {
			return err
		}
		if !CanTransition(order.OrderStatus, status) {
			return newOrderError(CodeInvalidTransition, "Cannot change order %d from %q to %q.", orderID, order.OrderStatus, status)
		}

		now := s.clock()
		order.OrderStatus = status
		if status == models.StatusDelivered && !order.IsDelivered {
			order.IsDelivered = true
			order.DeliveredAt = &now
		}
		order.UpdatedAt = now
		if err := s.orders.Save(ctx, &order); err != nil {
			return fmt.Errorf("save order %d: %w", orderID, err)
		}
		updated = order
		return nil
	})
	if err != nil {
		return models.Order{}, err
	}

	s.logger.Info("order status updated", zap.Int64("order_id", orderID), zap.String("status", string(status)))
	s.publish(ctx, updated, models.EventStatusUpdated)
	return updated, nil
}
