package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"bookstore-service/models"
	"bookstore-service/repositories"
)

type SettlementResult struct {
	Order        models.Order
	ClientSecret string
}

// SettlePayment confirms a mock payment for the caller's order. Stock is
// re-checked and decremented together with the order update in one
// transaction, so a failure on any line leaves stock and order untouched.
func (s *OrderService) SettlePayment(ctx context.Context, orderID, userID int64) (SettlementResult, error) {
	if userID <= 0 {
		return SettlementResult{}, ErrUnauthenticated
	}

	order, err := s.findOrder(ctx, orderID, userID)
	if err != nil {
		return SettlementResult{}, err
	}
	if err := checkSettleable(order); err != nil {
		return SettlementResult{}, err
	}

	intent, err := s.payments.CreatePaymentIntent(ctx, order)
	if err != nil {
		return SettlementResult{}, fmt.Errorf("create payment intent for order %d: %w", orderID, err)
	}

	var settled models.Order
	err = s.unitOfWork.RunInTx(ctx, func(ctx context.Context) error {
		// Re-read under lock: another request may have paid meanwhile.
		current, err := s.findOrder(ctx, orderID, userID)
		if err != nil {
			return err
		}
		if err := checkSettleable(current); err != nil {
			return err
		}

		for _, delta := range aggregateDeltas(current.OrderItems) {
			if err := s.decrementStock(ctx, delta); err != nil {
				return err
			}
		}

		now := s.clock()
		intentID := intent.ID
		current.IsPaid = true
		current.PaidAt = &now
		current.OrderStatus = models.StatusPaymentSucceeded
		current.PaymentIntentID = &intentID
		current.UpdatedAt = now
		if err := s.orders.Save(ctx, &current); err != nil {
			return fmt.Errorf("save paid order %d: %w", orderID, err)
		}
		settled = current
		return nil
	})
	if err != nil {
		s.logger.Warn("payment settlement failed", zap.Int64("order_id", orderID), zap.Error(err))
		return SettlementResult{}, err
	}

	s.logger.Info("payment settled",
		zap.Int64("order_id", settled.ID),
		zap.String("payment_intent_id", intent.ID),
		zap.String("total", settled.TotalPrice.StringFixed(2)),
	)
	s.publish(ctx, settled, models.EventPaid)
	return SettlementResult{Order: settled, ClientSecret: intent.ClientSecret}, nil
}

func checkSettleable(order models.Order) error {
	if order.IsPaid {
		return ErrAlreadyPaid
	}
	if !CanTransition(order.OrderStatus, models.StatusPaymentSucceeded) {
		return newOrderError(CodeInvalidTransition, "Order %d is %s and cannot be paid.", order.ID, order.OrderStatus)
	}
	return nil
}

func (s *OrderService) decrementStock(ctx context.Context, delta stockDelta) error {
	book, err := s.books.FindByID(ctx, delta.bookID)
	if errors.Is(err, repositories.ErrNotFound) {
		return newOrderError(CodeBookNotFound, "Book ID %d not found during payment processing.", delta.bookID)
	}
	if err != nil {
		return fmt.Errorf("load book %d: %w", delta.bookID, err)
	}
	if err := ValidateStockAvailability(delta.quantity, book.StockQuantity, delta.bookID); err != nil {
		return err
	}

	ok, err := s.books.DecrementStock(ctx, delta.bookID, delta.quantity)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	// Lost a race with a concurrent decrement; report what is left now.
	latest, err := s.books.FindByID(ctx, delta.bookID)
	if err != nil {
		return fmt.Errorf("reload book %d: %w", delta.bookID, err)
	}
	return &StockError{BookID: delta.bookID, Requested: delta.quantity, Available: latest.StockQuantity}
}
