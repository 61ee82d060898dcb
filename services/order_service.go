package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"bookstore-service/models"
	"bookstore-service/repositories"
)

const recentOrdersLimit = 5

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Books      repositories.BookRepository
	Orders     repositories.OrderRepository
	Stats      repositories.StatsRepository
	UnitOfWork repositories.UnitOfWork
	Payments   PaymentGateway
	Events     OrderEventPublisher
	Clock      func() time.Time
	Logger     *zap.Logger
	// PaymentCheckDelay schedules the unpaid-order check after creation.
	// Zero disables it.
	PaymentCheckDelay time.Duration
}

type OrderService struct {
	books             repositories.BookRepository
	orders            repositories.OrderRepository
	stats             repositories.StatsRepository
	unitOfWork        repositories.UnitOfWork
	payments          PaymentGateway
	events            OrderEventPublisher
	clock             func() time.Time
	logger            *zap.Logger
	paymentCheckDelay time.Duration
}

func NewOrderService(deps OrderServiceDeps) (*OrderService, error) {
	if deps.Books == nil {
		return nil, errors.New("order service: book repository is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.UnitOfWork == nil {
		return nil, errors.New("order service: unit of work is required")
	}

	payments := deps.Payments
	if payments == nil {
		payments = NewMockGateway()
	}
	events := deps.Events
	if events == nil {
		events = noopPublisher{}
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &OrderService{
		books:             deps.Books,
		orders:            deps.Orders,
		stats:             deps.Stats,
		unitOfWork:        deps.UnitOfWork,
		payments:          payments,
		events:            events,
		clock:             func() time.Time { return clock().UTC() },
		logger:            logger,
		paymentCheckDelay: deps.PaymentCheckDelay,
	}, nil
}

type CreateOrderCommand struct {
	UserID          int64
	OrderItems      any
	ShippingAddress string
	PaymentMethod   string
}

// CreateOrder validates and prices the cart and stores an unpaid order. Stock
// is checked but not reserved.
func (s *OrderService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (models.Order, error) {
	incoming, err := ValidateOrderItems(cmd.OrderItems)
	if err != nil {
		return models.Order{}, err
	}

	shipping := strings.TrimSpace(cmd.ShippingAddress)
	payment := strings.TrimSpace(cmd.PaymentMethod)
	if shipping == "" || payment == "" {
		return models.Order{}, ErrMissingShippingInfo
	}
	if cmd.UserID <= 0 {
		return models.Order{}, ErrUnauthenticated
	}

	items, err := ResolveOrderItems(ctx, s.books, incoming)
	if err != nil {
		return models.Order{}, err
	}
	if len(items) == 0 {
		return models.Order{}, ErrEmptyOrder
	}

	now := s.clock()
	order := models.Order{
		UserID:          cmd.UserID,
		OrderItems:      items,
		ShippingAddress: shipping,
		PaymentMethod:   payment,
		TotalPrice:      CalculateOrderTotal(items),
		IsPaid:          false,
		OrderStatus:     models.StatusProcessing,
		IsDelivered:     false,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.orders.Create(ctx, &order); err != nil {
		return models.Order{}, fmt.Errorf("create order: %w", err)
	}

	s.logger.Info("order created",
		zap.Int64("order_id", order.ID),
		zap.Int64("user_id", order.UserID),
		zap.String("total", order.TotalPrice.StringFixed(2)),
		zap.Int("items", len(order.OrderItems)),
	)
	s.publish(ctx, order, models.EventCreated)
	if s.paymentCheckDelay > 0 {
		event := models.NewOrderEvent(order, models.EventPaymentCheck, now)
		if err := s.events.PublishDelayedEvent(ctx, event, s.paymentCheckDelay); err != nil {
			s.logger.Warn("failed to schedule payment check", zap.Int64("order_id", order.ID), zap.Error(err))
		}
	}
	return order, nil
}

func (s *OrderService) ListMyOrders(ctx context.Context, userID int64) ([]models.Order, error) {
	if userID <= 0 {
		return nil, ErrUnauthenticated
	}
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (s *OrderService) GetMyOrder(ctx context.Context, orderID, userID int64) (models.Order, error) {
	if userID <= 0 {
		return models.Order{}, ErrUnauthenticated
	}
	return s.findOrder(ctx, orderID, userID)
}

func (s *OrderService) ListAllOrders(ctx context.Context) ([]models.Order, error) {
	orders, err := s.orders.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list all orders: %w", err)
	}
	return orders, nil
}

func (s *OrderService) DashboardStats(ctx context.Context) (models.DashboardStats, error) {
	if s.stats == nil {
		return models.DashboardStats{}, errors.New("dashboard stats: repository not configured")
	}
	stats, err := s.stats.DashboardStats(ctx, recentOrdersLimit)
	if err != nil {
		return models.DashboardStats{}, fmt.Errorf("dashboard stats: %w", err)
	}
	return stats, nil
}

// CancelIfUnpaid cancels an order still awaiting payment. It reports whether
// the order was cancelled.
func (s *OrderService) CancelIfUnpaid(ctx context.Context, orderID int64) (bool, error) {
	var cancelled models.Order
	err := s.unitOfWork.RunInTx(ctx, func(ctx context.Context) error {
		order, err := s.findOrder(ctx, orderID, repositories.AnyOwner)
		if err != nil {
			return err
		}
		if order.IsPaid || order.OrderStatus != models.StatusProcessing {
			return nil
		}

		order.OrderStatus = models.StatusCancelled
		order.UpdatedAt = s.clock()
		if err := s.orders.Save(ctx, &order); err != nil {
			return fmt.Errorf("cancel order %d: %w", orderID, err)
		}
		cancelled = order
		return nil
	})
	if err != nil || cancelled.ID == 0 {
		return false, err
	}

	s.logger.Info("unpaid order cancelled", zap.Int64("order_id", orderID))
	s.publish(ctx, cancelled, models.EventStatusUpdated)
	return true, nil
}

func (s *OrderService) findOrder(ctx context.Context, orderID, ownerID int64) (models.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID, ownerID)
	if errors.Is(err, repositories.ErrNotFound) {
		return models.Order{}, newOrderError(CodeOrderNotFound, "Order of ID %d not found.", orderID)
	}
	if err != nil {
		return models.Order{}, fmt.Errorf("load order %d: %w", orderID, err)
	}
	return order, nil
}

func (s *OrderService) publish(ctx context.Context, order models.Order, eventType string) {
	event := models.NewOrderEvent(order, eventType, s.clock())
	if err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.logger.Warn("failed to publish order event",
			zap.Int64("order_id", order.ID),
			zap.String("type", eventType),
			zap.Error(err),
		)
	}
}
