package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"

	"bookstore-service/middlewares"
	"bookstore-service/models"
	"bookstore-service/services"
)

// OrderService is the slice of the order pipeline the HTTP layer drives.
type OrderService interface {
	CreateOrder(ctx context.Context, cmd services.CreateOrderCommand) (models.Order, error)
	ListMyOrders(ctx context.Context, userID int64) ([]models.Order, error)
	GetMyOrder(ctx context.Context, orderID, userID int64) (models.Order, error)
	SettlePayment(ctx context.Context, orderID, userID int64) (services.SettlementResult, error)
	ListAllOrders(ctx context.Context) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status string) (models.Order, error)
	DashboardStats(ctx context.Context) (models.DashboardStats, error)
}

type OrderController struct {
	orders OrderService
	logger *zap.Logger
}

func NewOrderController(orders OrderService, logger *zap.Logger) *OrderController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderController{orders: orders, logger: logger}
}

// Item ids and quantities reach the service as json.Number so integers past
// 2^53 keep their precision.
func init() {
	binding.EnableDecoderUseNumber = true
}

type createOrderRequest struct {
	// Left untyped; the service validates the shape item by item.
	OrderItems      any    `json:"orderItems"`
	ShippingAddress string `json:"shippingAddress"`
	PaymentMethod   string `json:"paymentMethod"`
}

func (oc *OrderController) CreateOrder(c *gin.Context) {
	defer func() {
		middlewares.RecordOrderOperation("create", succeeded(c))
	}()

	userID, _ := middlewares.UserID(c)

	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body."})
		return
	}

	order, err := oc.orders.CreateOrder(c.Request.Context(), services.CreateOrderCommand{
		UserID:          userID,
		OrderItems:      req.OrderItems,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
	})
	if err != nil {
		respondError(c, oc.logger, err, "Server error while attempting to create order.")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Order initialized successfully. Awaiting payment confirmation.",
		"orderId": order.ID,
		"order":   order,
	})
}

func (oc *OrderController) GetMyOrders(c *gin.Context) {
	defer func() {
		middlewares.RecordOrderOperation("list", succeeded(c))
	}()

	userID, _ := middlewares.UserID(c)
	orders, err := oc.orders.ListMyOrders(c.Request.Context(), userID)
	if err != nil {
		respondError(c, oc.logger, err, "Server error while fetching orders.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (oc *OrderController) GetOrderByID(c *gin.Context) {
	defer func() {
		middlewares.RecordOrderOperation("details", succeeded(c))
	}()

	userID, ok := middlewares.UserID(c)
	if !ok {
		respondError(c, oc.logger, services.ErrUnauthenticated, "")
		return
	}
	orderID, ok := parseID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid order ID format."})
		return
	}

	order, err := oc.orders.GetMyOrder(c.Request.Context(), orderID, userID)
	if err != nil {
		respondError(c, oc.logger, err, "Server error while fetching order.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (oc *OrderController) ProcessPayment(c *gin.Context) {
	outcome := "error"
	defer func() {
		middlewares.RecordOrderOperation("payment", succeeded(c))
		middlewares.RecordSettlement(outcome)
	}()

	userID, ok := middlewares.UserID(c)
	if !ok {
		outcome = string(services.CodeUnauthenticated)
		respondError(c, oc.logger, services.ErrUnauthenticated, "")
		return
	}
	orderID, ok := parseID(c)
	if !ok {
		outcome = "invalid_order_id"
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid order ID."})
		return
	}

	result, err := oc.orders.SettlePayment(c.Request.Context(), orderID, userID)
	if err != nil {
		if code, ok := services.ErrorCodeOf(err); ok {
			outcome = string(code)
		}
		respondError(c, oc.logger, err, "Server error while processing payment.")
		return
	}

	outcome = "paid"
	c.JSON(http.StatusOK, gin.H{
		"message":      "PaymentIntent created. Proceed to confirm payment.",
		"orderId":      result.Order.ID,
		"clientSecret": result.ClientSecret,
		"order":        result.Order,
	})
}
