package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"bookstore-service/controllers"
	"bookstore-service/idempotency"
	"bookstore-service/middlewares"
)

type Deps struct {
	Orders         controllers.OrderService
	Logger         *zap.Logger
	JWTSecret      string
	Idempotency    idempotency.Store
	IdempotencyTTL time.Duration
}

func NewRouter(deps Deps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(middlewares.RequestID(), middlewares.RequestLogger(logger), middlewares.PrometheusMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", controllers.Health)

	oc := controllers.NewOrderController(deps.Orders, logger)
	idem := idempotency.Middleware(deps.Idempotency,
		idempotency.WithTTL(deps.IdempotencyTTL),
		idempotency.WithLogger(logger),
		idempotency.WithIdentity(idempotency.IdentityFromContextKey(middlewares.ContextUserID)),
	)

	api := r.Group("/api")
	api.Use(middlewares.AuthMiddleware(deps.JWTSecret))
	{
		orders := api.Group("/orders")
		orders.POST("", idem, oc.CreateOrder)
		orders.GET("/myorders", oc.GetMyOrders)
		orders.GET("/:id", oc.GetOrderByID)
		orders.POST("/:id/payment", idem, oc.ProcessPayment)

		admin := api.Group("/admin")
		admin.Use(middlewares.RequireRole(middlewares.RoleAdmin))
		admin.GET("/orders", oc.GetAllOrders)
		admin.PUT("/orders/:id/status", oc.UpdateOrderStatus)
		admin.GET("/stats", oc.DashboardStats)
	}

	return r
}
