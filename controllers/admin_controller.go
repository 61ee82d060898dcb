package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"bookstore-service/middlewares"
	"bookstore-service/models"
)

func (oc *OrderController) GetAllOrders(c *gin.Context) {
	defer func() {
		middlewares.RecordOrderOperation("list_all", succeeded(c))
	}()

	orders, err := oc.orders.ListAllOrders(c.Request.Context())
	if err != nil {
		respondError(c, oc.logger, err, "Server error while fetching orders from db.")
		return
	}
	c.JSON(http.StatusOK, orders)
}

type updateStatusRequest struct {
	OrderStatus string `json:"orderStatus"`
}

func (oc *OrderController) UpdateOrderStatus(c *gin.Context) {
	defer func() {
		middlewares.RecordOrderOperation("update_status", succeeded(c))
	}()

	orderID, ok := parseID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid order ID format."})
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body."})
		return
	}

	order, err := oc.orders.UpdateOrderStatus(c.Request.Context(), orderID, req.OrderStatus)
	if err != nil {
		respondError(c, oc.logger, err, "Server error while updating order.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order status updated successfully", "order": order})
}

type dashboardStatsResponse struct {
	TotalSales   string               `json:"totalSales"`
	TotalOrders  int                  `json:"totalOrders"`
	TotalUsers   int                  `json:"totalUsers"`
	TotalBooks   int                  `json:"totalBooks"`
	RecentOrders []models.RecentOrder `json:"recentOrders"`
}

func (oc *OrderController) DashboardStats(c *gin.Context) {
	defer func() {
		middlewares.RecordOrderOperation("stats", succeeded(c))
	}()

	stats, err := oc.orders.DashboardStats(c.Request.Context())
	if err != nil {
		respondError(c, oc.logger, err, "Error fetching dashboard statistics")
		return
	}

	recent := stats.RecentOrders
	if recent == nil {
		recent = []models.RecentOrder{}
	}
	c.JSON(http.StatusOK, dashboardStatsResponse{
		TotalSales:   stats.TotalSales.StringFixed(2),
		TotalOrders:  stats.TotalOrders,
		TotalUsers:   stats.TotalUsers,
		TotalBooks:   stats.TotalBooks,
		RecentOrders: recent,
	})
}

// Health reports liveness.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
}
