package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusProcessing       OrderStatus = "Processing"
	StatusPaymentSucceeded OrderStatus = "Payment Successful (MOCK)"
	StatusShipped          OrderStatus = "Shipped"
	StatusDelivered        OrderStatus = "Delivered"
	StatusCancelled        OrderStatus = "Cancelled"
)

var knownStatuses = []OrderStatus{
	StatusProcessing,
	StatusPaymentSucceeded,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
}

// ParseOrderStatus returns the status matching s exactly.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	for _, status := range knownStatuses {
		if string(status) == s {
			return status, true
		}
	}
	return "", false
}

// Terminal reports whether no further transitions leave this status.
func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// OrderItem is a priced line captured when the order was created. It does not
// follow later catalog edits.
type OrderItem struct {
	BookID   int64           `json:"bookId"`
	Title    string          `json:"title"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// OrderItems is stored as a JSON column.
type OrderItems []OrderItem

func (items OrderItems) Value() (driver.Value, error) {
	if items == nil {
		items = OrderItems{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (items *OrderItems) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*items = OrderItems{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("order items: unsupported column type %T", src)
	}
	if len(data) == 0 {
		*items = OrderItems{}
		return nil
	}
	var decoded OrderItems
	if err := json.Unmarshal(data, &decoded); err != nil {
		return errors.Join(errors.New("order items: invalid json"), err)
	}
	*items = decoded
	return nil
}

type Order struct {
	ID              int64           `db:"id" json:"id"`
	UserID          int64           `db:"user_id" json:"userId"`
	OrderItems      OrderItems      `db:"order_items" json:"orderItems"`
	ShippingAddress string          `db:"shipping_address" json:"shippingAddress"`
	PaymentMethod   string          `db:"payment_method" json:"paymentMethod"`
	TotalPrice      decimal.Decimal `db:"total_price" json:"totalPrice"`
	IsPaid          bool            `db:"is_paid" json:"isPaid"`
	PaidAt          *time.Time      `db:"paid_at" json:"paidAt"`
	PaymentIntentID *string         `db:"payment_intent_id" json:"paymentIntentId"`
	OrderStatus     OrderStatus     `db:"order_status" json:"orderStatus"`
	IsDelivered     bool            `db:"is_delivered" json:"isDelivered"`
	DeliveredAt     *time.Time      `db:"delivered_at" json:"deliveredAt"`
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updatedAt"`
}

// Clone returns a deep copy so callers can mutate without touching stored state.
func (o Order) Clone() Order {
	out := o
	if o.OrderItems != nil {
		out.OrderItems = append(OrderItems(nil), o.OrderItems...)
	}
	if o.PaidAt != nil {
		t := *o.PaidAt
		out.PaidAt = &t
	}
	if o.DeliveredAt != nil {
		t := *o.DeliveredAt
		out.DeliveredAt = &t
	}
	if o.PaymentIntentID != nil {
		s := *o.PaymentIntentID
		out.PaymentIntentID = &s
	}
	return out
}

const (
	EventCreated       = "created"
	EventPaid          = "paid"
	EventStatusUpdated = "status_updated"
	EventPaymentCheck  = "payment_check"
)

// OrderEvent is the message body published to the order exchange.
type OrderEvent struct {
	OrderID  int64           `json:"order_id"`
	UserID   int64           `json:"user_id"`
	Type     string          `json:"type"`
	Status   OrderStatus     `json:"status"`
	Total    decimal.Decimal `json:"total"`
	Occurred time.Time       `json:"occurred"`
}

// NewOrderEvent snapshots an order for publishing.
func NewOrderEvent(order Order, eventType string, at time.Time) OrderEvent {
	return OrderEvent{
		OrderID:  order.ID,
		UserID:   order.UserID,
		Type:     eventType,
		Status:   order.OrderStatus,
		Total:    order.TotalPrice,
		Occurred: at,
	}
}

type RecentOrder struct {
	ID           int64           `db:"id" json:"id"`
	TotalPrice   decimal.Decimal `db:"total_price" json:"totalPrice"`
	OrderStatus  OrderStatus     `db:"order_status" json:"orderStatus"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
	CustomerName string          `db:"customer_name" json:"customerName"`
}

type DashboardStats struct {
	TotalSales   decimal.Decimal `json:"-"`
	TotalOrders  int             `json:"totalOrders"`
	TotalUsers   int             `json:"totalUsers"`
	TotalBooks   int             `json:"totalBooks"`
	RecentOrders []RecentOrder   `json:"recentOrders"`
}
