package services

import (
	"encoding/json"
	"math"

	"github.com/shopspring/decimal"

	"bookstore-service/models"
)

// IncomingOrderItem is a validated client line: only the book reference and
// quantity survive, any client price is dropped.
type IncomingOrderItem struct {
	BookID   int64 `json:"bookId"`
	Quantity int   `json:"quantity"`
}

// ValidateOrderItems checks an untrusted decoded JSON value and normalises it.
// Numbers may arrive as json.Number (decoder with UseNumber) or float64.
func ValidateOrderItems(orderItems any) ([]IncomingOrderItem, error) {
	list, ok := orderItems.([]any)
	if !ok || len(list) == 0 {
		return nil, ErrInvalidOrderShape
	}

	out := make([]IncomingOrderItem, 0, len(list))
	for _, raw := range list {
		fields, _ := raw.(map[string]any)

		bookID, ok := positiveInteger(fields["bookId"], math.MaxInt64)
		if !ok {
			return nil, ErrInvalidBookReference
		}
		quantity, ok := positiveInteger(fields["quantity"], math.MaxInt32)
		if !ok {
			return nil, ErrInvalidQuantity
		}

		out = append(out, IncomingOrderItem{BookID: bookID, Quantity: int(quantity)})
	}
	return out, nil
}

// int64Ceiling is 2^63, the first float64 that no longer fits in an int64.
const int64Ceiling = float64(1 << 63)

func positiveInteger(value any, limit int64) (int64, bool) {
	var f float64
	switch v := value.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, n > 0 && n <= limit
		}
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case float64:
		f = v
	case int:
		return int64(v), v > 0 && int64(v) <= limit
	case int64:
		return v, v > 0 && v <= limit
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || f <= 0 || f > float64(limit) || f >= int64Ceiling {
		return 0, false
	}
	return int64(f), true
}

// ValidateStockAvailability fails when more copies are requested than exist.
// Requesting exactly the available stock is allowed.
func ValidateStockAvailability(requestedQuantity, availableStock int, bookID int64) error {
	if requestedQuantity > availableStock {
		return &StockError{BookID: bookID, Requested: requestedQuantity, Available: availableStock}
	}
	return nil
}

// CalculateOrderTotal sums price times quantity, rounded to cents.
func CalculateOrderTotal(items []models.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total.Round(2)
}
