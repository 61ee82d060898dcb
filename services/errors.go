package services

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeInvalidOrderShape    ErrorCode = "invalid_order_shape"
	CodeInvalidBookReference ErrorCode = "invalid_book_reference"
	CodeInvalidQuantity      ErrorCode = "invalid_quantity"
	CodeBookNotFound         ErrorCode = "book_not_found"
	CodeInsufficientStock    ErrorCode = "insufficient_stock"
	CodeEmptyOrder           ErrorCode = "empty_order"
	CodeMissingShippingInfo  ErrorCode = "missing_shipping_info"
	CodeUnauthenticated      ErrorCode = "unauthenticated"
	CodeOrderNotFound        ErrorCode = "order_not_found"
	CodeAlreadyPaid          ErrorCode = "already_paid"
	CodeInvalidStatus        ErrorCode = "invalid_status"
	CodeInvalidTransition    ErrorCode = "invalid_transition"
)

// OrderError is a client-facing failure of the order pipeline. Its Message is
// safe to show to the caller.
type OrderError struct {
	Code    ErrorCode
	Message string
}

func (e *OrderError) Error() string {
	return e.Message
}

// Is matches any OrderError carrying the same code.
func (e *OrderError) Is(target error) bool {
	t, ok := target.(*OrderError)
	return ok && t.Code == e.Code
}

var (
	ErrInvalidOrderShape    = &OrderError{Code: CodeInvalidOrderShape, Message: "Order must contain at least one item."}
	ErrInvalidBookReference = &OrderError{Code: CodeInvalidBookReference, Message: "Invalid bookId"}
	ErrInvalidQuantity      = &OrderError{Code: CodeInvalidQuantity, Message: "Quantity must be greater than 0"}
	ErrBookNotFound         = &OrderError{Code: CodeBookNotFound, Message: "Book not found."}
	ErrInsufficientStock    = &OrderError{Code: CodeInsufficientStock, Message: "Insufficient stock."}
	ErrEmptyOrder           = &OrderError{Code: CodeEmptyOrder, Message: "No valid items found in the order."}
	ErrMissingShippingInfo  = &OrderError{Code: CodeMissingShippingInfo, Message: "Missing shipping address or payment method."}
	ErrUnauthenticated      = &OrderError{Code: CodeUnauthenticated, Message: "User not authenticated."}
	ErrOrderNotFound        = &OrderError{Code: CodeOrderNotFound, Message: "Order not found."}
	ErrAlreadyPaid          = &OrderError{Code: CodeAlreadyPaid, Message: "Order is already paid."}
	ErrInvalidStatus        = &OrderError{Code: CodeInvalidStatus, Message: "Invalid order status."}
	ErrInvalidTransition    = &OrderError{Code: CodeInvalidTransition, Message: "Invalid order status transition."}
)

func newOrderError(code ErrorCode, format string, args ...any) *OrderError {
	return &OrderError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// StockError reports a request for more copies than are on hand.
type StockError struct {
	BookID    int64
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("Book %d is out of stock or requested quantity (%d) exceeds available stock (%d).",
		e.BookID, e.Requested, e.Available)
}

func (e *StockError) Is(target error) bool {
	t, ok := target.(*OrderError)
	return ok && t.Code == CodeInsufficientStock
}

// ErrorCodeOf extracts the pipeline error code from err. It returns false for
// unexpected failures such as persistence faults.
func ErrorCodeOf(err error) (ErrorCode, bool) {
	var stockErr *StockError
	if errors.As(err, &stockErr) {
		return CodeInsufficientStock, true
	}
	var orderErr *OrderError
	if errors.As(err, &orderErr) {
		return orderErr.Code, true
	}
	return "", false
}
