package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"bookstore-service/models"
	"bookstore-service/repositories"
)

// ResolveOrderItems prices each validated line from the catalog. The first
// missing book or short stock aborts the whole order.
func ResolveOrderItems(ctx context.Context, books repositories.BookRepository, items []IncomingOrderItem) (models.OrderItems, error) {
	priced := make(models.OrderItems, 0, len(items))
	for _, item := range items {
		book, err := books.FindByID(ctx, item.BookID)
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, newOrderError(CodeBookNotFound, "Book %d not found.", item.BookID)
		}
		if err != nil {
			return nil, fmt.Errorf("resolve book %d: %w", item.BookID, err)
		}

		if err := ValidateStockAvailability(item.Quantity, book.StockQuantity, item.BookID); err != nil {
			return nil, err
		}

		priced = append(priced, models.OrderItem{
			BookID:   book.ID,
			Title:    book.Title,
			Quantity: item.Quantity,
			Price:    book.Price,
		})
	}
	return priced, nil
}

type stockDelta struct {
	bookID   int64
	quantity int
}

// aggregateDeltas folds lines for the same book together and orders them by
// book id so concurrent settlements lock rows in the same sequence.
func aggregateDeltas(items models.OrderItems) []stockDelta {
	totals := make(map[int64]int, len(items))
	for _, item := range items {
		totals[item.BookID] += item.Quantity
	}

	deltas := make([]stockDelta, 0, len(totals))
	for bookID, quantity := range totals {
		deltas = append(deltas, stockDelta{bookID: bookID, quantity: quantity})
	}
	sort.Slice(deltas, func(i, j int) bool { return deltas[i].bookID < deltas[j].bookID })
	return deltas
}
