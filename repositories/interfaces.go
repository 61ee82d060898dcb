package repositories

import (
	"context"
	"errors"

	"bookstore-service/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("repository: not found")

// AnyOwner disables the owner filter on order lookups.
const AnyOwner int64 = 0

type BookRepository interface {
	FindByID(ctx context.Context, id int64) (models.Book, error)
	// DecrementStock subtracts quantity only when enough stock remains. It
	// reports false without changing anything otherwise.
	DecrementStock(ctx context.Context, id int64, quantity int) (bool, error)
}

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	Save(ctx context.Context, order *models.Order) error
	// FindByID loads an order, restricted to ownerID unless it is AnyOwner.
	// Inside a transaction the row stays locked until commit.
	FindByID(ctx context.Context, id int64, ownerID int64) (models.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Order, error)
	ListAll(ctx context.Context) ([]models.Order, error)
}

type StatsRepository interface {
	DashboardStats(ctx context.Context, recentLimit int) (models.DashboardStats, error)
}

// UnitOfWork runs fn atomically; repositories called with the ctx passed to
// fn participate in the same transaction.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
