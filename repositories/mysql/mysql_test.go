package mysql

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"bookstore-service/models"
	"bookstore-service/repositories"
)

type RepositoryTestSuite struct {
	suite.Suite
	db   *sqlx.DB
	mock sqlmock.Sqlmock
	ctx  context.Context
}

func (s *RepositoryTestSuite) SetupTest() {
	raw, mock, err := sqlmock.New()
	require.NoError(s.T(), err)
	s.db = sqlx.NewDb(raw, "mysql")
	s.mock = mock
	s.ctx = context.Background()
}

func (s *RepositoryTestSuite) TearDownTest() {
	require.NoError(s.T(), s.mock.ExpectationsWereMet())
	s.db.Close()
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

var createdAt = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func orderRow() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_id", "order_items", "shipping_address", "payment_method", "total_price",
		"is_paid", "paid_at", "payment_intent_id", "order_status", "is_delivered", "delivered_at",
		"created_at", "updated_at",
	}).AddRow(
		7, 3, []byte(`[{"bookId":1,"title":"Dune","quantity":2,"price":"10"}]`), "742 Evergreen Terrace", "Credit Card", "20.00",
		false, nil, nil, "Processing", false, nil,
		createdAt, createdAt,
	)
}

func (s *RepositoryTestSuite) TestBookFindByID() {
	s.mock.ExpectQuery(`SELECT (.+) FROM books WHERE id = \?`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "author", "isbn", "price", "stock_quantity", "created_at", "updated_at"}).
			AddRow(1, "Dune", "Frank Herbert", "9780441013593", "15.50", 4, createdAt, createdAt))

	book, err := NewBookRepository(s.db).FindByID(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal("Dune", book.Title)
	s.Equal(4, book.StockQuantity)
	s.True(book.Price.Equal(decimal.RequireFromString("15.5")))
}

func (s *RepositoryTestSuite) TestBookFindByIDNotFound() {
	s.mock.ExpectQuery(`SELECT (.+) FROM books`).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := NewBookRepository(s.db).FindByID(s.ctx, 9)
	s.ErrorIs(err, repositories.ErrNotFound)
}

func (s *RepositoryTestSuite) TestDecrementStockGuardsQuantity() {
	repo := NewBookRepository(s.db)

	s.mock.ExpectExec(`UPDATE books\s+SET stock_quantity = stock_quantity - \?(.+)WHERE id = \? AND stock_quantity >= \?`).
		WithArgs(2, int64(1), 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	ok, err := repo.DecrementStock(s.ctx, 1, 2)
	s.Require().NoError(err)
	s.True(ok)

	s.mock.ExpectExec(`UPDATE books`).
		WithArgs(5, int64(1), 5).
		WillReturnResult(sqlmock.NewResult(0, 0))
	ok, err = repo.DecrementStock(s.ctx, 1, 5)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *RepositoryTestSuite) TestOrderCreateAssignsID() {
	s.mock.ExpectExec(`INSERT INTO orders`).WillReturnResult(sqlmock.NewResult(42, 1))

	order := &models.Order{
		UserID:          3,
		OrderItems:      models.OrderItems{{BookID: 1, Title: "Dune", Quantity: 2, Price: decimal.NewFromInt(10)}},
		ShippingAddress: "742 Evergreen Terrace",
		PaymentMethod:   "Credit Card",
		TotalPrice:      decimal.NewFromInt(20),
		OrderStatus:     models.StatusProcessing,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}
	s.Require().NoError(NewOrderRepository(s.db).Create(s.ctx, order))
	s.Equal(int64(42), order.ID)
}

func (s *RepositoryTestSuite) TestOrderFindByIDScopesOwner() {
	s.mock.ExpectQuery(`SELECT (.+) FROM orders WHERE id = \? AND user_id = \?$`).
		WithArgs(int64(7), int64(3)).
		WillReturnRows(orderRow())

	order, err := NewOrderRepository(s.db).FindByID(s.ctx, 7, 3)
	s.Require().NoError(err)
	s.Equal(int64(7), order.ID)
	s.Equal(models.StatusProcessing, order.OrderStatus)
	s.Require().Len(order.OrderItems, 1)
	s.Equal(2, order.OrderItems[0].Quantity)
	s.Nil(order.PaidAt)
	s.True(order.TotalPrice.Equal(decimal.NewFromInt(20)))
}

func (s *RepositoryTestSuite) TestOrderFindByIDLocksInsideTransaction() {
	s.mock.ExpectBegin()
	s.mock.ExpectQuery(`SELECT (.+) FROM orders WHERE id = \? FOR UPDATE`).
		WithArgs(int64(7)).
		WillReturnRows(orderRow())
	s.mock.ExpectCommit()

	err := NewUnitOfWork(s.db).RunInTx(s.ctx, func(ctx context.Context) error {
		_, err := NewOrderRepository(s.db).FindByID(ctx, 7, repositories.AnyOwner)
		return err
	})
	s.NoError(err)
}

func (s *RepositoryTestSuite) TestOrderFindByIDNotFound() {
	s.mock.ExpectQuery(`SELECT (.+) FROM orders`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := NewOrderRepository(s.db).FindByID(s.ctx, 8, 3)
	s.ErrorIs(err, repositories.ErrNotFound)
}

func (s *RepositoryTestSuite) TestOrderSaveMissingRow() {
	s.mock.ExpectExec(`UPDATE orders`).WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectQuery(`SELECT COUNT\(\*\) FROM orders WHERE id = \?`).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	err := NewOrderRepository(s.db).Save(s.ctx, &models.Order{ID: 99})
	s.ErrorIs(err, repositories.ErrNotFound)
}

func (s *RepositoryTestSuite) TestOrderListByUser() {
	s.mock.ExpectQuery(`SELECT (.+) FROM orders WHERE user_id = \? ORDER BY created_at DESC`).
		WithArgs(int64(3)).
		WillReturnRows(orderRow())

	orders, err := NewOrderRepository(s.db).ListByUser(s.ctx, 3)
	s.Require().NoError(err)
	s.Len(orders, 1)
}

func (s *RepositoryTestSuite) TestDashboardStats() {
	s.mock.ExpectQuery(`SELECT SUM\(total_price\) FROM orders WHERE is_paid = TRUE`).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow("120.75"))
	s.mock.ExpectQuery(`SELECT COUNT\(\*\) FROM orders`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
	s.mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	s.mock.ExpectQuery(`SELECT COUNT\(\*\) FROM books`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(10))
	s.mock.ExpectQuery(`FROM orders o\s+LEFT JOIN users u`).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "total_price", "order_status", "created_at", "customer_name"}).
			AddRow(4, "35.50", "Shipped", createdAt, "Ada Lovelace"))

	stats, err := NewStatsRepository(s.db).DashboardStats(s.ctx, 5)
	s.Require().NoError(err)
	s.Equal("120.75", stats.TotalSales.StringFixed(2))
	s.Equal(4, stats.TotalOrders)
	s.Equal(2, stats.TotalUsers)
	s.Equal(10, stats.TotalBooks)
	s.Require().Len(stats.RecentOrders, 1)
	s.Equal("Ada Lovelace", stats.RecentOrders[0].CustomerName)
}

func (s *RepositoryTestSuite) TestDashboardStatsWithoutSales() {
	s.mock.ExpectQuery(`SELECT SUM`).WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(nil))
	s.mock.ExpectQuery(`SELECT COUNT`).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	s.mock.ExpectQuery(`SELECT COUNT`).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	s.mock.ExpectQuery(`SELECT COUNT`).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	s.mock.ExpectQuery(`LEFT JOIN users`).WillReturnRows(sqlmock.NewRows([]string{"id", "total_price", "order_status", "created_at", "customer_name"}))

	stats, err := NewStatsRepository(s.db).DashboardStats(s.ctx, 5)
	s.Require().NoError(err)
	s.True(stats.TotalSales.IsZero())
	s.Empty(stats.RecentOrders)
}
