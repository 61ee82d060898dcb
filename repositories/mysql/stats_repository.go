package mysql

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"bookstore-service/database"
	"bookstore-service/models"
)

type StatsRepository struct {
	db *sqlx.DB
}

func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

func (r *StatsRepository) DashboardStats(ctx context.Context, recentLimit int) (models.DashboardStats, error) {
	conn := database.Conn(ctx, r.db)

	var stats models.DashboardStats
	var sales decimal.NullDecimal
	if err := conn.GetContext(ctx, &sales, `SELECT SUM(total_price) FROM orders WHERE is_paid = TRUE`); err != nil {
		return stats, fmt.Errorf("failed to sum sales: %w", err)
	}
	stats.TotalSales = decimal.Zero
	if sales.Valid {
		stats.TotalSales = sales.Decimal
	}

	counts := []struct {
		dest  *int
		query string
	}{
		{&stats.TotalOrders, `SELECT COUNT(*) FROM orders`},
		{&stats.TotalUsers, `SELECT COUNT(*) FROM users`},
		{&stats.TotalBooks, `SELECT COUNT(*) FROM books`},
	}
	for _, c := range counts {
		if err := conn.GetContext(ctx, c.dest, c.query); err != nil {
			return stats, fmt.Errorf("failed to count rows: %w", err)
		}
	}

	stats.RecentOrders = []models.RecentOrder{}
	if err := conn.SelectContext(ctx, &stats.RecentOrders, `
		SELECT o.id, o.total_price, o.order_status, o.created_at,
		       COALESCE(CONCAT(u.first_name, ' ', u.last_name), '') AS customer_name
		FROM orders o
		LEFT JOIN users u ON u.id = o.user_id
		ORDER BY o.created_at DESC, o.id DESC
		LIMIT ?
	`, recentLimit); err != nil {
		return stats, fmt.Errorf("failed to load recent orders: %w", err)
	}
	return stats, nil
}
