package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"bookstore-service/database"
	"bookstore-service/models"
	"bookstore-service/repositories"
)

const orderColumns = `id, user_id, order_items, shipping_address, payment_method, total_price,
	is_paid, paid_at, payment_intent_id, order_status, is_delivered, delivered_at,
	created_at, updated_at`

type OrderRepository struct {
	db *sqlx.DB
}

func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	result, err := database.Conn(ctx, r.db).NamedExecContext(ctx, `
		INSERT INTO orders (user_id, order_items, shipping_address, payment_method, total_price,
			is_paid, paid_at, payment_intent_id, order_status, is_delivered, delivered_at,
			created_at, updated_at)
		VALUES (:user_id, :order_items, :shipping_address, :payment_method, :total_price,
			:is_paid, :paid_at, :payment_intent_id, :order_status, :is_delivered, :delivered_at,
			:created_at, :updated_at)
	`, order)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get order ID: %w", err)
	}
	order.ID = id
	return nil
}

func (r *OrderRepository) Save(ctx context.Context, order *models.Order) error {
	result, err := database.Conn(ctx, r.db).NamedExecContext(ctx, `
		UPDATE orders
		SET order_items = :order_items,
			shipping_address = :shipping_address,
			payment_method = :payment_method,
			total_price = :total_price,
			is_paid = :is_paid,
			paid_at = :paid_at,
			payment_intent_id = :payment_intent_id,
			order_status = :order_status,
			is_delivered = :is_delivered,
			delivered_at = :delivered_at,
			updated_at = :updated_at
		WHERE id = :id
	`, order)
	if err != nil {
		return fmt.Errorf("failed to save order %d: %w", order.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to save order %d: %w", order.ID, err)
	}
	// MySQL reports 0 when the row matched but nothing changed, so only a
	// missing row is treated as not found.
	if rowsAffected == 0 {
		var exists int
		if err := database.Conn(ctx, r.db).GetContext(ctx, &exists, `SELECT COUNT(*) FROM orders WHERE id = ?`, order.ID); err != nil {
			return fmt.Errorf("failed to save order %d: %w", order.ID, err)
		}
		if exists == 0 {
			return repositories.ErrNotFound
		}
	}
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id int64, ownerID int64) (models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`
	args := []any{id}
	if ownerID != repositories.AnyOwner {
		query += ` AND user_id = ?`
		args = append(args, ownerID)
	}
	if _, inTx := database.TxFromContext(ctx); inTx {
		query += ` FOR UPDATE`
	}

	var order models.Order
	err := database.Conn(ctx, r.db).GetContext(ctx, &order, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Order{}, repositories.ErrNotFound
	}
	if err != nil {
		return models.Order{}, fmt.Errorf("failed to load order %d: %w", id, err)
	}
	return order, nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID int64) ([]models.Order, error) {
	orders := []models.Order{}
	err := database.Conn(ctx, r.db).SelectContext(ctx, &orders,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders for user %d: %w", userID, err)
	}
	return orders, nil
}

func (r *OrderRepository) ListAll(ctx context.Context) ([]models.Order, error) {
	orders := []models.Order{}
	err := database.Conn(ctx, r.db).SelectContext(ctx, &orders,
		`SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}
