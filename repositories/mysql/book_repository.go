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

type BookRepository struct {
	db *sqlx.DB
}

func NewBookRepository(db *sqlx.DB) *BookRepository {
	return &BookRepository{db: db}
}

func (r *BookRepository) FindByID(ctx context.Context, id int64) (models.Book, error) {
	var book models.Book
	err := database.Conn(ctx, r.db).GetContext(ctx, &book, `
		SELECT id, title, author, isbn, price, stock_quantity, created_at, updated_at
		FROM books
		WHERE id = ?
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Book{}, repositories.ErrNotFound
	}
	if err != nil {
		return models.Book{}, fmt.Errorf("error loading book %d: %w", id, err)
	}
	return book, nil
}

func (r *BookRepository) DecrementStock(ctx context.Context, id int64, quantity int) (bool, error) {
	result, err := database.Conn(ctx, r.db).ExecContext(ctx, `
		UPDATE books
		SET stock_quantity = stock_quantity - ?, updated_at = CURRENT_TIMESTAMP(3)
		WHERE id = ? AND stock_quantity >= ?
	`, quantity, id, quantity)
	if err != nil {
		return false, fmt.Errorf("error updating stock for book %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error getting rows affected for book %d: %w", id, err)
	}
	return rowsAffected == 1, nil
}
