package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Book is the catalog record read by the order pipeline. Only settlement and
// catalog administration change StockQuantity.
type Book struct {
	ID            int64           `db:"id" json:"id"`
	Title         string          `db:"title" json:"title"`
	Author        string          `db:"author" json:"author"`
	ISBN          string          `db:"isbn" json:"isbn"`
	Price         decimal.Decimal `db:"price" json:"price"`
	StockQuantity int             `db:"stock_quantity" json:"stockQuantity"`
	CreatedAt     time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updatedAt"`
}
