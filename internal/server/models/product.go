package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Price bounds accepted by the catalog, inclusive.
var (
	MinPrice = decimal.RequireFromString("0.01")
	MaxPrice = decimal.RequireFromString("100000")
)

type Product struct {
	ID          int64           `db:"id"`
	Name        string          `db:"name"`
	Price       decimal.Decimal `db:"price"`
	Description string          `db:"description"`
	UpdatedAt   time.Time       `db:"updated_at"`
}
