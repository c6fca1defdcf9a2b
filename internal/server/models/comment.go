package models

import "time"

// Comment is a customer note attached to exactly one product.
//
// SessionID is the anonymous session that wrote the comment; empty when
// the comment was seeded or written without a session (stored as NULL).
type Comment struct {
	ID        int64     `db:"id"`
	ProductID int64     `db:"product_id"`
	Text      string    `db:"body"`
	CreatedAt time.Time `db:"created_at"`
	SessionID string    `db:"session_id"`
}
