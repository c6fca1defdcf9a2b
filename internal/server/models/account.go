package models

import "time"

// Account is a staff or customer login. PasswordHash is a bcrypt digest.
type Account struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	Role         Role      `db:"role"`
	CreatedAt    time.Time `db:"created_at"`
}
