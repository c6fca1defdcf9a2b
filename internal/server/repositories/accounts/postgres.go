// Package accounts provides the PostgreSQL-backed login account repository.
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/typicaltools/internal/common"
	"github.com/dmitrijs2005/typicaltools/internal/dbx"
	"github.com/dmitrijs2005/typicaltools/internal/server/models"
)

// usernameConstraint is the UNIQUE constraint on accounts.username.
const usernameConstraint = "accounts_username_key"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the account. A duplicate username is reported as
// common.ErrUsernameTaken, straight from the unique constraint.
func (r *PostgresRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	query :=
		`INSERT INTO accounts (username, password_hash, role)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		account.Username, account.PasswordHash, string(account.Role)).Scan(&account.ID, &account.CreatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err, usernameConstraint) {
			return nil, common.ErrUsernameTaken
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return account, nil
}

// CreateIfAbsent inserts the account unless the username exists. It does not
// abort an enclosing transaction on conflict.
func (r *PostgresRepository) CreateIfAbsent(ctx context.Context, account *models.Account) (bool, error) {
	query :=
		`INSERT INTO accounts (username, password_hash, role)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (username) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query, account.Username, account.PasswordHash, string(account.Role))
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n == 1, nil
}

// GetByUsername matches the username exactly (case-sensitive).
func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	query :=
		`SELECT id, username, password_hash, role, created_at FROM accounts
		 WHERE username = $1`

	var (
		account models.Account
		role    string
	)
	err := r.db.QueryRowContext(ctx, query, username).
		Scan(&account.ID, &account.Username, &account.PasswordHash, &role, &account.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if account.Role, err = models.ParseRole(role); err != nil {
		return nil, fmt.Errorf("account %d: %w", account.ID, err)
	}

	return &account, nil
}
