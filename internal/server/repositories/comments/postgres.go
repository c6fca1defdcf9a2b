// Package comments provides the PostgreSQL-backed product comment repository.
package comments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/typicaltools/internal/common"
	"github.com/dmitrijs2005/typicaltools/internal/dbx"
	"github.com/dmitrijs2005/typicaltools/internal/server/models"
)

const selectComment = `SELECT id, product_id, body, created_at, session_id FROM comments`

// PostgresRepository implements comment storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanComment(s scanner) (*models.Comment, error) {
	var (
		c       models.Comment
		session sql.NullString
	)
	if err := s.Scan(&c.ID, &c.ProductID, &c.Text, &c.CreatedAt, &session); err != nil {
		return nil, err
	}
	c.SessionID = session.String
	return &c, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.Comment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

// ListByProduct returns the product's comments, oldest first.
func (r *PostgresRepository) ListByProduct(ctx context.Context, productID int64) ([]*models.Comment, error) {
	return r.list(ctx, selectComment+` WHERE product_id = $1 ORDER BY created_at, id`, productID)
}

// ListAll returns every comment grouped by product, oldest first.
func (r *PostgresRepository) ListAll(ctx context.Context) ([]*models.Comment, error) {
	return r.list(ctx, selectComment+` ORDER BY product_id, created_at, id`)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Comment, error) {
	c, err := scanComment(r.db.QueryRowContext(ctx, selectComment+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

// Create stores c with its already-sanitized text and fills in the id.
func (r *PostgresRepository) Create(ctx context.Context, c *models.Comment) (*models.Comment, error) {
	query :=
		`INSERT INTO comments (product_id, body, created_at, session_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`

	err := r.db.QueryRowContext(ctx, query, c.ProductID, c.Text, c.CreatedAt, nullable(c.SessionID)).Scan(&c.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

// InsertWithID inserts c keeping its id; an existing row with that id is left alone.
func (r *PostgresRepository) InsertWithID(ctx context.Context, c *models.Comment) error {
	query :=
		`INSERT INTO comments (id, product_id, body, created_at, session_id)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO NOTHING`

	_, err := r.db.ExecContext(ctx, query, c.ID, c.ProductID, c.Text, c.CreatedAt, nullable(c.SessionID))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ResetIDSequence(ctx context.Context) error {
	query := `SELECT setval(pg_get_serial_sequence('comments', 'id'), COALESCE(MAX(id), 1)) FROM comments`

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// UpdateText replaces the body; product linkage, timestamp and session stay.
func (r *PostgresRepository) UpdateText(ctx context.Context, id int64, text string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE comments SET body = $1 WHERE id = $2`, text, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}
