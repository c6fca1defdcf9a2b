package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/typicaltools/internal/dbx"
	"github.com/dmitrijs2005/typicaltools/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/typicaltools/internal/server/repositories/comments"
	"github.com/dmitrijs2005/typicaltools/internal/server/repositories/products"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	Products(db dbx.DBTX) products.Repository
	Comments(db dbx.DBTX) comments.Repository
}
