package accounts

import (
	"context"

	"github.com/dmitrijs2005/typicaltools/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	CreateIfAbsent(ctx context.Context, account *models.Account) (bool, error)
	GetByUsername(ctx context.Context, username string) (*models.Account, error)
}
