package products

import (
	"context"
	"time"

	"github.com/dmitrijs2005/typicaltools/internal/server/models"
	"github.com/shopspring/decimal"
)

type Repository interface {
	List(ctx context.Context) ([]*models.Product, error)
	GetByID(ctx context.Context, id int64) (*models.Product, error)
	Create(ctx context.Context, p *models.Product) (*models.Product, error)
	InsertWithID(ctx context.Context, p *models.Product) error
	ResetIDSequence(ctx context.Context) error
	UpdatePrice(ctx context.Context, id int64, price decimal.Decimal, updatedAt time.Time) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)
}
