package comments

import (
	"context"

	"github.com/dmitrijs2005/typicaltools/internal/server/models"
)

type Repository interface {
	ListByProduct(ctx context.Context, productID int64) ([]*models.Comment, error)
	ListAll(ctx context.Context) ([]*models.Comment, error)
	GetByID(ctx context.Context, id int64) (*models.Comment, error)
	Create(ctx context.Context, c *models.Comment) (*models.Comment, error)
	InsertWithID(ctx context.Context, c *models.Comment) error
	ResetIDSequence(ctx context.Context) error
	UpdateText(ctx context.Context, id int64, text string) error
	Delete(ctx context.Context, id int64) error
}
