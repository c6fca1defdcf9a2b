package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/typicaltools/internal/clock"
	"github.com/dmitrijs2005/typicaltools/internal/common"
	"github.com/dmitrijs2005/typicaltools/internal/logging"
	"github.com/dmitrijs2005/typicaltools/internal/server/models"
	"github.com/dmitrijs2005/typicaltools/internal/server/policy"
	"github.com/dmitrijs2005/typicaltools/internal/server/repositories/repomanager"
	"github.com/shopspring/decimal"
)

// ProductInput is what an admin submits to create a product.
type ProductInput struct {
	Name        string
	Price       decimal.Decimal
	Description string
}

// CatalogService lists and maintains products.
type CatalogService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	policy      *policy.Policy
	clock       clock.Clock
	log         logging.Logger
}

func NewCatalogService(db *sql.DB, m repomanager.RepositoryManager, p *policy.Policy, clk clock.Clock, log logging.Logger) *CatalogService {
	return &CatalogService{db: db, repomanager: m, policy: p, clock: clk, log: log.With("module", "catalog")}
}

func (s *CatalogService) List(ctx context.Context) ([]*models.Product, error) {
	return s.repomanager.Products(s.db).List(ctx)
}

// Get returns common.ErrorNotFound for an unknown id.
func (s *CatalogService) Get(ctx context.Context, id int64) (*models.Product, error) {
	return s.repomanager.Products(s.db).GetByID(ctx, id)
}

// Create validates and stores a new product. Admin only.
func (s *CatalogService) Create(ctx context.Context, actor policy.Actor, in ProductInput) (*models.Product, error) {
	if err := s.policy.Authorize(actor, policy.ManageCatalog, nil); err != nil {
		return nil, err
	}

	p := &models.Product{
		Name:        strings.TrimSpace(in.Name),
		Price:       in.Price,
		Description: strings.TrimSpace(in.Description),
		UpdatedAt:   s.clock.Now().UTC(),
	}
	if p.Name == "" {
		return nil, fmt.Errorf("%w: name is required", common.ErrValidation)
	}
	if p.Description == "" {
		return nil, fmt.Errorf("%w: description is required", common.ErrValidation)
	}
	if err := ValidatePrice(p.Price); err != nil {
		return nil, err
	}

	created, err := s.repomanager.Products(s.db).Create(ctx, p)
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "product created", "id", created.ID, "by", actor.Username)
	return created, nil
}

// UpdatePrice changes only the price and the updated timestamp. Admin only.
func (s *CatalogService) UpdatePrice(ctx context.Context, actor policy.Actor, id int64, price decimal.Decimal) (*models.Product, error) {
	if err := s.policy.Authorize(actor, policy.ManageCatalog, nil); err != nil {
		return nil, err
	}
	if err := ValidatePrice(price); err != nil {
		return nil, err
	}

	repo := s.repomanager.Products(s.db)
	if err := repo.UpdatePrice(ctx, id, price, s.clock.Now().UTC()); err != nil {
		return nil, err
	}

	s.log.Info(ctx, "product price updated", "id", id, "price", price.StringFixed(2), "by", actor.Username)
	return repo.GetByID(ctx, id)
}

// Delete removes a product together with its comments. Admin only.
func (s *CatalogService) Delete(ctx context.Context, actor policy.Actor, id int64) error {
	if err := s.policy.Authorize(actor, policy.ManageCatalog, nil); err != nil {
		return err
	}
	if err := s.repomanager.Products(s.db).Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info(ctx, "product deleted", "id", id, "by", actor.Username)
	return nil
}

// ParsePrice reads a form value such as "12.50".
func ParsePrice(raw string) (decimal.Decimal, error) {
	p, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: price must be a number", common.ErrValidation)
	}
	return p, ValidatePrice(p)
}

// ValidatePrice enforces 0.01 ≤ price ≤ 100000 with at most two decimals.
func ValidatePrice(p decimal.Decimal) error {
	if p.LessThan(models.MinPrice) || p.GreaterThan(models.MaxPrice) {
		return fmt.Errorf("%w: price must be between %s and %s", common.ErrValidation,
			models.MinPrice.StringFixed(2), models.MaxPrice.StringFixed(2))
	}
	if !p.Equal(p.Truncate(2)) {
		return fmt.Errorf("%w: price can have at most two decimal places", common.ErrValidation)
	}
	return nil
}
