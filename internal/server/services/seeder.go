package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/typicaltools/internal/clock"
	"github.com/dmitrijs2005/typicaltools/internal/common"
	"github.com/dmitrijs2005/typicaltools/internal/dbx"
	"github.com/dmitrijs2005/typicaltools/internal/logging"
	"github.com/dmitrijs2005/typicaltools/internal/server/auth"
	"github.com/dmitrijs2005/typicaltools/internal/server/models"
	"github.com/dmitrijs2005/typicaltools/internal/server/repositories/repomanager"
	"github.com/shopspring/decimal"
)

// AdminUsername is the account created by the seeder.
const AdminUsername = "admin"

type seedProduct struct {
	id          int64
	name, price string
	description string
}

var starterProducts = []seedProduct{
	{12345, "Generic Headphones", "84.99", "bluetooth headphones with fair battery life and a 1 month warranty"},
	{12346, "Expensive Headphones", "149.99", "bluetooth headphones with good battery life and a 6 month warranty"},
	{12347, "Name Brand Headphones", "199.99", "bluetooth headphones with good battery life and a 12 month warranty"},
	{12348, "Generic Wireless Mouse", "39.99", "simple bluetooth pointing device"},
	{12349, "Logitach Mouse and Keyboard", "73.99", "mouse and keyboard wired combination"},
	{12350, "Logitach Wireless Mouse", "149.99", "quality wireless mouse"},
}

var starterComments = []models.Comment{
	{ID: 1, ProductID: 12345, Text: "This is a great product. Highly Recommended!", SessionID: "session-001"},
	{ID: 2, ProductID: 12350, Text: "Not worth the excessive price. Stick with a cheaper generic one.", SessionID: "session-002"},
	{ID: 3, ProductID: 12345, Text: "A great budget buy. As good as some of the expensive alternatives.", SessionID: "session-003"},
	{ID: 4, ProductID: 12347, Text: "Total garbage. Never buying this brand again.", SessionID: "session-004"},
}

// Seeder loads the starter catalog, comments and the admin account. It is an
// explicit step and does nothing once any product exists.
type Seeder struct {
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	clock         clock.Clock
	adminPassword string
	log           logging.Logger
}

// NewSeeder: an empty adminPassword makes Seed generate one and log it.
func NewSeeder(db *sql.DB, m repomanager.RepositoryManager, clk clock.Clock, adminPassword string, log logging.Logger) *Seeder {
	return &Seeder{db: db, repomanager: m, clock: clk, adminPassword: adminPassword, log: log.With("module", "seeder")}
}

// Seed runs in one transaction and reports whether anything was written.
func (s *Seeder) Seed(ctx context.Context) (bool, error) {
	password, generated := s.adminPassword, false
	if password == "" {
		p, err := common.MakeRandHexString(12)
		if err != nil {
			return false, fmt.Errorf("generate admin password: %w", err)
		}
		password, generated = p, true
	}

	seeded := false
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		products := s.repomanager.Products(tx)

		n, err := products.Count(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}

		now := s.clock.Now().UTC()

		for _, sp := range starterProducts {
			if err := products.InsertWithID(ctx, &models.Product{
				ID:          sp.id,
				Name:        sp.name,
				Price:       decimal.RequireFromString(sp.price),
				Description: sp.description,
				UpdatedAt:   now,
			}); err != nil {
				return err
			}
		}
		if err := products.ResetIDSequence(ctx); err != nil {
			return err
		}

		comments := s.repomanager.Comments(tx)
		for _, c := range starterComments {
			c.CreatedAt = now
			if err := comments.InsertWithID(ctx, &c); err != nil {
				return err
			}
		}
		if err := comments.ResetIDSequence(ctx); err != nil {
			return err
		}

		hash, err := auth.HashPassword(password)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		created, err := s.repomanager.Accounts(tx).CreateIfAbsent(ctx, &models.Account{
			Username:     AdminUsername,
			PasswordHash: hash,
			Role:         models.RoleAdmin,
		})
		if err != nil {
			return err
		}
		if created && generated {
			s.log.Warn(ctx, "generated admin password, change it after first login",
				"username", AdminUsername, "password", password)
		}

		seeded = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("seed: %w", err)
	}

	if seeded {
		s.log.Info(ctx, "starter data seeded", "products", len(starterProducts), "comments", len(starterComments))
	} else {
		s.log.Info(ctx, "seed skipped, catalog not empty")
	}
	return seeded, nil
}
