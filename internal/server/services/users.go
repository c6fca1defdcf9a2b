// Package services contains server-side business logic: accounts, the
// product catalog, product comments and starter data.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/typicaltools/internal/common"
	"github.com/dmitrijs2005/typicaltools/internal/logging"
	"github.com/dmitrijs2005/typicaltools/internal/server/auth"
	"github.com/dmitrijs2005/typicaltools/internal/server/config"
	"github.com/dmitrijs2005/typicaltools/internal/server/models"
	"github.com/dmitrijs2005/typicaltools/internal/server/repositories/repomanager"
)

// UserService verifies credentials, creates accounts and signs the staff
// session token.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	jwtSecret   []byte
	authTTL     time.Duration
	log         logging.Logger
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, log logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		jwtSecret:   []byte(cfg.SecretKey),
		authTTL:     cfg.AuthTTL,
		log:         log.With("module", "users"),
	}
}

// Authenticate looks the username up exactly (case-sensitive) and checks
// the password. Unknown users and wrong passwords both return
// common.ErrorUnauthorized after a comparable amount of hashing work.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.Account, error) {
	repo := s.repomanager.Accounts(s.db)

	account, err := repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			auth.SpendCheckTime(password)
			return nil, common.ErrorUnauthorized
		}
		return nil, err
	}

	if !auth.CheckPassword(password, account.PasswordHash) {
		return nil, common.ErrorUnauthorized
	}

	s.log.Info(ctx, "login", "username", account.Username, "role", account.Role)
	return account, nil
}

// Register creates a GUEST account. A taken username is common.ErrUsernameTaken,
// whether the pre-check or the unique constraint catches it.
func (s *UserService) Register(ctx context.Context, username, password string) (*models.Account, error) {
	return s.CreateAccount(ctx, username, password, models.RoleGuest)
}

// CreateAccount creates an account with an explicit role.
func (s *UserService) CreateAccount(ctx context.Context, username, password string, role models.Role) (*models.Account, error) {
	if strings.TrimSpace(username) == "" {
		return nil, fmt.Errorf("%w: username is required", common.ErrValidation)
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", common.ErrValidation)
	}
	if len(password) > auth.MaxPasswordBytes {
		return nil, fmt.Errorf("%w: password is longer than %d bytes", common.ErrValidation, auth.MaxPasswordBytes)
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", common.ErrValidation, role)
	}

	repo := s.repomanager.Accounts(s.db)

	if _, err := repo.GetByUsername(ctx, username); err == nil {
		return nil, common.ErrUsernameTaken
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account, err := repo.Create(ctx, &models.Account{Username: username, PasswordHash: hash, Role: role})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "account created", "username", account.Username, "role", account.Role)
	return account, nil
}

// IssueSession signs the staff session token for account.
func (s *UserService) IssueSession(account *models.Account) (string, error) {
	return auth.GenerateToken(account.Username, account.Role, s.jwtSecret, s.authTTL)
}

// VerifySession parses a staff session token.
func (s *UserService) VerifySession(token string) (*auth.Claims, error) {
	return auth.ParseToken(token, s.jwtSecret)
}

// RenewSession re-signs claims with a fresh lifetime (sliding expiry).
func (s *UserService) RenewSession(claims *auth.Claims) (string, error) {
	return auth.GenerateToken(claims.Username, claims.Role, s.jwtSecret, s.authTTL)
}

// SessionTTL is the lifetime of a freshly issued staff token.
func (s *UserService) SessionTTL() time.Duration { return s.authTTL }
