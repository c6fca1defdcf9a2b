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
	"github.com/microcosm-cc/bluemonday"
)

// MaxCommentLength bounds the submitted text, before sanitizing.
const MaxCommentLength = 2000

// CommentService handles product comments. Text is sanitized once on every
// create and edit; stored text is never re-sanitized on read.
type CommentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	policy      *policy.Policy
	clock       clock.Clock
	sanitizer   *bluemonday.Policy
	log         logging.Logger
}

func NewCommentService(db *sql.DB, m repomanager.RepositoryManager, p *policy.Policy, clk clock.Clock, log logging.Logger) *CommentService {
	return &CommentService{
		db:          db,
		repomanager: m,
		policy:      p,
		clock:       clk,
		sanitizer:   bluemonday.StrictPolicy(),
		log:         log.With("module", "comments"),
	}
}

// ListByProduct returns common.ErrorNotFound when the product does not exist.
func (s *CommentService) ListByProduct(ctx context.Context, productID int64) ([]*models.Comment, error) {
	if _, err := s.repomanager.Products(s.db).GetByID(ctx, productID); err != nil {
		return nil, err
	}
	return s.repomanager.Comments(s.db).ListByProduct(ctx, productID)
}

func (s *CommentService) ListAll(ctx context.Context) ([]*models.Comment, error) {
	return s.repomanager.Comments(s.db).ListAll(ctx)
}

func (s *CommentService) Get(ctx context.Context, id int64) (*models.Comment, error) {
	return s.repomanager.Comments(s.db).GetByID(ctx, id)
}

// Create attaches a comment to an existing product, stamped with the
// actor's session and the current time.
func (s *CommentService) Create(ctx context.Context, actor policy.Actor, productID int64, text string) (*models.Comment, error) {
	clean, err := s.clean(text)
	if err != nil {
		return nil, err
	}

	if _, err := s.repomanager.Products(s.db).GetByID(ctx, productID); err != nil {
		return nil, err
	}

	c, err := s.repomanager.Comments(s.db).Create(ctx, &models.Comment{
		ProductID: productID,
		Text:      clean,
		CreatedAt: s.clock.Now().UTC(),
		SessionID: actor.SessionID,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "comment created", "id", c.ID, "product_id", productID)
	return c, nil
}

// CheckModifiable loads the comment and asks the policy. The comment is
// returned even when the answer is no, so callers can redirect to its product.
func (s *CommentService) CheckModifiable(ctx context.Context, actor policy.Actor, id int64, action policy.Action) (*models.Comment, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return c, s.policy.Authorize(actor, action, c)
}

// Edit replaces the text; id, product and session stay as they were.
func (s *CommentService) Edit(ctx context.Context, actor policy.Actor, id int64, text string) (*models.Comment, error) {
	c, err := s.CheckModifiable(ctx, actor, id, policy.EditComment)
	if err != nil {
		return c, err
	}

	clean, err := s.clean(text)
	if err != nil {
		return c, err
	}

	if err := s.repomanager.Comments(s.db).UpdateText(ctx, id, clean); err != nil {
		return c, err
	}
	c.Text = clean

	s.log.Info(ctx, "comment edited", "id", id, "elevated", actor.Elevated())
	return c, nil
}

// Delete removes the comment and returns it for the redirect target.
func (s *CommentService) Delete(ctx context.Context, actor policy.Actor, id int64) (*models.Comment, error) {
	c, err := s.CheckModifiable(ctx, actor, id, policy.DeleteComment)
	if err != nil {
		return c, err
	}

	if err := s.repomanager.Comments(s.db).Delete(ctx, id); err != nil {
		return c, err
	}

	s.log.Info(ctx, "comment deleted", "id", id, "elevated", actor.Elevated())
	return c, nil
}

// CanModify is for templates deciding whether to show edit/delete links.
func (s *CommentService) CanModify(actor policy.Actor, c *models.Comment) bool {
	return s.policy.Allowed(actor, policy.EditComment, c)
}

// Deadline reports when the author loses edit rights on c.
func (s *CommentService) Deadline(c *models.Comment) string {
	return s.policy.Deadline(c).Format("15:04:05")
}

func (s *CommentService) clean(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: comment text is required", common.ErrValidation)
	}
	if len(text) > MaxCommentLength {
		return "", fmt.Errorf("%w: comment text is longer than %d characters", common.ErrValidation, MaxCommentLength)
	}

	clean := strings.TrimSpace(s.sanitizer.Sanitize(text))
	if clean == "" {
		return "", fmt.Errorf("%w: comment text is empty once markup is removed", common.ErrValidation)
	}
	return clean, nil
}
