package web

import (
	"errors"
	"fmt"
	"html"
	"net/http"

	"github.com/dmitrijs2005/typicaltools/internal/common"
	"github.com/dmitrijs2005/typicaltools/internal/server/models"
	"github.com/dmitrijs2005/typicaltools/internal/server/policy"
)

const (
	msgEditExpired     = "Sorry, you can no longer EDIT this comment. The allowed time has expired."
	msgDeleteExpired   = "Sorry, you can no longer DELETE this comment. The allowed time has expired."
	msgCommentNotFound = "That comment no longer exists."
)

type commentView struct {
	*models.Comment
	CanModify bool
	Deadline  string
}

type commentList struct {
	Product  *models.Product
	Comments []commentView
}

type commentForm struct {
	Product *models.Product
	Comment *models.Comment
	Text    string
}

func (s *Server) commentViews(actor policy.Actor, comments []*models.Comment) []commentView {
	out := make([]commentView, 0, len(comments))
	for _, c := range comments {
		v := commentView{Comment: c, CanModify: s.comments.CanModify(actor, c)}
		if v.CanModify && !actor.Elevated() {
			v.Deadline = s.comments.Deadline(c)
		}
		out = append(out, v)
	}
	return out
}

func commentsURL(productID int64) string {
	return fmt.Sprintf("/products/%d/comments", productID)
}

func (s *Server) listProductComments(w http.ResponseWriter, r *http.Request) {
	p, ok := s.loadProduct(w, r)
	if !ok {
		return
	}

	comments, err := s.comments.ListByProduct(r.Context(), p.ID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.redirectWithFlash(w, r, defaultRedirect, msgProductNotFound)
			return
		}
		s.serverError(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, "comments", page{
		Title: "Comments on " + p.Name,
		Data:  commentList{Product: p, Comments: s.commentViews(actorFrom(r.Context()), comments)},
	})
}

func (s *Server) listAllComments(w http.ResponseWriter, r *http.Request) {
	comments, err := s.comments.ListAll(r.Context())
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "comments_all", page{
		Title: "All comments",
		Data:  commentList{Comments: s.commentViews(actorFrom(r.Context()), comments)},
	})
}

func (s *Server) newCommentForm(w http.ResponseWriter, r *http.Request) {
	p, ok := s.loadProduct(w, r)
	if !ok {
		return
	}
	s.render(w, r, http.StatusOK, "comment_new", page{Title: "New comment", Data: commentForm{Product: p}})
}

func (s *Server) createComment(w http.ResponseWriter, r *http.Request) {
	p, ok := s.loadProduct(w, r)
	if !ok {
		return
	}

	text := r.PostFormValue("text")
	_, err := s.comments.Create(r.Context(), actorFrom(r.Context()), p.ID, text)
	switch {
	case err == nil:
		s.redirectWithFlash(w, r, commentsURL(p.ID), "Thanks for your comment.")
	case errors.Is(err, common.ErrValidation):
		s.render(w, r, http.StatusUnprocessableEntity, "comment_new",
			page{Title: "New comment", Error: validationMessage(err), Data: commentForm{Product: p, Text: text}})
	case errors.Is(err, common.ErrorNotFound):
		s.redirectWithFlash(w, r, defaultRedirect, msgProductNotFound)
	default:
		s.serverError(w, r, err)
	}
}

// modifiable loads comment {id} for an edit or delete page. Denials are a
// normal outcome: the visitor goes back to the product's comments with
// the expiry banner.
func (s *Server) modifiable(w http.ResponseWriter, r *http.Request, action policy.Action) (*models.Comment, bool) {
	id, ok := pathID(r)
	if !ok {
		s.redirectWithFlash(w, r, "/comments", msgCommentNotFound)
		return nil, false
	}

	c, err := s.comments.CheckModifiable(r.Context(), actorFrom(r.Context()), id, action)
	if err != nil {
		s.commentFailure(w, r, action, c, err)
		return nil, false
	}
	return c, true
}

func (s *Server) commentFailure(w http.ResponseWriter, r *http.Request, action policy.Action, c *models.Comment, err error) {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		s.redirectWithFlash(w, r, "/comments", msgCommentNotFound)
	case errors.Is(err, common.ErrModerationExpired), errors.Is(err, common.ErrForbidden):
		s.metrics.ModerationDenied.WithLabelValues(action.String()).Inc()
		target := "/comments"
		if c != nil {
			target = commentsURL(c.ProductID)
		}
		msg := msgEditExpired
		if action == policy.DeleteComment {
			msg = msgDeleteExpired
		}
		s.redirectWithFlash(w, r, target, msg)
	default:
		s.serverError(w, r, err)
	}
}

func (s *Server) editCommentForm(w http.ResponseWriter, r *http.Request) {
	c, ok := s.modifiable(w, r, policy.EditComment)
	if !ok {
		return
	}
	s.render(w, r, http.StatusOK, "comment_edit", page{
		Title: "Edit comment",
		Data:  commentForm{Comment: c, Text: html.UnescapeString(c.Text)},
	})
}

func (s *Server) editComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.redirectWithFlash(w, r, "/comments", msgCommentNotFound)
		return
	}

	text := r.PostFormValue("text")
	c, err := s.comments.Edit(r.Context(), actorFrom(r.Context()), id, text)
	switch {
	case err == nil:
		s.redirectWithFlash(w, r, commentsURL(c.ProductID), "Comment updated.")
	case errors.Is(err, common.ErrValidation):
		s.render(w, r, http.StatusUnprocessableEntity, "comment_edit",
			page{Title: "Edit comment", Error: validationMessage(err), Data: commentForm{Comment: c, Text: text}})
	default:
		s.commentFailure(w, r, policy.EditComment, c, err)
	}
}

func (s *Server) deleteCommentConfirm(w http.ResponseWriter, r *http.Request) {
	c, ok := s.modifiable(w, r, policy.DeleteComment)
	if !ok {
		return
	}
	s.render(w, r, http.StatusOK, "comment_delete", page{Title: "Delete comment", Data: commentForm{Comment: c}})
}

func (s *Server) deleteComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.redirectWithFlash(w, r, "/comments", msgCommentNotFound)
		return
	}

	c, err := s.comments.Delete(r.Context(), actorFrom(r.Context()), id)
	if err != nil {
		s.commentFailure(w, r, policy.DeleteComment, c, err)
		return
	}
	s.redirectWithFlash(w, r, commentsURL(c.ProductID), "Comment deleted.")
}
