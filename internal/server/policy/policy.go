// Package policy is the single place that decides whether an actor may
// perform a privileged action: catalog and file management, and editing or
// deleting a comment.
//
// Elevated actors may do everything. Anyone else may only edit or delete a
// comment written from their own anonymous session, and only until the
// moderation window after the comment's creation closes.
package policy

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/typicaltools/internal/clock"
	"github.com/dmitrijs2005/typicaltools/internal/common"
	"github.com/dmitrijs2005/typicaltools/internal/server/models"
)

// Action enumerates the privileged operations.
type Action int

const (
	ManageCatalog Action = iota + 1
	ManageFiles
	EditComment
	DeleteComment
)

func (a Action) String() string {
	switch a {
	case ManageCatalog:
		return "manage-catalog"
	case ManageFiles:
		return "manage-files"
	case EditComment:
		return "edit-comment"
	case DeleteComment:
		return "delete-comment"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Actor is whoever is making the request. Anonymous visitors have an empty
// Username and Role but usually a SessionID.
type Actor struct {
	Username  string
	Role      models.Role
	SessionID string
}

// Elevated reports whether the actor holds the admin role.
func (a Actor) Elevated() bool {
	return a.Role.Elevated()
}

// Authenticated reports whether the actor signed in.
func (a Actor) Authenticated() bool {
	return a.Username != ""
}

// DefaultWindow is how long an author keeps edit and delete rights.
const DefaultWindow = 10 * time.Minute

// Policy holds the moderation window. The window end is inclusive
// (now == createdAt+Window is still allowed) unless Exclusive is set.
type Policy struct {
	Window    time.Duration
	Exclusive bool
	Clock     clock.Clock
}

// New returns an inclusive policy. A zero window falls back to DefaultWindow.
func New(window time.Duration, clk clock.Clock) *Policy {
	if window <= 0 {
		window = DefaultWindow
	}
	if clk == nil {
		clk = clock.NewRealClock()
	}
	return &Policy{Window: window, Clock: clk}
}

// Authorize returns nil when actor may perform action.
//
// Role failures return common.ErrForbidden. Comment actions refused because
// of a session mismatch or an elapsed window return common.ErrModerationExpired.
func (p *Policy) Authorize(actor Actor, action Action, comment *models.Comment) error {
	if actor.Elevated() {
		return nil
	}

	switch action {
	case EditComment, DeleteComment:
		if comment == nil {
			return fmt.Errorf("%w: %s without a comment", common.ErrForbidden, action)
		}
		if !p.ownsComment(actor, comment) {
			return fmt.Errorf("%w: comment %d is not from this session", common.ErrModerationExpired, comment.ID)
		}
		if !p.withinWindow(comment) {
			return fmt.Errorf("%w: comment %d closed at %s", common.ErrModerationExpired, comment.ID,
				p.Deadline(comment).Format(time.RFC3339))
		}
		return nil
	default:
		return fmt.Errorf("%w: %s requires %s", common.ErrForbidden, action, models.RoleAdmin)
	}
}

// Allowed is Authorize reduced to a boolean, for templates.
func (p *Policy) Allowed(actor Actor, action Action, comment *models.Comment) bool {
	return p.Authorize(actor, action, comment) == nil
}

// Deadline is the last instant the author may still modify the comment.
func (p *Policy) Deadline(comment *models.Comment) time.Time {
	return comment.CreatedAt.Add(p.Window)
}

func (p *Policy) ownsComment(actor Actor, comment *models.Comment) bool {
	return actor.SessionID != "" && comment.SessionID == actor.SessionID
}

func (p *Policy) withinWindow(comment *models.Comment) bool {
	now, deadline := p.Clock.Now(), p.Deadline(comment)
	if p.Exclusive {
		return now.Before(deadline)
	}
	return !now.After(deadline)
}
