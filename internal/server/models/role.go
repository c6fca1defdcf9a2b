// Package models defines server-side data models persisted in the database.
package models

import (
	"fmt"

	"github.com/dmitrijs2005/typicaltools/internal/common"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleGuest Role = "GUEST"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleGuest:
		return true
	}
	return false
}

// Elevated reports whether r bypasses moderation windows and may manage
// the catalog and warranty files.
func (r Role) Elevated() bool {
	return r == RoleAdmin
}

func (r Role) String() string { return string(r) }

// ParseRole converts a stored or user-supplied value into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: unknown role %q", common.ErrValidation, s)
	}
	return r, nil
}
