package service

import "github.com/iliyamo/parking-reservation/internal/model"

// Actor is the authenticated caller of an operation.  It is built per
// request from the access token and passed explicitly.
type Actor struct {
	UserID uint64
	Role   model.Role
}

// IsAdmin reports whether the actor may run administrative operations.
func (a Actor) IsAdmin() bool { return a.Role == model.RoleAdmin }

func (a Actor) requireAdmin() error {
	if !a.IsAdmin() {
		return ErrForbidden
	}
	return nil
}
