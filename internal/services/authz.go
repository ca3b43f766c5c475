package services

import (
	"slices"

	"brainshare/internal/models"
)

type Capability string

const (
	CapMarkBestAnswer Capability = "mark_best_answer"
	CapManageRoles    Capability = "manage_roles"
	CapModeratePosts  Capability = "moderate_posts"
	CapDeleteAnyPost  Capability = "delete_any_post"
)

// Authorizer decides whether a user holds a capability.
type Authorizer interface {
	Can(user *models.User, c Capability) bool
}

// RoleAuthorizer grants capabilities by role. Admins hold everything a
// professor holds.
type RoleAuthorizer struct{}

var roleCapabilities = map[models.Role][]Capability{
	models.RoleStudent:   nil,
	models.RoleProfessor: {CapMarkBestAnswer},
	models.RoleAdmin:     {CapMarkBestAnswer, CapManageRoles, CapModeratePosts, CapDeleteAnyPost},
}

func (RoleAuthorizer) Can(user *models.User, c Capability) bool {
	if user == nil {
		return false
	}
	return slices.Contains(roleCapabilities[user.Role], c)
}

func (e *Engine) authorize(op string, user *models.User, c Capability) error {
	if !e.authz.Can(user, c) {
		return newError(op, ErrForbidden, "missing capability %s", c)
	}
	return nil
}
