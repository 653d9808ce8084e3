// Package policy decides whether an actor may perform an action on a target.
// Every function is pure; callers run the check before touching any state.
package policy

import (
	"storekeep/internal/apierror"
	"storekeep/internal/model"
)

// Action names an operation subject to authorization.
type Action int

const (
	ViewAdmin Action = iota
	ManageProduct
	UpdateUser
	AssignRole
	TrashUser
	TrashProduct
	ViewTrash
	RestoreUser
	RestoreProduct
	PurgeUser
	PurgeProduct
	ClearTrash
	ViewServerStats
	ManageBackups
)

var actionNames = map[Action]string{
	ViewAdmin:       "view_admin",
	ManageProduct:   "manage_product",
	UpdateUser:      "update_user",
	AssignRole:      "assign_role",
	TrashUser:       "trash_user",
	TrashProduct:    "trash_product",
	ViewTrash:       "view_trash",
	RestoreUser:     "restore_user",
	RestoreProduct:  "restore_product",
	PurgeUser:       "purge_user",
	PurgeProduct:    "purge_product",
	ClearTrash:      "clear_trash",
	ViewServerStats: "view_server_stats",
	ManageBackups:   "manage_backups",
}

func (a Action) String() string {
	if n, ok := actionNames[a]; ok {
		return n
	}
	return "unknown"
}

// Actor is the authenticated caller. The zero value is unauthenticated.
type Actor struct {
	ID   uint
	Role model.Role
}

// Authenticated reports whether the actor carries a valid identity.
func (a Actor) Authenticated() bool { return a.ID != 0 && a.Role.Valid() }

// Target describes the entity an action applies to.
// For product actions OwnerID is the product owner; for user actions ID/Role describe the user.
// NewRole is set only for AssignRole.
type Target struct {
	ID      uint
	Role    model.Role
	OwnerID uint
	NewRole model.Role
}

func (a Action) onUser() bool {
	switch a {
	case UpdateUser, AssignRole, TrashUser, RestoreUser, PurgeUser:
		return true
	}
	return false
}

func (a Action) isTrashBin() bool {
	switch a {
	case ViewTrash, RestoreUser, RestoreProduct, PurgeUser, PurgeProduct, ClearTrash:
		return true
	}
	return false
}

func (a Action) isDelete() bool {
	return a == TrashUser || a == PurgeUser
}

// Authorize returns nil when actor may perform action on target, otherwise
// apierror.ErrUnauthenticated or apierror.ErrForbidden. Rules are evaluated in
// precedence order and the first match decides.
func Authorize(actor Actor, action Action, target Target) error {
	if !actor.Authenticated() {
		return apierror.ErrUnauthenticated
	}

	switch actor.Role {
	case model.RoleUser:
		if (action == ManageProduct || action == TrashProduct) && target.OwnerID == actor.ID {
			return nil
		}
		return apierror.ErrForbidden
	case model.RoleAdmin, model.RoleSuperAdmin:
	default:
		return apierror.ErrForbidden
	}

	if action.onUser() && target.ID == actor.ID && action != RestoreUser {
		return apierror.ErrForbidden
	}

	if actor.Role == model.RoleAdmin && action.onUser() && target.Role != model.RoleUser {
		return apierror.ErrForbidden
	}

	if action == AssignRole && target.NewRole == model.RoleSuperAdmin && actor.Role != model.RoleSuperAdmin {
		return apierror.ErrForbidden
	}

	if action.isDelete() && target.Role == model.RoleSuperAdmin {
		return apierror.ErrForbidden
	}

	if action.isTrashBin() && actor.Role != model.RoleSuperAdmin {
		return apierror.ErrForbidden
	}

	if (action == ViewServerStats || action == ManageBackups) && actor.Role != model.RoleSuperAdmin {
		return apierror.ErrForbidden
	}

	return nil
}
