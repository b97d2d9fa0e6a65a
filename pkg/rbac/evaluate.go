package rbac

import "fmt"

// Evaluate decides whether user may perform action on resource.
//
// A nil user is denied. A super_admin is allowed before any row is consulted, so a
// permission row can never restrict one. Everyone else needs a row for the resource
// with the matching capability set; a missing row denies. An action outside the
// four constants panics whoever the user is.
func Evaluate(user *AdminUser, perms PermissionSet, resource Resource, action Action) bool {
	mustBeAction(action)
	if user == nil {
		return false
	}
	if user.Role == RoleSuperAdmin {
		return true
	}
	row, ok := perms.Lookup(resource)
	if !ok {
		return false
	}
	return row.Allows(action)
}

func mustBeAction(action Action) {
	switch action {
	case ActionView, ActionCreate, ActionEdit, ActionDelete:
	default:
		panic(fmt.Sprintf("rbac: unknown action %q", action))
	}
}

// IsAdmin reports whether user holds the admin or super_admin role
func IsAdmin(user *AdminUser) bool {
	if user == nil {
		return false
	}
	return user.Role == RoleSuperAdmin || user.Role == RoleAdmin
}

// IsSuperAdmin reports whether user holds the super_admin role
func IsSuperAdmin(user *AdminUser) bool {
	return user != nil && user.Role == RoleSuperAdmin
}

// Evaluator is the read side of an authorization state
type Evaluator interface {
	HasPermission(resource Resource, action Action) bool
	IsAdmin() bool
	IsSuperAdmin() bool
}
