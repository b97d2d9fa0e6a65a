package rbac

import (
	"fmt"
	"time"
)

// Role is the privilege tier of an admin user
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleEditor     Role = "editor"
	RoleViewer     Role = "viewer"
)

// Roles returns every role, most privileged first
func Roles() []Role {
	return []Role{RoleSuperAdmin, RoleAdmin, RoleEditor, RoleViewer}
}

// Rank orders roles by privilege. Unknown roles rank below viewer.
func (r Role) Rank() int {
	switch r {
	case RoleSuperAdmin:
		return 4
	case RoleAdmin:
		return 3
	case RoleEditor:
		return 2
	case RoleViewer:
		return 1
	default:
		return 0
	}
}

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	return r.Rank() > 0
}

// ParseRole converts a string into a Role
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role: %q", s)
	}
	return r, nil
}

// Resource is an administrative domain subject to permission checks
type Resource string

const (
	ResourceProjects        Resource = "projects"
	ResourceCurrentProjects Resource = "current_projects"
	ResourceMessages        Resource = "messages"
	ResourceUsers           Resource = "users"
	ResourceSettings        Resource = "settings"
)

// Resources returns every known resource in display order
func Resources() []Resource {
	return []Resource{
		ResourceProjects,
		ResourceCurrentProjects,
		ResourceMessages,
		ResourceUsers,
		ResourceSettings,
	}
}

// Valid reports whether r is one of the known resources
func (r Resource) Valid() bool {
	for _, known := range Resources() {
		if r == known {
			return true
		}
	}
	return false
}

// ParseResource converts a string into a Resource
func ParseResource(s string) (Resource, error) {
	r := Resource(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown resource: %q", s)
	}
	return r, nil
}

// Action is one of the four capabilities a permission row grants
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

// Actions returns the four actions
func Actions() []Action {
	return []Action{ActionView, ActionCreate, ActionEdit, ActionDelete}
}

// ParseAction converts untrusted input into an Action. Use it at the edges so that
// Permission.Allows never sees an unknown value.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionView, ActionCreate, ActionEdit, ActionDelete:
		return a, nil
	default:
		return "", fmt.Errorf("unknown action: %q", s)
	}
}

// Check names a single (resource, action) requirement
type Check struct {
	Resource Resource `json:"resource" yaml:"resource"`
	Action   Action   `json:"action" yaml:"action"`
}

// String returns the "resource:action" form
func (c Check) String() string {
	return string(c.Resource) + ":" + string(c.Action)
}

// AdminUser is a staff account linked to an authentication identity
type AdminUser struct {
	ID          string     `json:"id"`
	IdentityID  *string    `json:"auth_user_id,omitempty"`
	Email       string     `json:"email"`
	FullName    string     `json:"full_name"`
	Role        Role       `json:"role"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login,omitempty"`
}

// Permission is the grant row for one (admin user, resource) pair
type Permission struct {
	AdminUserID string   `json:"user_id"`
	Resource    Resource `json:"resource"`
	CanView     bool     `json:"can_view"`
	CanCreate   bool     `json:"can_create"`
	CanEdit     bool     `json:"can_edit"`
	CanDelete   bool     `json:"can_delete"`
}

// Allows returns the capability flag for action. It panics on a value outside the
// four Action constants.
func (p Permission) Allows(action Action) bool {
	switch action {
	case ActionView:
		return p.CanView
	case ActionCreate:
		return p.CanCreate
	case ActionEdit:
		return p.CanEdit
	case ActionDelete:
		return p.CanDelete
	default:
		panic(fmt.Sprintf("rbac: unknown action %q", action))
	}
}

// Empty reports whether the row grants nothing
func (p Permission) Empty() bool {
	return !p.CanView && !p.CanCreate && !p.CanEdit && !p.CanDelete
}

// PermissionSet holds the grant rows of one admin user
type PermissionSet []Permission

// Lookup returns the row for resource, if any
func (s PermissionSet) Lookup(resource Resource) (Permission, bool) {
	for _, p := range s {
		if p.Resource == resource {
			return p, true
		}
	}
	return Permission{}, false
}

// Clone returns a copy that shares no backing array with s
func (s PermissionSet) Clone() PermissionSet {
	if s == nil {
		return nil
	}
	out := make(PermissionSet, len(s))
	copy(out, s)
	return out
}
