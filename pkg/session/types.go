package session

import (
	"context"
	"time"

	"github.com/platinummonkey/sitepanel/pkg/auth"
	"github.com/platinummonkey/sitepanel/pkg/rbac"
)

// Provider is the identity side of a browser session: who is signed in,
// notification when that changes, and credential sign-in and sign-out.
type Provider interface {
	CurrentIdentity(ctx context.Context) (*auth.Identity, error)
	Subscribe(fn func(auth.Event)) auth.Subscription
	SignIn(ctx context.Context, email, password string) error
	SignOut(ctx context.Context) error
}

// Directory is the read path of the admin directory used during resolution
type Directory interface {
	// FindActiveAdminUser returns nil without error when no active admin
	// user is linked to identityID.
	FindActiveAdminUser(ctx context.Context, identityID string) (*rbac.AdminUser, error)
	ListPermissions(ctx context.Context, adminUserID string) (rbac.PermissionSet, error)
	TouchLastLogin(ctx context.Context, adminUserID string, at time.Time) error
}

// Status is the tri-state derived from a Snapshot
type Status string

const (
	StatusResolving       Status = "resolving"
	StatusAuthenticated   Status = "authenticated"
	StatusUnauthenticated Status = "unauthenticated"
)

// Snapshot is an immutable view of a session. Callers must not modify the
// AdminUser or Permissions it points at.
type Snapshot struct {
	Identity    *auth.Identity
	AdminUser   *rbac.AdminUser
	Permissions rbac.PermissionSet
	Loading     bool
}

// Status derives the tri-state. An identity without an active admin user is
// unauthenticated for the admin panel.
func (s Snapshot) Status() Status {
	switch {
	case s.Loading:
		return StatusResolving
	case s.Identity != nil && s.AdminUser != nil && s.AdminUser.IsActive:
		return StatusAuthenticated
	default:
		return StatusUnauthenticated
	}
}

// HasPermission evaluates resource and action against the snapshot.
// Authorization is undecidable while loading, so it is denied.
func (s Snapshot) HasPermission(resource rbac.Resource, action rbac.Action) bool {
	allowed := rbac.Evaluate(s.AdminUser, s.Permissions, resource, action)
	return allowed && !s.Loading
}

// IsAdmin reports whether the resolved admin user is an admin or super admin
func (s Snapshot) IsAdmin() bool {
	return !s.Loading && rbac.IsAdmin(s.AdminUser)
}

// IsSuperAdmin reports whether the resolved admin user is a super admin
func (s Snapshot) IsSuperAdmin() bool {
	return !s.Loading && rbac.IsSuperAdmin(s.AdminUser)
}

var _ rbac.Evaluator = Snapshot{}
