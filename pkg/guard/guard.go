package guard

import (
	"github.com/platinummonkey/sitepanel/pkg/rbac"
	"github.com/platinummonkey/sitepanel/pkg/session"
)

// State is the outcome of guarding a view
type State string

const (
	Pending               State = "pending"
	DeniedUnauthenticated State = "denied_unauthenticated"
	DeniedForbidden       State = "denied_forbidden"
	Granted               State = "granted"
)

const (
	// LoginPath is where unauthenticated visitors are sent
	LoginPath = "/admin/login"
	// LandingPath is where authenticated but unauthorized admins are sent
	LandingPath = "/admin/dashboard"
)

// Requirement declares what a view needs. All set fields must hold.
type Requirement struct {
	RequireSuperAdmin bool
	RequireAdmin      bool
	Permissions       []rbac.Check
}

// Authenticated requires only a resolved, active admin user
var Authenticated = Requirement{}

// Permission requires one (resource, action) grant
func Permission(resource rbac.Resource, action rbac.Action) Requirement {
	return Requirement{Permissions: []rbac.Check{{Resource: resource, Action: action}}}
}

// And combines two requirements; the result holds only when both do
func (r Requirement) And(other Requirement) Requirement {
	perms := make([]rbac.Check, 0, len(r.Permissions)+len(other.Permissions))
	perms = append(perms, r.Permissions...)
	perms = append(perms, other.Permissions...)
	return Requirement{
		RequireSuperAdmin: r.RequireSuperAdmin || other.RequireSuperAdmin,
		RequireAdmin:      r.RequireAdmin || other.RequireAdmin,
		Permissions:       perms,
	}
}

// Decision is a guard state plus where to send the visitor when denied
type Decision struct {
	State    State  `json:"state"`
	Redirect string `json:"redirect,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Decide evaluates req against snap. The first failing step wins:
// loading, authentication, super admin, admin, permission.
func Decide(snap session.Snapshot, req Requirement) Decision {
	if snap.Loading {
		return Decision{State: Pending}
	}
	if snap.Identity == nil || snap.AdminUser == nil || !snap.AdminUser.IsActive {
		return Decision{State: DeniedUnauthenticated, Redirect: LoginPath, Reason: "no active admin user"}
	}
	if req.RequireSuperAdmin && !snap.IsSuperAdmin() {
		return forbidden("requires super admin")
	}
	if req.RequireAdmin && !snap.IsAdmin() {
		return forbidden("requires admin")
	}
	for _, check := range req.Permissions {
		if !snap.HasPermission(check.Resource, check.Action) {
			return forbidden("requires " + check.String())
		}
	}
	return Decision{State: Granted}
}

func forbidden(reason string) Decision {
	return Decision{State: DeniedForbidden, Redirect: LandingPath, Reason: reason}
}
