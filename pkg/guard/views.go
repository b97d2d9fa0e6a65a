package guard

import (
	"strings"

	"github.com/platinummonkey/sitepanel/pkg/rbac"
	"github.com/platinummonkey/sitepanel/pkg/session"
)

// View is an admin page and what it takes to see it
type View struct {
	Path        string      `json:"path"`
	Title       string      `json:"title"`
	Public      bool        `json:"public"`
	Requirement Requirement `json:"-"`
}

var views = []View{
	{Path: LoginPath, Title: "Sign In", Public: true},
	{Path: "/admin/setup", Title: "Setup", Public: true},
	{Path: LandingPath, Title: "Dashboard", Requirement: Authenticated},
	{Path: "/admin/projects", Title: "Portfolio Projects", Requirement: Permission(rbac.ResourceProjects, rbac.ActionView)},
	{Path: "/admin/current-projects", Title: "Current Projects", Requirement: Permission(rbac.ResourceCurrentProjects, rbac.ActionView)},
	{Path: "/admin/messages", Title: "Messages", Requirement: Permission(rbac.ResourceMessages, rbac.ActionView)},
	{Path: "/admin/users", Title: "User Management", Requirement: Requirement{RequireAdmin: true}},
}

// Views returns the admin views
func Views() []View {
	out := make([]View, len(views))
	copy(out, views)
	return out
}

// ViewFor returns the view serving path. Trailing slashes are ignored.
func ViewFor(path string) (View, bool) {
	if path != "/" {
		path = strings.TrimRight(path, "/")
	}
	for _, v := range views {
		if v.Path == path {
			return v, true
		}
	}
	return View{}, false
}

// DecideView is Decide for a view. Public views are always granted.
func DecideView(snap session.Snapshot, v View) Decision {
	if v.Public {
		return Decision{State: Granted}
	}
	return Decide(snap, v.Requirement)
}
