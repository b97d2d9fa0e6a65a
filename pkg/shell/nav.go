// Package shell builds the admin panel's navigation from a session's
// authorization state.
package shell

import (
	"github.com/platinummonkey/sitepanel/pkg/rbac"
)

// Entry is one navigation link
type Entry struct {
	Label string `json:"label"`
	Path  string `json:"path"`
}

// visibility decides whether an entry is shown
type visibility func(rbac.Evaluator) bool

func always(rbac.Evaluator) bool { return true }

func can(resource rbac.Resource) visibility {
	return func(e rbac.Evaluator) bool {
		return e.HasPermission(resource, rbac.ActionView)
	}
}

func adminOnly(e rbac.Evaluator) bool { return e.IsAdmin() }

var candidates = []struct {
	Entry
	visible visibility
}{
	{Entry{"Dashboard", "/admin/dashboard"}, always},
	{Entry{"Portfolio Projects", "/admin/projects"}, can(rbac.ResourceProjects)},
	{Entry{"Current Projects", "/admin/current-projects"}, can(rbac.ResourceCurrentProjects)},
	{Entry{"Messages", "/admin/messages"}, can(rbac.ResourceMessages)},
	// Listing users only needs admin. Destructive actions on the page are
	// checked separately.
	{Entry{"User Management", "/admin/users"}, adminOnly},
	{Entry{"View Site", "/"}, always},
}

// Entries returns the visible navigation entries for e, in display order
func Entries(e rbac.Evaluator) []Entry {
	out := make([]Entry, 0, len(candidates))
	for _, c := range candidates {
		if c.visible(e) {
			out = append(out, c.Entry)
		}
	}
	return out
}
