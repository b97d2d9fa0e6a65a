package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/sitepanel/pkg/auth"
	"github.com/platinummonkey/sitepanel/pkg/guard"
	"github.com/platinummonkey/sitepanel/pkg/httputil"
	"github.com/platinummonkey/sitepanel/pkg/rbac"
	"github.com/platinummonkey/sitepanel/pkg/session"
	"github.com/platinummonkey/sitepanel/pkg/shell"
)

// SessionView is the client-facing form of a session snapshot
type SessionView struct {
	Status       session.Status     `json:"status"`
	Identity     *auth.Identity     `json:"identity,omitempty"`
	AdminUser    *rbac.AdminUser    `json:"admin_user,omitempty"`
	Permissions  rbac.PermissionSet `json:"permissions"`
	IsAdmin      bool               `json:"is_admin"`
	IsSuperAdmin bool               `json:"is_super_admin"`
	Nav          []shell.Entry      `json:"nav"`
}

func newSessionView(snap session.Snapshot) SessionView {
	view := SessionView{
		Status:       snap.Status(),
		Permissions:  rbac.PermissionSet{},
		IsAdmin:      snap.IsAdmin(),
		IsSuperAdmin: snap.IsSuperAdmin(),
		Nav:          []shell.Entry{},
	}
	if view.Status == session.StatusResolving {
		return view
	}
	view.Identity = snap.Identity
	if view.Status == session.StatusAuthenticated {
		view.AdminUser = snap.AdminUser
		if snap.Permissions != nil {
			view.Permissions = snap.Permissions
		}
		view.Nav = shell.Entries(snap)
	}
	return view
}

// viewHandlers serve the session, navigation and view guard endpoints
type viewHandlers struct {
	s *Server
}

func (h *viewHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/session", h.session).Methods(http.MethodGet)
	router.Handle("/nav", h.s.deps.Guard.Require(guard.Authenticated)(http.HandlerFunc(h.nav))).Methods(http.MethodGet)
	router.HandleFunc("/views", h.decideView).Methods(http.MethodGet)
}

// session handles GET /admin/api/session
func (h *viewHandlers) session(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, newSessionView(h.s.deps.Guard.Settle(r.Context())))
}

// nav handles GET /admin/api/nav
func (h *viewHandlers) nav(w http.ResponseWriter, r *http.Request) {
	snap, _ := session.SnapshotFromContext(r.Context())
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"entries": shell.Entries(snap)})
}

// decideView handles GET /admin/api/views?path=
func (h *viewHandlers) decideView(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		httputil.WriteBadRequest(w, "path is required")
		return
	}
	view, ok := guard.ViewFor(path)
	if !ok {
		writeNotFound(w, "unknown view: "+path)
		return
	}

	decision := guard.DecideView(h.s.deps.Guard.Settle(r.Context()), view)
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"view":     view,
		"decision": decision,
	})
}
