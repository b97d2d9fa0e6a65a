package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/sitepanel/pkg/audit"
	"github.com/platinummonkey/sitepanel/pkg/guard"
	"github.com/platinummonkey/sitepanel/pkg/httputil"
	"github.com/platinummonkey/sitepanel/pkg/rbac"
	"github.com/platinummonkey/sitepanel/pkg/session"
	"github.com/platinummonkey/sitepanel/pkg/users"
)

var (
	adminOnly      = guard.Requirement{RequireAdmin: true}
	superAdminOnly = guard.Requirement{RequireSuperAdmin: true}
)

// userHandlers serve admin user management
type userHandlers struct {
	s *Server
}

func (h *userHandlers) RegisterRoutes(router *mux.Router) {
	g := h.s.deps.Guard
	router.Handle("/users", g.Require(adminOnly)(http.HandlerFunc(h.list))).
		Methods(http.MethodGet)
	router.Handle("/users", g.Require(adminOnly.And(guard.Permission(rbac.ResourceUsers, rbac.ActionCreate)))(http.HandlerFunc(h.create))).
		Methods(http.MethodPost)
	router.Handle("/users/{id}", g.Require(adminOnly)(http.HandlerFunc(h.get))).
		Methods(http.MethodGet)
	router.Handle("/users/{id}", g.Require(superAdminOnly)(http.HandlerFunc(h.delete))).
		Methods(http.MethodDelete)
	router.Handle("/users/{id}/active", g.Require(adminOnly.And(guard.Permission(rbac.ResourceUsers, rbac.ActionEdit)))(http.HandlerFunc(h.setActive))).
		Methods(http.MethodPost)
	router.Handle("/users/{id}/permissions", g.Require(superAdminOnly)(http.HandlerFunc(h.updatePermissions))).
		Methods(http.MethodPut)
	router.Handle("/templates", g.Require(adminOnly)(http.HandlerFunc(h.templates))).
		Methods(http.MethodGet)
}

// actor is the snapshot the guard authorized this request against
func actor(r *http.Request) session.Snapshot {
	snap, _ := session.SnapshotFromContext(r.Context())
	return snap
}

// list handles GET /admin/api/users
func (h *userHandlers) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.s.deps.Users.List(r.Context())
	if err != nil {
		h.s.internalError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"users": list})
}

// get handles GET /admin/api/users/{id}
func (h *userHandlers) get(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathString(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	detail, err := h.s.deps.Users.Get(r.Context(), id)
	if err != nil {
		h.s.writeServiceError(w, r, err, audit.ResourceTypeAdminUser, id)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, detail)
}

// create handles POST /admin/api/users
func (h *userHandlers) create(w http.ResponseWriter, r *http.Request) {
	var req users.CreateUserInput
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	detail, err := h.s.deps.Users.Create(r.Context(), actor(r), req)
	if err != nil {
		h.s.writeServiceError(w, r, err, audit.ResourceTypeAdminUser, "")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, detail)
}

type setActiveRequest struct {
	Active *bool `json:"active"`
}

// setActive handles POST /admin/api/users/{id}/active
func (h *userHandlers) setActive(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathString(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	var req setActiveRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Active == nil {
		httputil.WriteValidationError(w, "validation failed", map[string]string{"active": "is required"})
		return
	}

	user, err := h.s.deps.Users.SetActive(r.Context(), actor(r), id, *req.Active)
	if err != nil {
		h.s.writeServiceError(w, r, err, audit.ResourceTypeAdminUser, id)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

type permissionsRequest struct {
	Permissions rbac.Template `json:"permissions"`
}

// updatePermissions handles PUT /admin/api/users/{id}/permissions
func (h *userHandlers) updatePermissions(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathString(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	var req permissionsRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Permissions == nil {
		req.Permissions = rbac.Template{}
	}

	rows, err := h.s.deps.Users.UpdatePermissions(r.Context(), actor(r), id, req.Permissions)
	if err != nil {
		h.s.writeServiceError(w, r, err, audit.ResourceTypePermission, id)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"permissions": rows})
}

// delete handles DELETE /admin/api/users/{id}
func (h *userHandlers) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathString(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if err := h.s.deps.Users.Delete(r.Context(), actor(r), id); err != nil {
		h.s.writeServiceError(w, r, err, audit.ResourceTypeAdminUser, id)
		return
	}
	httputil.WriteNoContent(w)
}

// templates handles GET /admin/api/templates
func (h *userHandlers) templates(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"templates": h.s.deps.Users.Templates()})
}
