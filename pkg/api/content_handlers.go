package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/sitepanel/pkg/audit"
	"github.com/platinummonkey/sitepanel/pkg/content"
	"github.com/platinummonkey/sitepanel/pkg/guard"
	"github.com/platinummonkey/sitepanel/pkg/httputil"
	"github.com/platinummonkey/sitepanel/pkg/rbac"
)

// contentHandlers serve the dashboard, projects and contact messages
type contentHandlers struct {
	s *Server
}

func (h *contentHandlers) RegisterRoutes(router *mux.Router) {
	g := h.s.deps.Guard
	router.Handle("/dashboard", g.Require(guard.Authenticated)(http.HandlerFunc(h.dashboard))).
		Methods(http.MethodGet)
	router.Handle("/projects", g.Require(guard.Permission(rbac.ResourceProjects, rbac.ActionView))(h.projects(""))).
		Methods(http.MethodGet)
	router.Handle("/current-projects", g.Require(guard.Permission(rbac.ResourceCurrentProjects, rbac.ActionView))(h.projects(content.ProjectInProgress))).
		Methods(http.MethodGet)
	router.Handle("/messages", g.Require(guard.Permission(rbac.ResourceMessages, rbac.ActionView))(http.HandlerFunc(h.listMessages))).
		Methods(http.MethodGet)
	router.Handle("/messages/{id}/read", g.Require(guard.Permission(rbac.ResourceMessages, rbac.ActionEdit))(http.HandlerFunc(h.markRead))).
		Methods(http.MethodPost)
	router.Handle("/messages/{id}", g.Require(guard.Permission(rbac.ResourceMessages, rbac.ActionDelete))(http.HandlerFunc(h.deleteMessage))).
		Methods(http.MethodDelete)
}

// dashboard handles GET /admin/api/dashboard
func (h *contentHandlers) dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.s.deps.Content.Stats(r.Context())
	if err != nil {
		h.s.internalError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

// projects handles GET /admin/api/projects and /admin/api/current-projects
func (h *contentHandlers) projects(status content.ProjectStatus) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		projects, err := h.s.deps.Content.ListProjects(r.Context(), status)
		if err != nil {
			h.s.internalError(w, r, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"projects": projects})
	})
}

// listMessages handles GET /admin/api/messages
func (h *contentHandlers) listMessages(w http.ResponseWriter, r *http.Request) {
	limit, err := httputil.QueryInt(r, "limit", content.DefaultLimit)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	offset, err := httputil.QueryInt(r, "offset", 0)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	messages, err := h.s.deps.Content.ListMessages(r.Context(), content.MessageFilter{
		Status: content.MessageStatus(r.URL.Query().Get("status")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		h.s.internalError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"messages": messages})
}

// markRead handles POST /admin/api/messages/{id}/read
func (h *contentHandlers) markRead(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathString(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if err := h.s.deps.Content.MarkMessageRead(r.Context(), id); err != nil {
		h.s.writeServiceError(w, r, err, audit.ResourceTypeMessage, id)
		return
	}
	httputil.WriteNoContent(w)
}

// deleteMessage handles DELETE /admin/api/messages/{id}
func (h *contentHandlers) deleteMessage(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathString(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if err := h.s.deps.Content.DeleteMessage(r.Context(), id); err != nil {
		h.s.writeServiceError(w, r, err, audit.ResourceTypeMessage, id)
		return
	}
	httputil.WriteNoContent(w)
}
