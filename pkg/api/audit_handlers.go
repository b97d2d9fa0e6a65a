package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/sitepanel/pkg/audit"
	"github.com/platinummonkey/sitepanel/pkg/httputil"
)

// auditHandlers expose the audit trail to super admins
type auditHandlers struct {
	s *Server
}

func (h *auditHandlers) RegisterRoutes(router *mux.Router) {
	if h.s.deps.AuditSearch == nil {
		return
	}
	router.Handle("/audit", h.s.deps.Guard.Require(superAdminOnly)(http.HandlerFunc(h.search))).
		Methods(http.MethodGet)
}

// search handles GET /admin/api/audit
func (h *auditHandlers) search(w http.ResponseWriter, r *http.Request) {
	filter, err := parseSearchFilter(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	events, err := h.s.deps.AuditSearch.Search(r.Context(), filter)
	if err != nil {
		h.s.internalError(w, r, err)
		return
	}
	if events == nil {
		events = []*audit.AuditEvent{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

func parseSearchFilter(r *http.Request) (audit.SearchFilter, error) {
	q := r.URL.Query()
	filter := audit.SearchFilter{AdminUserID: q.Get("admin_user_id")}

	since, err := httputil.QueryTime(r, "since")
	if err != nil {
		return filter, err
	}
	if !since.IsZero() {
		filter.StartTime = &since
	}
	until, err := httputil.QueryTime(r, "until")
	if err != nil {
		return filter, err
	}
	if !until.IsZero() {
		filter.EndTime = &until
	}

	for _, t := range q["event_type"] {
		filter.EventTypes = append(filter.EventTypes, audit.EventType(t))
	}
	if s := q.Get("status"); s != "" {
		status := audit.EventStatus(s)
		filter.Status = &status
	}

	if filter.Limit, err = httputil.QueryInt(r, "limit", 100); err != nil {
		return filter, err
	}
	if filter.Offset, err = httputil.QueryInt(r, "offset", 0); err != nil {
		return filter, err
	}
	return filter, nil
}
