package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/sitepanel/pkg/audit"
	"github.com/platinummonkey/sitepanel/pkg/guard"
	"github.com/platinummonkey/sitepanel/pkg/httputil"
	"github.com/platinummonkey/sitepanel/pkg/users"
)

// setupHandlers serve first-run setup
type setupHandlers struct {
	s *Server
}

func (h *setupHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/setup", h.status).Methods(http.MethodGet)
	router.HandleFunc("/setup", h.setup).Methods(http.MethodPost)
}

// status handles GET /admin/api/setup
func (h *setupHandlers) status(w http.ResponseWriter, r *http.Request) {
	needed, err := h.s.deps.Users.NeedsSetup(r.Context())
	if err != nil {
		h.s.internalError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"needs_setup": needed})
}

// setup handles POST /admin/api/setup
func (h *setupHandlers) setup(w http.ResponseWriter, r *http.Request) {
	var req users.SetupInput
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	user, err := h.s.deps.Users.Setup(r.Context(), req)
	if err != nil {
		h.s.writeServiceError(w, r, err, audit.ResourceTypeAdminUser, "")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"success":    true,
		"message":    "Admin user created successfully",
		"admin_user": user,
		"redirect":   guard.LoginPath,
	})
}
