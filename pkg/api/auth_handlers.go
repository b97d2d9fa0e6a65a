package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/sitepanel/pkg/audit"
	"github.com/platinummonkey/sitepanel/pkg/auth"
	"github.com/platinummonkey/sitepanel/pkg/guard"
	"github.com/platinummonkey/sitepanel/pkg/httputil"
	"github.com/platinummonkey/sitepanel/pkg/middleware"
	"github.com/platinummonkey/sitepanel/pkg/observability"
	"github.com/platinummonkey/sitepanel/pkg/session"
)

// authHandlers handle sign-in and sign-out
type authHandlers struct {
	s *Server
}

func (h *authHandlers) RegisterRoutes(router *mux.Router) {
	var login http.Handler = http.HandlerFunc(h.login)
	if h.s.cfg.LoginLimiter != nil {
		login = middleware.LoginLimit(h.s.cfg.LoginLimiter)(login)
	}
	router.Handle("/auth/login", login).Methods(http.MethodPost)
	router.HandleFunc("/auth/logout", h.logout).Methods(http.MethodPost)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the session after sign-in and where the client goes next
type LoginResponse struct {
	Session  SessionView `json:"session"`
	Redirect string      `json:"redirect"`
}

// login handles POST /admin/api/auth/login
func (h *authHandlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		httputil.WriteValidationError(w, "validation failed", map[string]string{
			"credentials": "email and password are required",
		})
		return
	}

	ctx := r.Context()
	previous := session.ManagerFromContext(ctx)

	// Sign in on a fresh session id so a cookie planted before login never
	// carries the resulting identity.
	sid, err := auth.NewSessionID()
	if err != nil {
		h.s.internalError(w, r, err)
		return
	}
	m, err := h.s.deps.Sessions.Get(ctx, sid)
	if err != nil {
		h.s.internalError(w, r, err)
		return
	}
	if err := m.SignIn(ctx, req.Email, req.Password); err != nil {
		event := audit.NewEvent(ctx, r, audit.EventTypeAuthLoginFailed, audit.EventStatusFailure)
		event.Email = auth.NormalizeEmail(req.Email)
		event.ResourceType = audit.ResourceTypeSession
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			event.ErrorMessage = err.Error()
			audit.Record(ctx, event)
			h.s.internalError(w, r, err)
			return
		}
		audit.Record(ctx, event)
		httputil.WriteErrorMessage(w, http.StatusUnauthorized, auth.ErrInvalidCredentials.Error())
		return
	}

	http.SetCookie(w, h.s.cookie(sid))
	if previous != nil {
		previous.SignOut(ctx)
	}
	ctx = session.WithManager(ctx, m)

	// The sign-in put the manager into loading; wait for the admin lookup.
	snap := h.s.deps.Guard.Settle(ctx)

	event := audit.NewEvent(ctx, r, audit.EventTypeAuthLogin, audit.EventStatusSuccess)
	event.Email = auth.NormalizeEmail(req.Email)
	event.ResourceType = audit.ResourceTypeSession
	redirect := guard.LandingPath
	switch snap.Status() {
	case session.StatusAuthenticated:
		event.AdminUserID = snap.AdminUser.ID
	case session.StatusResolving:
		event.Message = "admin user lookup still pending"
	default:
		event.Status = audit.EventStatusFailure
		event.Message = "credentials valid but no active admin user"
		redirect = guard.LoginPath
	}
	audit.Record(ctx, event)

	httputil.WriteJSON(w, http.StatusOK, LoginResponse{
		Session:  newSessionView(snap),
		Redirect: redirect,
	})
}

// logout handles POST /admin/api/auth/logout
func (h *authHandlers) logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	m := session.ManagerFromContext(ctx)
	snap := m.Snapshot()
	m.SignOut(ctx)

	if snap.AdminUser != nil {
		ctx = observability.WithAdminUserID(ctx, snap.AdminUser.ID)
		event := audit.NewEvent(ctx, r, audit.EventTypeAuthLogout, audit.EventStatusSuccess)
		event.ResourceType = audit.ResourceTypeSession
		event.Email = snap.AdminUser.Email
		audit.Record(ctx, event)
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"redirect": guard.LoginPath})
}
