package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/sitepanel/pkg/audit"
	"github.com/platinummonkey/sitepanel/pkg/auth"
	"github.com/platinummonkey/sitepanel/pkg/content"
	"github.com/platinummonkey/sitepanel/pkg/guard"
	"github.com/platinummonkey/sitepanel/pkg/middleware"
	"github.com/platinummonkey/sitepanel/pkg/observability"
	"github.com/platinummonkey/sitepanel/pkg/session"
	"github.com/platinummonkey/sitepanel/pkg/users"
)

// Prefix is where the admin API is mounted
const Prefix = "/admin/api"

// AuditSearcher queries recorded audit events
type AuditSearcher interface {
	Search(ctx context.Context, filter audit.SearchFilter) ([]*audit.AuditEvent, error)
}

// Config holds the HTTP-facing settings
type Config struct {
	CookieName   string
	SecureCookie bool
	SessionTTL   time.Duration

	// LoginLimiter throttles sign-in attempts. Nil disables throttling.
	LoginLimiter middleware.Limiter

	Logger  *observability.Logger
	Metrics *observability.Metrics
}

// Deps are the services the handlers call into
type Deps struct {
	Sessions *session.Pool
	Guard    *guard.Guard
	Users    *users.Service
	Content  *content.Store

	// Audit receives events recorded during requests. Nil discards them.
	Audit audit.Logger
	// AuditSearch backs the audit trail endpoint. Nil leaves it unregistered.
	AuditSearch AuditSearcher
}

// Server represents the admin API server
type Server struct {
	cfg    Config
	deps   Deps
	router *mux.Router
	logger *observability.Logger
}

// NewServer creates the API server and registers every route
func NewServer(cfg Config, deps Deps) *Server {
	if cfg.Logger == nil {
		cfg.Logger = observability.NopLogger()
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "sitepanel_session"
	}
	if deps.Guard == nil {
		deps.Guard = guard.New(0, cfg.Metrics)
	}
	if deps.Audit == nil {
		deps.Audit = audit.NopLogger()
	}

	s := &Server{
		cfg:    cfg,
		deps:   deps,
		router: mux.NewRouter(),
		logger: cfg.Logger.WithField("component", "api"),
	}
	s.setupRoutes()
	return s
}

// RouteRegistrar is implemented by handler groups
type RouteRegistrar interface {
	RegisterRoutes(router *mux.Router)
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	s.router.Use(observability.HTTPMetricsMiddleware(s.cfg.Metrics))

	api := s.router.PathPrefix(Prefix).Subrouter()
	api.Use(s.sessionCookie)

	for _, registrar := range []RouteRegistrar{
		&setupHandlers{s},
		&authHandlers{s},
		&viewHandlers{s},
		&contentHandlers{s},
		&userHandlers{s},
		&auditHandlers{s},
	} {
		registrar.RegisterRoutes(api)
	}

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeNotFound(w, "not found")
	})
}

// Handler returns the router wrapped in the request-scoped middleware:
// tracing, panic recovery, request IDs, access logs and the audit sink.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.router
	h = s.withAudit(h)
	h = middleware.AccessLog(h)
	h = middleware.RequestID(s.cfg.Logger)(h)
	h = observability.RecoveryMiddleware(s.cfg.Logger)(h)
	return otelhttp.NewHandler(h, "sitepanel.admin")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) withAudit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(audit.WithLogger(r.Context(), s.deps.Audit)))
	})
}

// sessionCookie binds the request to its browser session's manager,
// issuing a new session id when the cookie is missing or malformed
func (s *Server) sessionCookie(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := ""
		if c, err := r.Cookie(s.cfg.CookieName); err == nil && auth.ValidateSessionID(c.Value) == nil {
			sid = c.Value
		}
		if sid == "" {
			var err error
			sid, err = auth.NewSessionID()
			if err != nil {
				s.internalError(w, r, err)
				return
			}
			http.SetCookie(w, s.cookie(sid))
		}

		m, err := s.deps.Sessions.Get(r.Context(), sid)
		if err != nil {
			s.internalError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(session.WithManager(r.Context(), m)))
	})
}

func (s *Server) cookie(sid string) *http.Cookie {
	c := &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    sid,
		Path:     "/admin",
		HttpOnly: true,
		Secure:   s.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	}
	if s.cfg.SessionTTL > 0 {
		c.MaxAge = int(s.cfg.SessionTTL.Seconds())
	}
	return c
}
