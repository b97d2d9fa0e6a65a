package guard

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/platinummonkey/sitepanel/pkg/audit"
	"github.com/platinummonkey/sitepanel/pkg/httputil"
	"github.com/platinummonkey/sitepanel/pkg/observability"
	"github.com/platinummonkey/sitepanel/pkg/session"
)

// DefaultWait bounds how long a request waits for a pending resolution
const DefaultWait = 3 * time.Second

// Guard turns decisions into HTTP responses
type Guard struct {
	wait    time.Duration
	metrics *observability.Metrics
}

// New creates a Guard. A non-positive wait uses DefaultWait. metrics may be nil.
func New(wait time.Duration, metrics *observability.Metrics) *Guard {
	if wait <= 0 {
		wait = DefaultWait
	}
	return &Guard{wait: wait, metrics: metrics}
}

// Evaluate decides req for the request's session. A loading session is
// waited on for at most the configured bound; if it is still loading the
// decision stays Pending.
func (g *Guard) Evaluate(ctx context.Context, req Requirement) (Decision, session.Snapshot) {
	snap := g.Settle(ctx)
	decision := Decide(snap, req)
	g.metrics.RecordGuardDecision(string(decision.State))
	return decision, snap
}

// Settle returns the request's session snapshot, waiting a bounded time
// while it is loading. Without a manager the snapshot is empty.
func (g *Guard) Settle(ctx context.Context) session.Snapshot {
	m := session.ManagerFromContext(ctx)
	if m == nil {
		return session.Snapshot{}
	}
	snap := m.Snapshot()
	if !snap.Loading {
		return snap
	}

	waitCtx, cancel := context.WithTimeout(ctx, g.wait)
	defer cancel()
	snap, _ = m.Wait(waitCtx)
	return snap
}

// Require rejects requests whose session does not satisfy req. Granted
// requests carry the snapshot they were authorized against.
func (g *Guard) Require(req Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision, snap := g.Evaluate(r.Context(), req)
			ctx := r.Context()
			if snap.AdminUser != nil {
				ctx = observability.WithAdminUserID(ctx, snap.AdminUser.ID)
			}
			r = r.WithContext(ctx)

			if decision.State != Granted {
				g.Deny(w, r, decision)
				return
			}
			next.ServeHTTP(w, r.WithContext(session.WithSnapshot(ctx, snap)))
		})
	}
}

// Deny writes the response for a non-granted decision
func (g *Guard) Deny(w http.ResponseWriter, r *http.Request, decision Decision) {
	switch decision.State {
	case Pending:
		w.Header().Set("Retry-After", strconv.Itoa(1))
		httputil.WriteErrorMessage(w, http.StatusServiceUnavailable, "session is still resolving")
	case DeniedUnauthenticated:
		httputil.WriteRedirectError(w, http.StatusUnauthorized, "authentication required", decision.Redirect)
	case DeniedForbidden:
		audit.LogDenied(r.Context(), r, audit.ResourceTypeView, r.URL.Path, decision.Reason)
		httputil.WriteRedirectError(w, http.StatusForbidden, "forbidden", decision.Redirect)
	default:
		httputil.WriteInternalError(w)
	}
}
