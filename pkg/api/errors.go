package api

import (
	"errors"
	"net/http"

	"github.com/platinummonkey/sitepanel/pkg/audit"
	"github.com/platinummonkey/sitepanel/pkg/content"
	"github.com/platinummonkey/sitepanel/pkg/guard"
	"github.com/platinummonkey/sitepanel/pkg/httputil"
	"github.com/platinummonkey/sitepanel/pkg/observability"
	"github.com/platinummonkey/sitepanel/pkg/users"
)

func writeNotFound(w http.ResponseWriter, message string) {
	httputil.WriteNotFound(w, message)
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	observability.FromContext(r.Context()).WithError(err).
		WithField("path", r.URL.Path).
		Error("Request failed")
	httputil.WriteInternalError(w)
}

// writeServiceError maps service errors onto HTTP responses
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error, resourceType audit.ResourceType, resourceID string) {
	var verr *users.ValidationError
	switch {
	case errors.As(err, &verr):
		httputil.WriteValidationError(w, "validation failed", verr.Fields)
	case errors.Is(err, users.ErrSetupComplete):
		httputil.WriteErrorMessage(w, http.StatusForbidden, err.Error())
	case errors.Is(err, users.ErrForbidden), errors.Is(err, users.ErrProtectedUser):
		audit.LogDenied(r.Context(), r, resourceType, resourceID, err.Error())
		httputil.WriteRedirectError(w, http.StatusForbidden, err.Error(), guard.LandingPath)
	case errors.Is(err, users.ErrNotFound), errors.Is(err, content.ErrNotFound):
		writeNotFound(w, err.Error())
	default:
		s.internalError(w, r, err)
	}
}
