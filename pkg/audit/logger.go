package audit

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/platinummonkey/sitepanel/pkg/contextkeys"
	"github.com/platinummonkey/sitepanel/pkg/observability"
)

// Logger is the interface for audit logging
type Logger interface {
	// Log records an audit event
	Log(ctx context.Context, event *AuditEvent) error

	// Close closes the logger and flushes any buffered events
	Close() error
}

// WithLogger adds an audit logger to the context
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, contextkeys.AuditLoggerKey, logger)
}

// FromContext retrieves the audit logger from context, or a no-op logger
func FromContext(ctx context.Context) Logger {
	if logger, ok := ctx.Value(contextkeys.AuditLoggerKey).(Logger); ok {
		return logger
	}
	return NopLogger()
}

type noOpLogger struct{}

// NopLogger returns a logger that discards events
func NopLogger() Logger { return noOpLogger{} }

func (noOpLogger) Log(ctx context.Context, event *AuditEvent) error { return nil }
func (noOpLogger) Close() error                                      { return nil }

// NewEvent creates an event with request details and the acting admin user
// filled in from r and ctx. r may be nil.
func NewEvent(ctx context.Context, r *http.Request, eventType EventType, status EventStatus) *AuditEvent {
	event := &AuditEvent{
		Timestamp:   time.Now().UTC(),
		EventType:   eventType,
		Status:      status,
		AdminUserID: observability.GetAdminUserID(ctx),
		RequestID:   observability.GetRequestID(ctx),
	}

	if r != nil {
		event.IPAddress = ClientIP(r)
		event.UserAgent = r.UserAgent()
		event.Method = r.Method
		event.Path = r.URL.Path
	}

	return event
}

// ClientIP returns the originating client address of r
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// Record logs event to the context's audit logger. Failures are logged and
// never returned; auditing must not change the outcome of a request.
func Record(ctx context.Context, event *AuditEvent) {
	if err := FromContext(ctx).Log(ctx, event); err != nil {
		observability.FromContext(ctx).WithError(err).
			WithField("event_type", string(event.EventType)).
			Warn("Failed to record audit event")
	}
}

// LogDenied records an access denial for resource
func LogDenied(ctx context.Context, r *http.Request, resourceType ResourceType, resourceID, reason string) {
	event := NewEvent(ctx, r, EventTypeAuthzAccessDenied, EventStatusDenied)
	event.ResourceType = resourceType
	event.ResourceID = resourceID
	event.Message = "Access denied: " + reason
	Record(ctx, event)
}
