// Package contextkeys defines every request context key in one place.
//
// Typed accessors live with the package that owns the value:
//
//	observability.WithRequestID / GetRequestID     RequestIDKey
//	observability.WithAdminUserID / GetAdminUserID AdminUserIDKey
//	observability.WithLogger / GetLogger           LoggerKey
//	audit.WithLogger / FromContext                 AuditLoggerKey
//	session.WithManager / ManagerFromContext       SessionManagerKey
//	session.WithSnapshot / SnapshotFromContext     SessionSnapshotKey
package contextkeys

// Key is the type for context keys to prevent collisions
type Key string

const (
	// RequestIDKey holds the request ID string.
	// Set by middleware.RequestID.
	RequestIDKey Key = "request_id"

	// AdminUserIDKey holds the acting admin user's ID.
	// Set by the route guard once a session is authorized.
	AdminUserIDKey Key = "admin_user_id"

	// LoggerKey holds the request's *observability.Logger
	LoggerKey Key = "logger"

	// AuditLoggerKey holds the audit.Logger events are recorded to
	AuditLoggerKey Key = "audit_logger"

	// SessionManagerKey holds the browser session's *session.Manager.
	// Set by the API's session cookie middleware.
	SessionManagerKey Key = "session_manager"

	// SessionSnapshotKey holds the session.Snapshot a request was
	// authorized against
	SessionSnapshotKey Key = "session_snapshot"
)
