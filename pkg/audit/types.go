package audit

import (
	"encoding/json"
	"time"
)

// EventType represents the category of audit event
type EventType string

const (
	// Authentication events
	EventTypeAuthLogin       EventType = "auth.login"
	EventTypeAuthLoginFailed EventType = "auth.login_failed"
	EventTypeAuthLogout      EventType = "auth.logout"

	// Authorization events
	EventTypeAuthzAccessDenied EventType = "authz.access_denied"

	// Admin events
	EventTypeAdminUserCreate        EventType = "admin.user_create"
	EventTypeAdminUserActivate      EventType = "admin.user_activate"
	EventTypeAdminUserDeactivate    EventType = "admin.user_deactivate"
	EventTypeAdminUserDelete        EventType = "admin.user_delete"
	EventTypeAdminPermissionsUpdate EventType = "admin.permissions_update"
	EventTypeAdminSetup             EventType = "admin.setup"

	// Content events
	EventTypeContentMessageRead   EventType = "content.message_read"
	EventTypeContentMessageDelete EventType = "content.message_delete"
)

// EventStatus represents the outcome of an event
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
	EventStatusDenied  EventStatus = "denied"
)

// ResourceType represents the type of resource being accessed
type ResourceType string

const (
	ResourceTypeAdminUser  ResourceType = "admin_user"
	ResourceTypePermission ResourceType = "permission"
	ResourceTypeSession    ResourceType = "session"
	ResourceTypeView       ResourceType = "view"
	ResourceTypeMessage    ResourceType = "message"
)

// AuditEvent represents a single audit log entry
type AuditEvent struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	EventType EventType   `json:"event_type"`
	Status    EventStatus `json:"status"`

	// Actor
	AdminUserID string `json:"admin_user_id,omitempty"`
	Email       string `json:"email,omitempty"`

	// Resource
	ResourceType ResourceType `json:"resource_type,omitempty"`
	ResourceID   string       `json:"resource_id,omitempty"`

	// Request context
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Method    string `json:"method,omitempty"`
	Path      string `json:"path,omitempty"`

	Message      string                 `json:"message,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// ToJSON converts the audit event to JSON
func (e *AuditEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// SearchFilter represents filters for searching audit logs
type SearchFilter struct {
	StartTime *time.Time
	EndTime   *time.Time

	AdminUserID string
	EventTypes  []EventType
	Status      *EventStatus

	Limit  int
	Offset int
}
