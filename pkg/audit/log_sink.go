package audit

import (
	"context"

	"github.com/platinummonkey/sitepanel/pkg/observability"
)

// StructuredLogger writes audit events as structured log lines
type StructuredLogger struct {
	logger *observability.Logger
}

// NewStructuredLogger creates an audit logger on top of logger
func NewStructuredLogger(logger *observability.Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger.WithField("audit", true)}
}

func (l *StructuredLogger) Log(ctx context.Context, event *AuditEvent) error {
	fields := map[string]interface{}{
		"event_type": string(event.EventType),
		"status":     string(event.Status),
	}
	if event.AdminUserID != "" {
		fields["admin_user_id"] = event.AdminUserID
	}
	if event.Email != "" {
		fields["email"] = event.Email
	}
	if event.ResourceType != "" {
		fields["resource_type"] = string(event.ResourceType)
		fields["resource_id"] = event.ResourceID
	}
	if event.RequestID != "" {
		fields["request_id"] = event.RequestID
	}
	if event.Path != "" {
		fields["method"] = event.Method
		fields["path"] = event.Path
		fields["ip_address"] = event.IPAddress
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}
	for k, v := range event.Metadata {
		fields["meta."+k] = v
	}

	logger := l.logger.WithFields(fields)
	if event.Status == EventStatusSuccess {
		logger.Info(event.Message)
	} else {
		logger.Warn(event.Message)
	}
	return nil
}

func (l *StructuredLogger) Close() error {
	return nil
}
