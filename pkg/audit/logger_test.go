package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/sitepanel/pkg/observability"
)

type recordingLogger struct {
	events []*AuditEvent
	err    error
	closed bool
}

func (r *recordingLogger) Log(ctx context.Context, event *AuditEvent) error {
	r.events = append(r.events, event)
	return r.err
}

func (r *recordingLogger) Close() error {
	r.closed = true
	return nil
}

func TestFromContext_DefaultsToNop(t *testing.T) {
	logger := FromContext(context.Background())
	assert.NoError(t, logger.Log(context.Background(), &AuditEvent{}))
}

func TestNewEvent(t *testing.T) {
	ctx := observability.WithRequestID(context.Background(), "req-1")
	ctx = observability.WithAdminUserID(ctx, "admin-1")

	r := httptest.NewRequest("DELETE", "/admin/api/users/u-2", nil)
	r.RemoteAddr = "10.0.0.9:5555"
	r.Header.Set("User-Agent", "test-agent")

	event := NewEvent(ctx, r, EventTypeAdminUserDelete, EventStatusSuccess)
	assert.Equal(t, "req-1", event.RequestID)
	assert.Equal(t, "admin-1", event.AdminUserID)
	assert.Equal(t, "10.0.0.9", event.IPAddress)
	assert.Equal(t, "test-agent", event.UserAgent)
	assert.Equal(t, "DELETE", event.Method)
	assert.Equal(t, "/admin/api/users/u-2", event.Path)
	assert.False(t, event.Timestamp.IsZero())
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", ClientIP(r))

	r = httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-Real-IP", "198.51.100.2")
	assert.Equal(t, "198.51.100.2", ClientIP(r))
}

func TestRecord_SwallowsErrors(t *testing.T) {
	rec := &recordingLogger{err: errors.New("sink down")}
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), rec)
	ctx = observability.WithLogger(ctx, observability.NewLogger(observability.InfoLevel, &buf))

	Record(ctx, &AuditEvent{EventType: EventTypeAuthLogout})

	require.Len(t, rec.events, 1)
	assert.Contains(t, buf.String(), "Failed to record audit event")
}

func TestLogDenied(t *testing.T) {
	rec := &recordingLogger{}
	ctx := WithLogger(context.Background(), rec)

	LogDenied(ctx, httptest.NewRequest("GET", "/admin/api/users", nil), ResourceTypeView, "/admin/users", "requires admin")

	require.Len(t, rec.events, 1)
	event := rec.events[0]
	assert.Equal(t, EventTypeAuthzAccessDenied, event.EventType)
	assert.Equal(t, EventStatusDenied, event.Status)
	assert.Equal(t, "/admin/users", event.ResourceID)
	assert.Equal(t, "Access denied: requires admin", event.Message)
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger(observability.NewLogger(observability.DebugLevel, &buf))

	err := logger.Log(context.Background(), &AuditEvent{
		EventType:    EventTypeAuthzAccessDenied,
		Status:       EventStatusDenied,
		AdminUserID:  "admin-1",
		ResourceType: ResourceTypeView,
		ResourceID:   "/admin/users",
		Message:      "Access denied",
		Metadata:     map[string]interface{}{"state": "denied_forbidden"},
	})
	require.NoError(t, err)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "authz.access_denied", line["event_type"])
	assert.Equal(t, "WARN", line["level"])
	assert.Equal(t, "denied_forbidden", line["meta.state"])
	assert.Equal(t, true, line["audit"])
}
