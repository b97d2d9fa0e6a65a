package session

import (
	"context"

	"github.com/platinummonkey/sitepanel/pkg/contextkeys"
)

// WithManager attaches the request's session manager to ctx
func WithManager(ctx context.Context, m *Manager) context.Context {
	return context.WithValue(ctx, contextkeys.SessionManagerKey, m)
}

// ManagerFromContext returns the request's session manager, or nil
func ManagerFromContext(ctx context.Context) *Manager {
	m, _ := ctx.Value(contextkeys.SessionManagerKey).(*Manager)
	return m
}

// WithSnapshot pins the snapshot a request was authorized against
func WithSnapshot(ctx context.Context, snap Snapshot) context.Context {
	return context.WithValue(ctx, contextkeys.SessionSnapshotKey, snap)
}

// SnapshotFromContext returns the pinned snapshot
func SnapshotFromContext(ctx context.Context) (Snapshot, bool) {
	snap, ok := ctx.Value(contextkeys.SessionSnapshotKey).(Snapshot)
	return snap, ok
}
