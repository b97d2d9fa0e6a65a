// Package session resolves browser sessions into admin users and their
// permissions.
//
// # Overview
//
// A Manager is the single writer of one browser session's Snapshot. It
// subscribes once to its identity Provider, and on every identity change it
// starts a new generation, marks the snapshot as loading and resolves the
// active admin user and permission rows from the Directory. Only the newest
// generation is ever applied, so a slow resolution cannot overwrite a newer
// one. Lookup failures are logged and resolve to a snapshot without an admin
// user.
//
//	m := session.NewManager(provider, directoryStore, session.WithLogger(logger))
//	m.Initialize(ctx)
//	defer m.Close()
//
//	snap, err := m.Wait(ctx) // blocks while loading
//	if snap.HasPermission(rbac.ResourceProjects, rbac.ActionEdit) { ... }
//
// SignOut clears the snapshot before it returns and invalidates the provider
// session in the background.
//
// # Pool
//
// The HTTP server keeps one Manager per session cookie in a Pool: an LRU of
// managers with single-flight creation and a cron-driven sweep that re-checks
// live sessions against the store and the directory.
package session
