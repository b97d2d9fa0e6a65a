// Package guard decides whether a session may see an admin view.
//
// Decide is pure: it maps a session snapshot and a Requirement to one of
// Pending, DeniedUnauthenticated, DeniedForbidden or Granted, checking in
// order loading, authentication, super admin, admin and permission.
//
// Guard adapts decisions to HTTP. Pending requests wait a bounded time for
// resolution and then get a 503; denials are 401 or 403 JSON bodies carrying
// the redirect target:
//
//	r.Handle("/admin/api/users", g.Require(guard.Requirement{RequireAdmin: true})(h))
package guard
