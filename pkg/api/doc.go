// Package api serves the admin panel's JSON API under /admin/api.
//
// Every request is bound to a browser session through a cookie; the session
// pool hands back the manager for that cookie and the guard decides each
// route against the manager's snapshot. Routes are grouped into registrars
// (setup, auth, views, content, users, audit) that share one Server.
package api
