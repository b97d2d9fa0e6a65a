// Package content reads the public site's projects and manages contact form
// messages for the admin dashboard.
//
// Authorization happens at the route: callers reach these methods only after
// the guard has granted the matching resource permission.
package content
