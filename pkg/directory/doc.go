// Package directory stores admin users and their per-resource permissions.
//
// An admin user links an identity to a role. Only active records count when
// resolving a session; inactive ones stay listed for user management.
package directory
