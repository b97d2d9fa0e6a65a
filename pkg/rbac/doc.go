// Package rbac provides the role and permission model of the site admin panel.
//
// # Overview
//
// Every staff account is an AdminUser with one Role and a set of per-resource
// Permission rows. Each row carries four independent capabilities:
//
//	ActionView    - read the resource
//	ActionCreate  - add new items
//	ActionEdit    - change existing items
//	ActionDelete  - remove items
//
// Resources are the administrative areas of the site:
//
//	ResourceProjects         - portfolio projects
//	ResourceCurrentProjects  - projects in progress
//	ResourceMessages         - contact form submissions
//	ResourceUsers            - admin user management
//	ResourceSettings         - site settings
//
// # Evaluation
//
// Evaluate is a pure function:
//
//	allowed := rbac.Evaluate(user, perms, rbac.ResourceProjects, rbac.ActionEdit)
//
// A nil user is always denied. A super_admin is always allowed and is never restricted
// by a permission row. Any other role needs a row for the resource; a missing row
// denies every action.
//
// # Templates
//
// New users are seeded from a role template (see DefaultTemplates). A TemplateSource
// can override the defaults from a YAML file and reload it when it changes.
package rbac
