// Package cli implements sitepanel-admin, the operator command line for the
// admin panel database.
//
// # Commands
//
// migrate: Apply pending schema migrations, or list them with --status
//
//	sitepanel-admin migrate
//
// setup: Create the first super admin when no admin users exist
//
//	SITEPANEL_SETUP_PASSWORD=... sitepanel-admin setup \
//		--email owner@example.com \
//		--name "Site Owner"
//
// users: List admin users
//
//	sitepanel-admin users
//
// check: Evaluate one permission for an admin user
//
//	sitepanel-admin check --email editor@example.com --resource messages --action delete
//
// templates: Print the role templates, with overrides applied
//
//	sitepanel-admin templates --file ./role-templates.yaml
//
// # Configuration
//
// Commands read the same SITEPANEL_* environment as the server, most
// importantly SITEPANEL_DB_DRIVER and SITEPANEL_DB_DSN.
package cli
