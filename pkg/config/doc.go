// Package config loads the service configuration from environment variables.
//
// Server:
//
//	SITEPANEL_HOST="0.0.0.0"
//	SITEPANEL_PORT="8080"
//	SITEPANEL_HEALTH_PORT="9090"
//
// Directory database:
//
//	SITEPANEL_DB_DRIVER="postgres"   # postgres or sqlite3
//	SITEPANEL_DB_DSN="postgres://sitepanel@localhost/sitepanel?sslmode=disable"
//	SITEPANEL_DB_AUTO_MIGRATE="true"
//
// Sessions:
//
//	SITEPANEL_SESSION_BACKEND="redis" # memory or redis
//	SITEPANEL_REDIS_URL="redis://localhost:6379/0"
//	SITEPANEL_SESSION_TTL="12h"
//	SITEPANEL_SESSION_SWEEP="@every 1m"
//
// Authentication:
//
//	SITEPANEL_BCRYPT_COST="12"
//	SITEPANEL_LOGIN_RATE_PER_MIN="10"
//
// Role templates:
//
//	SITEPANEL_ROLE_TEMPLATES="/etc/sitepanel/templates.yaml"
//
// Observability:
//
//	SITEPANEL_LOG_LEVEL="info"
//	SITEPANEL_OTEL_ENABLED="true"
//	SITEPANEL_OTEL_ENDPOINT="otel-collector:4317"
//
// LoadConfig validates the result and returns an error describing the first problem.
package config
