// Package observability provides structured logging, Prometheus metrics, health checks
// and OpenTelemetry tracing for the admin panel service.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("admin_user_id", id).Info("Session resolved")
//
// Request-scoped loggers carry the request ID, the resolved admin user and, when a span
// is recording, the trace and span IDs:
//
//	observability.FromContext(r.Context()).Warn("Permission denied")
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.RecordSignIn("success")
//
// All Record* helpers accept a nil receiver so components can run without metrics.
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(db, redisClient, version)
//	observability.RegisterHealthRoutes(healthRouter, checker)
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, cfg, logger)
//	defer observability.ShutdownOTel(ctx, providers, logger)
package observability
