// Package audit records security-relevant admin activity.
//
// Events cover sign-in and sign-out, route guard denials and every admin user
// mutation. Sinks are the audit_logs table (DBLogger), structured logs
// (StructuredLogger) and a fan-out of both (MultiLogger).
//
//	logger := audit.NewMultiLogger(dbLogger, audit.NewStructuredLogger(appLogger))
//	ctx = audit.WithLogger(ctx, logger)
//
//	event := audit.NewEvent(ctx, r, audit.EventTypeAdminUserDelete, audit.EventStatusSuccess)
//	event.ResourceType = audit.ResourceTypeAdminUser
//	event.ResourceID = id
//	audit.Record(ctx, event)
//
// Record never fails the caller. A failed write is logged and dropped.
package audit
