// Package storage opens the directory database and the session store and owns the
// schema migrations.
//
// Two SQL drivers are supported: PostgreSQL (lib/pq) for production and SQLite
// (mattn/go-sqlite3) for single-node installs and tests. Queries across the module use
// $N placeholders, which both drivers accept.
//
//	db, err := storage.Open(ctx, cfg.Database)
//	if err := storage.RunMigrations(ctx, db, logger); err != nil { ... }
//
// Redis backs the shared session store when SITEPANEL_SESSION_BACKEND=redis:
//
//	client, err := storage.NewRedisClient(ctx, cfg.Sessions)
package storage
