package cli

import (
	"context"
	"database/sql"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/sitepanel/pkg/config"
	"github.com/platinummonkey/sitepanel/pkg/storage"
)

// Env carries what commands share: output, a logger, the loaded
// configuration and a lazily opened database.
type Env struct {
	Out    io.Writer
	Log    *logrus.Logger
	Config *config.Config

	db *sql.DB
}

// NewEnv creates an environment writing results to stdout
func NewEnv(cfg *config.Config, log *logrus.Logger) *Env {
	return &Env{Out: os.Stdout, Log: log, Config: cfg}
}

// DB opens the configured database on first use
func (e *Env) DB(ctx context.Context) (*sql.DB, error) {
	if e.db != nil {
		return e.db, nil
	}
	db, err := storage.Open(ctx, e.Config.Database)
	if err != nil {
		return nil, err
	}
	e.Log.WithField("driver", e.Config.Database.Driver).Debug("Opened database")
	e.db = db
	return db, nil
}

// Close releases the database if one was opened
func (e *Env) Close() error {
	if e.db == nil {
		return nil
	}
	return e.db.Close()
}
