package storage

import (
	"context"
	"database/sql"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/platinummonkey/sitepanel/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMigrations_SQLite(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, config.DatabaseConfig{
		Driver: "sqlite3",
		DSN:    "file:migrations_test?mode=memory&cache=shared&_foreign_keys=on",
	})
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, RunMigrations(ctx, db, nil))

	applied, err := AppliedVersions(ctx, db)
	require.NoError(t, err)
	assert.Len(t, applied, len(Migrations()))

	// idempotent
	require.NoError(t, RunMigrations(ctx, db, nil))

	for _, table := range []string{"identities", "admin_users", "user_permissions", "projects", "contact_messages", "audit_logs"} {
		var name string
		err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = $1", table).Scan(&name)
		require.NoError(t, err, table)
	}
}

func TestRunMigrations_RoleCheck(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite3", "file:role_check_test?mode=memory&cache=shared")
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)
	require.NoError(t, RunMigrations(ctx, db, nil))

	_, err = db.ExecContext(ctx,
		"INSERT INTO admin_users (id, email, full_name, role) VALUES ($1, $2, $3, $4)",
		"u1", "a@example.com", "A", "owner")
	assert.Error(t, err, "unknown roles must be rejected by the schema")
}

func TestMigrations_Ordered(t *testing.T) {
	migrations := Migrations()
	for i, m := range migrations {
		assert.Equal(t, i+1, m.Version)
		assert.NotEmpty(t, m.Description)
		assert.NotEmpty(t, m.SQL)
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), config.DatabaseConfig{Driver: "mysql", DSN: "x"})
	assert.Error(t, err)
}

func TestNewRedisClient(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client, err := NewRedisClient(context.Background(), config.SessionConfig{
		RedisURL: "redis://" + mr.Addr() + "/0",
		RedisDB:  -1,
	})
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	assert.Equal(t, "v", mustGet(t, mr, "k"))
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := mr.Get(key)
	require.NoError(t, err)
	return v
}

func TestNewRedisClient_BadURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), config.SessionConfig{RedisURL: "://nope"})
	assert.Error(t, err)
}
