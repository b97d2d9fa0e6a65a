package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/sitepanel/pkg/config"
	"github.com/platinummonkey/sitepanel/pkg/storage/storagetest"
)

func newTestEnv(t *testing.T) (*Env, *bytes.Buffer) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	var out bytes.Buffer
	env := &Env{
		Out: &out,
		Log: log,
		Config: &config.Config{
			Auth: config.AuthConfig{BcryptCost: 4},
		},
		db: storagetest.NewSQLite(t),
	}
	return env, &out
}

func TestNewRootCommand(t *testing.T) {
	root := NewRootCommand()

	assert.Equal(t, "sitepanel-admin", root.Name)
	for _, name := range []string{"migrate", "setup", "users", "check", "templates"} {
		assert.Contains(t, root.Subcommands, name)
	}
	assert.Len(t, root.Subcommands, 5)
}

func TestCommandUsage(t *testing.T) {
	env, out := newTestEnv(t)
	require.NoError(t, NewRootCommand().Execute(env, nil))

	output := out.String()
	assert.Contains(t, output, "Usage: sitepanel-admin <command> [args]")
	assert.Contains(t, output, "migrate")
	assert.Contains(t, output, "templates")
}

func TestExecute_UnknownCommand(t *testing.T) {
	env, _ := newTestEnv(t)
	err := NewRootCommand().Execute(env, []string{"publish"})
	assert.EqualError(t, err, "unknown command: publish")
}

func TestMigrate(t *testing.T) {
	env, out := newTestEnv(t)
	require.NoError(t, NewRootCommand().Execute(env, []string{"migrate", "--status"}))

	assert.Contains(t, out.String(), "applied")
	assert.NotContains(t, out.String(), "pending")
}

func TestSetupUsersAndCheck(t *testing.T) {
	env, out := newTestEnv(t)
	root := NewRootCommand()

	err := root.Execute(env, []string{"setup", "--email", "owner@example.com", "--name", "Owner", "--password", "secret1"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Created super admin owner@example.com")

	err = root.Execute(env, []string{"setup", "--email", "second@example.com", "--name", "Second", "--password", "secret1"})
	assert.Error(t, err)

	out.Reset()
	require.NoError(t, root.Execute(env, []string{"users"}))
	assert.Contains(t, out.String(), "owner@example.com")
	assert.Contains(t, out.String(), "super_admin")
	assert.Contains(t, out.String(), "never")

	out.Reset()
	require.NoError(t, root.Execute(env, []string{"check", "--email", "Owner@Example.com", "--resource", "users", "--action", "delete"}))
	assert.Equal(t, "owner@example.com users:delete allowed\n", out.String())

	err = root.Execute(env, []string{"check", "--email", "nobody@example.com", "--resource", "users"})
	assert.Error(t, err)
	err = root.Execute(env, []string{"check", "--email", "owner@example.com", "--resource", "billing"})
	assert.Error(t, err)
}

func TestSetup_PasswordFromEnv(t *testing.T) {
	env, _ := newTestEnv(t)
	t.Setenv("SITEPANEL_SETUP_PASSWORD", "from-env")

	err := NewRootCommand().Execute(env, []string{"setup", "--email", "owner@example.com", "--name", "Owner"})
	assert.NoError(t, err)
}

func TestTemplates(t *testing.T) {
	env, out := newTestEnv(t)
	root := NewRootCommand()

	require.NoError(t, root.Execute(env, []string{"templates"}))
	assert.Contains(t, out.String(), "viewer:")

	path := filepath.Join(t.TempDir(), "templates.yaml")
	require.NoError(t, os.WriteFile(path, []byte("templates:\n  viewer:\n    messages: [view, edit]\n"), 0o644))

	out.Reset()
	require.NoError(t, root.Execute(env, []string{"templates", "--file", path}))
	assert.Contains(t, out.String(), "- edit")

	assert.Error(t, root.Execute(env, []string{"templates", "--file", filepath.Join(t.TempDir(), "missing.yaml")}))
}
