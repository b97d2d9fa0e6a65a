package rbac

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTemplates(t *testing.T) {
	templates := DefaultTemplates()

	_, ok := templates[RoleSuperAdmin]
	assert.False(t, ok, "super_admin bypasses rows and has no template")

	admin := templates[RoleAdmin]
	assert.Equal(t, Grant{View: true, Create: true, Edit: true, Delete: true}, admin[ResourceProjects])
	assert.Equal(t, Grant{View: true, Edit: true, Delete: true}, admin[ResourceMessages])
	assert.Equal(t, Grant{View: true, Create: true, Edit: true}, admin[ResourceUsers])
	assert.Equal(t, Grant{View: true, Edit: true}, admin[ResourceSettings])

	editor := templates[RoleEditor]
	assert.Equal(t, Grant{View: true, Create: true, Edit: true}, editor[ResourceCurrentProjects])
	assert.Equal(t, Grant{View: true}, editor[ResourceMessages])
	_, ok = editor[ResourceUsers]
	assert.False(t, ok)

	viewer := templates[RoleViewer]
	assert.Len(t, viewer, 3)
	for _, g := range viewer {
		assert.Equal(t, Grant{View: true}, g)
	}
}

func TestTemplate_Permissions(t *testing.T) {
	tmpl := Template{
		ResourceMessages: {View: true},
		ResourceProjects: {View: true, Edit: true},
		ResourceSettings: {},
	}

	perms := tmpl.Permissions("u1")
	require.Len(t, perms, 2)

	// rows follow Resources() order and skip empty grants
	assert.Equal(t, ResourceProjects, perms[0].Resource)
	assert.Equal(t, ResourceMessages, perms[1].Resource)
	for _, p := range perms {
		assert.Equal(t, "u1", p.AdminUserID)
	}

	user := &AdminUser{ID: "u1", Role: RoleEditor}
	assert.True(t, Evaluate(user, perms, ResourceProjects, ActionEdit))
	assert.False(t, Evaluate(user, perms, ResourceSettings, ActionView))
}

func TestParseTemplates(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		data := []byte(`
templates:
  editor:
    projects: [view, create]
    messages: [view, edit]
`)
		out, err := ParseTemplates(data)
		require.NoError(t, err)
		require.Contains(t, out, RoleEditor)
		assert.Equal(t, Grant{View: true, Create: true}, out[RoleEditor][ResourceProjects])
		assert.Equal(t, Grant{View: true, Edit: true}, out[RoleEditor][ResourceMessages])
	})

	tests := []struct {
		name string
		data string
	}{
		{"unknown role", "templates:\n  owner:\n    projects: [view]\n"},
		{"super admin", "templates:\n  super_admin:\n    projects: [view]\n"},
		{"unknown resource", "templates:\n  viewer:\n    billing: [view]\n"},
		{"unknown action", "templates:\n  viewer:\n    projects: [publish]\n"},
		{"malformed", "templates: ["},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTemplates([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestMarshalTemplates(t *testing.T) {
	data, err := MarshalTemplates(DefaultTemplates())
	require.NoError(t, err)
	assert.Contains(t, string(data), "templates:")

	parsed, err := ParseTemplates(data)
	require.NoError(t, err)
	assert.Equal(t, DefaultTemplates(), parsed)
}

func TestTemplateSource_DefaultsOnly(t *testing.T) {
	src, err := NewTemplateSource("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultTemplates()[RoleViewer], src.Template(RoleViewer))
	assert.Empty(t, src.Template(RoleSuperAdmin))
	assert.Len(t, src.All(), 3)

	// returned templates are copies
	tmpl := src.Template(RoleViewer)
	tmpl[ResourceSettings] = Grant{View: true}
	_, ok := src.Template(RoleViewer)[ResourceSettings]
	assert.False(t, ok)
}

func TestTemplateSource_FileOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "templates.yaml")
	require.NoError(t, os.WriteFile(path, []byte("templates:\n  viewer:\n    projects: [view]\n"), 0o644))

	src, err := NewTemplateSource(path, nil)
	require.NoError(t, err)

	assert.Len(t, src.Template(RoleViewer), 1)
	assert.Equal(t, DefaultTemplates()[RoleEditor], src.Template(RoleEditor))

	t.Run("bad reload keeps previous", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte("templates:\n  viewer:\n    nope: [view]\n"), 0o644))
		assert.Error(t, src.Reload())
		assert.Len(t, src.Template(RoleViewer), 1)
	})
}

func TestTemplateSource_Watch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "templates.yaml")
	require.NoError(t, os.WriteFile(path, []byte("templates:\n  viewer:\n    projects: [view]\n"), 0o644))

	src, err := NewTemplateSource(path, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- src.Watch(ctx) }()

	// give the watcher time to register before writing
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("templates:\n  viewer:\n    projects: [view]\n    messages: [view]\n"), 0o644))

	assert.Eventually(t, func() bool {
		return len(src.Template(RoleViewer)) == 2
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
