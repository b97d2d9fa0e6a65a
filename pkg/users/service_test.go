package users

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/platinummonkey/sitepanel/pkg/audit"
	"github.com/platinummonkey/sitepanel/pkg/auth"
	"github.com/platinummonkey/sitepanel/pkg/directory"
	"github.com/platinummonkey/sitepanel/pkg/observability"
	"github.com/platinummonkey/sitepanel/pkg/rbac"
	"github.com/platinummonkey/sitepanel/pkg/session"
	"github.com/platinummonkey/sitepanel/pkg/storage/storagetest"
)

type recordingRefresher struct {
	mu         sync.Mutex
	identities []string
}

func (r *recordingRefresher) RefreshIdentity(ctx context.Context, identityID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.identities = append(r.identities, identityID)
}

type recordingAudit struct {
	mu     sync.Mutex
	events []*audit.AuditEvent
}

func (r *recordingAudit) Log(ctx context.Context, event *audit.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingAudit) Close() error { return nil }

func (r *recordingAudit) types() []audit.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]audit.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.EventType
	}
	return out
}

type failingCreate struct {
	*directory.Store
}

func (f failingCreate) Create(ctx context.Context, user *rbac.AdminUser, perms rbac.PermissionSet) error {
	return errors.New("disk full")
}

type fixture struct {
	db         *sql.DB
	service    *Service
	directory  *directory.Store
	identities *auth.SQLIdentityStore
	refresher  *recordingRefresher
	audit      *recordingAudit
	ctx        context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := storagetest.NewSQLite(t)
	templates, err := rbac.NewTemplateSource("", observability.NopLogger())
	require.NoError(t, err)

	f := &fixture{
		db:         db,
		directory:  directory.NewStore(db),
		identities: auth.NewSQLIdentityStore(db, bcrypt.MinCost),
		refresher:  &recordingRefresher{},
		audit:      &recordingAudit{},
	}
	f.service = NewService(f.directory, f.identities, templates, f.refresher, observability.NopLogger())
	f.ctx = audit.WithLogger(context.Background(), f.audit)
	return f
}

// actor resolves a snapshot for an admin user the way a session would
func (f *fixture) actor(t *testing.T, user *rbac.AdminUser) session.Snapshot {
	t.Helper()
	perms, err := f.directory.ListPermissions(f.ctx, user.ID)
	require.NoError(t, err)
	return session.Snapshot{
		Identity:    &auth.Identity{ID: *user.IdentityID, Email: user.Email},
		AdminUser:   user,
		Permissions: perms,
	}
}

func (f *fixture) superAdmin(t *testing.T) session.Snapshot {
	t.Helper()
	user, err := f.service.Setup(f.ctx, SetupInput{Email: "owner@example.com", Password: "secret1", FullName: "Owner"})
	require.NoError(t, err)
	return f.actor(t, user)
}

func (f *fixture) create(t *testing.T, actor rbac.Evaluator, email string, role rbac.Role) *UserDetail {
	t.Helper()
	detail, err := f.service.Create(f.ctx, actor, CreateUserInput{
		Email: email, Password: "secret1", FullName: "Someone", Role: role,
	})
	require.NoError(t, err)
	return detail
}

func TestSetup(t *testing.T) {
	f := newFixture(t)

	needed, err := f.service.NeedsSetup(f.ctx)
	require.NoError(t, err)
	assert.True(t, needed)

	user, err := f.service.Setup(f.ctx, SetupInput{Email: "Owner@Example.com", Password: "secret1", FullName: " Owner "})
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleSuperAdmin, user.Role)
	assert.True(t, user.IsActive)
	assert.Equal(t, "owner@example.com", user.Email)
	assert.Equal(t, "Owner", user.FullName)

	perms, err := f.directory.ListPermissions(f.ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, perms)

	identity, err := f.identities.Authenticate(f.ctx, "owner@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, identity.ID, *user.IdentityID)

	needed, err = f.service.NeedsSetup(f.ctx)
	require.NoError(t, err)
	assert.False(t, needed)

	_, err = f.service.Setup(f.ctx, SetupInput{Email: "second@example.com", Password: "secret1", FullName: "Second"})
	assert.ErrorIs(t, err, ErrSetupComplete)
	assert.Equal(t, "Admin user already exists. Setup is complete.", err.Error())

	assert.Equal(t, []audit.EventType{audit.EventTypeAdminSetup}, f.audit.types())
}

func TestSetup_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		in    SetupInput
		field string
	}{
		{"missing email", SetupInput{Password: "secret1", FullName: "A"}, "email"},
		{"bad email", SetupInput{Email: "not-an-email", Password: "secret1", FullName: "A"}, "email"},
		{"display name email", SetupInput{Email: "A <a@example.com>", Password: "secret1", FullName: "A"}, "email"},
		{"missing password", SetupInput{Email: "a@example.com", FullName: "A"}, "password"},
		{"short password", SetupInput{Email: "a@example.com", Password: "12345", FullName: "A"}, "password"},
		{"missing name", SetupInput{Email: "a@example.com", Password: "secret1", FullName: "  "}, "full_name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.Setup(f.ctx, tt.in)
			require.ErrorIs(t, err, ErrValidation)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}

	needed, err := f.service.NeedsSetup(f.ctx)
	require.NoError(t, err)
	assert.True(t, needed)
}

func TestSetup_ConcurrentCallsCreateOneAdmin(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.service.Setup(f.ctx, SetupInput{
				Email:    []string{"a@example.com", "b@example.com", "c@example.com", "d@example.com"}[i],
				Password: "secret1",
				FullName: "Owner",
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrSetupComplete)
		}
	}
	assert.Equal(t, 1, succeeded)

	n, err := f.directory.Count(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCreate_UsesRoleTemplate(t *testing.T) {
	f := newFixture(t)
	owner := f.superAdmin(t)

	detail := f.create(t, owner, "editor@example.com", rbac.RoleEditor)
	assert.Equal(t, rbac.RoleEditor, detail.Role)
	assert.True(t, detail.IsActive)

	stored, err := f.directory.ListPermissions(f.ctx, detail.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 3)
	assert.True(t, rbac.Evaluate(detail.AdminUser, stored, rbac.ResourceProjects, rbac.ActionEdit))
	assert.False(t, rbac.Evaluate(detail.AdminUser, stored, rbac.ResourceProjects, rbac.ActionDelete))
	assert.False(t, rbac.Evaluate(detail.AdminUser, stored, rbac.ResourceUsers, rbac.ActionView))

	assert.Contains(t, f.audit.types(), audit.EventTypeAdminUserCreate)
}

func TestCreate_CustomPermissions(t *testing.T) {
	f := newFixture(t)
	owner := f.superAdmin(t)

	detail, err := f.service.Create(f.ctx, owner, CreateUserInput{
		Email: "viewer@example.com", Password: "secret1", FullName: "Viewer", Role: rbac.RoleViewer,
		Permissions: rbac.Template{
			rbac.ResourceMessages: {View: true, Delete: true},
			rbac.ResourceSettings: {},
		},
	})
	require.NoError(t, err)
	require.Len(t, detail.Permissions, 1)
	assert.Equal(t, rbac.ResourceMessages, detail.Permissions[0].Resource)
	assert.True(t, detail.Permissions[0].CanDelete)
}

func TestCreate_Authorization(t *testing.T) {
	f := newFixture(t)
	owner := f.superAdmin(t)
	admin := f.actor(t, f.create(t, owner, "admin@example.com", rbac.RoleAdmin).AdminUser)
	editor := f.actor(t, f.create(t, owner, "editor@example.com", rbac.RoleEditor).AdminUser)

	_, err := f.service.Create(f.ctx, editor, CreateUserInput{
		Email: "x@example.com", Password: "secret1", FullName: "X", Role: rbac.RoleViewer,
	})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.service.Create(f.ctx, admin, CreateUserInput{
		Email: "boss@example.com", Password: "secret1", FullName: "Boss", Role: rbac.RoleSuperAdmin,
	})
	assert.ErrorIs(t, err, ErrForbidden)

	detail := f.create(t, admin, "viewer@example.com", rbac.RoleViewer)
	assert.Equal(t, rbac.RoleViewer, detail.Role)

	boss := f.create(t, owner, "boss@example.com", rbac.RoleSuperAdmin)
	assert.Empty(t, boss.Permissions)
}

func TestCreate_InvalidInput(t *testing.T) {
	f := newFixture(t)
	owner := f.superAdmin(t)

	_, err := f.service.Create(f.ctx, owner, CreateUserInput{
		Email: "x@example.com", Password: "secret1", FullName: "X", Role: "root",
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.service.Create(f.ctx, owner, CreateUserInput{
		Email: "x@example.com", Password: "secret1", FullName: "X", Role: rbac.RoleViewer,
		Permissions: rbac.Template{"billing": {View: true}},
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.service.Create(f.ctx, owner, CreateUserInput{
		Email: "owner@example.com", Password: "secret1", FullName: "Dup", Role: rbac.RoleViewer,
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "is already registered", verr.Fields["email"])
}

func TestCreate_RollsBackIdentity(t *testing.T) {
	f := newFixture(t)
	owner := f.superAdmin(t)
	templates, err := rbac.NewTemplateSource("", observability.NopLogger())
	require.NoError(t, err)
	broken := NewService(failingCreate{f.directory}, f.identities, templates, nil, nil)

	_, err = broken.Create(f.ctx, owner, CreateUserInput{
		Email: "ghost@example.com", Password: "secret1", FullName: "Ghost", Role: rbac.RoleViewer,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create admin record")

	_, err = f.identities.Authenticate(f.ctx, "ghost@example.com", "secret1")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestSetActive(t *testing.T) {
	f := newFixture(t)
	owner := f.superAdmin(t)
	editor := f.create(t, owner, "editor@example.com", rbac.RoleEditor)

	updated, err := f.service.SetActive(f.ctx, owner, editor.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	found, err := f.directory.FindActiveAdminUser(f.ctx, *editor.IdentityID)
	require.NoError(t, err)
	assert.Nil(t, found)
	assert.Equal(t, []string{*editor.IdentityID}, f.refresher.identities)

	_, err = f.service.SetActive(f.ctx, owner, editor.ID, true)
	require.NoError(t, err)

	assert.Contains(t, f.audit.types(), audit.EventTypeAdminUserDeactivate)
	assert.Contains(t, f.audit.types(), audit.EventTypeAdminUserActivate)
}

func TestSetActive_Rules(t *testing.T) {
	f := newFixture(t)
	owner := f.superAdmin(t)
	viewer := f.actor(t, f.create(t, owner, "viewer@example.com", rbac.RoleViewer).AdminUser)

	_, err := f.service.SetActive(f.ctx, owner, owner.AdminUser.ID, false)
	assert.ErrorIs(t, err, ErrProtectedUser)

	_, err = f.service.SetActive(f.ctx, viewer, viewer.AdminUser.ID, false)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.service.SetActive(f.ctx, owner, "missing", false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdatePermissions(t *testing.T) {
	f := newFixture(t)
	owner := f.superAdmin(t)
	admin := f.actor(t, f.create(t, owner, "admin@example.com", rbac.RoleAdmin).AdminUser)
	viewer := f.create(t, owner, "viewer@example.com", rbac.RoleViewer)

	_, err := f.service.UpdatePermissions(f.ctx, admin, viewer.ID, rbac.Template{})
	assert.ErrorIs(t, err, ErrForbidden)

	rows, err := f.service.UpdatePermissions(f.ctx, owner, viewer.ID, rbac.Template{
		rbac.ResourceMessages: {View: true, Edit: true},
	})
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	stored, err := f.directory.ListPermissions(f.ctx, viewer.ID)
	require.NoError(t, err)
	assert.True(t, rbac.Evaluate(viewer.AdminUser, stored, rbac.ResourceMessages, rbac.ActionEdit))
	assert.False(t, rbac.Evaluate(viewer.AdminUser, stored, rbac.ResourceProjects, rbac.ActionView))
	assert.Contains(t, f.refresher.identities, *viewer.IdentityID)

	_, err = f.service.UpdatePermissions(f.ctx, owner, owner.AdminUser.ID, rbac.Template{})
	assert.ErrorIs(t, err, ErrProtectedUser)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	owner := f.superAdmin(t)
	admin := f.actor(t, f.create(t, owner, "admin@example.com", rbac.RoleAdmin).AdminUser)
	editor := f.create(t, owner, "editor@example.com", rbac.RoleEditor)

	assert.ErrorIs(t, f.service.Delete(f.ctx, admin, editor.ID), ErrForbidden)
	assert.ErrorIs(t, f.service.Delete(f.ctx, owner, owner.AdminUser.ID), ErrProtectedUser)

	require.NoError(t, f.service.Delete(f.ctx, owner, editor.ID))

	_, err := f.directory.Get(f.ctx, editor.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	perms, err := f.directory.ListPermissions(f.ctx, editor.ID)
	require.NoError(t, err)
	assert.Empty(t, perms)
	_, err = f.identities.Get(f.ctx, *editor.IdentityID)
	assert.ErrorIs(t, err, auth.ErrNotFound)
	assert.Contains(t, f.refresher.identities, *editor.IdentityID)
	assert.Contains(t, f.audit.types(), audit.EventTypeAdminUserDelete)

	assert.ErrorIs(t, f.service.Delete(f.ctx, owner, editor.ID), ErrNotFound)
}

func TestListAndGet(t *testing.T) {
	f := newFixture(t)
	owner := f.superAdmin(t)
	f.create(t, owner, "editor@example.com", rbac.RoleEditor)

	list, err := f.service.List(f.ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	detail, err := f.service.Get(f.ctx, list[0].ID)
	require.NoError(t, err)
	assert.Equal(t, list[0].Email, detail.Email)

	assert.Len(t, f.service.Templates(), len(rbac.DefaultTemplates()))
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"password": "is required", "email": "is required"}}
	assert.Equal(t, "validation failed: email: is required, password: is required", err.Error())
	assert.True(t, errors.Is(err, ErrValidation))
}
