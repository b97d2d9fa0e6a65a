package directory

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/sitepanel/pkg/rbac"
	"github.com/platinummonkey/sitepanel/pkg/storage/storagetest"
)

func insertIdentity(t *testing.T, db *sql.DB, id, email string) *string {
	t.Helper()
	_, err := db.Exec(
		"INSERT INTO identities (id, email, password_hash) VALUES ($1, $2, $3)",
		id, email, "x",
	)
	require.NoError(t, err)
	return &id
}

func TestStore_CreateAndFind(t *testing.T) {
	db := storagetest.NewSQLite(t)
	store := NewStore(db)
	ctx := context.Background()

	user := &rbac.AdminUser{
		IdentityID: insertIdentity(t, db, "ident-1", "alice@example.com"),
		Email:      "alice@example.com",
		FullName:   "Alice",
		Role:       rbac.RoleEditor,
		IsActive:   true,
	}
	perms := rbac.DefaultTemplates()[rbac.RoleEditor].Permissions("")
	require.NoError(t, store.Create(ctx, user, perms))
	assert.NotEmpty(t, user.ID)
	assert.False(t, user.CreatedAt.IsZero())

	found, err := store.FindActiveAdminUser(ctx, "ident-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, user.ID, found.ID)
	assert.Equal(t, rbac.RoleEditor, found.Role)
	require.NotNil(t, found.IdentityID)
	assert.Equal(t, "ident-1", *found.IdentityID)
	assert.Nil(t, found.LastLoginAt)

	stored, err := store.ListPermissions(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, stored, len(perms))
	projects, ok := stored.Lookup(rbac.ResourceProjects)
	require.True(t, ok)
	assert.True(t, projects.CanEdit)
	assert.False(t, projects.CanDelete)
	assert.Equal(t, user.ID, projects.AdminUserID)
}

func TestStore_FindActiveAdminUser_Inactive(t *testing.T) {
	db := storagetest.NewSQLite(t)
	store := NewStore(db)
	ctx := context.Background()

	user := &rbac.AdminUser{
		IdentityID: insertIdentity(t, db, "ident-2", "bob@example.com"),
		Email:      "bob@example.com",
		FullName:   "Bob",
		Role:       rbac.RoleAdmin,
		IsActive:   true,
	}
	require.NoError(t, store.Create(ctx, user, nil))
	require.NoError(t, store.SetActive(ctx, user.ID, false))

	found, err := store.FindActiveAdminUser(ctx, "ident-2")
	require.NoError(t, err)
	assert.Nil(t, found)

	found, err = store.FindActiveAdminUser(ctx, "no-such-identity")
	require.NoError(t, err)
	assert.Nil(t, found)

	got, err := store.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestStore_TouchLastLogin(t *testing.T) {
	db := storagetest.NewSQLite(t)
	store := NewStore(db)
	ctx := context.Background()

	user := &rbac.AdminUser{Email: "c@example.com", FullName: "C", Role: rbac.RoleViewer, IsActive: true}
	require.NoError(t, store.Create(ctx, user, nil))

	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	require.NoError(t, store.TouchLastLogin(ctx, user.ID, at))

	got, err := store.Get(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLoginAt)
	assert.True(t, at.Equal(*got.LastLoginAt))
}

func TestStore_ListCountOrder(t *testing.T) {
	db := storagetest.NewSQLite(t)
	store := NewStore(db)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, email := range []string{"old@example.com", "mid@example.com", "new@example.com"} {
		user := &rbac.AdminUser{
			Email:     email,
			FullName:  email,
			Role:      rbac.RoleViewer,
			IsActive:  true,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, store.Create(ctx, user, nil))
	}

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	users, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "new@example.com", users[0].Email)
	assert.Equal(t, "old@example.com", users[2].Email)
}

func TestStore_ReplacePermissions(t *testing.T) {
	db := storagetest.NewSQLite(t)
	store := NewStore(db)
	ctx := context.Background()

	user := &rbac.AdminUser{Email: "d@example.com", FullName: "D", Role: rbac.RoleEditor, IsActive: true}
	require.NoError(t, store.Create(ctx, user, rbac.DefaultTemplates()[rbac.RoleEditor].Permissions("")))

	replacement := rbac.PermissionSet{{Resource: rbac.ResourceMessages, CanView: true, CanDelete: true}}
	require.NoError(t, store.ReplacePermissions(ctx, user.ID, replacement))

	perms, err := store.ListPermissions(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, perms, 1)
	assert.Equal(t, rbac.ResourceMessages, perms[0].Resource)
	assert.True(t, perms[0].CanDelete)

	assert.ErrorIs(t, store.ReplacePermissions(ctx, "missing", replacement), ErrNotFound)
}

func TestStore_Delete(t *testing.T) {
	db := storagetest.NewSQLite(t)
	store := NewStore(db)
	ctx := context.Background()

	user := &rbac.AdminUser{Email: "e@example.com", FullName: "E", Role: rbac.RoleViewer, IsActive: true}
	require.NoError(t, store.Create(ctx, user, rbac.DefaultTemplates()[rbac.RoleViewer].Permissions("")))

	require.NoError(t, store.Delete(ctx, user.ID))
	_, err := store.Get(ctx, user.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	perms, err := store.ListPermissions(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, perms)

	assert.ErrorIs(t, store.Delete(ctx, user.ID), ErrNotFound)
	assert.ErrorIs(t, store.SetActive(ctx, user.ID, true), ErrNotFound)
}

func TestStore_CreateRollsBackOnPermissionFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO admin_users").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO user_permissions").WillReturnError(errors.New("constraint failed"))
	mock.ExpectRollback()

	store := NewStore(db)
	err = store.Create(context.Background(), &rbac.AdminUser{
		Email: "f@example.com", FullName: "F", Role: rbac.RoleViewer, IsActive: true,
	}, rbac.PermissionSet{{Resource: rbac.ResourceProjects, CanView: true}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "projects")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_FindActiveAdminUser_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM admin_users").
		WithArgs("ident-x", true).
		WillReturnError(errors.New("timeout"))

	_, err = NewStore(db).FindActiveAdminUser(context.Background(), "ident-x")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
