package guard

import (
	"context"
	"testing"
	"time"

	"github.com/platinummonkey/sitepanel/pkg/auth"
	"github.com/platinummonkey/sitepanel/pkg/rbac"
	"github.com/platinummonkey/sitepanel/pkg/session"
)

type staticProvider struct {
	identity *auth.Identity
}

func (p staticProvider) CurrentIdentity(ctx context.Context) (*auth.Identity, error) {
	return p.identity, nil
}

func (p staticProvider) Subscribe(fn func(auth.Event)) auth.Subscription {
	return auth.SubscriptionFunc(func() {})
}

func (p staticProvider) SignIn(ctx context.Context, email, password string) error { return nil }
func (p staticProvider) SignOut(ctx context.Context) error                        { return nil }

type staticDirectory struct {
	user  *rbac.AdminUser
	perms rbac.PermissionSet
}

func (d staticDirectory) FindActiveAdminUser(ctx context.Context, identityID string) (*rbac.AdminUser, error) {
	if d.user == nil || !d.user.IsActive {
		return nil, nil
	}
	return d.user, nil
}

func (d staticDirectory) ListPermissions(ctx context.Context, adminUserID string) (rbac.PermissionSet, error) {
	return d.perms, nil
}

func (d staticDirectory) TouchLastLogin(ctx context.Context, adminUserID string, at time.Time) error {
	return nil
}

func adminUser(role rbac.Role) *rbac.AdminUser {
	return &rbac.AdminUser{ID: "admin-" + string(role), Email: string(role) + "@example.com", Role: role, IsActive: true}
}

func snapshotFor(user *rbac.AdminUser, perms ...rbac.Permission) session.Snapshot {
	return session.Snapshot{
		Identity:    &auth.Identity{ID: "identity-1", Email: "someone@example.com"},
		AdminUser:   user,
		Permissions: perms,
	}
}

// resolvedManager returns an initialized manager for user. A nil user yields
// a manager with no identity.
func resolvedManager(t *testing.T, user *rbac.AdminUser, perms ...rbac.Permission) *session.Manager {
	t.Helper()
	provider := staticProvider{}
	if user != nil {
		provider.identity = &auth.Identity{ID: "identity-1", Email: user.Email}
	}
	m := session.NewManager(provider, staticDirectory{user: user, perms: perms})
	m.Initialize(context.Background())
	t.Cleanup(m.Close)
	return m
}
