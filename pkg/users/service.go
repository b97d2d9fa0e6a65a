// Package users manages admin accounts: first-run setup, creation from role
// templates, activation, permission edits and deletion.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/platinummonkey/sitepanel/pkg/audit"
	"github.com/platinummonkey/sitepanel/pkg/auth"
	"github.com/platinummonkey/sitepanel/pkg/observability"
	"github.com/platinummonkey/sitepanel/pkg/rbac"
)

// Service manages admin users. Every mutation is checked against the
// acting session, recorded to the audit trail, and pushed to live sessions
// of the affected identity.
type Service struct {
	directory  Directory
	identities Identities
	templates  *rbac.TemplateSource
	sessions   SessionRefresher
	logger     *observability.Logger

	// setupMu serializes first-run setup within this process
	setupMu sync.Mutex
}

// NewService creates a Service. sessions may be nil when no live sessions
// exist, as in the operator CLI.
func NewService(dir Directory, identities Identities, templates *rbac.TemplateSource, sessions SessionRefresher, logger *observability.Logger) *Service {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Service{
		directory:  dir,
		identities: identities,
		templates:  templates,
		sessions:   sessions,
		logger:     logger.WithField("component", "users"),
	}
}

// Templates returns the active role templates
func (s *Service) Templates() map[rbac.Role]rbac.Template {
	return s.templates.All()
}

// List returns every admin user, newest first
func (s *Service) List(ctx context.Context) ([]*rbac.AdminUser, error) {
	return s.directory.List(ctx)
}

// Get returns one admin user with its permission rows
func (s *Service) Get(ctx context.Context, id string) (*UserDetail, error) {
	user, err := s.directory.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	perms, err := s.directory.ListPermissions(ctx, id)
	if err != nil {
		return nil, err
	}
	return &UserDetail{AdminUser: user, Permissions: perms}, nil
}

// NeedsSetup reports whether no admin user exists yet
func (s *Service) NeedsSetup(ctx context.Context) (bool, error) {
	n, err := s.directory.Count(ctx)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// Setup creates the first super admin. It fails with ErrSetupComplete once
// any admin user exists.
func (s *Service) Setup(ctx context.Context, in SetupInput) (*rbac.AdminUser, error) {
	v := validator{}
	validateCredentials(v, in.Email, in.Password, in.FullName)
	if err := v.err(); err != nil {
		return nil, err
	}

	s.setupMu.Lock()
	defer s.setupMu.Unlock()

	needed, err := s.NeedsSetup(ctx)
	if err != nil {
		return nil, err
	}
	if !needed {
		return nil, ErrSetupComplete
	}

	user, err := s.provision(ctx, in.Email, in.Password, in.FullName, rbac.RoleSuperAdmin, nil)
	if err != nil {
		return nil, err
	}

	event := audit.NewEvent(ctx, nil, audit.EventTypeAdminSetup, audit.EventStatusSuccess)
	event.ResourceType = audit.ResourceTypeAdminUser
	event.ResourceID = user.ID
	event.Email = user.Email
	event.Message = "Initial super admin created"
	audit.Record(ctx, event)

	s.logger.WithField("admin_user_id", user.ID).Info("Setup complete")
	return user, nil
}

// Create adds an admin user with a new identity. Only a super admin may
// create another super admin.
func (s *Service) Create(ctx context.Context, actor rbac.Evaluator, in CreateUserInput) (*UserDetail, error) {
	if !actor.IsAdmin() || !actor.HasPermission(rbac.ResourceUsers, rbac.ActionCreate) {
		return nil, ErrForbidden
	}

	v := validator{}
	validateCredentials(v, in.Email, in.Password, in.FullName)
	v.check(in.Role.Valid(), "role", fmt.Sprintf("unknown role %q", in.Role))
	validateTemplate(v, in.Permissions)
	if err := v.err(); err != nil {
		return nil, err
	}
	if in.Role == rbac.RoleSuperAdmin && !actor.IsSuperAdmin() {
		return nil, ErrForbidden
	}

	tmpl := in.Permissions
	if tmpl == nil {
		tmpl = s.templates.Template(in.Role)
	}
	if in.Role == rbac.RoleSuperAdmin {
		tmpl = nil
	}

	user, err := s.provision(ctx, in.Email, in.Password, in.FullName, in.Role, tmpl)
	if err != nil {
		return nil, err
	}

	event := audit.NewEvent(ctx, nil, audit.EventTypeAdminUserCreate, audit.EventStatusSuccess)
	event.ResourceType = audit.ResourceTypeAdminUser
	event.ResourceID = user.ID
	event.Email = user.Email
	event.Metadata = map[string]interface{}{"role": string(user.Role)}
	audit.Record(ctx, event)

	return &UserDetail{AdminUser: user, Permissions: tmpl.Permissions(user.ID)}, nil
}

// provision signs up an identity and links a new active admin user to it.
// The identity is removed again if the directory insert fails.
func (s *Service) provision(ctx context.Context, email, password, fullName string, role rbac.Role, tmpl rbac.Template) (*rbac.AdminUser, error) {
	identity, err := s.identities.SignUp(ctx, email, password)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			return nil, &ValidationError{Fields: map[string]string{"email": "is already registered"}}
		}
		return nil, fmt.Errorf("failed to create identity: %w", err)
	}

	user := &rbac.AdminUser{
		IdentityID: &identity.ID,
		Email:      identity.Email,
		FullName:   strings.TrimSpace(fullName),
		Role:       role,
		IsActive:   true,
	}
	if err := s.directory.Create(ctx, user, tmpl.Permissions("")); err != nil {
		if derr := s.identities.Delete(context.WithoutCancel(ctx), identity.ID); derr != nil {
			s.logger.WithError(derr).WithField("identity_id", identity.ID).
				Error("Failed to roll back identity after admin user insert failed")
		}
		return nil, fmt.Errorf("failed to create admin record: %w", err)
	}
	return user, nil
}

// protectedTarget loads id and rejects super admins
func (s *Service) protectedTarget(ctx context.Context, id string) (*rbac.AdminUser, error) {
	target, err := s.directory.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if target.Role == rbac.RoleSuperAdmin {
		return nil, ErrProtectedUser
	}
	return target, nil
}

// SetActive activates or deactivates an admin user. A deactivated user's
// live sessions lose access immediately.
func (s *Service) SetActive(ctx context.Context, actor rbac.Evaluator, id string, active bool) (*rbac.AdminUser, error) {
	if !actor.IsAdmin() || !actor.HasPermission(rbac.ResourceUsers, rbac.ActionEdit) {
		return nil, ErrForbidden
	}
	target, err := s.protectedTarget(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.directory.SetActive(ctx, id, active); err != nil {
		return nil, err
	}
	target.IsActive = active
	s.refresh(ctx, target)

	eventType := audit.EventTypeAdminUserDeactivate
	if active {
		eventType = audit.EventTypeAdminUserActivate
	}
	event := audit.NewEvent(ctx, nil, eventType, audit.EventStatusSuccess)
	event.ResourceType = audit.ResourceTypeAdminUser
	event.ResourceID = target.ID
	event.Email = target.Email
	audit.Record(ctx, event)

	return target, nil
}

// UpdatePermissions replaces an admin user's permission rows
func (s *Service) UpdatePermissions(ctx context.Context, actor rbac.Evaluator, id string, perms rbac.Template) (rbac.PermissionSet, error) {
	if !actor.IsSuperAdmin() {
		return nil, ErrForbidden
	}
	v := validator{}
	validateTemplate(v, perms)
	if err := v.err(); err != nil {
		return nil, err
	}
	target, err := s.protectedTarget(ctx, id)
	if err != nil {
		return nil, err
	}

	rows := perms.Permissions(id)
	if err := s.directory.ReplacePermissions(ctx, id, rows); err != nil {
		return nil, err
	}
	s.refresh(ctx, target)

	event := audit.NewEvent(ctx, nil, audit.EventTypeAdminPermissionsUpdate, audit.EventStatusSuccess)
	event.ResourceType = audit.ResourceTypePermission
	event.ResourceID = target.ID
	event.Email = target.Email
	event.Metadata = map[string]interface{}{"rows": len(rows)}
	audit.Record(ctx, event)

	return rows, nil
}

// Delete removes an admin user, its permission rows and its identity
func (s *Service) Delete(ctx context.Context, actor rbac.Evaluator, id string) error {
	if !actor.IsSuperAdmin() {
		return ErrForbidden
	}
	target, err := s.protectedTarget(ctx, id)
	if err != nil {
		return err
	}

	if err := s.directory.Delete(ctx, id); err != nil {
		return err
	}
	if target.IdentityID != nil {
		err := s.identities.Delete(ctx, *target.IdentityID)
		if err != nil && !errors.Is(err, auth.ErrNotFound) {
			s.logger.WithError(err).WithField("identity_id", *target.IdentityID).
				Warn("Failed to delete identity of removed admin user")
		}
	}
	s.refresh(ctx, target)

	event := audit.NewEvent(ctx, nil, audit.EventTypeAdminUserDelete, audit.EventStatusSuccess)
	event.ResourceType = audit.ResourceTypeAdminUser
	event.ResourceID = target.ID
	event.Email = target.Email
	audit.Record(ctx, event)
	return nil
}

func (s *Service) refresh(ctx context.Context, target *rbac.AdminUser) {
	if s.sessions == nil || target.IdentityID == nil {
		return
	}
	s.sessions.RefreshIdentity(ctx, *target.IdentityID)
}
