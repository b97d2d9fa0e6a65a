package users

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"sort"
	"strings"

	"github.com/platinummonkey/sitepanel/pkg/auth"
	"github.com/platinummonkey/sitepanel/pkg/directory"
	"github.com/platinummonkey/sitepanel/pkg/rbac"
)

// MinPasswordLength is the shortest password accepted for a new identity
const MinPasswordLength = 6

var (
	// ErrSetupComplete is returned by Setup once any admin user exists
	ErrSetupComplete = errors.New("Admin user already exists. Setup is complete.")
	// ErrProtectedUser is returned when modifying a super admin
	ErrProtectedUser = errors.New("super admin users cannot be modified")
	// ErrForbidden is returned when the actor lacks the needed privilege
	ErrForbidden = errors.New("insufficient privileges")
	// ErrValidation is matched by every *ValidationError
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned for an unknown admin user id
	ErrNotFound = directory.ErrNotFound
)

// ValidationError lists invalid input fields
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(parts, ", "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

type validator map[string]string

func (v validator) check(ok bool, field, message string) {
	if !ok {
		if _, exists := v[field]; !exists {
			v[field] = message
		}
	}
}

func (v validator) err() error {
	if len(v) == 0 {
		return nil
	}
	return &ValidationError{Fields: v}
}

func validateCredentials(v validator, email, password, fullName string) {
	v.check(strings.TrimSpace(email) != "", "email", "is required")
	v.check(password != "", "password", "is required")
	v.check(strings.TrimSpace(fullName) != "", "full_name", "is required")

	if strings.TrimSpace(email) != "" {
		addr, err := mail.ParseAddress(email)
		v.check(err == nil && addr.Address == strings.TrimSpace(email), "email", "is not a valid address")
	}
	if password != "" {
		v.check(len(password) >= MinPasswordLength, "password",
			fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}
}

func validateTemplate(v validator, t rbac.Template) {
	for resource := range t {
		v.check(resource.Valid(), "permissions", fmt.Sprintf("unknown resource %q", resource))
	}
}

// CreateUserInput describes a new admin user. A nil Permissions uses the
// role's template.
type CreateUserInput struct {
	Email       string        `json:"email"`
	Password    string        `json:"password"`
	FullName    string        `json:"full_name"`
	Role        rbac.Role     `json:"role"`
	Permissions rbac.Template `json:"permissions,omitempty"`
}

// SetupInput describes the first super admin
type SetupInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// Directory is the admin directory write path
type Directory interface {
	Count(ctx context.Context) (int, error)
	List(ctx context.Context) ([]*rbac.AdminUser, error)
	Get(ctx context.Context, id string) (*rbac.AdminUser, error)
	ListPermissions(ctx context.Context, adminUserID string) (rbac.PermissionSet, error)
	Create(ctx context.Context, user *rbac.AdminUser, perms rbac.PermissionSet) error
	SetActive(ctx context.Context, id string, active bool) error
	ReplacePermissions(ctx context.Context, id string, perms rbac.PermissionSet) error
	Delete(ctx context.Context, id string) error
}

// Identities creates and removes sign-in identities
type Identities interface {
	SignUp(ctx context.Context, email, password string) (*auth.Identity, error)
	Delete(ctx context.Context, id string) error
}

// SessionRefresher re-resolves the live sessions of an identity
type SessionRefresher interface {
	RefreshIdentity(ctx context.Context, identityID string)
}

// UserDetail is an admin user with its permission rows
type UserDetail struct {
	*rbac.AdminUser
	Permissions rbac.PermissionSet `json:"permissions"`
}

