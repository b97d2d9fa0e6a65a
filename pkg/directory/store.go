package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/platinummonkey/sitepanel/pkg/rbac"
)

// ErrNotFound is returned when an admin user does not exist
var ErrNotFound = errors.New("admin user not found")

const adminUserColumns = "id, auth_user_id, email, full_name, role, is_active, created_at, last_login"

// Store handles admin user and permission persistence
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore creates a new directory store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAdminUser(row rowScanner) (*rbac.AdminUser, error) {
	var user rbac.AdminUser
	var identityID sql.NullString
	var role string
	var lastLogin sql.NullTime

	err := row.Scan(
		&user.ID,
		&identityID,
		&user.Email,
		&user.FullName,
		&role,
		&user.IsActive,
		&user.CreatedAt,
		&lastLogin,
	)
	if err != nil {
		return nil, err
	}

	user.Role = rbac.Role(role)
	if identityID.Valid {
		id := identityID.String
		user.IdentityID = &id
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		user.LastLoginAt = &t
	}
	return &user, nil
}

// FindActiveAdminUser returns the active admin user linked to identityID.
// It returns nil without error when there is none, including when the only
// linked record is inactive.
func (s *Store) FindActiveAdminUser(ctx context.Context, identityID string) (*rbac.AdminUser, error) {
	query := `SELECT ` + adminUserColumns + `
		FROM admin_users
		WHERE auth_user_id = $1 AND is_active = $2
	`

	user, err := scanAdminUser(s.db.QueryRowContext(ctx, query, identityID, true))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find admin user: %w", err)
	}
	return user, nil
}

// ListPermissions returns every permission row for an admin user
func (s *Store) ListPermissions(ctx context.Context, adminUserID string) (rbac.PermissionSet, error) {
	query := `
		SELECT user_id, resource, can_view, can_create, can_edit, can_delete
		FROM user_permissions
		WHERE user_id = $1
		ORDER BY resource
	`

	rows, err := s.db.QueryContext(ctx, query, adminUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	defer rows.Close()

	perms := rbac.PermissionSet{}
	for rows.Next() {
		var perm rbac.Permission
		var resource string
		if err := rows.Scan(&perm.AdminUserID, &resource, &perm.CanView, &perm.CanCreate, &perm.CanEdit, &perm.CanDelete); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		perm.Resource = rbac.Resource(resource)
		perms = append(perms, perm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate permissions: %w", err)
	}
	return perms, nil
}

// TouchLastLogin records at as the admin user's last login
func (s *Store) TouchLastLogin(ctx context.Context, adminUserID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, "UPDATE admin_users SET last_login = $1 WHERE id = $2", at.UTC(), adminUserID)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

// Count returns the number of admin users
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM admin_users").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count admin users: %w", err)
	}
	return n, nil
}

// List returns every admin user, newest first
func (s *Store) List(ctx context.Context) ([]*rbac.AdminUser, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+adminUserColumns+` FROM admin_users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list admin users: %w", err)
	}
	defer rows.Close()

	var users []*rbac.AdminUser
	for rows.Next() {
		user, err := scanAdminUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan admin user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate admin users: %w", err)
	}
	return users, nil
}

// Get returns an admin user by id regardless of active state
func (s *Store) Get(ctx context.Context, id string) (*rbac.AdminUser, error) {
	user, err := scanAdminUser(s.db.QueryRowContext(ctx, `SELECT `+adminUserColumns+` FROM admin_users WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get admin user: %w", err)
	}
	return user, nil
}

// Create inserts an admin user and its permission rows in one transaction.
// ID and CreatedAt are assigned when empty.
func (s *Store) Create(ctx context.Context, user *rbac.AdminUser, perms rbac.PermissionSet) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO admin_users (id, auth_user_id, email, full_name, role, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, user.ID, user.IdentityID, user.Email, user.FullName, string(user.Role), user.IsActive, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	if err := insertPermissions(ctx, tx, user.ID, perms); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit admin user: %w", err)
	}
	return nil
}

func insertPermissions(ctx context.Context, tx *sql.Tx, adminUserID string, perms rbac.PermissionSet) error {
	for _, perm := range perms {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO user_permissions (user_id, resource, can_view, can_create, can_edit, can_delete)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, adminUserID, string(perm.Resource), perm.CanView, perm.CanCreate, perm.CanEdit, perm.CanDelete)
		if err != nil {
			return fmt.Errorf("failed to insert permission %s: %w", perm.Resource, err)
		}
	}
	return nil
}

// SetActive activates or deactivates an admin user
func (s *Store) SetActive(ctx context.Context, id string, active bool) error {
	result, err := s.db.ExecContext(ctx, "UPDATE admin_users SET is_active = $1 WHERE id = $2", active, id)
	if err != nil {
		return fmt.Errorf("failed to update admin user: %w", err)
	}
	return requireAffected(result)
}

// ReplacePermissions swaps an admin user's permission rows for perms
func (s *Store) ReplacePermissions(ctx context.Context, id string, perms rbac.PermissionSet) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM admin_users WHERE id = $1", id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get admin user: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM user_permissions WHERE user_id = $1", id); err != nil {
		return fmt.Errorf("failed to clear permissions: %w", err)
	}
	if err := insertPermissions(ctx, tx, id, perms); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit permissions: %w", err)
	}
	return nil
}

// Delete removes an admin user and its permissions
func (s *Store) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM user_permissions WHERE user_id = $1", id); err != nil {
		return fmt.Errorf("failed to delete permissions: %w", err)
	}
	result, err := tx.ExecContext(ctx, "DELETE FROM admin_users WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete admin user: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
