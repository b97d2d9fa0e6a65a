package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// SQLIdentityStore keeps identities and bcrypt password hashes in the
// identities table.
type SQLIdentityStore struct {
	db   *sql.DB
	cost int
	now  func() time.Time

	// placeholder is compared against when an email is unknown so that a
	// failed lookup costs the same as a wrong password.
	placeholderOnce sync.Once
	placeholder     []byte
}

// NewSQLIdentityStore creates an identity store. A cost of zero uses bcrypt.DefaultCost.
func NewSQLIdentityStore(db *sql.DB, cost int) *SQLIdentityStore {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &SQLIdentityStore{db: db, cost: cost, now: time.Now}
}

// NormalizeEmail lower-cases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp creates an identity for email with the given password
func (s *SQLIdentityStore) SignUp(ctx context.Context, email, password string) (*Identity, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM identities WHERE email = $1", email).Scan(&exists)
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	identity := &Identity{
		ID:        uuid.NewString(),
		Email:     email,
		CreatedAt: s.now().UTC(),
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO identities (id, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
	`, identity.ID, identity.Email, string(hash), identity.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity: %w", err)
	}

	return identity, nil
}

// Authenticate verifies email and password. Unknown emails and wrong
// passwords both return ErrInvalidCredentials.
func (s *SQLIdentityStore) Authenticate(ctx context.Context, email, password string) (*Identity, error) {
	var identity Identity
	var hash string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, email, password_hash, created_at FROM identities WHERE email = $1",
		NormalizeEmail(email),
	).Scan(&identity.ID, &identity.Email, &hash, &identity.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		_ = bcrypt.CompareHashAndPassword(s.placeholderHash(), []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up identity: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &identity, nil
}

// placeholderHash returns a hash at the store's cost, built on first use
func (s *SQLIdentityStore) placeholderHash() []byte {
	s.placeholderOnce.Do(func() {
		s.placeholder, _ = bcrypt.GenerateFromPassword([]byte("sitepanel-placeholder"), s.cost)
	})
	return s.placeholder
}

// Get returns an identity by id
func (s *SQLIdentityStore) Get(ctx context.Context, id string) (*Identity, error) {
	var identity Identity
	err := s.db.QueryRowContext(ctx,
		"SELECT id, email, created_at FROM identities WHERE id = $1", id,
	).Scan(&identity.ID, &identity.Email, &identity.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get identity: %w", err)
	}
	return &identity, nil
}

// Delete removes an identity. Admin rows pointing at it keep existing with
// a NULL auth_user_id.
func (s *SQLIdentityStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM identities WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete identity: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
