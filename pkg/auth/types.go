package auth

import (
	"context"
	"errors"
	"time"
)

// Identity is an authenticated principal as known to the credential store.
// It carries no authorization information; that lives in the admin directory.
type Identity struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// EventKind names an identity change
type EventKind string

const (
	EventSignedIn  EventKind = "signed_in"
	EventSignedOut EventKind = "signed_out"
	EventExpired   EventKind = "expired"
)

// Event reports that the identity bound to a browser session may have
// changed. Consumers re-read the current identity after receiving one.
type Event struct {
	Kind EventKind
	At   time.Time
}

// Subscription is returned by Subscribe and stops delivery when cancelled
type Subscription interface {
	Unsubscribe()
}

// SubscriptionFunc adapts a plain function to Subscription
type SubscriptionFunc func()

// Unsubscribe calls f
func (f SubscriptionFunc) Unsubscribe() { f() }

// IdentityStore is the credential store behind sign-in
type IdentityStore interface {
	SignUp(ctx context.Context, email, password string) (*Identity, error)
	Authenticate(ctx context.Context, email, password string) (*Identity, error)
	Get(ctx context.Context, id string) (*Identity, error)
	Delete(ctx context.Context, id string) error
}

var (
	// ErrInvalidCredentials is returned for an unknown email or wrong password
	ErrInvalidCredentials = errors.New("invalid login credentials")
	// ErrEmailTaken is returned when signing up an email that already has an identity
	ErrEmailTaken = errors.New("email already registered")
	// ErrNotFound is returned when an identity does not exist
	ErrNotFound = errors.New("identity not found")
)
