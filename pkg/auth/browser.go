package auth

import (
	"context"
	"fmt"
	"time"
)

// BrowserSession is the identity provider for one browser session id. It
// signs in against an IdentityStore and records the result in a SessionStore.
type BrowserSession struct {
	sid        string
	store      SessionStore
	identities IdentityStore
	ttl        time.Duration
	now        func() time.Time
}

// NewBrowserSession binds a provider to sid
func NewBrowserSession(sid string, store SessionStore, identities IdentityStore, ttl time.Duration) *BrowserSession {
	return &BrowserSession{
		sid:        sid,
		store:      store,
		identities: identities,
		ttl:        ttl,
		now:        time.Now,
	}
}

// ID returns the browser session id
func (b *BrowserSession) ID() string {
	return b.sid
}

// CurrentIdentity returns the identity signed in on this browser session, or
// nil when there is none
func (b *BrowserSession) CurrentIdentity(ctx context.Context) (*Identity, error) {
	rec, err := b.store.Get(ctx, b.sid)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	return &Identity{ID: rec.IdentityID, Email: rec.Email, CreatedAt: rec.IssuedAt}, nil
}

// Subscribe delivers an Event for every store write touching this session
func (b *BrowserSession) Subscribe(fn func(Event)) Subscription {
	cancel := b.store.Watch(b.sid, func(kind ChangeKind) {
		event := Event{Kind: EventSignedIn, At: b.now()}
		if kind == ChangeDelete {
			event.Kind = EventSignedOut
		}
		fn(event)
	})
	return SubscriptionFunc(cancel)
}

// SignIn verifies credentials and binds the identity to this session
func (b *BrowserSession) SignIn(ctx context.Context, email, password string) error {
	identity, err := b.identities.Authenticate(ctx, email, password)
	if err != nil {
		return err
	}

	now := b.now().UTC()
	rec := SessionRecord{
		IdentityID: identity.ID,
		Email:      identity.Email,
		IssuedAt:   now,
	}
	if b.ttl > 0 {
		rec.ExpiresAt = now.Add(b.ttl)
	}
	if err := b.store.Put(ctx, b.sid, rec); err != nil {
		return fmt.Errorf("failed to record session: %w", err)
	}
	return nil
}

// SignOut removes this session's identity binding
func (b *BrowserSession) SignOut(ctx context.Context) error {
	return b.store.Delete(ctx, b.sid)
}
