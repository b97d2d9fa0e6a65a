// Package auth provides identities, credential checks and browser sessions
// for the sitepanel admin.
//
// # Overview
//
// An Identity is an authenticated principal from the credential store. It
// says nothing about what the holder may do; authorization lives in the admin
// directory and is resolved by package session.
//
// # Key Components
//
// SQLIdentityStore: email and bcrypt password hash per identity
//
//	identities := auth.NewSQLIdentityStore(db, bcrypt.DefaultCost)
//	identity, err := identities.Authenticate(ctx, "alice@example.com", "secret")
//
// Session stores: map a browser session id to the signed-in identity and
// notify watchers on every write. MemorySessionStore is process local;
// RedisSessionStore shares sessions and change events across processes.
//
//	// Session id format: sps_[base64url(32 random bytes)]
//	// Stores key by the SHA256 of the id
//
// BrowserSession: the identity provider for one session id. SignIn and
// SignOut write to the store, and Subscribe turns store writes into Events.
//
//	provider := auth.NewBrowserSession(sid, store, identities, 12*time.Hour)
//	sub := provider.Subscribe(func(e auth.Event) { ... })
//	defer sub.Unsubscribe()
//
// # Related Packages
//
//   - pkg/session: Turns identity changes into resolved admin sessions
//   - pkg/directory: Admin users and permissions
package auth
