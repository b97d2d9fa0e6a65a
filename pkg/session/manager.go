package session

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/platinummonkey/sitepanel/pkg/auth"
	"github.com/platinummonkey/sitepanel/pkg/observability"
	"github.com/platinummonkey/sitepanel/pkg/rbac"
)

const (
	outcomeAuthenticated = "authenticated"
	outcomeNoAdmin       = "no_admin"
	outcomeSignedOut     = "signed_out"
	outcomeError         = "error"
)

// Manager owns the session of one browser session. It is the only writer of
// the Snapshot; everything else reads it.
type Manager struct {
	provider       Provider
	directory      Directory
	logger         *observability.Logger
	metrics        *observability.Metrics
	now            func() time.Time
	resolveTimeout time.Duration

	// notifyMu orders listener delivery across publishes
	notifyMu sync.Mutex

	mu          sync.RWMutex
	snap        Snapshot
	generation  uint64
	initialized bool
	closed      bool
	sub         auth.Subscription
	changed     chan struct{}
	listeners   map[uint64]func(Snapshot)
	nextID      uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Manager
type Option func(*Manager)

// WithLogger sets the manager's logger
func WithLogger(logger *observability.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics records sign-ins, sign-outs and resolutions
func WithMetrics(metrics *observability.Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithResolveTimeout bounds a single background resolution
func WithResolveTimeout(d time.Duration) Option {
	return func(m *Manager) { m.resolveTimeout = d }
}

// NewManager creates a manager in the resolving state. Call Initialize to
// subscribe and resolve the current identity.
func NewManager(provider Provider, directory Directory, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		provider:       provider,
		directory:      directory,
		logger:         observability.NopLogger(),
		now:            time.Now,
		resolveTimeout: 10 * time.Second,
		snap:           Snapshot{Loading: true},
		changed:        make(chan struct{}),
		listeners:      make(map[uint64]func(Snapshot)),
		ctx:            ctx,
		cancel:         cancel,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.WithField("component", "session_manager")
	return m
}

// Initialize registers the identity-change subscription and resolves the
// current identity. Only the first call has any effect.
func (m *Manager) Initialize(ctx context.Context) {
	m.mu.Lock()
	if m.initialized || m.closed {
		m.mu.Unlock()
		return
	}
	m.initialized = true
	m.generation++
	gen := m.generation
	m.mu.Unlock()

	sub := m.provider.Subscribe(m.handleEvent)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		sub.Unsubscribe()
		return
	}
	m.sub = sub
	m.mu.Unlock()

	m.refresh(ctx, gen)
}

// handleEvent starts a new generation and resolves it in the background.
// Loading stays true until the newest generation is applied.
func (m *Manager) handleEvent(event auth.Event) {
	m.notifyMu.Lock()
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		m.notifyMu.Unlock()
		return
	}
	m.generation++
	gen := m.generation
	next := m.snap
	next.Loading = true
	listeners := m.swapLocked(next)
	m.mu.Unlock()
	deliver(listeners, next)
	m.notifyMu.Unlock()

	m.logger.WithFields(map[string]interface{}{
		"event":      string(event.Kind),
		"generation": gen,
	}).Debug("Identity changed")

	m.spawn(func() {
		defer observability.RecoverPanicWithCallback(m.logger, "session resolution", func() {
			m.apply(gen, Snapshot{})
		})

		ctx, cancel := context.WithTimeout(m.ctx, m.resolveTimeout)
		defer cancel()
		m.refresh(ctx, gen)
	})
}

// spawn runs fn in a goroutine that Close waits for. Nothing is started once
// the manager is closed.
func (m *Manager) spawn(fn func()) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return false
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		fn()
	}()
	return true
}

// refresh reads the current identity and resolves it under gen
func (m *Manager) refresh(ctx context.Context, gen uint64) {
	identity, err := m.provider.CurrentIdentity(ctx)
	if err != nil {
		m.logger.WithError(err).Warn("Failed to read current identity")
		m.metrics.RecordResolution(outcomeError, 0)
		m.apply(gen, Snapshot{})
		return
	}
	if identity == nil {
		m.metrics.RecordResolution(outcomeSignedOut, 0)
		m.apply(gen, Snapshot{})
		return
	}
	m.apply(gen, m.resolve(ctx, identity, true))
}

// resolve maps an identity to its active admin user and permissions. Every
// failure yields a snapshot without an admin user.
func (m *Manager) resolve(ctx context.Context, identity *auth.Identity, stamp bool) Snapshot {
	ctx, span := observability.Tracer("sitepanel/session").Start(ctx, "session.resolve")
	defer span.End()
	span.SetAttributes(attribute.String("identity.id", identity.ID))

	start := m.now()
	logger := m.logger.WithField("identity_id", identity.ID)
	unresolved := Snapshot{Identity: identity}

	user, err := m.directory.FindActiveAdminUser(ctx, identity.ID)
	if err != nil {
		logger.WithError(err).Error("Failed to look up admin user")
		span.RecordError(err)
		span.SetStatus(codes.Error, "admin user lookup failed")
		m.metrics.RecordResolution(outcomeError, m.now().Sub(start))
		return unresolved
	}
	if user == nil || !user.IsActive {
		m.metrics.RecordResolution(outcomeNoAdmin, m.now().Sub(start))
		return unresolved
	}

	perms, err := m.directory.ListPermissions(ctx, user.ID)
	if err != nil {
		logger.WithError(err).Error("Failed to load permissions")
		span.RecordError(err)
		span.SetStatus(codes.Error, "permission lookup failed")
		m.metrics.RecordResolution(outcomeError, m.now().Sub(start))
		return unresolved
	}

	if stamp {
		m.stampLastLogin(user.ID)
	}

	span.SetAttributes(
		attribute.String("admin_user.id", user.ID),
		attribute.String("admin_user.role", string(user.Role)),
	)
	m.metrics.RecordResolution(outcomeAuthenticated, m.now().Sub(start))

	resolved := *user
	return Snapshot{Identity: identity, AdminUser: &resolved, Permissions: perms.Clone()}
}

// stampLastLogin records the login time without holding up resolution
func (m *Manager) stampLastLogin(adminUserID string) {
	at := m.now()
	m.spawn(func() {
		defer observability.RecoverPanic(m.logger, "last login stamp")

		ctx, cancel := context.WithTimeout(m.ctx, m.resolveTimeout)
		defer cancel()
		if err := m.directory.TouchLastLogin(ctx, adminUserID, at); err != nil {
			m.logger.WithError(err).WithField("admin_user_id", adminUserID).Warn("Failed to stamp last login")
			m.metrics.RecordStampFailure()
		}
	})
}

// apply publishes snap if gen is still the newest generation
func (m *Manager) apply(gen uint64, snap Snapshot) bool {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	if m.closed || gen != m.generation {
		m.mu.Unlock()
		m.logger.WithField("generation", gen).Debug("Discarding stale resolution")
		return false
	}
	snap.Loading = false
	listeners := m.swapLocked(snap)
	m.mu.Unlock()

	deliver(listeners, snap)
	return true
}

// swapLocked installs snap, wakes waiters and returns the listeners to call
func (m *Manager) swapLocked(snap Snapshot) []func(Snapshot) {
	m.snap = snap
	close(m.changed)
	m.changed = make(chan struct{})

	listeners := make([]func(Snapshot), 0, len(m.listeners))
	for _, fn := range m.listeners {
		listeners = append(listeners, fn)
	}
	return listeners
}

func deliver(listeners []func(Snapshot), snap Snapshot) {
	for _, fn := range listeners {
		fn(snap)
	}
}

// SignIn verifies credentials through the provider. It does not change the
// snapshot; the resulting identity event does.
func (m *Manager) SignIn(ctx context.Context, email, password string) error {
	if err := m.provider.SignIn(ctx, email, password); err != nil {
		m.metrics.RecordSignIn("failure")
		return err
	}
	m.metrics.RecordSignIn("success")
	return nil
}

// SignOut clears the session before returning and invalidates the provider
// session in the background.
func (m *Manager) SignOut(ctx context.Context) {
	m.notifyMu.Lock()
	m.mu.Lock()
	m.generation++
	listeners := m.swapLocked(Snapshot{})
	m.mu.Unlock()
	deliver(listeners, Snapshot{})
	m.notifyMu.Unlock()

	m.metrics.RecordSignOut()

	remoteCtx := context.WithoutCancel(ctx)
	invalidate := func() {
		defer observability.RecoverPanic(m.logger, "provider sign out")

		ctx, cancel := context.WithTimeout(remoteCtx, m.resolveTimeout)
		defer cancel()
		if err := m.provider.SignOut(ctx); err != nil {
			m.logger.WithError(err).Warn("Failed to invalidate provider session")
		}
	}
	if !m.spawn(invalidate) {
		go invalidate()
	}
}

// Refresh re-checks the session against the provider and directory. An
// identity change goes through the normal event path. Otherwise the admin
// user is re-resolved in place so deactivation and permission edits take
// effect, without entering the loading state. A resolution already in
// flight may have read the old rows, so it is superseded by a new one.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.RLock()
	snap, gen, ready := m.snap, m.generation, m.initialized && !m.closed
	m.mu.RUnlock()
	if !ready {
		return nil
	}
	if snap.Loading {
		m.handleEvent(auth.Event{Kind: auth.EventExpired, At: m.now()})
		return nil
	}

	identity, err := m.provider.CurrentIdentity(ctx)
	if err != nil {
		return err
	}

	if identityID(identity) != identityID(snap.Identity) {
		m.handleEvent(auth.Event{Kind: auth.EventExpired, At: m.now()})
		return nil
	}
	if identity == nil {
		return nil
	}

	m.apply(gen, m.resolve(ctx, identity, false))
	return nil
}

func identityID(identity *auth.Identity) string {
	if identity == nil {
		return ""
	}
	return identity.ID
}

// Snapshot returns the current session
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap
}

// Wait blocks until the session is not loading or ctx is done, and returns
// the latest snapshot either way
func (m *Manager) Wait(ctx context.Context) (Snapshot, error) {
	for {
		m.mu.RLock()
		snap, changed := m.snap, m.changed
		m.mu.RUnlock()

		if !snap.Loading {
			return snap, nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return snap, ctx.Err()
		}
	}
}

// Watch calls fn with every published snapshot until the returned cancel is
// called. fn runs synchronously and must not call back into the Manager's
// mutating methods.
func (m *Manager) Watch(fn func(Snapshot)) (cancel func()) {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.listeners[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.listeners, id)
			m.mu.Unlock()
		})
	}
}

func (m *Manager) HasPermission(resource rbac.Resource, action rbac.Action) bool {
	return m.Snapshot().HasPermission(resource, action)
}

func (m *Manager) IsAdmin() bool {
	return m.Snapshot().IsAdmin()
}

func (m *Manager) IsSuperAdmin() bool {
	return m.Snapshot().IsSuperAdmin()
}

// Close releases the identity subscription exactly once, cancels background
// work and leaves an empty snapshot behind
func (m *Manager) Close() {
	m.notifyMu.Lock()
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		m.notifyMu.Unlock()
		return
	}
	m.closed = true
	sub := m.sub
	m.sub = nil
	m.generation++
	listeners := m.swapLocked(Snapshot{})
	m.mu.Unlock()
	deliver(listeners, Snapshot{})
	m.notifyMu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	m.cancel()
	m.wg.Wait()
}
