package session

import (
	"context"
	"sync"
	"time"

	"github.com/platinummonkey/sitepanel/pkg/auth"
	"github.com/platinummonkey/sitepanel/pkg/rbac"
)

type fakeProvider struct {
	mu           sync.Mutex
	current      *auth.Identity
	currentErr   error
	subs         map[int]func(auth.Event)
	nextSub      int
	subscribes   int
	unsubscribes int

	signInErr      error
	signInIdentity *auth.Identity
	signOutGate    chan struct{}
	signOuts       chan struct{}
}

func newFakeProvider(current *auth.Identity) *fakeProvider {
	return &fakeProvider{
		current:  current,
		subs:     make(map[int]func(auth.Event)),
		signOuts: make(chan struct{}, 8),
	}
}

func (p *fakeProvider) CurrentIdentity(ctx context.Context) (*auth.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, p.currentErr
}

func (p *fakeProvider) Subscribe(fn func(auth.Event)) auth.Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribes++
	p.nextSub++
	id := p.nextSub
	p.subs[id] = fn
	return auth.SubscriptionFunc(func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.unsubscribes++
		delete(p.subs, id)
	})
}

func (p *fakeProvider) SignIn(ctx context.Context, email, password string) error {
	if p.signInErr != nil {
		return p.signInErr
	}
	p.set(p.signInIdentity)
	p.emit(auth.EventSignedIn)
	return nil
}

func (p *fakeProvider) SignOut(ctx context.Context) error {
	if p.signOutGate != nil {
		<-p.signOutGate
	}
	p.set(nil)
	p.emit(auth.EventSignedOut)
	p.signOuts <- struct{}{}
	return nil
}

func (p *fakeProvider) set(identity *auth.Identity) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = identity
}

func (p *fakeProvider) emit(kind auth.EventKind) {
	p.mu.Lock()
	fns := make([]func(auth.Event), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(auth.Event{Kind: kind, At: time.Now()})
	}
}

func (p *fakeProvider) counts() (subscribes, unsubscribes int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.subscribes, p.unsubscribes
}

type fakeDirectory struct {
	mu        sync.Mutex
	users     map[string]*rbac.AdminUser
	perms     map[string]rbac.PermissionSet
	findErr   error
	permErr   error
	touchErr  error
	gates     map[string]chan struct{}
	permGates map[string]chan struct{}

	entered chan string
	found   chan string
	touched chan string
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		users:     make(map[string]*rbac.AdminUser),
		perms:     make(map[string]rbac.PermissionSet),
		gates:     make(map[string]chan struct{}),
		permGates: make(map[string]chan struct{}),
		entered:   make(chan string, 64),
		found:     make(chan string, 64),
		touched:   make(chan string, 64),
	}
}

func (d *fakeDirectory) add(identityID string, user rbac.AdminUser, perms rbac.PermissionSet) {
	d.mu.Lock()
	defer d.mu.Unlock()
	user.IdentityID = &identityID
	d.users[identityID] = &user
	d.perms[user.ID] = perms
}

func (d *fakeDirectory) setActive(identityID string, active bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[identityID].IsActive = active
}

func (d *fakeDirectory) gate(identityID string) chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	ch := make(chan struct{})
	d.gates[identityID] = ch
	return ch
}

// gatePermissions blocks ListPermissions for adminUserID until the channel is closed
func (d *fakeDirectory) gatePermissions(adminUserID string) chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	ch := make(chan struct{})
	d.permGates[adminUserID] = ch
	return ch
}

func (d *fakeDirectory) FindActiveAdminUser(ctx context.Context, identityID string) (*rbac.AdminUser, error) {
	d.mu.Lock()
	gate := d.gates[identityID]
	d.mu.Unlock()

	d.entered <- identityID
	defer func() { d.found <- identityID }()
	if gate != nil {
		<-gate
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.findErr != nil {
		return nil, d.findErr
	}
	user := d.users[identityID]
	if user == nil || !user.IsActive {
		return nil, nil
	}
	out := *user
	return &out, nil
}

func (d *fakeDirectory) ListPermissions(ctx context.Context, adminUserID string) (rbac.PermissionSet, error) {
	d.mu.Lock()
	gate := d.permGates[adminUserID]
	d.mu.Unlock()
	if gate != nil {
		<-gate
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.permErr != nil {
		return nil, d.permErr
	}
	return d.perms[adminUserID].Clone(), nil
}

func (d *fakeDirectory) TouchLastLogin(ctx context.Context, adminUserID string, at time.Time) error {
	d.mu.Lock()
	err := d.touchErr
	d.mu.Unlock()
	d.touched <- adminUserID
	return err
}
