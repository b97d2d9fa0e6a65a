package auth

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// SessionRecord is what a session store keeps for one signed-in browser session
type SessionRecord struct {
	IdentityID string    `json:"identity_id"`
	Email      string    `json:"email"`
	IssuedAt   time.Time `json:"issued_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Expired reports whether the record is past its expiry at now
func (r SessionRecord) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}

// ChangeKind is the kind of write a session store observed
type ChangeKind string

const (
	ChangePut    ChangeKind = "put"
	ChangeDelete ChangeKind = "delete"
)

// SessionStore maps browser session ids to signed-in identities.
//
// Watch registers fn for changes to sid made through any store sharing the
// same backend. Writes made through this store notify local watchers before
// Put or Delete return.
type SessionStore interface {
	Get(ctx context.Context, sid string) (*SessionRecord, error)
	Put(ctx context.Context, sid string, rec SessionRecord) error
	Delete(ctx context.Context, sid string) error
	Watch(sid string, fn func(ChangeKind)) (cancel func())
	Close() error
}

// watchRegistry fans store changes out to in-process watchers, keyed by
// hashed session id.
type watchRegistry struct {
	mu       sync.Mutex
	next     uint64
	watchers map[string]map[uint64]func(ChangeKind)
}

func newWatchRegistry() *watchRegistry {
	return &watchRegistry{watchers: make(map[string]map[uint64]func(ChangeKind))}
}

func (w *watchRegistry) add(key string, fn func(ChangeKind)) func() {
	w.mu.Lock()
	w.next++
	id := w.next
	if w.watchers[key] == nil {
		w.watchers[key] = make(map[uint64]func(ChangeKind))
	}
	w.watchers[key][id] = fn
	w.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			delete(w.watchers[key], id)
			if len(w.watchers[key]) == 0 {
				delete(w.watchers, key)
			}
		})
	}
}

// notify calls watchers outside the lock so they may use the store
func (w *watchRegistry) notify(key string, kind ChangeKind) {
	w.mu.Lock()
	fns := make([]func(ChangeKind), 0, len(w.watchers[key]))
	for _, fn := range w.watchers[key] {
		fns = append(fns, fn)
	}
	w.mu.Unlock()

	for _, fn := range fns {
		fn(kind)
	}
}

func (w *watchRegistry) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.watchers)
}

// MemorySessionStore keeps sessions in a bounded, expiring LRU. It is only
// shared within one process.
type MemorySessionStore struct {
	cache    *expirable.LRU[string, SessionRecord]
	watchers *watchRegistry
	now      func() time.Time
}

// NewMemorySessionStore creates a memory store holding at most size sessions
// for at most ttl each
func NewMemorySessionStore(size int, ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		cache:    expirable.NewLRU[string, SessionRecord](size, nil, ttl),
		watchers: newWatchRegistry(),
		now:      time.Now,
	}
}

func (s *MemorySessionStore) Get(ctx context.Context, sid string) (*SessionRecord, error) {
	rec, ok := s.cache.Get(HashSessionID(sid))
	if !ok || rec.Expired(s.now()) {
		return nil, nil
	}
	return &rec, nil
}

func (s *MemorySessionStore) Put(ctx context.Context, sid string, rec SessionRecord) error {
	key := HashSessionID(sid)
	s.cache.Add(key, rec)
	s.watchers.notify(key, ChangePut)
	return nil
}

func (s *MemorySessionStore) Delete(ctx context.Context, sid string) error {
	key := HashSessionID(sid)
	s.cache.Remove(key)
	s.watchers.notify(key, ChangeDelete)
	return nil
}

func (s *MemorySessionStore) Watch(sid string, fn func(ChangeKind)) func() {
	return s.watchers.add(HashSessionID(sid), fn)
}

// Len returns the number of live sessions
func (s *MemorySessionStore) Len() int {
	return s.cache.Len()
}

func (s *MemorySessionStore) Close() error {
	s.cache.Purge()
	return nil
}
