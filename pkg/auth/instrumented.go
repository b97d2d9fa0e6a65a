package auth

import (
	"context"

	"github.com/platinummonkey/sitepanel/pkg/observability"
)

// InstrumentedSessionStore counts store operations by backend and outcome
type InstrumentedSessionStore struct {
	SessionStore
	backend string
	metrics *observability.Metrics
}

// WithMetrics wraps store so each operation is recorded under backend
func WithMetrics(store SessionStore, backend string, metrics *observability.Metrics) *InstrumentedSessionStore {
	return &InstrumentedSessionStore{SessionStore: store, backend: backend, metrics: metrics}
}

func (s *InstrumentedSessionStore) Get(ctx context.Context, sid string) (*SessionRecord, error) {
	rec, err := s.SessionStore.Get(ctx, sid)
	s.metrics.RecordStoreOperation("get", s.backend, err)
	return rec, err
}

func (s *InstrumentedSessionStore) Put(ctx context.Context, sid string, rec SessionRecord) error {
	err := s.SessionStore.Put(ctx, sid, rec)
	s.metrics.RecordStoreOperation("put", s.backend, err)
	return err
}

func (s *InstrumentedSessionStore) Delete(ctx context.Context, sid string) error {
	err := s.SessionStore.Delete(ctx, sid)
	s.metrics.RecordStoreOperation("delete", s.backend, err)
	return err
}
