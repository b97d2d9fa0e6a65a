package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/platinummonkey/sitepanel/pkg/observability"
)

const (
	redisSessionKeyPrefix = "sitepanel:session:"
	// RedisSessionChannel carries session change notifications between processes
	RedisSessionChannel = "sitepanel:session-events"
)

type sessionChange struct {
	Key    string     `json:"key"`
	Kind   ChangeKind `json:"kind"`
	Origin string     `json:"origin"`
}

// RedisSessionStore keeps sessions in Redis with a TTL per key and publishes
// every write so that managers in other processes re-resolve.
type RedisSessionStore struct {
	client   redis.UniversalClient
	pubsub   *redis.PubSub
	origin   string
	watchers *watchRegistry
	logger   *observability.Logger
	now      func() time.Time

	closeOnce sync.Once
	done      chan struct{}
}

// NewRedisSessionStore subscribes to the change channel and starts
// dispatching remote changes to local watchers
func NewRedisSessionStore(ctx context.Context, client redis.UniversalClient, logger *observability.Logger) (*RedisSessionStore, error) {
	if logger == nil {
		logger = observability.NopLogger()
	}

	pubsub := client.Subscribe(ctx, RedisSessionChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to session events: %w", err)
	}

	s := &RedisSessionStore{
		client:   client,
		pubsub:   pubsub,
		origin:   uuid.NewString(),
		watchers: newWatchRegistry(),
		logger:   logger.WithField("component", "redis_session_store"),
		now:      time.Now,
		done:     make(chan struct{}),
	}
	go s.dispatch(pubsub.Channel())
	return s, nil
}

func (s *RedisSessionStore) dispatch(messages <-chan *redis.Message) {
	defer close(s.done)
	defer observability.RecoverPanic(s.logger, "session event dispatch")

	for msg := range messages {
		var change sessionChange
		if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
			s.logger.WithError(err).Warn("Ignoring malformed session event")
			continue
		}
		if change.Origin == s.origin {
			continue
		}
		s.watchers.notify(change.Key, change.Kind)
	}
}

func (s *RedisSessionStore) Get(ctx context.Context, sid string) (*SessionRecord, error) {
	data, err := s.client.Get(ctx, redisSessionKeyPrefix+HashSessionID(sid)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var rec SessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if rec.Expired(s.now()) {
		return nil, nil
	}
	return &rec, nil
}

func (s *RedisSessionStore) Put(ctx context.Context, sid string, rec SessionRecord) error {
	ttl := time.Duration(0)
	if !rec.ExpiresAt.IsZero() {
		ttl = rec.ExpiresAt.Sub(s.now())
		if ttl <= 0 {
			return s.Delete(ctx, sid)
		}
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	key := HashSessionID(sid)
	if err := s.client.Set(ctx, redisSessionKeyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	s.publish(ctx, key, ChangePut)
	return nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, sid string) error {
	key := HashSessionID(sid)
	if err := s.client.Del(ctx, redisSessionKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	s.publish(ctx, key, ChangeDelete)
	return nil
}

// publish notifies local watchers synchronously and other processes through
// the channel. A failed publish is logged; the write itself already happened.
func (s *RedisSessionStore) publish(ctx context.Context, key string, kind ChangeKind) {
	s.watchers.notify(key, kind)

	payload, _ := json.Marshal(sessionChange{Key: key, Kind: kind, Origin: s.origin})
	if err := s.client.Publish(ctx, RedisSessionChannel, payload).Err(); err != nil {
		s.logger.WithError(err).Warn("Failed to publish session event")
	}
}

func (s *RedisSessionStore) Watch(sid string, fn func(ChangeKind)) func() {
	return s.watchers.add(HashSessionID(sid), fn)
}

// Close stops the subscription. The client is owned by the caller.
func (s *RedisSessionStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.pubsub.Close()
		<-s.done
	})
	return err
}
