package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"github.com/platinummonkey/sitepanel/pkg/observability"
)

// ProviderFactory returns the identity provider for a browser session id
type ProviderFactory func(sid string) Provider

// PoolConfig configures a Pool
type PoolConfig struct {
	// Size bounds the number of live managers; the least recently used is closed
	Size int
	// SweepSchedule is a cron spec for Refresh over every live manager. Empty disables sweeping.
	SweepSchedule string
	// InitTimeout bounds the first resolution of a new manager
	InitTimeout time.Duration

	Logger         *observability.Logger
	Metrics        *observability.Metrics
	ManagerOptions []Option
}

// Pool holds one Manager per browser session id
type Pool struct {
	managers  *lru.Cache[string, *Manager]
	group     singleflight.Group
	providers ProviderFactory
	directory Directory
	cfg       PoolConfig
	logger    *observability.Logger
	scheduler *cron.Cron

	closeOnce sync.Once
}

// NewPool creates a pool. Call Start to begin sweeping.
func NewPool(cfg PoolConfig, directory Directory, providers ProviderFactory) (*Pool, error) {
	if cfg.Logger == nil {
		cfg.Logger = observability.NopLogger()
	}
	if cfg.InitTimeout <= 0 {
		cfg.InitTimeout = 10 * time.Second
	}

	p := &Pool{
		providers: providers,
		directory: directory,
		cfg:       cfg,
		logger:    cfg.Logger.WithField("component", "session_pool"),
	}

	managers, err := lru.NewWithEvict[string, *Manager](cfg.Size, func(sid string, m *Manager) {
		go m.Close()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session pool: %w", err)
	}
	p.managers = managers

	if cfg.SweepSchedule != "" {
		p.scheduler = cron.New()
		if _, err := p.scheduler.AddFunc(cfg.SweepSchedule, func() {
			defer observability.RecoverPanic(p.logger, "session sweep")
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			p.Sweep(ctx)
		}); err != nil {
			return nil, fmt.Errorf("invalid sweep schedule %q: %w", cfg.SweepSchedule, err)
		}
	}

	return p, nil
}

// Start begins the periodic sweep
func (p *Pool) Start() {
	if p.scheduler != nil {
		p.scheduler.Start()
	}
}

// Get returns the manager for sid, creating and initializing it on first use.
// Concurrent first requests for one sid share a single manager.
func (p *Pool) Get(ctx context.Context, sid string) (*Manager, error) {
	if m, ok := p.managers.Get(sid); ok {
		return m, nil
	}

	v, err, _ := p.group.Do(sid, func() (interface{}, error) {
		if m, ok := p.managers.Get(sid); ok {
			return m, nil
		}

		m := NewManager(p.providers(sid), p.directory, p.managerOptions()...)
		initCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.InitTimeout)
		defer cancel()
		m.Initialize(initCtx)

		p.managers.Add(sid, m)
		p.cfg.Metrics.SetActiveSessions(p.managers.Len())
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Manager), nil
}

func (p *Pool) managerOptions() []Option {
	opts := []Option{WithLogger(p.cfg.Logger), WithMetrics(p.cfg.Metrics)}
	return append(opts, p.cfg.ManagerOptions...)
}

// Sweep refreshes every live manager against its provider and the directory
func (p *Pool) Sweep(ctx context.Context) {
	for _, sid := range p.managers.Keys() {
		m, ok := p.managers.Peek(sid)
		if !ok {
			continue
		}
		if err := m.Refresh(ctx); err != nil {
			p.logger.WithError(err).Warn("Failed to refresh session")
		}
	}
	p.cfg.Metrics.SetActiveSessions(p.managers.Len())
}

// RefreshIdentity refreshes every live manager currently resolved to
// identityID, so that directory edits apply without waiting for a sweep
func (p *Pool) RefreshIdentity(ctx context.Context, identityID string) {
	for _, sid := range p.managers.Keys() {
		m, ok := p.managers.Peek(sid)
		if !ok {
			continue
		}
		snap := m.Snapshot()
		if snap.Identity == nil || snap.Identity.ID != identityID {
			continue
		}
		if err := m.Refresh(ctx); err != nil {
			p.logger.WithError(err).WithField("identity_id", identityID).Warn("Failed to refresh session")
		}
	}
}

// Len returns the number of live managers
func (p *Pool) Len() int {
	return p.managers.Len()
}

// Close stops sweeping and closes every manager. It matches
// observability.ShutdownFunc.
func (p *Pool) Close(ctx context.Context) error {
	p.closeOnce.Do(func() {
		if p.scheduler != nil {
			<-p.scheduler.Stop().Done()
		}
		for _, sid := range p.managers.Keys() {
			if m, ok := p.managers.Peek(sid); ok {
				m.Close()
			}
		}
		p.managers.Purge()
		p.cfg.Metrics.SetActiveSessions(0)
	})
	return nil
}
