package aegis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/aegis/plugin"
	"github.com/xraph/aegis/store"
)

// Engine is the central authorization engine. It owns the permission
// catalog, the role table and user resolution, guards every mutation, and
// fires plugin hooks.
type Engine struct {
	store   store.Store
	cache   Cache
	plugins *plugin.Registry
	logger  *slog.Logger
	config  Config
	now     func() time.Time

	// cacheGen counts invalidations. A resolution that started before the
	// latest invalidation must not fill the cache.
	cacheMu  sync.RWMutex
	cacheGen uint64
}

// NewEngine creates a new aegis engine with the given options.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		logger: slog.Default(),
		config: DefaultConfig(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		return nil, errors.New("aegis: store is required")
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.plugins == nil {
		e.plugins = plugin.NewRegistry(e.logger)
	}
	return e, nil
}

// Store returns the underlying composite store.
func (e *Engine) Store() store.Store { return e.store }

// Plugins returns the plugin registry.
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.config }

// Start verifies store connectivity.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.store.Ping(ctx); err != nil {
		return fmt.Errorf("aegis: ping store: %w", err)
	}
	return nil
}

// Stop notifies plugins of shutdown.
func (e *Engine) Stop(ctx context.Context) error {
	e.plugins.EmitShutdown(ctx)
	return nil
}

// Bootstrap upserts the built-in permission catalog and the built-in
// roles. It is idempotent and meant to run once at startup or from an
// admin command.
func (e *Engine) Bootstrap(ctx context.Context) error {
	if _, err := e.InitializeSystemPermissions(ctx); err != nil {
		return err
	}
	if _, err := e.InitializeSystemRoles(ctx); err != nil {
		return err
	}
	return nil
}

// SeedReport counts the records touched by a seeding run.
type SeedReport struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

func (e *Engine) timestamp() time.Time { return e.now().UTC() }

// translate maps store sentinels onto engine errors. Other failures are
// wrapped with op.
func translate(op string, err, notFound, duplicate error) error {
	switch {
	case err == nil:
		return nil
	case notFound != nil && errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: %v", notFound, err)
	case duplicate != nil && errors.Is(err, store.ErrDuplicate):
		return fmt.Errorf("%w: %v", duplicate, err)
	default:
		return fmt.Errorf("aegis: %s: %w", op, err)
	}
}

func (e *Engine) invalidateAll(ctx context.Context) {
	if e.cache == nil {
		return
	}
	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()
	e.cacheGen++
	e.cache.InvalidateAll(ctx)
}

func (e *Engine) invalidateUser(ctx context.Context, userID string) {
	if e.cache == nil {
		return
	}
	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()
	e.cacheGen++
	e.cache.InvalidateUser(ctx, userID)
}

func (e *Engine) cacheGeneration() uint64 {
	e.cacheMu.RLock()
	defer e.cacheMu.RUnlock()
	return e.cacheGen
}

// fillCache stores a only if no invalidation ran since gen was taken.
func (e *Engine) fillCache(ctx context.Context, a *Actor, gen uint64) {
	e.cacheMu.RLock()
	defer e.cacheMu.RUnlock()
	if e.cacheGen == gen {
		e.cache.Set(ctx, a)
	}
}
