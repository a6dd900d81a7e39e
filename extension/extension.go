// Package extension provides a Forge extension entry point for aegis.
package extension

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/aegis"
	"github.com/xraph/aegis/api"
	"github.com/xraph/aegis/cache"
	"github.com/xraph/aegis/metrics"
	"github.com/xraph/aegis/plugin"
	"github.com/xraph/aegis/store"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "aegis"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "CMS permission catalog, roles and capability checks"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts aegis as a Forge extension.
type Extension struct {
	config     Config
	eng        *aegis.Engine
	apiHandler *api.API
	logger     *slog.Logger
	engineOpts []aegis.Option
	plugins    []plugin.Plugin
	cache      aegis.Cache
	redis      redis.UniversalClient
	registerer prometheus.Registerer
}

// New creates an aegis Forge extension with the given options.
func New(opts ...ExtOption) *Extension {
	e := &Extension{config: DefaultConfig()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the extension name.
func (e *Extension) Name() string { return ExtensionName }

// Description returns the extension description.
func (e *Extension) Description() string { return ExtensionDescription }

// Version returns the extension version.
func (e *Extension) Version() string { return ExtensionVersion }

// Dependencies returns the list of extension names this extension depends on.
func (e *Extension) Dependencies() []string { return []string{} }

// Engine returns the underlying aegis engine.
func (e *Extension) Engine() *aegis.Engine { return e.eng }

// API returns the API handler.
func (e *Extension) API() *api.API { return e.apiHandler }

// Register implements [forge.Extension]. It initializes the engine,
// registers it in the DI container, and optionally registers HTTP routes.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.init(fapp); err != nil {
		return err
	}

	if err := vessel.Provide(fapp.Container(), func() (*aegis.Engine, error) {
		return e.eng, nil
	}); err != nil {
		return fmt.Errorf("aegis: register engine in container: %w", err)
	}

	return nil
}

func (e *Extension) init(fapp forge.App) error {
	logger := e.logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := e.engineOptions(logger)

	// Try to resolve store from DI container, fall back to option-provided store.
	if s, err := forge.Inject[store.Store](fapp.Container()); err == nil {
		opts = append([]aegis.Option{aegis.WithStore(s)}, opts...)
	}

	eng, err := aegis.NewEngine(opts...)
	if err != nil {
		return fmt.Errorf("aegis: create engine: %w", err)
	}
	e.eng = eng

	e.apiHandler = api.New(eng, fapp.Router())

	if !e.config.DisableRoutes {
		if err := e.apiHandler.RegisterRoutes(fapp.Router()); err != nil {
			return fmt.Errorf("aegis: register routes: %w", err)
		}
	}

	return nil
}

// engineOptions translates the extension configuration into engine options.
// User-provided options come last so they can override anything here.
func (e *Extension) engineOptions(logger *slog.Logger) []aegis.Option {
	cfg := aegis.DefaultConfig()
	if e.config.AdminRole != "" {
		cfg.AdminRole = e.config.AdminRole
	}
	if e.config.CacheTTL > 0 {
		cfg.CacheTTL = e.config.CacheTTL
	}
	if e.config.MaxBatchSize > 0 {
		cfg.MaxBatchSize = e.config.MaxBatchSize
	}

	opts := []aegis.Option{aegis.WithLogger(logger), aegis.WithConfig(cfg)}

	if !e.config.DisableCache {
		switch {
		case e.cache != nil:
			opts = append(opts, aegis.WithCache(e.cache))
		case e.redis != nil:
			opts = append(opts, aegis.WithCache(cache.NewRedis(e.redis,
				cache.WithRedisTTL(cfg.CacheTTL),
				cache.WithLogger(logger),
			)))
		default:
			opts = append(opts, aegis.WithCache(cache.NewMemory(cache.WithTTL(cfg.CacheTTL))))
		}
	}

	if e.registerer != nil {
		opts = append(opts, aegis.WithPlugin(metrics.New(e.registerer)))
	}
	for _, x := range e.plugins {
		opts = append(opts, aegis.WithPlugin(x))
	}

	return append(opts, e.engineOpts...)
}

// Start runs migrations and seeds the built-in catalog and roles unless
// disabled, then verifies the store.
func (e *Extension) Start(ctx context.Context) error {
	if e.eng == nil {
		return errors.New("aegis: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.eng.Store().Migrate(ctx); err != nil {
			return fmt.Errorf("aegis: migration failed: %w", err)
		}
	}

	if !e.config.DisableBootstrap {
		if err := e.eng.Bootstrap(ctx); err != nil {
			return fmt.Errorf("aegis: bootstrap failed: %w", err)
		}
	}

	return e.eng.Start(ctx)
}

// Stop gracefully shuts down the aegis engine.
func (e *Extension) Stop(ctx context.Context) error {
	if e.eng == nil {
		return nil
	}
	return e.eng.Stop(ctx)
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.eng == nil {
		return errors.New("aegis: extension not initialized")
	}
	return e.eng.Store().Ping(ctx)
}

// Handler returns the HTTP handler for all API routes.
func (e *Extension) Handler() http.Handler {
	if e.apiHandler == nil {
		return http.NotFoundHandler()
	}
	return e.apiHandler.Handler()
}

// RegisterRoutes registers all aegis API routes into a Forge router.
func (e *Extension) RegisterRoutes(router forge.Router) error {
	if e.apiHandler != nil {
		return e.apiHandler.RegisterRoutes(router)
	}
	return nil
}
