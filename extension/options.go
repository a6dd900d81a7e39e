package extension

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/xraph/aegis"
	"github.com/xraph/aegis/plugin"
	"github.com/xraph/aegis/store"
)

// ExtOption configures the aegis Forge extension.
type ExtOption func(*Extension)

// WithStore sets the persistence backend.
func WithStore(s store.Store) ExtOption {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, aegis.WithStore(s))
	}
}

// WithConfig sets the extension configuration.
func WithConfig(cfg Config) ExtOption {
	return func(e *Extension) {
		e.config = cfg
	}
}

// WithEngineOptions adds engine-level options.
func WithEngineOptions(opts ...aegis.Option) ExtOption {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opts...)
	}
}

// WithPlugin registers a lifecycle hook plugin.
func WithPlugin(x plugin.Plugin) ExtOption {
	return func(e *Extension) {
		e.plugins = append(e.plugins, x)
	}
}

// WithCache sets the actor cache. It replaces the default in-memory cache.
func WithCache(c aegis.Cache) ExtOption {
	return func(e *Extension) {
		e.cache = c
	}
}

// WithRedisCache shares resolved actors across instances through Redis.
func WithRedisCache(client redis.UniversalClient) ExtOption {
	return func(e *Extension) {
		e.redis = client
	}
}

// WithMetrics registers the Prometheus collector on reg.
func WithMetrics(reg prometheus.Registerer) ExtOption {
	return func(e *Extension) {
		e.registerer = reg
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ExtOption {
	return func(e *Extension) {
		e.logger = l
	}
}

// WithDisableRoutes disables the registration of HTTP routes.
func WithDisableRoutes() ExtOption {
	return func(e *Extension) {
		e.config.DisableRoutes = true
	}
}

// WithDisableMigrate disables auto-migration on start.
func WithDisableMigrate() ExtOption {
	return func(e *Extension) {
		e.config.DisableMigrate = true
	}
}

// WithDisableBootstrap skips seeding on start.
func WithDisableBootstrap() ExtOption {
	return func(e *Extension) {
		e.config.DisableBootstrap = true
	}
}
