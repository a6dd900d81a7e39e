package extension

import "time"

// Config holds the aegis extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.aegis" or "aegis" keys).
type Config struct {
	// DisableRoutes prevents HTTP route registration.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// DisableBootstrap skips seeding the built-in catalog and roles on start.
	DisableBootstrap bool `json:"disable_bootstrap" mapstructure:"disable_bootstrap" yaml:"disable_bootstrap"`

	// DisableCache turns off actor caching entirely.
	DisableCache bool `json:"disable_cache" mapstructure:"disable_cache" yaml:"disable_cache"`

	// AdminRole is the role that bypasses permission checks (default: "admin").
	AdminRole string `json:"admin_role" mapstructure:"admin_role" yaml:"admin_role"`

	// CacheTTL bounds how long a resolved actor is reused (default: 5m).
	CacheTTL time.Duration `json:"cache_ttl" mapstructure:"cache_ttl" yaml:"cache_ttl"`

	// MaxBatchSize caps batch permission deletes (default: 100).
	MaxBatchSize int `json:"max_batch_size" mapstructure:"max_batch_size" yaml:"max_batch_size"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		AdminRole:    "admin",
		CacheTTL:     5 * time.Minute,
		MaxBatchSize: 100,
	}
}
