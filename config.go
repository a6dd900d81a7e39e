package aegis

import "time"

// Config holds configuration for the aegis engine.
type Config struct {
	// AdminRole is the role name that passes every check without a
	// permission lookup. Defaults to "admin".
	AdminRole string `json:"admin_role,omitempty"`

	// CacheTTL is the time-to-live for cached actors.
	// Zero means entries live until invalidated.
	CacheTTL time.Duration `json:"cache_ttl,omitempty"`

	// MaxBatchSize caps the number of ids accepted by batch deletes.
	// Defaults to 100.
	MaxBatchSize int `json:"max_batch_size,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		AdminRole:    "admin",
		CacheTTL:     5 * time.Minute,
		MaxBatchSize: 100,
	}
}

func (c Config) adminRole() string {
	if c.AdminRole == "" {
		return "admin"
	}
	return c.AdminRole
}

func (c Config) maxBatch() int {
	if c.MaxBatchSize <= 0 {
		return 100
	}
	return c.MaxBatchSize
}
