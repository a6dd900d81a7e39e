package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xraph/aegis"
)

// Compile-time interface check.
var _ aegis.Cache = (*Redis)(nil)

// DefaultKeyPrefix namespaces actor keys in a shared Redis.
const DefaultKeyPrefix = "aegis:actor:"

// Redis is an actor cache shared between processes. Values are JSON
// encoded actors stored under prefix+userID. Redis failures degrade to
// cache misses and are logged.
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// RedisOption configures the Redis cache.
type RedisOption func(*Redis)

// WithKeyPrefix overrides DefaultKeyPrefix.
func WithKeyPrefix(p string) RedisOption {
	return func(r *Redis) { r.prefix = p }
}

// WithRedisTTL sets the key expiry. Zero stores keys without expiry.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) { r.ttl = ttl }
}

// WithLogger sets the logger used for Redis failures.
func WithLogger(l *slog.Logger) RedisOption {
	return func(r *Redis) { r.logger = l }
}

// NewRedis wraps an existing go-redis client.
func NewRedis(client redis.UniversalClient, opts ...RedisOption) *Redis {
	r := &Redis{
		client: client,
		prefix: DefaultKeyPrefix,
		ttl:    5 * time.Minute,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the cached actor for userID.
func (r *Redis) Get(ctx context.Context, userID string) (*aegis.Actor, bool) {
	data, err := r.client.Get(ctx, r.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		r.logger.Warn("aegis cache: redis get failed", slog.String("user", userID), slog.String("error", err.Error()))
		return nil, false
	}

	var a aegis.Actor
	if err := json.Unmarshal(data, &a); err != nil {
		r.client.Del(ctx, r.key(userID))
		r.logger.Warn("aegis cache: dropped corrupt entry", slog.String("user", userID), slog.String("error", err.Error()))
		return nil, false
	}
	return &a, true
}

// Set stores an actor.
func (r *Redis) Set(ctx context.Context, a *aegis.Actor) {
	if a == nil || a.UserID == "" {
		return
	}
	data, err := json.Marshal(a)
	if err != nil {
		r.logger.Warn("aegis cache: marshal actor", slog.String("user", a.UserID), slog.String("error", err.Error()))
		return
	}
	if err := r.client.Set(ctx, r.key(a.UserID), data, r.ttl).Err(); err != nil {
		r.logger.Warn("aegis cache: redis set failed", slog.String("user", a.UserID), slog.String("error", err.Error()))
	}
}

// InvalidateUser removes one user's entry.
func (r *Redis) InvalidateUser(ctx context.Context, userID string) {
	if err := r.client.Del(ctx, r.key(userID)).Err(); err != nil {
		r.logger.Warn("aegis cache: redis del failed", slog.String("user", userID), slog.String("error", err.Error()))
	}
}

// InvalidateAll removes every key under the prefix.
func (r *Redis) InvalidateAll(ctx context.Context) {
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) == 100 {
			r.del(ctx, keys)
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		r.logger.Warn("aegis cache: redis scan failed", slog.String("error", err.Error()))
	}
	if len(keys) > 0 {
		r.del(ctx, keys)
	}
}

// Ping checks Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) del(ctx context.Context, keys []string) {
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		r.logger.Warn("aegis cache: redis del failed", slog.Int("keys", len(keys)), slog.String("error", err.Error()))
	}
}

func (r *Redis) key(userID string) string { return r.prefix + userID }
