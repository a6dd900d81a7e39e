package extension

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/aegis"
	"github.com/xraph/aegis/cache"
	"github.com/xraph/aegis/store/memory"
)

func newEngine(t *testing.T, ext *Extension) *aegis.Engine {
	t.Helper()
	opts := append(ext.engineOptions(slog.Default()), aegis.WithStore(memory.New()))
	eng, err := aegis.NewEngine(opts...)
	require.NoError(t, err)
	require.NoError(t, eng.Bootstrap(context.Background()))
	return eng
}

func TestDefaultConfig(t *testing.T) {
	ext := New()
	assert.Equal(t, "admin", ext.config.AdminRole)
	assert.Equal(t, 5*time.Minute, ext.config.CacheTTL)
	assert.Equal(t, 100, ext.config.MaxBatchSize)
	assert.Equal(t, "aegis", ext.Name())
}

func TestEngineOptionsCarryConfig(t *testing.T) {
	ext := New(WithConfig(Config{AdminRole: "root", MaxBatchSize: 7}))
	eng := newEngine(t, ext)

	cfg := eng.Config()
	assert.Equal(t, "root", cfg.AdminRole)
	assert.Equal(t, 7, cfg.MaxBatchSize)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
}

func TestEngineOptionsRedisCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	eng := newEngine(t, New(WithRedisCache(client)))
	u, err := eng.CreateUser(ctx, aegis.CreateUserInput{Username: "ana"})
	require.NoError(t, err)

	_, err = eng.ResolveActor(ctx, u.ID.String())
	require.NoError(t, err)
	assert.True(t, mr.Exists(cache.DefaultKeyPrefix+u.ID.String()))
	assert.Equal(t, 5*time.Minute, mr.TTL(cache.DefaultKeyPrefix+u.ID.String()))
}

func TestEngineOptionsDisableCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ext := New(WithRedisCache(client), WithConfig(Config{DisableCache: true}))
	eng := newEngine(t, ext)
	u, err := eng.CreateUser(ctx, aegis.CreateUserInput{Username: "ana"})
	require.NoError(t, err)

	_, err = eng.ResolveActor(ctx, u.ID.String())
	require.NoError(t, err)
	assert.Empty(t, mr.Keys())
}

func TestEngineOptionsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	newEngine(t, New(WithMetrics(reg)))

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["aegis_seeded_total"])
}

func TestStartRequiresInit(t *testing.T) {
	ext := New()
	assert.Error(t, ext.Start(context.Background()))
	assert.Error(t, ext.Health(context.Background()))
	assert.NoError(t, ext.Stop(context.Background()))
}
