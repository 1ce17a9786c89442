package repositories

import (
	"context"
	"testing"

	"cloudslam/internal/core/domain"
	"cloudslam/pkg/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositoryFactory_MemoryByDefault(t *testing.T) {
	factory := NewRepositoryFactory(config.DefaultConfig(), nil)
	defer factory.Close()

	assert.False(t, factory.UsesRedis())
	assert.NoError(t, factory.HealthCheck(context.Background()))

	repo := factory.CreateSettingsRepository()
	_, err := repo.LoadConfig(context.Background())
	assert.ErrorIs(t, err, domain.ErrSettingsNotFound)
}

func TestRepositoryFactory_FallsBackWhenRedisUnreachable(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Redis.Enabled = true
	cfg.Redis.Address = "127.0.0.1:1"

	factory := NewRepositoryFactory(cfg, nil)
	defer factory.Close()

	require.False(t, factory.UsesRedis())

	repo := factory.CreateSettingsRepository()
	require.NoError(t, repo.SaveConfigAddress(context.Background(), "10.0.0.5:8080"))
	address, err := repo.LoadConfigAddress(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5:8080", address)
}

func TestRepositoryFactory_UsesRedisWhenReachable(t *testing.T) {
	srv := miniredis.RunT(t)
	cfg := config.DefaultConfig()
	cfg.Redis.Enabled = true
	cfg.Redis.Address = srv.Addr()
	cfg.Redis.KeyPrefix = "factory-test:"

	factory := NewRepositoryFactory(cfg, nil)
	defer factory.Close()

	require.True(t, factory.UsesRedis())
	assert.NoError(t, factory.HealthCheck(context.Background()))

	repo := factory.CreateSettingsRepository()
	require.NoError(t, repo.SaveConfigAddress(context.Background(), "10.0.0.5:8080"))
	assert.Equal(t, "10.0.0.5:8080", srv.HGet("factory-test:settings", "CloudSLAM.demo.configAddress"))

	srv.Close()
	assert.Error(t, factory.HealthCheck(context.Background()))
}
