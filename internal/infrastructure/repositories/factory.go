package repositories

import (
	"context"

	"cloudslam/internal/core/ports"
	"cloudslam/internal/infrastructure/repositories/memory"
	redisrepo "cloudslam/internal/infrastructure/repositories/redis"
	"cloudslam/pkg/config"
	"cloudslam/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RepositoryFactory creates the settings store, falling back to memory when
// Redis is disabled or unreachable.
type RepositoryFactory struct {
	useRedis    bool
	redisClient *redis.Client
	prefix      string
	logger      *zap.SugaredLogger
}

func NewRepositoryFactory(cfg *config.Config, log *zap.SugaredLogger) *RepositoryFactory {
	log = logger.OrNop(log)
	factory := &RepositoryFactory{
		useRedis: cfg.Redis.Enabled,
		prefix:   cfg.Redis.KeyPrefix,
		logger:   log,
	}

	if cfg.Redis.Enabled {
		client, err := redisrepo.NewRedisClient(
			cfg.Redis.Address,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Redis.PoolSize,
			cfg.Redis.KeyPrefix,
			log,
		)
		if err != nil {
			log.Warnw("failed to connect to Redis, falling back to memory settings",
				"address", cfg.Redis.Address,
				"error", err,
			)
			factory.useRedis = false
		} else {
			factory.redisClient = client
			log.Infow("using Redis settings store", "address", cfg.Redis.Address)
		}
	}

	if !factory.useRedis {
		log.Info("using memory settings store")
	}
	return factory
}

// UsesRedis reports whether settings are persisted in Redis.
func (f *RepositoryFactory) UsesRedis() bool {
	return f.useRedis && f.redisClient != nil
}

func (f *RepositoryFactory) CreateSettingsRepository() ports.SettingsRepository {
	if f.UsesRedis() {
		return redisrepo.NewRedisSettingsRepository(f.redisClient, f.prefix)
	}
	return memory.NewMemorySettingsRepository()
}

func (f *RepositoryFactory) Close() error {
	if f.redisClient != nil {
		return redisrepo.CloseRedisClient(f.redisClient)
	}
	return nil
}

func (f *RepositoryFactory) HealthCheck(ctx context.Context) error {
	if f.UsesRedis() {
		return f.redisClient.Ping(ctx).Err()
	}
	return nil
}
