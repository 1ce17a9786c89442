package redis

import (
	"context"
	"errors"
	"fmt"

	"cloudslam/internal/core/domain"
	"cloudslam/internal/core/ports"
	"cloudslam/internal/infrastructure/repositories/settings"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "cloudslam:"

// RedisSettingsRepository keeps every setting as a field of one hash.
type RedisSettingsRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisSettingsRepository(client *redis.Client, prefix string) ports.SettingsRepository {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisSettingsRepository{
		client: client,
		prefix: prefix,
	}
}

func (r *RedisSettingsRepository) settingsKey() string {
	return r.prefix + "settings"
}

func (r *RedisSettingsRepository) LoadConfig(ctx context.Context) (domain.SessionConfig, error) {
	values, err := r.client.HGetAll(ctx, r.settingsKey()).Result()
	if err != nil {
		return domain.SessionConfig{}, fmt.Errorf("failed to get settings from Redis: %w", err)
	}
	return settings.Decode(values)
}

func (r *RedisSettingsRepository) SaveConfig(ctx context.Context, cfg domain.SessionConfig) error {
	values := settings.Encode(cfg)
	fields := make([]interface{}, 0, len(values)*2)
	for key, value := range values {
		fields = append(fields, key, value)
	}
	if err := r.client.HSet(ctx, r.settingsKey(), fields...).Err(); err != nil {
		return fmt.Errorf("failed to set settings in Redis: %w", err)
	}
	return nil
}

func (r *RedisSettingsRepository) LoadConfigAddress(ctx context.Context) (string, error) {
	address, err := r.client.HGet(ctx, r.settingsKey(), settings.KeyConfigAddress).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrSettingsNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get config address from Redis: %w", err)
	}
	return address, nil
}

func (r *RedisSettingsRepository) SaveConfigAddress(ctx context.Context, address string) error {
	if err := r.client.HSet(ctx, r.settingsKey(), settings.KeyConfigAddress, address).Err(); err != nil {
		return fmt.Errorf("failed to set config address in Redis: %w", err)
	}
	return nil
}
