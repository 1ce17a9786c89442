package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const connectTimeout = 5 * time.Second

// NewRedisClient opens the settings store. The connection is verified with a
// ping and the settings layout under prefix is migrated before the client is
// returned, so repositories built on it can assume the hash layout. Any
// failure closes the client; callers fall back to the in-memory store.
func NewRedisClient(address, password string, db, poolSize int, prefix string, logger *zap.SugaredLogger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         address,
		Password:     password,
		DB:           db,
		PoolSize:     poolSize,
		DialTimeout:  connectTimeout,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("settings store %s unreachable: %w", address, err)
	}
	if err := Migrate(ctx, client, prefix, logger); err != nil {
		client.Close()
		return nil, fmt.Errorf("settings store %s: %w", address, err)
	}

	if logger != nil {
		logger.Infow("settings store connected", "address", address, "db", db, "prefix", prefix)
	}
	return client, nil
}

// CloseRedisClient closes client if it is non-nil.
func CloseRedisClient(client *redis.Client) error {
	if client == nil {
		return nil
	}
	return client.Close()
}
