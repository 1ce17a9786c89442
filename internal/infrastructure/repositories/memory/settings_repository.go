package memory

import (
	"context"
	"sync"

	"cloudslam/internal/core/domain"
	"cloudslam/internal/core/ports"
	"cloudslam/internal/infrastructure/repositories/settings"
)

// MemorySettingsRepository is a process-local key/value settings store.
type MemorySettingsRepository struct {
	values map[string]string
	mu     sync.RWMutex
}

func NewMemorySettingsRepository() ports.SettingsRepository {
	return &MemorySettingsRepository{
		values: make(map[string]string),
	}
}

func (r *MemorySettingsRepository) LoadConfig(ctx context.Context) (domain.SessionConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return settings.Decode(r.values)
}

func (r *MemorySettingsRepository) SaveConfig(ctx context.Context, cfg domain.SessionConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, value := range settings.Encode(cfg) {
		r.values[key] = value
	}
	return nil
}

func (r *MemorySettingsRepository) LoadConfigAddress(ctx context.Context) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	address, exists := r.values[settings.KeyConfigAddress]
	if !exists {
		return "", domain.ErrSettingsNotFound
	}
	return address, nil
}

func (r *MemorySettingsRepository) SaveConfigAddress(ctx context.Context, address string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.values[settings.KeyConfigAddress] = address
	return nil
}
