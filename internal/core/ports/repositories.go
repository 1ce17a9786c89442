package ports

import (
	"context"

	"cloudslam/internal/core/domain"
)

// SettingsRepository persists the session config and the remembered config
// address. Loads return domain.ErrSettingsNotFound when nothing is stored.
type SettingsRepository interface {
	LoadConfig(ctx context.Context) (domain.SessionConfig, error)
	SaveConfig(ctx context.Context, cfg domain.SessionConfig) error
	LoadConfigAddress(ctx context.Context) (string, error)
	SaveConfigAddress(ctx context.Context, address string) error
}
