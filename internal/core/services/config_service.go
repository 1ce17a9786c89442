package services

import (
	"context"
	"encoding/json"
	"errors"

	"cloudslam/internal/core/domain"
	"cloudslam/internal/core/ports"
	apperrors "cloudslam/pkg/errors"
	"cloudslam/pkg/logger"
	"cloudslam/pkg/validation"

	"go.uber.org/zap"
)

// ConfigService parses remote config documents and persists session
// settings.
type ConfigService struct {
	repo     ports.SettingsRepository
	defaults domain.SessionConfig
	logger   *zap.SugaredLogger
}

func NewConfigService(repo ports.SettingsRepository, defaults domain.SessionConfig, log *zap.SugaredLogger) *ConfigService {
	return &ConfigService{
		repo:     repo,
		defaults: defaults,
		logger:   logger.OrNop(log),
	}
}

// ParseSessionConfig decodes a /client/config document on top of defaults.
func ParseSessionConfig(data []byte, defaults domain.SessionConfig) (domain.SessionConfig, error) {
	cfg := defaults
	if err := json.Unmarshal(data, &cfg); err != nil {
		return defaults, apperrors.NewParseError(err, "failed to parse session config")
	}
	if err := ValidateSessionConfig(cfg); err != nil {
		return defaults, apperrors.NewParseError(err, "invalid session config")
	}
	return cfg, nil
}

// ValidateSessionConfig checks the fields the backend cannot work without.
func ValidateSessionConfig(cfg domain.SessionConfig) error {
	if err := validation.ValidateHost(cfg.ServerIP); err != nil {
		return err
	}
	if err := validation.ValidatePort(cfg.UDPPort, "udp_port"); err != nil {
		return err
	}
	if err := validation.ValidatePort(cfg.WebsocketPort, "websocket_port"); err != nil {
		return err
	}
	if err := validation.ValidatePositive(cfg.Framerate, "framerate"); err != nil {
		return err
	}
	if err := validation.ValidatePositive(cfg.ResWidth, "res_width"); err != nil {
		return err
	}
	if err := validation.ValidatePositive(cfg.ResHeight, "res_height"); err != nil {
		return err
	}
	if err := validation.ValidatePositive(cfg.Bitrate, "bitrate"); err != nil {
		return err
	}
	if err := validation.ValidateRange(cfg.KeyframeInterval, 0, 1<<16, "keyframe_interval"); err != nil {
		return err
	}
	return validation.ValidateRange(cfg.Contrast, 0, 255, "contrast")
}

// Parse decodes data onto the service defaults.
func (s *ConfigService) Parse(data []byte) (domain.SessionConfig, error) {
	return ParseSessionConfig(data, s.defaults)
}

// Load returns the persisted config, or the defaults and
// domain.ErrSettingsNotFound when nothing has been stored yet.
func (s *ConfigService) Load(ctx context.Context) (domain.SessionConfig, error) {
	if s.repo == nil {
		return s.defaults, domain.ErrSettingsNotFound
	}
	cfg, err := s.repo.LoadConfig(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrSettingsNotFound) {
			s.logger.Warnw("failed to load persisted session config", "error", err)
		}
		return s.defaults, err
	}
	return cfg, nil
}

func (s *ConfigService) Save(ctx context.Context, cfg domain.SessionConfig) error {
	if s.repo == nil {
		return nil
	}
	if err := s.repo.SaveConfig(ctx, cfg); err != nil {
		return apperrors.WrapError(err, apperrors.ErrCodeInternal, "failed to persist session config", 0)
	}
	return nil
}

// LoadAddress returns the remembered config address, or "" when none is
// stored.
func (s *ConfigService) LoadAddress(ctx context.Context) (string, error) {
	if s.repo == nil {
		return "", nil
	}
	address, err := s.repo.LoadConfigAddress(ctx)
	if errors.Is(err, domain.ErrSettingsNotFound) {
		return "", nil
	}
	return address, err
}

func (s *ConfigService) SaveAddress(ctx context.Context, address string) error {
	if s.repo == nil {
		return nil
	}
	if err := s.repo.SaveConfigAddress(ctx, address); err != nil {
		return apperrors.WrapError(err, apperrors.ErrCodeInternal, "failed to persist config address", 0)
	}
	return nil
}
