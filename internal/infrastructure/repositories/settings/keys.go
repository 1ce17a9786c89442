// Package settings maps the session config onto the flat key/value layout
// shared by every settings store.
package settings

import (
	"fmt"
	"strconv"

	"cloudslam/internal/core/domain"
)

const (
	KeyServerIP      = "CloudSLAM.ServerIP"
	KeyUDPPort       = "CloudSLAM.UDPPort"
	KeyWebsocketPort = "CloudSLAM.WebsocketPort"
	KeyProtocol      = "CloudSLAM.Protocol"
	KeyFramerate     = "CloudSLAM.Framerate"
	KeyBitrate       = "CloudSLAM.Bitrate"
	KeyInterval      = "CloudSLAM.Interval"
	KeyContrast      = "CloudSLAM.Contrast"
	KeyFrameWidth    = "CloudSLAM.SentFrameWidth"
	KeyFrameHeight   = "CloudSLAM.SentFrameHeight"
	KeyFrameRotation = "CloudSLAM.SentFrameRotation"

	KeyConfigAddress = "CloudSLAM.demo.configAddress"
)

type intField struct {
	key string
	get func(*domain.SessionConfig) *int
}

var intFields = []intField{
	{KeyUDPPort, func(c *domain.SessionConfig) *int { return &c.UDPPort }},
	{KeyWebsocketPort, func(c *domain.SessionConfig) *int { return &c.WebsocketPort }},
	{KeyProtocol, func(c *domain.SessionConfig) *int { return &c.Protocol }},
	{KeyFramerate, func(c *domain.SessionConfig) *int { return &c.Framerate }},
	{KeyBitrate, func(c *domain.SessionConfig) *int { return &c.Bitrate }},
	{KeyInterval, func(c *domain.SessionConfig) *int { return &c.KeyframeInterval }},
	{KeyContrast, func(c *domain.SessionConfig) *int { return &c.Contrast }},
	{KeyFrameWidth, func(c *domain.SessionConfig) *int { return &c.ResWidth }},
	{KeyFrameHeight, func(c *domain.SessionConfig) *int { return &c.ResHeight }},
	{KeyFrameRotation, func(c *domain.SessionConfig) *int { return &c.FrameRotation }},
}

// ConfigKeys lists every key written by Encode.
func ConfigKeys() []string {
	keys := []string{KeyServerIP}
	for _, f := range intFields {
		keys = append(keys, f.key)
	}
	return keys
}

// Encode flattens cfg into string values.
func Encode(cfg domain.SessionConfig) map[string]string {
	values := map[string]string{KeyServerIP: cfg.ServerIP}
	for _, f := range intFields {
		values[f.key] = strconv.Itoa(*f.get(&cfg))
	}
	return values
}

// Decode rebuilds a config from values. Missing integer keys keep their
// default; a missing server address means nothing was stored.
func Decode(values map[string]string) (domain.SessionConfig, error) {
	ip, ok := values[KeyServerIP]
	if !ok {
		return domain.SessionConfig{}, domain.ErrSettingsNotFound
	}

	cfg := domain.DefaultSessionConfig()
	cfg.ServerIP = ip
	for _, f := range intFields {
		raw, ok := values[f.key]
		if !ok {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return domain.SessionConfig{}, fmt.Errorf("invalid value for %s: %w", f.key, err)
		}
		*f.get(&cfg) = v
	}
	return cfg, nil
}
