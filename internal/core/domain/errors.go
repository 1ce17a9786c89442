package domain

import "errors"

var (
	ErrServerAddressEmpty = errors.New("server address is empty")
	ErrConfigAddressEmpty = errors.New("config address is empty")
	ErrSettingsNotFound   = errors.New("settings not found")
	ErrSessionRunning     = errors.New("session is running")
	ErrBackendUnavailable = errors.New("sensing backend unavailable")
	ErrNoShapes           = errors.New("snapshot has no shapes collection")
	ErrNoMapPoints        = errors.New("snapshot has no map points")
	ErrInvalidMapPoint    = errors.New("map point must have three coordinates")
	ErrMessageTooLarge    = errors.New("message exceeds maximum size")
	ErrStreamClosed       = errors.New("stream closed before final fragment")
)
