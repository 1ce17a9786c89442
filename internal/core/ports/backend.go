package ports

import (
	"context"

	"cloudslam/internal/core/domain"
)

// SensingBackend is the native tracking backend. The pose buffer returned by
// PoseBuffer is valid only between OnOpen and OnClose.
type SensingBackend interface {
	Open(ctx context.Context, cfg domain.SessionConfig, callbacks BackendCallbacks) error
	Close() error
	IsRunning() bool
	PoseBuffer() *domain.PoseBuffer
}

// BackendCallbacks may be invoked from any goroutine.
type BackendCallbacks interface {
	OnOpen()
	OnClose()
	OnError(err error)
	OnStatusChanged(code int)
	OnPreviewReady(handle domain.PreviewHandle)
	OnPoseUpdated()
}

// PreviewCompositor composites the backend's live-feed preview.
type PreviewCompositor interface {
	Attach(handle domain.PreviewHandle) error
	Detach()
}

// SessionObserver receives session lifecycle events on the main tick.
type SessionObserver interface {
	OnSessionEvent(event domain.SessionEvent)
}

// SessionObserverFunc adapts a function to SessionObserver.
type SessionObserverFunc func(event domain.SessionEvent)

func (f SessionObserverFunc) OnSessionEvent(event domain.SessionEvent) {
	f(event)
}

// Dispatcher runs work on the main update loop.
type Dispatcher interface {
	Post(fn func())
}

// Updater is called once per tick on the main update loop.
type Updater interface {
	Update()
}
