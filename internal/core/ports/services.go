package ports

import (
	"context"
	"time"

	"cloudslam/internal/core/domain"
)

// RemoteClient talks to the remote service. Each method returns the raw
// document; parsing belongs to the caller.
type RemoteClient interface {
	FetchConfig(ctx context.Context, address string) ([]byte, error)
	FetchMap(ctx context.Context, address string) ([]byte, error)
	ReceivePOIs(ctx context.Context, address string) ([]byte, error)
}

type MetricsRecorder interface {
	RecordSessionState(state domain.SessionState)
	RecordTrackingStatus(status domain.TrackingStatus)
	RecordTick()
	RecordPoseRead()
	RecordFetch(flow string, duration time.Duration, err error)
	RecordPOIsPlaced(count int)
	RecordMapBatches(batches, points int)
}

type SessionController interface {
	Start(ctx context.Context) error
	Stop() error
	IsRunning() bool
	SetConfig(cfg domain.SessionConfig) bool
}
