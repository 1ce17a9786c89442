// Package simulated provides a sensing backend that walks a camera around a
// circle, for running the client without tracking hardware.
package simulated

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"cloudslam/internal/core/domain"
	"cloudslam/internal/core/ports"
	"cloudslam/pkg/logger"

	"go.uber.org/zap"
)

// Tracking status codes reported through OnStatusChanged.
const (
	statusLost     = 1
	statusTracking = 2
)

// PreviewHandle is the surface handle reported when the preview is enabled.
const PreviewHandle domain.PreviewHandle = 1

var ErrSimulatedFailure = errors.New("simulated tracking failure")

type Options struct {
	OpenDelay      time.Duration
	TrackingDelay  time.Duration
	FailAfter      time.Duration
	PreviewEnabled bool
	Logger         *zap.SugaredLogger

	Radius float64
	// Height is the camera's height above the floor. The remote frame has
	// Y pointing down, so poses carry it negated.
	Height float64
	// Period is the time for one full orbit.
	Period time.Duration
}

type Backend struct {
	opts   Options
	logger *zap.SugaredLogger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	buffer domain.PoseBuffer
	frames atomic.Int64
}

var _ ports.SensingBackend = (*Backend)(nil)

func New(opts Options) *Backend {
	if opts.Radius <= 0 {
		opts.Radius = 1.5
	}
	if opts.Height == 0 {
		opts.Height = 1.6
	}
	if opts.Period <= 0 {
		opts.Period = 20 * time.Second
	}
	return &Backend{
		opts:   opts,
		logger: logger.OrNop(opts.Logger),
	}
}

// Open starts the simulation goroutine. Callbacks fire from that goroutine.
func (b *Backend) Open(ctx context.Context, cfg domain.SessionConfig, callbacks ports.BackendCallbacks) error {
	if cfg.Framerate <= 0 {
		return errors.New("framerate must be positive")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return domain.ErrSessionRunning
	}

	runCtx, cancel := context.WithCancel(context.Background())
	b.running = true
	b.cancel = cancel
	b.done = make(chan struct{})
	b.frames.Store(0)

	b.logger.Infow("simulated backend opening",
		"server_ip", cfg.ServerIP,
		"framerate", cfg.Framerate,
		"resolution", []int{cfg.ResWidth, cfg.ResHeight},
	)
	go b.run(runCtx, time.Second/time.Duration(cfg.Framerate), callbacks, b.done)
	return nil
}

// Close stops the simulation and waits for it to report OnClose.
func (b *Backend) Close() error {
	b.mu.Lock()
	cancel, done := b.cancel, b.done
	b.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

func (b *Backend) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

func (b *Backend) PoseBuffer() *domain.PoseBuffer {
	return &b.buffer
}

// Frames returns how many poses were written since the last Open.
func (b *Backend) Frames() int64 {
	return b.frames.Load()
}

func (b *Backend) run(ctx context.Context, interval time.Duration, cb ports.BackendCallbacks, done chan struct{}) {
	failed := false
	defer func() {
		b.mu.Lock()
		b.running = false
		b.cancel = nil
		b.mu.Unlock()
		if !failed {
			cb.OnClose()
		}
		close(done)
	}()

	if !sleep(ctx, b.opts.OpenDelay) {
		return
	}

	start := time.Now()
	b.writePose(0)
	cb.OnOpen()
	if b.opts.PreviewEnabled {
		cb.OnPreviewReady(PreviewHandle)
	}
	cb.OnStatusChanged(statusLost)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	tracking := false
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			elapsed := now.Sub(start)
			if b.opts.FailAfter > 0 && elapsed >= b.opts.FailAfter {
				failed = true
				b.logger.Warnw("simulated backend failing", "elapsed", elapsed)
				cb.OnError(ErrSimulatedFailure)
				return
			}
			if !tracking && elapsed >= b.opts.TrackingDelay {
				tracking = true
				cb.OnStatusChanged(statusTracking)
			}
			b.writePose(elapsed)
			cb.OnPoseUpdated()
		}
	}
}

// writePose publishes the camera pose at time t: on a circle around the
// origin, looking at the centre.
func (b *Backend) writePose(t time.Duration) {
	pose := OrbitPose(b.opts.Radius, -b.opts.Height, 2*math.Pi*t.Seconds()/b.opts.Period.Seconds())
	b.buffer.Store(&pose)
	b.frames.Add(1)
}

// OrbitPose returns the row-major pose of a camera at angle theta on a
// circle of the given radius at y, rotated about Y to face the origin.
func OrbitPose(radius, y, theta float64) [domain.PoseFloats]float32 {
	x, z := radius*math.Sin(theta), radius*math.Cos(theta)
	// yaw so that the camera's +Z points at the origin
	yaw := theta + math.Pi
	c, s := math.Cos(yaw), math.Sin(yaw)
	return [domain.PoseFloats]float32{
		float32(c), 0, float32(s), float32(x),
		0, 1, 0, float32(y),
		float32(-s), 0, float32(c), float32(z),
		0, 0, 0, 1,
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
