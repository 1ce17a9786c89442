package simulated

import (
	"context"
	"sync"
	"testing"
	"time"

	"cloudslam/internal/core/coords"
	"cloudslam/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

type recorder struct {
	mu     sync.Mutex
	events []string
	poses  int
	err    error
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) OnOpen()                             { r.add("open") }
func (r *recorder) OnClose()                            { r.add("close") }
func (r *recorder) OnPreviewReady(domain.PreviewHandle) { r.add("preview") }

func (r *recorder) OnStatusChanged(code int) {
	switch code {
	case statusLost:
		r.add("lost")
	case statusTracking:
		r.add("tracking")
	}
}

func (r *recorder) OnError(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
	r.add("error")
}

func (r *recorder) OnPoseUpdated() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.poses++
}

func (r *recorder) snapshot() ([]string, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...), r.poses
}

func sessionConfig() domain.SessionConfig {
	cfg := domain.DefaultSessionConfig()
	cfg.ServerIP = "127.0.0.1"
	cfg.Framerate = 200
	return cfg
}

func TestBackend_Lifecycle(t *testing.T) {
	b := New(Options{PreviewEnabled: true, TrackingDelay: 20 * time.Millisecond})
	rec := &recorder{}

	require.NoError(t, b.Open(context.Background(), sessionConfig(), rec))
	assert.True(t, b.IsRunning())
	assert.ErrorIs(t, b.Open(context.Background(), sessionConfig(), rec), domain.ErrSessionRunning)

	assert.Eventually(t, func() bool {
		events, poses := rec.snapshot()
		return len(events) >= 4 && poses >= 3
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, b.Close())
	assert.False(t, b.IsRunning())

	events, _ := rec.snapshot()
	assert.Equal(t, []string{"open", "preview", "lost", "tracking", "close"}, events)
	assert.Positive(t, b.Frames())
	assert.NoError(t, b.Close(), "second close is a no-op")
}

func TestBackend_CloseWhileOpening(t *testing.T) {
	b := New(Options{OpenDelay: time.Hour})
	rec := &recorder{}

	require.NoError(t, b.Open(context.Background(), sessionConfig(), rec))
	require.NoError(t, b.Close())

	events, poses := rec.snapshot()
	assert.Equal(t, []string{"close"}, events)
	assert.Zero(t, poses)
}

func TestBackend_FailAfter(t *testing.T) {
	b := New(Options{FailAfter: 20 * time.Millisecond})
	rec := &recorder{}

	require.NoError(t, b.Open(context.Background(), sessionConfig(), rec))
	assert.Eventually(t, func() bool { return !b.IsRunning() }, 2*time.Second, 5*time.Millisecond)

	events, _ := rec.snapshot()
	assert.Equal(t, "error", events[len(events)-1])
	assert.NotContains(t, events, "close")
	assert.ErrorIs(t, rec.err, ErrSimulatedFailure)

	// the backend can be reopened after a failure
	require.NoError(t, b.Open(context.Background(), sessionConfig(), &recorder{}))
	require.NoError(t, b.Close())
}

func TestBackend_RejectsZeroFramerate(t *testing.T) {
	cfg := sessionConfig()
	cfg.Framerate = 0

	assert.Error(t, New(Options{}).Open(context.Background(), cfg, &recorder{}))
}

func TestOrbitPose_FacesOrigin(t *testing.T) {
	for _, theta := range []float64{0, 1, 2.5, 4} {
		pose := OrbitPose(2, 1.5, theta)
		m := coords.FromRowMajor(&pose)

		position := m.Translation()
		forward := m.MultiplyVector(r3.Vec{Z: 1})
		toOrigin := r3.Vec{X: -position.X, Z: -position.Z}

		assert.InDelta(t, 1.5, position.Y, 1e-6)
		assert.InDelta(t, 2, r3.Norm(toOrigin), 1e-5)
		assert.InDelta(t, 1, r3.Dot(forward, r3.Unit(toOrigin)), 1e-5, "theta %v", theta)
	}
}
