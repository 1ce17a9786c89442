package monitoring

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cloudslam/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusCollector_Records(t *testing.T) {
	p := NewPrometheusCollector()

	p.RecordSessionState(domain.SessionOpen)
	p.RecordTrackingStatus(domain.TrackingTracking)
	p.RecordTick()
	p.RecordTick()
	p.RecordPoseRead()
	p.RecordFetch("map", 120*time.Millisecond, nil)
	p.RecordFetch("map", time.Second, errors.New("boom"))
	p.RecordPOIsPlaced(3)
	p.RecordMapBatches(3, 2500)

	assert.Equal(t, 2.0, testutil.ToFloat64(p.sessionState))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.trackingStatus))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.ticksTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.poseReadsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.fetchFailures.WithLabelValues("map")))
	assert.Equal(t, 3.0, testutil.ToFloat64(p.poisPlaced))
	assert.Equal(t, 2500.0, testutil.ToFloat64(p.mapPoints))
}

func TestPrometheusCollector_IndependentRegistries(t *testing.T) {
	a := NewPrometheusCollector()
	b := NewPrometheusCollector()

	a.RecordTick()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.ticksTotal))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.ticksTotal))
}

func TestPrometheusCollector_Handler(t *testing.T) {
	p := NewPrometheusCollector()
	p.RecordMapBatches(1, 10)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cloudslam_map_points 10")
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func TestHealthChecker_CheckAll(t *testing.T) {
	h := NewHealthChecker()
	h.AddSettingsCheck(pingerFunc(func(ctx context.Context) error { return nil }), time.Second)

	state := domain.SessionOpen
	status := domain.TrackingTracking
	h.AddSessionCheck(
		func() domain.SessionState { return state },
		func() domain.TrackingStatus { return status },
	)

	got := h.CheckAll(context.Background())
	assert.Equal(t, StatusHealthy, got.Status)
	assert.Equal(t, []string{"session", "settings"}, h.Names())

	status = domain.TrackingLost
	got = h.CheckAll(context.Background())
	assert.Equal(t, StatusUnhealthy, got.Status)
	assert.Equal(t, "tracking lost", got.Checks["session"])
	assert.Equal(t, StatusHealthy, got.Checks["settings"])
	assert.False(t, h.IsHealthy(context.Background()))
}

func TestHealthChecker_Timeout(t *testing.T) {
	h := NewHealthChecker()
	h.AddCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, 10*time.Millisecond)

	got := h.CheckAll(context.Background())

	assert.Equal(t, StatusUnhealthy, got.Status)
	assert.Equal(t, context.DeadlineExceeded.Error(), got.Checks["slow"])
}
