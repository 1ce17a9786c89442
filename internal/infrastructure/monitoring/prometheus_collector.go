package monitoring

import (
	"net/http"
	"time"

	"cloudslam/internal/core/domain"
	"cloudslam/internal/core/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusCollector exports client metrics. Each collector owns its
// registry so several can coexist in one process.
type PrometheusCollector struct {
	registry *prometheus.Registry

	sessionState   prometheus.Gauge
	trackingStatus prometheus.Gauge
	ticksTotal     prometheus.Counter
	poseReadsTotal prometheus.Counter

	fetchDuration *prometheus.HistogramVec
	fetchFailures *prometheus.CounterVec

	poisPlaced prometheus.Gauge
	mapBatches prometheus.Gauge
	mapPoints  prometheus.Gauge
}

var _ ports.MetricsRecorder = (*PrometheusCollector)(nil)

func NewPrometheusCollector() *PrometheusCollector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &PrometheusCollector{
		registry: registry,

		sessionState: factory.NewGauge(prometheus.GaugeOpts{
			Name: "cloudslam_session_state",
			Help: "Session state (0 closed, 1 opening, 2 open, 3 closing)",
		}),

		trackingStatus: factory.NewGauge(prometheus.GaugeOpts{
			Name: "cloudslam_tracking_status",
			Help: "Tracking status (0 none, 1 lost, 2 tracking)",
		}),

		ticksTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "cloudslam_ticks_total",
			Help: "Total number of main loop ticks",
		}),

		poseReadsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "cloudslam_pose_reads_total",
			Help: "Total number of poses applied to the scene",
		}),

		fetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cloudslam_fetch_duration_seconds",
			Help:    "Duration of remote fetches",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 15},
		}, []string{"flow"}),

		fetchFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cloudslam_fetch_failures_total",
			Help: "Total number of failed remote fetches",
		}, []string{"flow"}),

		poisPlaced: factory.NewGauge(prometheus.GaugeOpts{
			Name: "cloudslam_pois_placed",
			Help: "Number of points of interest currently placed",
		}),

		mapBatches: factory.NewGauge(prometheus.GaugeOpts{
			Name: "cloudslam_map_batches",
			Help: "Number of map point batches rendered per frame",
		}),

		mapPoints: factory.NewGauge(prometheus.GaugeOpts{
			Name: "cloudslam_map_points",
			Help: "Number of map points loaded",
		}),
	}
}

func (p *PrometheusCollector) RecordSessionState(state domain.SessionState) {
	p.sessionState.Set(float64(state))
}

func (p *PrometheusCollector) RecordTrackingStatus(status domain.TrackingStatus) {
	p.trackingStatus.Set(float64(status))
}

func (p *PrometheusCollector) RecordTick() {
	p.ticksTotal.Inc()
}

func (p *PrometheusCollector) RecordPoseRead() {
	p.poseReadsTotal.Inc()
}

func (p *PrometheusCollector) RecordFetch(flow string, duration time.Duration, err error) {
	p.fetchDuration.WithLabelValues(flow).Observe(duration.Seconds())
	if err != nil {
		p.fetchFailures.WithLabelValues(flow).Inc()
	}
}

func (p *PrometheusCollector) RecordPOIsPlaced(count int) {
	p.poisPlaced.Set(float64(count))
}

func (p *PrometheusCollector) RecordMapBatches(batches, points int) {
	p.mapBatches.Set(float64(batches))
	p.mapPoints.Set(float64(points))
}

func (p *PrometheusCollector) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the collector's registry in the Prometheus text format.
func (p *PrometheusCollector) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
