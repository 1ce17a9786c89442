package services

import (
	"sync"
	"time"

	"cloudslam/internal/core/domain"
	"cloudslam/internal/core/ports"
)

// FlowStats aggregates one network flow.
type FlowStats struct {
	Requests     int
	Failures     int
	LastDuration time.Duration
	LastError    string
}

// MetricsSnapshot is a point-in-time copy of MetricsService counters.
type MetricsSnapshot struct {
	State       domain.SessionState
	Status      domain.TrackingStatus
	Ticks       int64
	PoseReads   int64
	POIsPlaced  int
	MapBatches  int
	MapPoints   int
	Flows       map[string]FlowStats
	CollectedAt time.Time
}

// MetricsService keeps client metrics in memory. It is the default recorder
// and the one tests assert against.
type MetricsService struct {
	mu sync.RWMutex

	state      domain.SessionState
	status     domain.TrackingStatus
	ticks      int64
	poseReads  int64
	poisPlaced int
	mapBatches int
	mapPoints  int
	flows      map[string]*FlowStats
}

var _ ports.MetricsRecorder = (*MetricsService)(nil)

func NewMetricsService() *MetricsService {
	return &MetricsService{
		flows: make(map[string]*FlowStats),
	}
}

func (m *MetricsService) RecordSessionState(state domain.SessionState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
}

func (m *MetricsService) RecordTrackingStatus(status domain.TrackingStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = status
}

func (m *MetricsService) RecordTick() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ticks++
}

func (m *MetricsService) RecordPoseRead() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.poseReads++
}

func (m *MetricsService) RecordFetch(flow string, duration time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats, ok := m.flows[flow]
	if !ok {
		stats = &FlowStats{}
		m.flows[flow] = stats
	}
	stats.Requests++
	stats.LastDuration = duration
	stats.LastError = ""
	if err != nil {
		stats.Failures++
		stats.LastError = err.Error()
	}
}

func (m *MetricsService) RecordPOIsPlaced(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.poisPlaced = count
}

func (m *MetricsService) RecordMapBatches(batches, points int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mapBatches = batches
	m.mapPoints = points
}

func (m *MetricsService) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	flows := make(map[string]FlowStats, len(m.flows))
	for name, stats := range m.flows {
		flows[name] = *stats
	}
	return MetricsSnapshot{
		State:       m.state,
		Status:      m.status,
		Ticks:       m.ticks,
		PoseReads:   m.poseReads,
		POIsPlaced:  m.poisPlaced,
		MapBatches:  m.mapBatches,
		MapPoints:   m.mapPoints,
		Flows:       flows,
		CollectedAt: time.Now(),
	}
}

// MultiRecorder fans out to several recorders.
type MultiRecorder []ports.MetricsRecorder

func (r MultiRecorder) RecordSessionState(state domain.SessionState) {
	for _, rec := range r {
		rec.RecordSessionState(state)
	}
}

func (r MultiRecorder) RecordTrackingStatus(status domain.TrackingStatus) {
	for _, rec := range r {
		rec.RecordTrackingStatus(status)
	}
}

func (r MultiRecorder) RecordTick() {
	for _, rec := range r {
		rec.RecordTick()
	}
}

func (r MultiRecorder) RecordPoseRead() {
	for _, rec := range r {
		rec.RecordPoseRead()
	}
}

func (r MultiRecorder) RecordFetch(flow string, duration time.Duration, err error) {
	for _, rec := range r {
		rec.RecordFetch(flow, duration, err)
	}
}

func (r MultiRecorder) RecordPOIsPlaced(count int) {
	for _, rec := range r {
		rec.RecordPOIsPlaced(count)
	}
}

func (r MultiRecorder) RecordMapBatches(batches, points int) {
	for _, rec := range r {
		rec.RecordMapBatches(batches, points)
	}
}

func orDefaultMetrics(m ports.MetricsRecorder) ports.MetricsRecorder {
	if m == nil {
		return NewMetricsService()
	}
	return m
}
