package services

import (
	"encoding/json"
	"sort"
	"sync/atomic"

	"cloudslam/internal/core/coords"
	"cloudslam/internal/core/domain"
	"cloudslam/internal/core/ports"
	"cloudslam/pkg/batch"
	apperrors "cloudslam/pkg/errors"
	"cloudslam/pkg/logger"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	DefaultMapBatchSize  = 1000
	DefaultMapPointScale = 0.0025
)

type MapOptions struct {
	BatchSize  int
	PointScale float64
	Metrics    ports.MetricsRecorder
	Logger     *zap.SugaredLogger
}

// MapService keeps the current generation of map point batches. Loading may
// happen on any goroutine; the generation is swapped in one step so Render
// never mixes batches from two snapshots.
type MapService struct {
	renderer   ports.InstancedRenderer
	batchSize  int
	pointScale float64
	metrics    ports.MetricsRecorder
	logger     *zap.SugaredLogger

	batches atomic.Pointer[[]domain.MapPointBatch]
}

func NewMapService(renderer ports.InstancedRenderer, opts MapOptions) *MapService {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultMapBatchSize
	}
	if opts.PointScale <= 0 {
		opts.PointScale = DefaultMapPointScale
	}
	return &MapService{
		renderer:   renderer,
		batchSize:  opts.BatchSize,
		pointScale: opts.PointScale,
		metrics:    orDefaultMetrics(opts.Metrics),
		logger:     logger.OrNop(opts.Logger),
	}
}

// ParseMap decodes a map snapshot. Every point must have exactly three
// coordinates; a missing mapPoints member is an error, an empty one is not.
func ParseMap(data []byte) (map[string][]float64, error) {
	var snapshot domain.MapSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, apperrors.NewParseError(err, "failed to parse map snapshot")
	}
	if snapshot.MapPoints == nil {
		return nil, apperrors.NewParseError(domain.ErrNoMapPoints, "map snapshot has no mapPoints")
	}
	for id, p := range snapshot.MapPoints {
		if len(p) != 3 {
			return nil, apperrors.NewParseError(domain.ErrInvalidMapPoint, "invalid map point").
				WithContext("point_id", id).
				WithContext("coordinates", len(p))
		}
	}
	return snapshot.MapPoints, nil
}

// BuildBatches converts points to application-frame instance transforms and
// splits them into batches. Points are ordered by ID.
func BuildBatches(points map[string][]float64, batchSize int, pointScale float64) []domain.MapPointBatch {
	ids := make([]string, 0, len(points))
	for id := range points {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	scale := r3.Vec{X: pointScale, Y: pointScale, Z: pointScale}
	identity := quat.Number{Real: 1}

	transforms := make([]domain.Matrix4, len(ids))
	for i, id := range ids {
		p := points[id]
		position := coords.PositionToApplication(p[0], p[1], p[2])
		transforms[i] = coords.TRS(position, identity, scale)
	}

	idGroups := batch.Partition(ids, batchSize)
	transformGroups := batch.Partition(transforms, batchSize)

	batches := make([]domain.MapPointBatch, len(idGroups))
	for i := range idGroups {
		batches[i] = domain.MapPointBatch{
			PointIDs:   idGroups[i],
			Transforms: transformGroups[i],
		}
	}
	return batches
}

// LoadMapFromJSON rebuilds the batch list from data and returns the number of
// points loaded. On error the previous batches stay in place.
func (s *MapService) LoadMapFromJSON(data []byte) (int, error) {
	points, err := ParseMap(data)
	if err != nil {
		s.logger.Warnw("keeping existing map", "error", err, "batches", len(s.Batches()))
		return 0, err
	}

	batches := BuildBatches(points, s.batchSize, s.pointScale)
	s.batches.Store(&batches)

	s.metrics.RecordMapBatches(len(batches), len(points))
	s.logger.Infow("map loaded", "points", len(points), "batches", len(batches))
	return len(points), nil
}

// Batches returns the current generation. Callers must not modify it.
func (s *MapService) Batches() []domain.MapPointBatch {
	if b := s.batches.Load(); b != nil {
		return *b
	}
	return nil
}

// Render draws every batch of the current generation.
func (s *MapService) Render() {
	if s.renderer == nil {
		return
	}
	for _, b := range s.Batches() {
		s.renderer.DrawInstanced(b.Transforms)
	}
}

// Update renders once per tick.
func (s *MapService) Update() {
	s.Render()
}
