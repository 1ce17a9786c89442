package services

import (
	"encoding/json"
	"fmt"
	"testing"

	"cloudslam/internal/core/domain"
	apperrors "cloudslam/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapDocument(t *testing.T, n int) []byte {
	t.Helper()
	points := make(map[string][]float64, n)
	for i := 0; i < n; i++ {
		points[fmt.Sprintf("p%05d", i)] = []float64{float64(i), float64(i) * 0.5, -float64(i)}
	}
	data, err := json.Marshal(domain.MapSnapshot{MapPoints: points})
	require.NoError(t, err)
	return data
}

func TestMapService_BatchesCoverEveryPointOnce(t *testing.T) {
	metrics := NewMetricsService()
	s := NewMapService(&fakeRenderer{}, MapOptions{Metrics: metrics})

	n, err := s.LoadMapFromJSON(mapDocument(t, 2500))

	require.NoError(t, err)
	assert.Equal(t, 2500, n)

	batches := s.Batches()
	require.Len(t, batches, 3)
	seen := make(map[string]int)
	for i, want := range []int{1000, 1000, 500} {
		assert.Equal(t, want, batches[i].Len())
		require.Len(t, batches[i].PointIDs, want)
		for _, id := range batches[i].PointIDs {
			seen[id]++
		}
	}
	assert.Len(t, seen, 2500)
	for id, count := range seen {
		assert.Equal(t, 1, count, id)
	}

	snap := metrics.Snapshot()
	assert.Equal(t, 3, snap.MapBatches)
	assert.Equal(t, 2500, snap.MapPoints)
}

func TestMapService_PointTransform(t *testing.T) {
	s := NewMapService(nil, MapOptions{})

	_, err := s.LoadMapFromJSON([]byte(`{"mapPoints": {"only": [1, 2, 3]}}`))
	require.NoError(t, err)

	m := s.Batches()[0].Transforms[0]
	p := m.Translation()
	assert.InDelta(t, 1, p.X, 1e-9)
	assert.InDelta(t, -2, p.Y, 1e-9)
	assert.InDelta(t, 3, p.Z, 1e-9)
	assert.InDelta(t, DefaultMapPointScale, m.At(0, 0), 1e-12)
	assert.InDelta(t, DefaultMapPointScale, m.At(1, 1), 1e-12)
}

func TestMapService_FailedLoadKeepsPreviousBatches(t *testing.T) {
	s := NewMapService(nil, MapOptions{BatchSize: 10})
	_, err := s.LoadMapFromJSON(mapDocument(t, 25))
	require.NoError(t, err)
	before := s.Batches()

	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"malformed", `{"mapPoints": [`, nil},
		{"missing member", `{"points": {}}`, domain.ErrNoMapPoints},
		{"two coordinates", `{"mapPoints": {"a": [1, 2]}}`, domain.ErrInvalidMapPoint},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.LoadMapFromJSON([]byte(tt.doc))

			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeParse))
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
			assert.Equal(t, before, s.Batches())
		})
	}
}

func TestMapService_EmptySnapshotClears(t *testing.T) {
	s := NewMapService(nil, MapOptions{})
	_, err := s.LoadMapFromJSON(mapDocument(t, 5))
	require.NoError(t, err)

	n, err := s.LoadMapFromJSON([]byte(`{"mapPoints": {}}`))

	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, s.Batches())
}

func TestMapService_RenderDrawsEachBatch(t *testing.T) {
	renderer := &fakeRenderer{}
	s := NewMapService(renderer, MapOptions{BatchSize: 4})

	s.Update()
	assert.Empty(t, renderer.draws)

	_, err := s.LoadMapFromJSON(mapDocument(t, 10))
	require.NoError(t, err)
	s.Update()

	require.Len(t, renderer.draws, 3)
	assert.Len(t, renderer.draws[2], 2)
}
