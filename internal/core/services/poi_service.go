package services

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"cloudslam/internal/core/coords"
	"cloudslam/internal/core/domain"
	"cloudslam/internal/core/ports"
	apperrors "cloudslam/pkg/errors"
	"cloudslam/pkg/logger"

	"go.uber.org/zap"
)

// PlacedPOI is a point of interest together with the scene node it was
// placed as.
type PlacedPOI struct {
	POI  domain.PointOfInterest
	Node ports.SceneNode
}

// POIService turns POI snapshots into scene nodes. LoadPOIsFromJSON touches
// the scene and must run on the main loop; POIs may be called from anywhere.
type POIService struct {
	factory ports.POIActorFactory
	metrics ports.MetricsRecorder
	logger  *zap.SugaredLogger

	mu sync.RWMutex
	// keyed by the snapshot's collection key; payload GUIDs may repeat
	placed map[string]*PlacedPOI
}

func NewPOIService(factory ports.POIActorFactory, metrics ports.MetricsRecorder, log *zap.SugaredLogger) *POIService {
	return &POIService{
		factory: factory,
		metrics: orDefaultMetrics(metrics),
		logger:  logger.OrNop(log),
		placed:  make(map[string]*PlacedPOI),
	}
}

// ParsePOIs decodes a POI snapshot. A snapshot without shapes is an error.
func ParsePOIs(data []byte) (map[string]*domain.PointOfInterest, error) {
	var collection domain.POICollection
	if err := json.Unmarshal(data, &collection); err != nil {
		return nil, apperrors.NewParseError(err, "failed to parse POI snapshot")
	}
	if len(collection.Shapes) == 0 {
		return nil, apperrors.NewParseError(domain.ErrNoShapes, "POI snapshot is empty")
	}
	return collection.Shapes, nil
}

// LoadPOIsFromJSON replaces every placed POI with the contents of data and
// returns how many were placed. On error the scene is left untouched.
func (s *POIService) LoadPOIsFromJSON(data []byte) (int, error) {
	shapes, err := ParsePOIs(data)
	if err != nil {
		s.logger.Warnw("keeping existing POIs", "error", err, "placed", s.Count())
		return 0, err
	}
	return s.Place(shapes), nil
}

// Place replaces every placed POI with shapes and returns how many were
// placed. Entries with an unknown type are skipped.
func (s *POIService) Place(shapes map[string]*domain.PointOfInterest) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, p := range s.placed {
		p.Node.Destroy()
		delete(s.placed, key)
	}

	keys := make([]string, 0, len(shapes))
	for key := range shapes {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	skipped := 0
	for _, key := range keys {
		poi := shapes[key]
		if poi == nil {
			skipped++
			continue
		}
		if poi.GUID == "" {
			poi.GUID = key
		}

		node := s.createNode(poi)
		if node == nil {
			s.logger.Debugw("skipping POI with unknown type", "guid", poi.GUID, "type", poi.RawType)
			skipped++
			continue
		}

		node.SetReceiveShadows(false)
		coords.ApplyTRS(poi.Position(), poi.Rotation(), poi.LocalScale(), node)
		s.placed[key] = &PlacedPOI{POI: *poi, Node: node}
	}

	s.metrics.RecordPOIsPlaced(len(s.placed))
	s.logger.Infow("placed POIs", "placed", len(s.placed), "skipped", skipped)
	return len(s.placed)
}

func (s *POIService) createNode(poi *domain.PointOfInterest) ports.SceneNode {
	switch poi.Type() {
	case domain.POISphere:
		return s.factory.CreateSphere(poi.GUID)
	case domain.POICuboid:
		return s.factory.CreateCuboid(poi.GUID)
	case domain.POIAnchor:
		return s.factory.CreateAnchor(poi.GUID)
	case domain.POIUnknown:
		return nil
	default:
		panic(fmt.Sprintf("unhandled POI type %d", poi.Type()))
	}
}

// POIs returns the placed POIs ordered by GUID.
func (s *POIService) POIs() []domain.PointOfInterest {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pois := make([]domain.PointOfInterest, 0, len(s.placed))
	for _, p := range s.placed {
		pois = append(pois, p.POI)
	}
	sort.Slice(pois, func(i, j int) bool { return pois[i].GUID < pois[j].GUID })
	return pois
}

// Node returns the scene node placed for the snapshot entry key.
func (s *POIService) Node(key string) (ports.SceneNode, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.placed[key]
	if !ok {
		return nil, false
	}
	return p.Node, true
}

func (s *POIService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.placed)
}
