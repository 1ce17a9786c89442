package devserver

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"strconv"
	"sync"

	"cloudslam/internal/core/domain"
	apperrors "cloudslam/pkg/errors"
	"cloudslam/pkg/utils"
)

// Snapshots holds the documents the development server hands out. Each
// document is encoded once and served as bytes.
type Snapshots struct {
	mu     sync.RWMutex
	config []byte
	pois   []byte
	mapDoc []byte
}

// SnapshotOptions selects where each document comes from. An empty file
// path means generated demo data.
type SnapshotOptions struct {
	Session       domain.SessionConfig
	ConfigFile    string
	POIFile       string
	MapFile       string
	DemoPOIs      int
	DemoMapPoints int
	Seed          uint64
}

func LoadSnapshots(opts SnapshotOptions) (*Snapshots, error) {
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	s := &Snapshots{}

	var err error
	if s.config, err = loadOrEncode(opts.ConfigFile, func() any { return opts.Session }); err != nil {
		return nil, err
	}
	if s.pois, err = loadOrEncode(opts.POIFile, func() any { return DemoPOIs(opts.DemoPOIs, rng) }); err != nil {
		return nil, err
	}
	if s.mapDoc, err = loadOrEncode(opts.MapFile, func() any { return DemoMap(opts.DemoMapPoints, rng) }); err != nil {
		return nil, err
	}
	return s, nil
}

func loadOrEncode(path string, demo func() any) ([]byte, error) {
	if path == "" {
		data, err := json.Marshal(demo())
		if err != nil {
			return nil, apperrors.WrapError(err, apperrors.ErrCodeInternal, "failed to encode demo snapshot", 0)
		}
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewConfigurationError(err, "failed to read snapshot file").WithContext("file", path)
	}
	if !json.Valid(data) {
		return nil, apperrors.NewParseError(fmt.Errorf("invalid JSON"), "snapshot file is not JSON").WithContext("file", path)
	}
	return data, nil
}

func (s *Snapshots) Config() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

func (s *Snapshots) POIs() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pois
}

func (s *Snapshots) Map() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mapDoc
}

// SetPOIs replaces the POI document served to new connections.
func (s *Snapshots) SetPOIs(data []byte) error {
	if !json.Valid(data) {
		return apperrors.NewInvalidInputError("POI snapshot is not JSON")
	}
	s.mu.Lock()
	s.pois = data
	s.mu.Unlock()
	return nil
}

var demoTypes = []string{"sphere", "cuboid", "anchor"}

// DemoPOIs scatters n points of interest over a 10 m square around the
// origin, cycling through the known types.
func DemoPOIs(n int, rng *rand.Rand) domain.POICollection {
	shapes := make(map[string]*domain.PointOfInterest, n)
	for i := 0; i < n; i++ {
		guid := utils.NewGUID()
		yaw := rng.Float64() * 2 * math.Pi
		poi := &domain.PointOfInterest{
			GUID:     guid,
			RawType:  demoTypes[i%len(demoTypes)],
			ImgID:    i,
			Checksum: strconv.FormatUint(rng.Uint64(), 16),
			Transform: domain.POITransform{
				PX:    rng.Float64()*10 - 5,
				PY:    rng.Float64()*2 - 1,
				PZ:    rng.Float64()*10 - 5,
				QY:    math.Sin(yaw / 2),
				QW:    math.Cos(yaw / 2),
				Scale: 1,
			},
		}
		switch poi.RawType {
		case "sphere":
			poi.Details.Radius = 0.1 + rng.Float64()*0.4
			poi.Details.TriggerInsideOnly = i%2 == 0
		case "cuboid":
			poi.Details.XSize = 0.2 + rng.Float64()
			poi.Details.YSize = 0.2 + rng.Float64()
			poi.Details.ZSize = 0.2 + rng.Float64()
		case "anchor":
			poi.Details.Size = 0.25
		}
		shapes[guid] = poi
	}
	return domain.POICollection{Shapes: shapes}
}

// DemoMap samples n points from a noisy room-sized box shell.
func DemoMap(n int, rng *rand.Rand) domain.MapSnapshot {
	points := make(map[string][]float64, n)
	for i := 0; i < n; i++ {
		p := []float64{rng.Float64()*8 - 4, rng.Float64() * 3, rng.Float64()*8 - 4}
		// push one coordinate onto a wall
		axis := rng.IntN(3)
		switch axis {
		case 1:
			p[1] = math.Round(p[1]/3) * 3
		default:
			p[axis] = math.Copysign(4, p[axis])
		}
		for j := range p {
			p[j] += rng.NormFloat64() * 0.02
		}
		points[strconv.Itoa(i)] = p
	}
	return domain.MapSnapshot{MapPoints: points}
}
