package store

import (
    "context"
    "fmt"
    "sync"

    "github.com/paulmach/orb/geojson"
    "go.uber.org/zap"

    "riskroute/internal/graph"
    "riskroute/internal/model"
)

// Memory serves segments and the road network from GeoJSON loaded at start-up.
type Memory struct {
    mu       sync.RWMutex
    segments []model.RoadSegment
    network  *geojson.FeatureCollection
    log      *zap.Logger
}

func NewMemory() *Memory { return &Memory{log: zap.NewNop()} }

// LoadMemory reads the attribute layer and the drivable network. Missing
// files leave the corresponding part empty. Without a network file the
// attribute layer's lines double as the network.
func LoadMemory(roadsPath, networkPath string, log *zap.Logger) (*Memory, error) {
    if log == nil { log = zap.NewNop() }
    m := NewMemory()
    m.log = log
    roads, err := LoadFeatureCollection(roadsPath)
    switch {
    case IsMissing(err):
        log.Warn("road attribute layer not found, scoring has no base data", zap.String("path", roadsPath))
    case err != nil:
        return nil, err
    default:
        m.SetSegments(SegmentsFromFeatures(roads))
        log.Info("road attribute layer loaded", zap.String("path", roadsPath), zap.Int("segments", len(roads.Features)))
    }

    network, err := LoadFeatureCollection(networkPath)
    switch {
    case IsMissing(err):
        if roads != nil {
            log.Info("no network file, using road attribute layer as network")
            m.SetNetwork(roads)
        } else {
            log.Warn("road network not found, route synthesis unavailable", zap.String("path", networkPath))
        }
    case err != nil:
        return nil, err
    default:
        m.SetNetwork(network)
        log.Info("road network loaded", zap.String("path", networkPath), zap.Int("features", len(network.Features)))
    }
    return m, nil
}

func (m *Memory) SetSegments(segs []model.RoadSegment) {
    m.mu.Lock(); defer m.mu.Unlock()
    m.segments = segs
}

func (m *Memory) SetNetwork(fc *geojson.FeatureCollection) {
    m.mu.Lock(); defer m.mu.Unlock()
    m.network = fc
}

func (m *Memory) ListSegments(ctx context.Context) ([]model.RoadSegment, error) {
    m.mu.RLock(); defer m.mu.RUnlock()
    if len(m.segments) == 0 {
        return nil, ErrNoBaseData
    }
    out := make([]model.RoadSegment, len(m.segments))
    copy(out, m.segments)
    return out, nil
}

func (m *Memory) BuildGraph(ctx context.Context, centerLat, centerLon, radiusMeters float64) (*graph.Graph, error) {
    m.mu.RLock()
    fc := m.network
    m.mu.RUnlock()
    if fc == nil || len(fc.Features) == 0 {
        return nil, ErrNoBaseData
    }
    if err := ctx.Err(); err != nil {
        return nil, err
    }
    g, dropped := graph.FromFeatures(fc, centerLat, centerLon, radiusMeters)
    if dropped > 0 {
        m.log.Warn("network edges rejected", zap.Int("dropped", dropped))
    }
    if g.Len() == 0 {
        return nil, fmt.Errorf("no road network within %.0f m of %.5f,%.5f: %w", radiusMeters, centerLat, centerLon, ErrNoBaseData)
    }
    return g, nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }
