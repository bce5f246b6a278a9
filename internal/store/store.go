package store

import (
    "context"

    "riskroute/internal/graph"
    "riskroute/internal/model"
)

// Store is the road data source used by the dashboard: the attribute table
// for scoring and the drivable network for route synthesis.
type Store interface {
    ListSegments(ctx context.Context) ([]model.RoadSegment, error)
    BuildGraph(ctx context.Context, centerLat, centerLon, radiusMeters float64) (*graph.Graph, error)
    Ping(ctx context.Context) error
}

// ErrNoBaseData is returned when the store holds no segments or no network.
var ErrNoBaseData = model.ErrNoBaseData

var _ graph.Provider = Store(nil)
