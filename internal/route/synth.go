// Package route synthesizes exploratory collection loops on a road graph:
// starting at the depot it keeps heading to the farthest of a random sample of
// intersections until the distance budget is nearly spent, then drives home.
package route

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"riskroute/internal/graph"
	"riskroute/internal/metrics"
	"riskroute/internal/model"
)

var ErrOriginNotInGraph = errors.New("origin is not a node of the graph")

var tracer = otel.Tracer("riskroute/route")

// Synthesizer holds the tuning knobs of the waypoint loop. Zero values fall
// back to the package defaults.
type Synthesizer struct {
	Sampler      Sampler
	SampleSize   int
	StopFraction float64
	SpeedMPS     float64
	// MaxAttempts bounds successful plus failed legs; 0 means 4*maxWaypoints.
	MaxAttempts int
	Logger      *zap.Logger
	Now         func() time.Time
}

func NewSynthesizer(s Sampler, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{
		Sampler:      s,
		SampleSize:   DefaultSampleSize,
		StopFraction: DefaultStopFraction,
		SpeedMPS:     SpeedMPS,
		Logger:       logger,
		Now:          time.Now,
	}
}

// Synthesize builds one loop starting at req.Origin. Legs with no path are
// skipped and counted in FailedLegs; the returned route is always a valid walk.
func (s *Synthesizer) Synthesize(ctx context.Context, g *graph.Graph, req model.RouteRequest) (model.SynthesizedRoute, error) {
	ctx, span := tracer.Start(ctx, "route.Synthesize")
	defer span.End()
	start := time.Now()

	r, err := s.synthesize(ctx, g, req)
	metrics.SynthesisDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SynthesisRuns.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return model.SynthesizedRoute{}, err
	}
	metrics.SynthesisRuns.WithLabelValues(string(r.Status)).Inc()
	metrics.SynthesisFailedLegs.Add(float64(r.FailedLegs))
	span.SetAttributes(
		attribute.Int("route.waypoints", r.WaypointCount),
		attribute.Int("route.failed_legs", r.FailedLegs),
		attribute.Float64("route.distance_m", r.TotalDistanceMeters),
		attribute.String("route.status", string(r.Status)),
	)
	return r, nil
}

func (s *Synthesizer) synthesize(ctx context.Context, g *graph.Graph, req model.RouteRequest) (model.SynthesizedRoute, error) {
	if g == nil || g.Len() == 0 {
		return model.SynthesizedRoute{}, model.ErrNoBaseData
	}
	origin := req.Origin
	if !g.Has(origin) {
		return model.SynthesizedRoute{}, fmt.Errorf("node %d: %w", origin, ErrOriginNotInGraph)
	}
	sampler := s.Sampler
	if sampler == nil {
		sampler = NewRandSampler(0)
	}
	sampleSize := s.SampleSize
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}
	stop := s.StopFraction
	if stop <= 0 {
		stop = DefaultStopFraction
	}
	maxWaypoints := req.MaxWaypoints
	if maxWaypoints <= 0 {
		maxWaypoints = DefaultMaxWaypoints
	}
	maxAttempts := s.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 4 * maxWaypoints
	}
	log := s.logger().With(zap.Int64("origin", int64(origin)), zap.Float64("target_m", req.TargetDistanceMeters))

	path := []model.NodeID{origin}
	if g.Degree(origin) == 0 {
		log.Warn("origin has no incident edges, returning single-node route")
		return s.finish(g, path, 0, 0, model.RouteDegenerate)
	}

	current := origin
	acc := 0.0
	waypoints, failed := 0, 0
	ids := g.NodeIDs()
	budget := stop * req.TargetDistanceMeters
	for acc < budget && waypoints < maxWaypoints && waypoints+failed < maxAttempts {
		if err := ctx.Err(); err != nil {
			return model.SynthesizedRoute{}, err
		}
		next, ok := farthest(g, current, sampler.Sample(ids, sampleSize))
		if !ok {
			failed++
			continue
		}
		sub, length, err := g.ShortestPath(current, next)
		if err != nil {
			failed++
			log.Debug("leg skipped", zap.Int64("from", int64(current)), zap.Int64("to", int64(next)), zap.Error(err))
			continue
		}
		path = append(path, sub[1:]...)
		acc += length
		current = next
		waypoints++
	}
	if acc < budget && waypoints < maxWaypoints {
		log.Warn("attempt budget exhausted", zap.Int("waypoints", waypoints), zap.Int("failed_legs", failed))
	}

	status := model.RouteClosed
	if current != origin {
		back, _, err := g.ShortestPath(current, origin)
		if err != nil {
			status = model.RouteOpen
			log.Warn("route could not return to origin", zap.Int64("end", int64(current)), zap.Error(err))
		} else {
			path = append(path, back[1:]...)
		}
	}
	return s.finish(g, path, waypoints, failed, status)
}

func (s *Synthesizer) finish(g *graph.Graph, path []model.NodeID, waypoints, failed int, status model.RouteStatus) (model.SynthesizedRoute, error) {
	total, err := g.PathLength(path)
	if err != nil {
		return model.SynthesizedRoute{}, fmt.Errorf("measure route: %w", err)
	}
	speed := s.SpeedMPS
	if speed <= 0 {
		speed = SpeedMPS
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return model.SynthesizedRoute{
		ID:                       uuid.NewString(),
		Path:                     path,
		TotalDistanceMeters:      total,
		TotalDistanceMiles:       Miles(total),
		EstimatedDurationMinutes: total / speed / 60,
		WaypointCount:            waypoints,
		NodesTraversed:           len(path),
		FailedLegs:               failed,
		Status:                   status,
		CreatedAt:                now().UTC(),
	}, nil
}

func (s *Synthesizer) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// farthest picks the sample node with the largest planar distance from
// current. Ties keep the first one seen.
func farthest(g *graph.Graph, current model.NodeID, sample []model.NodeID) (model.NodeID, bool) {
	var best model.NodeID
	bestDist := -1.0
	for _, id := range sample {
		if !g.Has(id) {
			continue
		}
		if d := g.PlanarDistance(current, id); d > bestDist {
			best, bestDist = id, d
		}
	}
	return best, bestDist >= 0
}
