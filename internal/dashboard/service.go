// Package dashboard ties the road store, live feeds, scoring and route
// synthesis together behind the operations the HTTP layer exposes.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"riskroute/internal/dispatch"
	"riskroute/internal/events"
	"riskroute/internal/graph"
	"riskroute/internal/metrics"
	"riskroute/internal/model"
	"riskroute/internal/route"
	"riskroute/internal/scoring"
)

// DefaultDepot is the fixed start and end of every collection loop.
var DefaultDepot = model.Depot{Name: "Tampa depot", Lat: 28.0543, Lon: -82.4597}

var tracer = otel.Tracer("riskroute/dashboard")

// GraphError means the road network around the depot could not be built.
// The current route is left untouched.
type GraphError struct {
	Cause error
}

func (e *GraphError) Error() string { return "road graph unavailable: " + e.Cause.Error() }
func (e *GraphError) Unwrap() error { return e.Cause }

type SegmentSource interface {
	ListSegments(ctx context.Context) ([]model.RoadSegment, error)
}

type ConditionsSource interface {
	Conditions(ctx context.Context) model.LiveConditions
}

type Service struct {
	Segments SegmentSource
	Graphs   graph.Provider
	Live     ConditionsSource
	Synth    *route.Synthesizer
	Depot    model.Depot
	Slot     *RouteSlot
	Broker   events.Broker
	Dispatch *dispatch.Worker
	Logger   *zap.Logger
	Now      func() time.Time
}

// New wires a service with the default depot, an empty slot and a
// randomly seeded synthesizer. Broker and Dispatch may be nil.
func New(segments SegmentSource, graphs graph.Provider, live ConditionsSource, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		Segments: segments,
		Graphs:   graphs,
		Live:     live,
		Synth:    route.NewSynthesizer(route.NewRandSampler(0), logger),
		Depot:    DefaultDepot,
		Slot:     NewRouteSlot(),
		Logger:   logger,
		Now:      time.Now,
	}
}

// Conditions returns the cached live snapshot; never fails.
func (s *Service) Conditions(ctx context.Context) model.LiveConditions {
	if s.Live == nil {
		return model.LiveConditions{Incidents: []model.TrafficIncident{}, FetchedAt: s.Now().UTC()}
	}
	return s.Live.Conditions(ctx)
}

// ScoredTable scores every segment against the current weather.
func (s *Service) ScoredTable(ctx context.Context) ([]model.ScoredSegment, error) {
	ctx, span := tracer.Start(ctx, "dashboard.ScoredTable")
	defer span.End()
	if s.Segments == nil {
		return nil, model.ErrNoBaseData
	}
	segs, err := s.Segments.ListSegments(ctx)
	if err != nil {
		return nil, err
	}
	lc := s.Conditions(ctx)
	table, err := scoring.ScoreAll(segs, lc.Weather)
	if err != nil {
		return nil, err
	}
	sum := scoring.Summarize(table)
	for band, n := range sum.Bands {
		metrics.ScoredSegments.WithLabelValues(band).Set(float64(n))
	}
	span.SetAttributes(attribute.Int("segments", len(table)), attribute.Bool("weather", lc.Weather != nil))
	return table, nil
}

// ScoredSegments returns the scored table filtered to minScore and above.
func (s *Service) ScoredSegments(ctx context.Context, minScore int) ([]model.ScoredSegment, error) {
	table, err := s.ScoredTable(ctx)
	if err != nil {
		return nil, err
	}
	return scoring.Filter(table, minScore), nil
}

func (s *Service) Summary(ctx context.Context) (scoring.Summary, error) {
	table, err := s.ScoredTable(ctx)
	if err != nil {
		return scoring.Summary{}, err
	}
	return scoring.Summarize(table), nil
}

// GenerateRoute synthesizes a loop from the depot for one of route.Durations.
// A non-zero seed makes the run reproducible.
func (s *Service) GenerateRoute(ctx context.Context, minutes int, seed int64) (model.SynthesizedRoute, error) {
	ctx, span := tracer.Start(ctx, "dashboard.GenerateRoute")
	defer span.End()
	span.SetAttributes(attribute.Int("duration_minutes", minutes))
	log := s.Logger.With(zap.Int("duration_minutes", minutes))

	if !route.ValidDuration(minutes) {
		return model.SynthesizedRoute{}, fmt.Errorf("%d: %w", minutes, route.ErrInvalidDuration)
	}
	if s.Graphs == nil {
		return model.SynthesizedRoute{}, &GraphError{Cause: model.ErrNoBaseData}
	}
	radius := route.RadiusFor(minutes)
	g, err := s.Graphs.BuildGraph(ctx, s.Depot.Lat, s.Depot.Lon, radius)
	if err != nil {
		return s.fail(log, &GraphError{Cause: err})
	}
	origin, err := g.NearestNode(s.Depot.Lat, s.Depot.Lon)
	if err != nil {
		return s.fail(log, &GraphError{Cause: err})
	}
	req, err := route.NewRequest(origin, minutes)
	if err != nil {
		return model.SynthesizedRoute{}, err
	}

	syn := s.synthesizer(seed)
	start := time.Now()
	r, err := syn.Synthesize(ctx, g, req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return model.SynthesizedRoute{}, err
		}
		return s.fail(log, err)
	}
	r.Coordinates = g.LatLon(r.Path)
	r.DurationMinutes = minutes
	r.RadiusMeters = radius

	s.Slot.Set(r)
	route.RecordRun(minutes, route.RunStats{
		Status:         r.Status,
		Waypoints:      r.WaypointCount,
		FailedLegs:     r.FailedLegs,
		Attempts:       r.WaypointCount + r.FailedLegs,
		NodesTraversed: r.NodesTraversed,
		DistanceMeters: r.TotalDistanceMeters,
		ElapsedMs:      time.Since(start).Milliseconds(),
		At:             r.CreatedAt,
	})
	log.Info("route synthesized",
		zap.String("route_id", r.ID),
		zap.String("status", string(r.Status)),
		zap.Int("waypoints", r.WaypointCount),
		zap.Int("failed_legs", r.FailedLegs),
		zap.Float64("miles", r.TotalDistanceMiles),
		zap.Int("graph_nodes", g.Len()),
	)
	s.publish(events.RouteSynthesized, map[string]any{
		"routeId":         r.ID,
		"status":          r.Status,
		"distanceMiles":   r.TotalDistanceMiles,
		"durationMinutes": r.EstimatedDurationMinutes,
		"waypoints":       r.WaypointCount,
	})
	if s.Dispatch != nil {
		s.Dispatch.Enqueue(dispatch.Render(r, s.Now()))
	}
	return r, nil
}

func (s *Service) synthesizer(seed int64) *route.Synthesizer {
	if s.Synth == nil {
		return route.NewSynthesizer(route.NewRandSampler(seed), s.Logger)
	}
	if seed == 0 {
		return s.Synth
	}
	syn := *s.Synth
	syn.Sampler = route.NewRandSampler(seed)
	return &syn
}

func (s *Service) fail(log *zap.Logger, err error) (model.SynthesizedRoute, error) {
	log.Error("route synthesis failed", zap.Error(err))
	s.publish(events.RouteFailed, map[string]any{"error": err.Error()})
	return model.SynthesizedRoute{}, err
}

// CurrentRoute returns the route in the slot.
func (s *Service) CurrentRoute() (model.SynthesizedRoute, bool) { return s.Slot.Get() }

// ClearRoute empties the slot.
func (s *Service) ClearRoute() bool {
	had := s.Slot.Clear()
	if had {
		s.publish(events.RouteCleared, map[string]any{})
	}
	return had
}

// Manifest renders the dispatch manifest of the current route.
func (s *Service) Manifest() (model.Manifest, bool) {
	r, ok := s.Slot.Get()
	if !ok {
		return model.Manifest{}, false
	}
	return dispatch.Render(r, s.Now()), true
}

// Options lists what a dispatcher may request.
type Options struct {
	Durations    []int           `json:"durations"`
	RadiusMeters map[int]float64 `json:"radiusMeters"`
	Depot        model.Depot     `json:"depot"`
	SpeedMPS     float64         `json:"speedMps"`
}

func (s *Service) Options() Options {
	radii := make(map[int]float64, len(route.Durations))
	for _, d := range route.Durations {
		radii[d] = route.RadiusFor(d)
	}
	return Options{Durations: route.Durations, RadiusMeters: radii, Depot: s.Depot, SpeedMPS: route.SpeedMPS}
}

func (s *Service) publish(typ string, data map[string]any) {
	if s.Broker == nil {
		return
	}
	s.Broker.Publish(events.TopicRoutes, events.Event{Type: typ, Data: data})
}
