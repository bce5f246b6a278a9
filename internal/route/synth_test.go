package route

import (
	"context"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riskroute/internal/graph"
	"riskroute/internal/model"
)

// allSampler returns every id in order, so the farthest node always wins.
type allSampler struct{}

func (allSampler) Sample(ids []model.NodeID, k int) []model.NodeID {
	if k > len(ids) {
		k = len(ids)
	}
	return append([]model.NodeID(nil), ids[:k]...)
}

// fixedSampler returns the same ids on every call.
type fixedSampler []model.NodeID

func (f fixedSampler) Sample([]model.NodeID, int) []model.NodeID { return f }

// corridor is 1-2-3-4-5 spaced 100 m apart on the x axis.
func corridor(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	for i := 1; i <= 5; i++ {
		g.AddNode(graph.Node{ID: model.NodeID(i), Planar: orb.Point{float64(i-1) * 100, 0}})
	}
	for i := 1; i < 5; i++ {
		require.NoError(t, g.AddEdge(model.NodeID(i), model.NodeID(i+1), 100))
	}
	return g
}

func newTestSynth(s Sampler) *Synthesizer {
	syn := NewSynthesizer(s, nil)
	syn.Now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return syn
}

func assertWalk(t *testing.T, g *graph.Graph, path []model.NodeID) {
	t.Helper()
	for i := 1; i < len(path); i++ {
		_, ok := g.EdgeLength(path[i-1], path[i])
		assert.Truef(t, ok, "no edge %d-%d", path[i-1], path[i])
	}
}

func TestSynthesize_OutAndBack(t *testing.T) {
	g := corridor(t)
	r, err := newTestSynth(allSampler{}).Synthesize(context.Background(), g, model.RouteRequest{Origin: 1, TargetDistanceMeters: 1000})
	require.NoError(t, err)

	// 1 -> 5 (400 m), 5 -> 1 (400 m) reaches 0.8 * 1000 and stops at the origin.
	assert.Equal(t, []model.NodeID{1, 2, 3, 4, 5, 4, 3, 2, 1}, r.Path)
	assert.Equal(t, 2, r.WaypointCount)
	assert.Equal(t, 0, r.FailedLegs)
	assert.Equal(t, model.RouteClosed, r.Status)
	assert.True(t, r.Closed())
	assert.InDelta(t, 800, r.TotalDistanceMeters, 1e-9)
	assert.InDelta(t, 800/13.4/60, r.EstimatedDurationMinutes, 1e-9)
	assert.InDelta(t, 800*0.000621371, r.TotalDistanceMiles, 1e-9)
	assert.Equal(t, len(r.Path), r.NodesTraversed)
	assert.NotEmpty(t, r.ID)
	assertWalk(t, g, r.Path)
}

func TestSynthesize_WaypointCapAndClosingLeg(t *testing.T) {
	g := corridor(t)
	r, err := newTestSynth(allSampler{}).Synthesize(context.Background(), g, model.RouteRequest{Origin: 1, TargetDistanceMeters: 1e9, MaxWaypoints: 3})
	require.NoError(t, err)

	assert.Equal(t, 3, r.WaypointCount)
	// three legs plus the closing leg from node 5
	assert.InDelta(t, 1600, r.TotalDistanceMeters, 1e-9)
	assert.Equal(t, model.NodeID(1), r.Path[0])
	assert.Equal(t, model.NodeID(1), r.Path[len(r.Path)-1])
	assert.Equal(t, model.RouteClosed, r.Status)
	assertWalk(t, g, r.Path)
}

func TestSynthesize_DefaultWaypointCap(t *testing.T) {
	g := corridor(t)
	r, err := newTestSynth(allSampler{}).Synthesize(context.Background(), g, model.RouteRequest{Origin: 1, TargetDistanceMeters: 1e9})
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxWaypoints, r.WaypointCount)
}

func TestSynthesize_UnreachableSamplesAreBounded(t *testing.T) {
	g := corridor(t)
	// an island far away always wins the distance contest but has no path
	g.AddNode(graph.Node{ID: 99, Planar: orb.Point{10000, 0}})
	g.AddNode(graph.Node{ID: 100, Planar: orb.Point{10100, 0}})
	require.NoError(t, g.AddEdge(99, 100, 100))

	r, err := newTestSynth(allSampler{}).Synthesize(context.Background(), g, model.RouteRequest{Origin: 1, TargetDistanceMeters: 1000, MaxWaypoints: 5})
	require.NoError(t, err)
	assert.Equal(t, 0, r.WaypointCount)
	assert.Equal(t, 20, r.FailedLegs)
	assert.Equal(t, []model.NodeID{1}, r.Path)
	assert.Zero(t, r.TotalDistanceMeters)
}

func TestSynthesize_MaxAttemptsOverride(t *testing.T) {
	g := corridor(t)
	g.AddNode(graph.Node{ID: 99, Planar: orb.Point{10000, 0}})
	syn := newTestSynth(allSampler{})
	syn.MaxAttempts = 3
	r, err := syn.Synthesize(context.Background(), g, model.RouteRequest{Origin: 1, TargetDistanceMeters: 1000})
	require.NoError(t, err)
	assert.Equal(t, 3, r.FailedLegs)
}

func TestSynthesize_DegenerateOrigin(t *testing.T) {
	g := corridor(t)
	g.AddNode(graph.Node{ID: 42, Planar: orb.Point{-50, 0}})
	r, err := newTestSynth(allSampler{}).Synthesize(context.Background(), g, model.RouteRequest{Origin: 42, TargetDistanceMeters: 1000})
	require.NoError(t, err)
	assert.Equal(t, model.RouteDegenerate, r.Status)
	assert.Equal(t, []model.NodeID{42}, r.Path)
	assert.Zero(t, r.TotalDistanceMeters)
	assert.Zero(t, r.WaypointCount)
	assert.Zero(t, r.FailedLegs)
}

func TestSynthesize_TiesKeepFirstSampled(t *testing.T) {
	g := graph.New()
	g.AddNode(graph.Node{ID: 1, Planar: orb.Point{0, 0}})
	g.AddNode(graph.Node{ID: 2, Planar: orb.Point{-100, 0}})
	g.AddNode(graph.Node{ID: 3, Planar: orb.Point{100, 0}})
	require.NoError(t, g.AddEdge(1, 2, 100))
	require.NoError(t, g.AddEdge(1, 3, 100))

	r, err := newTestSynth(fixedSampler{2, 3}).Synthesize(context.Background(), g, model.RouteRequest{Origin: 1, TargetDistanceMeters: 100, MaxWaypoints: 1})
	require.NoError(t, err)
	assert.Equal(t, []model.NodeID{1, 2, 1}, r.Path)
}

func TestSynthesize_TrivialLegCountsAsWaypoint(t *testing.T) {
	g := corridor(t)
	r, err := newTestSynth(fixedSampler{1}).Synthesize(context.Background(), g, model.RouteRequest{Origin: 1, TargetDistanceMeters: 1000, MaxWaypoints: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, r.WaypointCount)
	assert.Equal(t, []model.NodeID{1}, r.Path)
	assert.Equal(t, model.RouteClosed, r.Status)
}

func TestSynthesize_ZeroTarget(t *testing.T) {
	g := corridor(t)
	r, err := newTestSynth(allSampler{}).Synthesize(context.Background(), g, model.RouteRequest{Origin: 3})
	require.NoError(t, err)
	assert.Equal(t, []model.NodeID{3}, r.Path)
	assert.Zero(t, r.WaypointCount)
}

func TestSynthesize_Errors(t *testing.T) {
	syn := newTestSynth(allSampler{})

	_, err := syn.Synthesize(context.Background(), graph.New(), model.RouteRequest{Origin: 1, TargetDistanceMeters: 100})
	assert.ErrorIs(t, err, model.ErrNoBaseData)

	_, err = syn.Synthesize(context.Background(), nil, model.RouteRequest{Origin: 1})
	assert.ErrorIs(t, err, model.ErrNoBaseData)

	_, err = syn.Synthesize(context.Background(), corridor(t), model.RouteRequest{Origin: 77, TargetDistanceMeters: 100})
	assert.ErrorIs(t, err, ErrOriginNotInGraph)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = syn.Synthesize(ctx, corridor(t), model.RouteRequest{Origin: 1, TargetDistanceMeters: 1000})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSynthesize_RandomSamplerProducesWalk(t *testing.T) {
	g := graph.New()
	// 6x6 grid, 100 m spacing
	id := func(x, y int) model.NodeID { return model.NodeID(y*6 + x + 1) }
	for y := 0; y < 6; y++ {
		for x := 0; x < 6; x++ {
			g.AddNode(graph.Node{ID: id(x, y), Planar: orb.Point{float64(x) * 100, float64(y) * 100}})
		}
	}
	for y := 0; y < 6; y++ {
		for x := 0; x < 6; x++ {
			if x < 5 {
				require.NoError(t, g.AddEdge(id(x, y), id(x+1, y), 100))
			}
			if y < 5 {
				require.NoError(t, g.AddEdge(id(x, y), id(x, y+1), 100))
			}
		}
	}
	req := model.RouteRequest{Origin: id(0, 0), TargetDistanceMeters: TargetDistance(30)}
	a, err := newTestSynth(NewRandSampler(7)).Synthesize(context.Background(), g, req)
	require.NoError(t, err)
	b, err := newTestSynth(NewRandSampler(7)).Synthesize(context.Background(), g, req)
	require.NoError(t, err)

	assert.Equal(t, a.Path, b.Path, "same seed, same route")
	assert.Equal(t, model.RouteClosed, a.Status)
	assert.LessOrEqual(t, a.WaypointCount, DefaultMaxWaypoints)
	assertWalk(t, g, a.Path)
	sum, err := g.PathLength(a.Path)
	require.NoError(t, err)
	assert.InDelta(t, sum, a.TotalDistanceMeters, 1e-6)
}
