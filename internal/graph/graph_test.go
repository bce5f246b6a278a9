package graph

import (
	"errors"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"riskroute/internal/model"
)

func equalPath(a, b []model.NodeID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// line builds 1-2-3-4 with a costly shortcut 1-4.
func line(t *testing.T) *Graph {
	t.Helper()
	g := New()
	for i := 1; i <= 4; i++ {
		g.AddNode(Node{ID: model.NodeID(i), Planar: orb.Point{float64(i) * 100, 0}})
	}
	for _, e := range []struct {
		u, v model.NodeID
		l    float64
	}{{1, 2, 100}, {2, 3, 100}, {3, 4, 100}, {1, 4, 500}} {
		if err := g.AddEdge(e.u, e.v, e.l); err != nil {
			t.Fatalf("AddEdge: %v", err)
		}
	}
	return g
}

func TestShortestPathPrefersLighterRoute(t *testing.T) {
	g := line(t)
	path, length, err := g.ShortestPath(1, 4)
	if err != nil {
		t.Fatalf("ShortestPath: %v", err)
	}
	if !equalPath(path, []model.NodeID{1, 2, 3, 4}) {
		t.Fatalf("unexpected path %v", path)
	}
	if length != 300 {
		t.Fatalf("length = %v, want 300", length)
	}
	// undirected: the reverse works too
	back, _, err := g.ShortestPath(4, 1)
	if err != nil || !equalPath(back, []model.NodeID{4, 3, 2, 1}) {
		t.Fatalf("reverse path %v err %v", back, err)
	}
}

func TestShortestPathDisconnected(t *testing.T) {
	g := line(t)
	g.AddNode(Node{ID: 99})
	if _, _, err := g.ShortestPath(1, 99); !errors.Is(err, ErrNoPath) {
		t.Fatalf("want ErrNoPath, got %v", err)
	}
	if _, _, err := g.ShortestPath(1, 1000); !errors.Is(err, ErrUnknownNode) {
		t.Fatalf("want ErrUnknownNode, got %v", err)
	}
}

func TestShortestPathSameNode(t *testing.T) {
	g := line(t)
	path, length, err := g.ShortestPath(2, 2)
	if err != nil || length != 0 || !equalPath(path, []model.NodeID{2}) {
		t.Fatalf("got %v %v %v", path, length, err)
	}
}

func TestAddEdgeRejectsBadLengths(t *testing.T) {
	g := line(t)
	for _, l := range []float64{-1, math.NaN(), math.Inf(1)} {
		if err := g.AddEdge(1, 2, l); err == nil {
			t.Fatalf("length %v accepted", l)
		}
	}
	if err := g.AddEdge(1, 42, 1); !errors.Is(err, ErrUnknownNode) {
		t.Fatalf("want ErrUnknownNode, got %v", err)
	}
}

func TestPathLengthUsesShortestParallelEdge(t *testing.T) {
	g := line(t)
	if err := g.AddEdge(1, 2, 40); err != nil {
		t.Fatal(err)
	}
	l, err := g.PathLength([]model.NodeID{1, 2, 3, 2, 1})
	if err != nil {
		t.Fatalf("PathLength: %v", err)
	}
	if l != 40+100+100+40 {
		t.Fatalf("length = %v", l)
	}
	if _, err := g.PathLength([]model.NodeID{1, 3}); !errors.Is(err, ErrNoPath) {
		t.Fatalf("want ErrNoPath for non-adjacent nodes, got %v", err)
	}
}

func TestNearestNode(t *testing.T) {
	g := New()
	g.AddNode(Node{ID: 1, Geo: orb.Point{-82.46, 28.05}})
	g.AddNode(Node{ID: 2, Geo: orb.Point{-82.40, 28.10}})
	id, err := g.NearestNode(28.0543, -82.4597)
	if err != nil || id != 1 {
		t.Fatalf("nearest = %v err %v", id, err)
	}
	if _, err := New().NearestNode(0, 0); !errors.Is(err, ErrEmptyGraph) {
		t.Fatalf("want ErrEmptyGraph, got %v", err)
	}
}

func TestFromFeaturesMergesSharedVertices(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.LineString{{-82.4600, 28.0500}, {-82.4590, 28.0500}}))
	fc.Append(geojson.NewFeature(orb.LineString{{-82.4590, 28.0500}, {-82.4590, 28.0510}}))
	// far away, clipped by the radius
	fc.Append(geojson.NewFeature(orb.LineString{{-81.0, 27.0}, {-81.001, 27.0}}))

	g, dropped := FromFeatures(fc, 28.05, -82.46, 2000)
	if dropped != 0 {
		t.Fatalf("dropped = %d", dropped)
	}
	if g.Len() != 3 {
		t.Fatalf("nodes = %d, want 3", g.Len())
	}
	if g.EdgeCount() != 2 {
		t.Fatalf("edges = %d, want 2", g.EdgeCount())
	}
	path, length, err := g.ShortestPath(1, 3)
	if err != nil || len(path) != 3 {
		t.Fatalf("path %v err %v", path, err)
	}
	// ~98m east + ~111m north
	if length < 150 || length > 260 {
		t.Fatalf("unexpected length %v", length)
	}
	// planar coordinates are metres from the centre
	n, _ := g.Node(1)
	if math.Abs(n.Planar[0]) > 1 || math.Abs(n.Planar[1]) > 1 {
		t.Fatalf("centre node should project near origin, got %v", n.Planar)
	}
}

func TestFromFeaturesCountsRejectedEdges(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.LineString{{-82.4600, 28.0500}, {-82.4590, 28.0500}}))
	fc.Append(geojson.NewFeature(orb.LineString{{-82.4590, 28.0500}, {math.NaN(), 28.0510}}))

	g, dropped := FromFeatures(fc, 28.05, -82.46, 0)
	if dropped != 1 {
		t.Fatalf("dropped = %d, want 1", dropped)
	}
	if g.EdgeCount() != 1 {
		t.Fatalf("edges = %d, want 1", g.EdgeCount())
	}
}
