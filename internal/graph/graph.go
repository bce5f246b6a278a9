// Package graph holds the weighted road graph consumed by route synthesis.
package graph

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"

	"riskroute/internal/model"
)

var (
	ErrNoPath      = errors.New("no path between nodes")
	ErrUnknownNode = errors.New("unknown node")
	ErrEmptyGraph  = errors.New("graph has no nodes")
)

// Provider builds a drivable graph around a point.
type Provider interface {
	BuildGraph(ctx context.Context, centerLat, centerLon, radiusMeters float64) (*Graph, error)
}

// Node is an intersection. Geo is [lon, lat]; Planar is metres in a local projection.
type Node struct {
	ID     model.NodeID
	Geo    orb.Point
	Planar orb.Point
}

// Edge is one direction of a road segment between two intersections.
type Edge struct {
	To     model.NodeID
	Length float64
}

// Graph is undirected for routing: every edge is reachable from both endpoints.
type Graph struct {
	nodes map[model.NodeID]Node
	adj   map[model.NodeID][]Edge
	order []model.NodeID
	edges int
}

func New() *Graph {
	return &Graph{nodes: map[model.NodeID]Node{}, adj: map[model.NodeID][]Edge{}}
}

// AddNode inserts or replaces a node.
func (g *Graph) AddNode(n Node) {
	if _, ok := g.nodes[n.ID]; !ok {
		g.order = append(g.order, n.ID)
	}
	g.nodes[n.ID] = n
}

// AddEdge links two existing nodes. Lengths must be finite and non-negative.
func (g *Graph) AddEdge(u, v model.NodeID, length float64) error {
	if math.IsNaN(length) || math.IsInf(length, 0) || length < 0 {
		return fmt.Errorf("edge %d-%d: invalid length %v", u, v, length)
	}
	if _, ok := g.nodes[u]; !ok {
		return fmt.Errorf("edge %d-%d: %w %d", u, v, ErrUnknownNode, u)
	}
	if _, ok := g.nodes[v]; !ok {
		return fmt.Errorf("edge %d-%d: %w %d", u, v, ErrUnknownNode, v)
	}
	g.adj[u] = append(g.adj[u], Edge{To: v, Length: length})
	if u != v {
		g.adj[v] = append(g.adj[v], Edge{To: u, Length: length})
	}
	g.edges++
	return nil
}

func (g *Graph) Node(id model.NodeID) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

func (g *Graph) Has(id model.NodeID) bool {
	_, ok := g.nodes[id]
	return ok
}

// NodeIDs returns node ids in insertion order. The slice must not be modified.
func (g *Graph) NodeIDs() []model.NodeID { return g.order }

func (g *Graph) Neighbors(id model.NodeID) []Edge { return g.adj[id] }

func (g *Graph) Degree(id model.NodeID) int { return len(g.adj[id]) }

func (g *Graph) Len() int { return len(g.nodes) }

func (g *Graph) EdgeCount() int { return g.edges }

// EdgeLength returns the shortest parallel edge between u and v.
func (g *Graph) EdgeLength(u, v model.NodeID) (float64, bool) {
	best, found := math.Inf(1), false
	for _, e := range g.adj[u] {
		if e.To == v && e.Length < best {
			best, found = e.Length, true
		}
	}
	return best, found
}

// PathLength sums edge lengths along consecutive nodes of path.
func (g *Graph) PathLength(path []model.NodeID) (float64, error) {
	total := 0.0
	for i := 1; i < len(path); i++ {
		l, ok := g.EdgeLength(path[i-1], path[i])
		if !ok {
			return 0, fmt.Errorf("no edge %d-%d: %w", path[i-1], path[i], ErrNoPath)
		}
		total += l
	}
	return total, nil
}

// PlanarDistance is the Euclidean distance between two nodes in the planar projection.
func (g *Graph) PlanarDistance(a, b model.NodeID) float64 {
	return planar.Distance(g.nodes[a].Planar, g.nodes[b].Planar)
}

// NearestNode returns the node geodesically closest to lat/lon.
func (g *Graph) NearestNode(lat, lon float64) (model.NodeID, error) {
	if len(g.nodes) == 0 {
		return 0, ErrEmptyGraph
	}
	target := orb.Point{lon, lat}
	var best model.NodeID
	bestDist := math.Inf(1)
	for _, id := range g.order {
		d := geo.Distance(target, g.nodes[id].Geo)
		if d < bestDist {
			best, bestDist = id, d
		}
	}
	return best, nil
}

// LatLon returns [lat, lon] pairs for path, in order.
func (g *Graph) LatLon(path []model.NodeID) [][2]float64 {
	out := make([][2]float64, 0, len(path))
	for _, id := range path {
		n := g.nodes[id]
		out = append(out, [2]float64{n.Geo.Lat(), n.Geo.Lon()})
	}
	return out
}

// Bound is the geographic bounding box of all nodes.
func (g *Graph) Bound() orb.Bound {
	mp := make(orb.MultiPoint, 0, len(g.nodes))
	for _, id := range g.order {
		mp = append(mp, g.nodes[id].Geo)
	}
	return mp.Bound()
}
