package graph

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/project"

	"riskroute/internal/model"
)

// Projector maps lon/lat into a local metric plane centred on a reference point.
// Web Mercator is scaled by cos(lat0) so distances near the centre are in metres.
type Projector struct {
	origin orb.Point
	scale  float64
}

func NewProjector(centerLat, centerLon float64) Projector {
	c := orb.Point{centerLon, centerLat}
	return Projector{
		origin: project.Point(c, project.WGS84.ToMercator),
		scale:  math.Cos(centerLat * math.Pi / 180),
	}
}

func (p Projector) Project(geoPt orb.Point) orb.Point {
	m := project.Point(geoPt, project.WGS84.ToMercator)
	return orb.Point{(m[0] - p.origin[0]) * p.scale, (m[1] - p.origin[1]) * p.scale}
}

// snapKey rounds a coordinate to ~1e-7 degrees so shared vertices of
// different features collapse into one intersection.
func snapKey(p orb.Point) [2]int64 {
	return [2]int64{int64(math.Round(p[0] * 1e7)), int64(math.Round(p[1] * 1e7))}
}

// FromFeatures builds a graph from LineString/MultiLineString features. Only
// vertices within radiusMeters of the centre are kept; a non-positive radius
// keeps everything. Edge length is the geodesic distance between vertices.
// dropped counts edges AddEdge rejected, such as non-finite coordinates.
func FromFeatures(fc *geojson.FeatureCollection, centerLat, centerLon, radiusMeters float64) (g *Graph, dropped int) {
	g = New()
	if fc == nil {
		return g, 0
	}
	center := orb.Point{centerLon, centerLat}
	proj := NewProjector(centerLat, centerLon)
	ids := map[[2]int64]model.NodeID{}

	nodeFor := func(p orb.Point) (model.NodeID, bool) {
		if radiusMeters > 0 && geo.Distance(center, p) > radiusMeters {
			return 0, false
		}
		k := snapKey(p)
		if id, ok := ids[k]; ok {
			return id, true
		}
		id := model.NodeID(len(ids) + 1)
		ids[k] = id
		g.AddNode(Node{ID: id, Geo: p, Planar: proj.Project(p)})
		return id, true
	}

	addLine := func(ls orb.LineString) {
		for i := 1; i < len(ls); i++ {
			u, okU := nodeFor(ls[i-1])
			v, okV := nodeFor(ls[i])
			if !okU || !okV || u == v {
				continue
			}
			if err := g.AddEdge(u, v, geo.Distance(ls[i-1], ls[i])); err != nil {
				dropped++
			}
		}
	}

	for _, f := range fc.Features {
		switch geom := f.Geometry.(type) {
		case orb.LineString:
			addLine(geom)
		case orb.MultiLineString:
			for _, ls := range geom {
				addLine(ls)
			}
		}
	}
	return g, dropped
}
