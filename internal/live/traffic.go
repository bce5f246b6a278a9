package live

import (
	"context"
	"fmt"
	"net/url"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"riskroute/internal/model"
)

const (
	defaultTrafficURL = "https://api.tomtom.com/traffic/services/5/incidentDetails"

	// SignificantMagnitude is the lowest magnitudeOfDelay kept (2 moderate, 3 major, 4 closure).
	SignificantMagnitude = 2

	metersPerDegree = 111000.0

	incidentFields = "{incidents{type,geometry{type,coordinates},properties{iconCategory,magnitudeOfDelay}}}"
	categoryFilter = "0,1,2,3,4,5,6,7,8,9,10,11,14"
)

var iconCategories = map[int]string{
	0:  "Unknown",
	1:  "Accident",
	2:  "Fog",
	3:  "Dangerous Conditions",
	4:  "Rain",
	5:  "Ice",
	6:  "Jam",
	7:  "Lane Closed",
	8:  "Road Closed",
	9:  "Road Works",
	10: "Wind",
	11: "Flooding",
	14: "Broken Down Vehicle",
}

// TrafficGateway reads active incidents from TomTom.
type TrafficGateway struct {
	apiKey  string
	baseURL string
	up      *upstream
}

func NewTrafficGateway(cfg GatewayConfig) *TrafficGateway {
	base := cfg.BaseURL
	if base == "" {
		base = defaultTrafficURL
	}
	return &TrafficGateway{apiKey: cfg.APIKey, baseURL: base, up: newUpstream("tomtom", cfg)}
}

type tomtomResponse struct {
	Incidents []struct {
		Geometry   *geojson.Geometry `json:"geometry"`
		Properties struct {
			IconCategory     *int `json:"iconCategory"`
			MagnitudeOfDelay int  `json:"magnitudeOfDelay"`
		} `json:"properties"`
	} `json:"incidents"`
}

// BBox is the square lon/lat box of half-side radius/111000 degrees around a point.
func BBox(lat, lon, radiusMeters float64) orb.Bound {
	off := radiusMeters / metersPerDegree
	return orb.Bound{Min: orb.Point{lon - off, lat - off}, Max: orb.Point{lon + off, lat + off}}
}

// Fetch returns significant incidents, or an empty slice on any failure.
func (t *TrafficGateway) Fetch(ctx context.Context, lat, lon, radiusMeters float64) []model.TrafficIncident {
	out := []model.TrafficIncident{}
	if t.apiKey == "" {
		t.up.log.Warn("TOMTOM_API_KEY missing, traffic unavailable")
		return out
	}
	b := BBox(lat, lon, radiusMeters)
	q := url.Values{}
	q.Set("key", t.apiKey)
	q.Set("bbox", fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", b.Min.Lon(), b.Min.Lat(), b.Max.Lon(), b.Max.Lat()))
	q.Set("fields", incidentFields)
	q.Set("language", "en-GB")
	q.Set("categoryFilter", categoryFilter)

	var body tomtomResponse
	if err := t.up.getJSON(ctx, t.baseURL+"?"+q.Encode(), &body); err != nil {
		return out
	}
	for _, inc := range body.Incidents {
		if inc.Properties.MagnitudeOfDelay < SignificantMagnitude {
			continue
		}
		category := "Unknown"
		if inc.Properties.IconCategory != nil {
			if name, ok := iconCategories[*inc.Properties.IconCategory]; ok {
				category = name
			}
		}
		var coords orb.LineString
		if inc.Geometry != nil {
			coords = flatten(inc.Geometry.Geometry())
		}
		out = append(out, model.TrafficIncident{
			Category:    category,
			Magnitude:   inc.Properties.MagnitudeOfDelay,
			Coordinates: coords,
		})
	}
	return out
}

func flatten(g orb.Geometry) orb.LineString {
	switch v := g.(type) {
	case orb.Point:
		return orb.LineString{v}
	case orb.LineString:
		return v
	case orb.MultiLineString:
		var ls orb.LineString
		for _, part := range v {
			ls = append(ls, part...)
		}
		return ls
	}
	return nil
}
