package layers

import (
    "github.com/paulmach/orb/geojson"

    "riskroute/internal/model"
)

// IncidentFeatures renders live traffic incidents as LineString features.
// Incidents without coordinates are skipped.
func IncidentFeatures(incidents []model.TrafficIncident) *geojson.FeatureCollection {
    fc := geojson.NewFeatureCollection()
    for _, inc := range incidents {
        if len(inc.Coordinates) == 0 {
            continue
        }
        f := geojson.NewFeature(inc.Coordinates)
        f.Properties["category"] = inc.Category
        f.Properties["magnitude"] = inc.Magnitude
        fc.Append(f)
    }
    return fc
}

// ScoredFeatures renders the scored table with the attributes the map
// tooltip shows. Segments without geometry are skipped.
func ScoredFeatures(table []model.ScoredSegment) *geojson.FeatureCollection {
    fc := geojson.NewFeatureCollection()
    for _, s := range table {
        if s.Geometry == nil {
            continue
        }
        f := geojson.NewFeature(s.Geometry)
        f.ID = s.ID
        f.Properties["name"] = s.Name
        f.Properties["complexity"] = s.ComplexityScore
        f.Properties["riskBand"] = s.RiskBand
        f.Properties["occlusionRisk"] = string(s.OcclusionLabel)
        if s.Bearing != nil {
            f.Properties["bearing"] = *s.Bearing
        }
        if s.HINStatus != nil {
            f.Properties["hinStatus"] = *s.HINStatus
        }
        if s.FloodZone != nil {
            f.Properties["floodZone"] = *s.FloodZone
        }
        fc.Append(f)
    }
    return fc
}
