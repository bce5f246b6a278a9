package layers

import (
    "fmt"

    "github.com/paulmach/orb/geojson"

    "riskroute/internal/store"
)

// Median type codes that mark a roundabout.
var roundaboutCodes = map[string]bool{"41": true, "42": true}

// Roundabouts reads median features and keeps MEDIAN_TYP 41 and 42.
type Roundabouts struct{ Path string }

func (Roundabouts) Name() string { return "roundabouts" }

func (s Roundabouts) Load() (*geojson.FeatureCollection, error) {
    fc, err := store.LoadFeatureCollection(s.Path)
    if store.IsMissing(err) {
        return geojson.NewFeatureCollection(), nil
    }
    if err != nil {
        return nil, err
    }
    return FilterRoundabouts(fc), nil
}

// FilterRoundabouts returns the roundabout features of fc.
func FilterRoundabouts(fc *geojson.FeatureCollection) *geojson.FeatureCollection {
    out := geojson.NewFeatureCollection()
    for _, f := range fc.Features {
        v, ok := f.Properties["MEDIAN_TYP"]
        if !ok || v == nil { continue }
        code := fmt.Sprint(v)
        if n, isNum := v.(float64); isNum {
            code = fmt.Sprintf("%.0f", n)
        }
        if roundaboutCodes[code] {
            out.Append(f)
        }
    }
    return out
}
