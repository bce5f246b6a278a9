package store

import (
    "errors"
    "fmt"
    "io/fs"
    "math"
    "os"
    "strconv"
    "strings"

    "github.com/paulmach/orb/geojson"

    "riskroute/internal/model"
)

// Attribute names of the road attribute layer.
const (
    propName      = "NAME"
    propBearing   = "bearing"
    propHINStatus = "hinHIN_Status"
    propHINRank   = "hinRank"
    propFlood     = "fld_FLD"
)

// LoadFeatureCollection reads a GeoJSON FeatureCollection. A missing file
// returns fs.ErrNotExist so callers can treat it as an empty layer.
func LoadFeatureCollection(path string) (*geojson.FeatureCollection, error) {
    if strings.TrimSpace(path) == "" {
        return nil, fs.ErrNotExist
    }
    b, err := os.ReadFile(path)
    if err != nil {
        return nil, err
    }
    fc, err := geojson.UnmarshalFeatureCollection(b)
    if err != nil {
        return nil, fmt.Errorf("parse %s: %w", path, err)
    }
    return fc, nil
}

// IsMissing reports whether err means the source file does not exist.
func IsMissing(err error) bool { return errors.Is(err, fs.ErrNotExist) }

// SegmentsFromFeatures maps attribute features to road segments. Absent,
// empty or NaN attributes stay nil.
func SegmentsFromFeatures(fc *geojson.FeatureCollection) []model.RoadSegment {
    if fc == nil {
        return nil
    }
    out := make([]model.RoadSegment, 0, len(fc.Features))
    for i, f := range fc.Features {
        seg := model.RoadSegment{
            ID:         featureID(f, i),
            Geometry:   f.Geometry,
            Attributes: map[string]any(f.Properties),
        }
        if name, ok := stringProp(f.Properties, propName); ok {
            seg.Name = *name
        }
        seg.Bearing = floatProp(f.Properties, propBearing)
        seg.HINStatus, _ = stringProp(f.Properties, propHINStatus)
        seg.HINRank = floatProp(f.Properties, propHINRank)
        seg.FloodZone, _ = stringProp(f.Properties, propFlood)
        out = append(out, seg)
    }
    return out
}

func featureID(f *geojson.Feature, i int) string {
    switch v := f.ID.(type) {
    case string:
        if v != "" { return v }
    case float64:
        return strconv.FormatFloat(v, 'f', -1, 64)
    }
    for _, k := range []string{"OBJECTID", "FID", "id"} {
        if v, ok := f.Properties[k]; ok && v != nil {
            return fmt.Sprint(v)
        }
    }
    return "seg-" + strconv.Itoa(i)
}

func stringProp(p geojson.Properties, key string) (*string, bool) {
    v, ok := p[key]
    if !ok || v == nil {
        return nil, false
    }
    var s string
    switch t := v.(type) {
    case string:
        s = strings.TrimSpace(t)
    case float64:
        if math.IsNaN(t) { return nil, false }
        s = strconv.FormatFloat(t, 'f', -1, 64)
    default:
        s = fmt.Sprint(t)
    }
    if s == "" {
        return nil, false
    }
    return &s, true
}

func floatProp(p geojson.Properties, key string) *float64 {
    v, ok := p[key]
    if !ok || v == nil {
        return nil
    }
    var f float64
    switch t := v.(type) {
    case float64:
        f = t
    case string:
        parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
        if err != nil { return nil }
        f = parsed
    default:
        return nil
    }
    if math.IsNaN(f) || math.IsInf(f, 0) {
        return nil
    }
    return &f
}
