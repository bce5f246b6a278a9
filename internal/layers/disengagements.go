package layers

import (
    "encoding/csv"
    "errors"
    "fmt"
    "io"
    "os"
    "strconv"
    "strings"

    "github.com/paulmach/orb"
    "github.com/paulmach/orb/geojson"

    "riskroute/internal/model"
)

// Disengagements reads a CSV with lat, lon, reason and severity columns.
type Disengagements struct{ Path string }

func (Disengagements) Name() string { return "disengagements" }

func (s Disengagements) Load() (*geojson.FeatureCollection, error) {
    if strings.TrimSpace(s.Path) == "" {
        return geojson.NewFeatureCollection(), nil
    }
    f, err := os.Open(s.Path)
    if errors.Is(err, os.ErrNotExist) {
        return geojson.NewFeatureCollection(), nil
    }
    if err != nil {
        return nil, err
    }
    defer f.Close()
    events, err := ParseDisengagements(f)
    if err != nil {
        return nil, fmt.Errorf("parse %s: %w", s.Path, err)
    }
    return DisengagementFeatures(events), nil
}

// ParseDisengagements reads events by header name; column order is free and
// extra columns are ignored. Rows with unparsable coordinates are skipped.
func ParseDisengagements(r io.Reader) ([]model.Disengagement, error) {
    cr := csv.NewReader(r)
    cr.TrimLeadingSpace = true
    cr.FieldsPerRecord = -1
    header, err := cr.Read()
    if err != nil {
        if errors.Is(err, io.EOF) { return nil, nil }
        return nil, err
    }
    col := map[string]int{}
    for i, h := range header {
        col[strings.ToLower(strings.TrimSpace(h))] = i
    }
    for _, req := range []string{"lat", "lon"} {
        if _, ok := col[req]; !ok {
            return nil, fmt.Errorf("missing %q column", req)
        }
    }
    get := func(rec []string, name string) string {
        i, ok := col[name]
        if !ok || i >= len(rec) { return "" }
        return strings.TrimSpace(rec[i])
    }
    var out []model.Disengagement
    for {
        rec, err := cr.Read()
        if errors.Is(err, io.EOF) { break }
        if err != nil { return nil, err }
        lat, err1 := strconv.ParseFloat(get(rec, "lat"), 64)
        lon, err2 := strconv.ParseFloat(get(rec, "lon"), 64)
        if err1 != nil || err2 != nil { continue }
        out = append(out, model.Disengagement{Lat: lat, Lon: lon, Reason: get(rec, "reason"), Severity: get(rec, "severity")})
    }
    return out, nil
}

// DisengagementFeatures renders events as Point features.
func DisengagementFeatures(events []model.Disengagement) *geojson.FeatureCollection {
    fc := geojson.NewFeatureCollection()
    for _, e := range events {
        f := geojson.NewFeature(orb.Point{e.Lon, e.Lat})
        f.Properties["reason"] = e.Reason
        f.Properties["severity"] = e.Severity
        fc.Append(f)
    }
    return fc
}
